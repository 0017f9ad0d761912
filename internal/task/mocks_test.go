package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRecoverer struct {
	mu               sync.Mutex
	FailGeneratingFn func(ctx context.Context, createdBefore time.Time, reason string) (int64, error)
	reasons          []string
}

func (m *mockRecoverer) FailGenerating(ctx context.Context, createdBefore time.Time, reason string) (int64, error) {
	m.mu.Lock()
	m.reasons = append(m.reasons, reason)
	m.mu.Unlock()
	if m.FailGeneratingFn != nil {
		return m.FailGeneratingFn(ctx, createdBefore, reason)
	}
	return 0, nil
}

func (m *mockRecoverer) Reasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reasons...)
}

type funcTask struct {
	id        uuid.UUID
	executeFn func(ctx context.Context) error
	failed    chan error
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), executeFn: fn, failed: make(chan error, 1)}
}

func (t *funcTask) ID() uuid.UUID                     { return t.id }
func (t *funcTask) Type() string                      { return "test" }
func (t *funcTask) Execute(ctx context.Context) error { return t.executeFn(ctx) }
func (t *funcTask) Fail(ctx context.Context, err error) {
	t.failed <- err
}

type mockWriter struct {
	UpdatePartialFn func(ctx context.Context, id uuid.UUID, content string) error
	CompleteFn      func(ctx context.Context, id uuid.UUID, content string, at time.Time) error
	FailFn          func(ctx context.Context, id uuid.UUID, reason string, at time.Time) error

	partials  []string
	completed string
	failed    string
}

func (m *mockWriter) UpdatePartial(ctx context.Context, id uuid.UUID, content string) error {
	m.partials = append(m.partials, content)
	if m.UpdatePartialFn != nil {
		return m.UpdatePartialFn(ctx, id, content)
	}
	return nil
}

func (m *mockWriter) Complete(ctx context.Context, id uuid.UUID, content string, at time.Time) error {
	m.completed = content
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, id, content, at)
	}
	return nil
}

func (m *mockWriter) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	m.failed = reason
	if m.FailFn != nil {
		return m.FailFn(ctx, id, reason, at)
	}
	return nil
}

type mockAppender struct {
	messages []*domain.ConversationMessage
}

func (m *mockAppender) AddMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	m.messages = append(m.messages, msg)
	return nil
}

// sliceStream replays deltas then returns err (io.EOF when nil).
type sliceStream struct {
	deltas []string
	err    error
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.deltas) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	d := s.deltas[0]
	s.deltas = s.deltas[1:]
	return d, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type mockChatModel struct {
	StreamChatFn func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error)
	requests     []generation.CompletionRequest
}

func (m *mockChatModel) Complete(ctx context.Context, req generation.CompletionRequest) (string, error) {
	return "", generation.ErrGenerationFailed
}

func (m *mockChatModel) StreamChat(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
	m.requests = append(m.requests, req)
	return m.StreamChatFn(ctx, req)
}
