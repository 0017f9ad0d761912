package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/nextudy/nextudy-api/internal/store"
)

// GenerationWriter is the part of the generation task store the streamer writes through.
type GenerationWriter interface {
	UpdatePartial(ctx context.Context, id uuid.UUID, content string) error
	Complete(ctx context.Context, id uuid.UUID, content string, completedAt time.Time) error
	Fail(ctx context.Context, id uuid.UUID, reason string, failedAt time.Time) error
}

// MessageAppender appends messages to a conversation.
type MessageAppender interface {
	AddMessage(ctx context.Context, msg *domain.ConversationMessage) error
}

// ChatGenerationConfig tunes the streamer.
type ChatGenerationConfig struct {
	Model         string
	Temperature   float32
	FlushInterval time.Duration
	FlushChars    int
	Retry         generation.RetryPolicy
}

// ChatGenerationDeps groups the collaborators of a ChatGenerationTask.
type ChatGenerationDeps struct {
	Model         generation.ChatModel
	Tasks         GenerationWriter
	Conversations MessageAppender
	Logger        *slog.Logger
}

// ChatGenerationTask streams a tutoring answer into a generation task row.
type ChatGenerationTask struct {
	row    *domain.GenerationTask
	deps   ChatGenerationDeps
	config ChatGenerationConfig
	now    func() time.Time
}

// NewChatGenerationTask creates the background streamer for row.
func NewChatGenerationTask(
	row *domain.GenerationTask,
	deps ChatGenerationDeps,
	config ChatGenerationConfig,
) (*ChatGenerationTask, error) {
	if row == nil {
		return nil, errors.New("generation task cannot be nil")
	}
	if deps.Model == nil || deps.Tasks == nil {
		return nil, errors.New("chat model and task store are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	// The task owns its copy; the caller keeps reading row.
	own := *row
	return &ChatGenerationTask{
		row:    &own,
		deps:   deps,
		config: config,
		now:    time.Now,
	}, nil
}

// ID returns the generation task row id.
func (t *ChatGenerationTask) ID() uuid.UUID {
	return t.row.ID
}

// Type returns TaskTypeChatGeneration.
func (t *ChatGenerationTask) Type() string {
	return TaskTypeChatGeneration
}

// Execute streams the answer, flushing partial content on the flush policy,
// and finishes the row as completed or failed.
func (t *ChatGenerationTask) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, t.deps.Logger).With(
		slog.String("generation_task_id", t.row.ID.String()),
		slog.String("user_id", t.row.UserID.String()),
	)
	ctx = logger.WithLogger(ctx, log)

	content, err := t.stream(ctx)
	if err != nil {
		t.finishFailed(ctx, content, err)
		return err
	}

	final := generation.AnnotateEmojis(strings.TrimSpace(content))
	if final == "" {
		err = fmt.Errorf("%w: empty answer", generation.ErrInvalidResponse)
		t.finishFailed(ctx, "", err)
		return err
	}

	done := *t.row
	if err := done.Complete(final, t.now()); err != nil {
		log.Warn("generation task already finished, dropping answer")
		return err
	}
	if err := t.deps.Tasks.Complete(ctx, done.ID, done.FinalContent, *done.CompletedAt); err != nil {
		if errors.Is(err, store.ErrTaskNotGenerating) {
			log.Warn("generation task finished elsewhere, dropping answer")
			return err
		}
		t.finishFailed(ctx, content, err)
		return fmt.Errorf("failed to complete generation task: %w", err)
	}
	*t.row = done

	t.appendToConversation(ctx, final)
	log.Info("generation task completed", slog.Int("content_length", len(final)))
	return nil
}

// Fail marks the row failed. The runner calls it when Execute panics.
func (t *ChatGenerationTask) Fail(ctx context.Context, err error) {
	t.finishFailed(ctx, "", err)
}

// stream opens the LLM stream and consumes it, returning whatever text was
// received even on error.
func (t *ChatGenerationTask) stream(ctx context.Context) (string, error) {
	messages, err := generation.BuildChatMessages(generation.TutorPromptData{
		Subject: t.row.Subject,
		Grade:   t.row.Grade,
		Format:  t.row.Format,
	}, t.row.Messages)
	if err != nil {
		return "", err
	}
	req := generation.CompletionRequest{
		Model:       t.config.Model,
		Messages:    messages,
		Temperature: t.config.Temperature,
	}

	// The first Recv is inside the retry so providers that report 429 lazily
	// are retried as well.
	var (
		s        generation.Stream
		first    string
		firstErr error
	)
	err = generation.WithRateLimitRetry(ctx, t.config.Retry, func(ctx context.Context) error {
		opened, err := t.deps.Model.StreamChat(ctx, req)
		if err != nil {
			return err
		}
		first, firstErr = opened.Recv()
		if firstErr != nil && !errors.Is(firstErr, io.EOF) {
			_ = opened.Close()
			return firstErr
		}
		s = opened
		return nil
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = s.Close() }()

	var buf strings.Builder
	flusher := newFlushPolicy(t.config.FlushInterval, t.config.FlushChars, t.now())

	delta, recvErr := first, firstErr
	for {
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				return buf.String(), nil
			}
			return buf.String(), recvErr
		}

		buf.WriteString(delta)
		now := t.now()
		if flusher.add(delta, now) {
			if err := t.row.SetPartial(buf.String(), now); err != nil {
				return buf.String(), err
			}
			if err := t.deps.Tasks.UpdatePartial(ctx, t.row.ID, buf.String()); err != nil {
				return buf.String(), fmt.Errorf("failed to flush partial content: %w", err)
			}
			flusher.flushed(now)
		}

		delta, recvErr = s.Recv()
	}
}

// finishFailed stores the partial content and fails the row. It runs on a
// context detached from cancellation so a timed out task still records why.
func (t *ChatGenerationTask) finishFailed(ctx context.Context, partial string, cause error) {
	log := logger.FromContextOrDefault(ctx, t.deps.Logger)
	if errors.Is(cause, store.ErrTaskNotGenerating) {
		log.Warn("generation task no longer generating", slog.String("error", cause.Error()))
		return
	}

	reason := FailureReason(cause)
	failed := *t.row
	if err := failed.Fail(reason, t.now()); err != nil {
		log.Warn("generation task already finished, not failing it",
			slog.String("status", string(t.row.Status)),
			slog.String("error", cause.Error()))
		return
	}
	if partial != "" {
		failed.PartialContent = partial
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if partial != "" {
		if err := t.deps.Tasks.UpdatePartial(writeCtx, t.row.ID, partial); err != nil {
			log.Warn("failed to save partial content", slog.String("error", err.Error()))
		}
	}

	log.Error("generation task failed",
		slog.String("reason", reason),
		slog.String("error", cause.Error()))

	err := t.deps.Tasks.Fail(writeCtx, failed.ID, failed.ErrorMessage, *failed.CompletedAt)
	if err != nil && !errors.Is(err, store.ErrTaskNotGenerating) {
		log.Error("failed to mark generation task failed", slog.String("error", err.Error()))
		return
	}
	*t.row = failed
}

func (t *ChatGenerationTask) appendToConversation(ctx context.Context, content string) {
	if t.row.ConversationID == nil || t.deps.Conversations == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, t.deps.Logger)

	msg, err := domain.NewConversationMessage(*t.row.ConversationID, domain.RoleAssistant, content)
	if err != nil {
		log.Error("invalid assistant message", slog.String("error", err.Error()))
		return
	}
	if err := t.deps.Conversations.AddMessage(ctx, msg); err != nil {
		log.Error("failed to append assistant message",
			slog.String("conversation_id", t.row.ConversationID.String()),
			slog.String("error", err.Error()))
	}
}

// FailureReason maps an execution error to the failure code stored on the row.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, generation.ErrRateLimited):
		return domain.FailureRateLimited
	case errors.Is(err, generation.ErrContentBlocked):
		return domain.FailureBlocked
	case errors.Is(err, generation.ErrInvalidResponse):
		return domain.FailureEmptyResponse
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	case errors.Is(err, context.Canceled):
		return domain.FailureInterrupted
	default:
		return domain.FailureGeneration
	}
}

// flushPolicy decides when accumulated text is written to the row: once
// interval has elapsed or chars new characters arrived since the last flush.
type flushPolicy struct {
	interval  time.Duration
	chars     int
	lastFlush time.Time
	pending   int
}

func newFlushPolicy(interval time.Duration, chars int, start time.Time) *flushPolicy {
	return &flushPolicy{interval: interval, chars: chars, lastFlush: start}
}

// add records delta and reports whether a flush is due.
func (p *flushPolicy) add(delta string, now time.Time) bool {
	p.pending += utf8.RuneCountInString(delta)
	if p.pending == 0 {
		return false
	}
	if p.chars > 0 && p.pending >= p.chars {
		return true
	}
	return p.interval > 0 && now.Sub(p.lastFlush) >= p.interval
}

func (p *flushPolicy) flushed(now time.Time) {
	p.lastFlush = now
	p.pending = 0
}
