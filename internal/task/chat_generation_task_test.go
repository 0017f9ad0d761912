package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRow(t *testing.T, convID *uuid.UUID) *domain.GenerationTask {
	t.Helper()
	row, err := domain.NewGenerationTask(uuid.New(), "msg-1", convID, "Histoire", "Seconde", domain.FormatStandard,
		[]domain.ChatMessage{{Role: domain.RoleUser, Content: "Raconte 1789"}})
	require.NoError(t, err)
	return row
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func newChatTask(
	t *testing.T,
	row *domain.GenerationTask,
	model *mockChatModel,
	writer *mockWriter,
	appender *mockAppender,
	cfg ChatGenerationConfig,
) *ChatGenerationTask {
	t.Helper()
	task, err := NewChatGenerationTask(row, ChatGenerationDeps{
		Model:         model,
		Tasks:         writer,
		Conversations: appender,
		Logger:        quietLogger(),
	}, cfg)
	require.NoError(t, err)
	return task
}

func TestFlushPolicy(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		deltas  []string
		elapsed time.Duration
		want    bool
	}{
		{name: "below_both_thresholds", deltas: []string{"abc"}, elapsed: 50 * time.Millisecond, want: false},
		{name: "chars_threshold", deltas: []string{"0123456789"}, elapsed: 0, want: true},
		{name: "chars_accumulate", deltas: []string{"01234", "56789"}, elapsed: 0, want: true},
		{name: "interval_threshold", deltas: []string{"a"}, elapsed: 200 * time.Millisecond, want: true},
		{name: "empty_delta_never_flushes", deltas: []string{""}, elapsed: time.Second, want: false},
		{name: "counts_runes_not_bytes", deltas: []string{"ééééé"}, elapsed: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFlushPolicy(200*time.Millisecond, 10, start)
			var got bool
			for _, d := range tt.deltas {
				got = p.add(d, start.Add(tt.elapsed))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("flushed_resets_counters", func(t *testing.T) {
		p := newFlushPolicy(200*time.Millisecond, 10, start)
		require.True(t, p.add("0123456789", start))
		p.flushed(start)
		assert.False(t, p.add("a", start.Add(100*time.Millisecond)))
		assert.True(t, p.add("b", start.Add(200*time.Millisecond)))
	})
}

func TestChatGenerationTask_StreamsAndCompletes(t *testing.T) {
	convID := uuid.New()
	row := newRow(t, &convID)
	stream := &sliceStream{deltas: []string{"# Révolution\n", "En 1789, ", "les États généraux..."}}
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return stream, nil
		},
	}
	writer := &mockWriter{}
	appender := &mockAppender{}

	task := newChatTask(t, row, model, writer, appender, ChatGenerationConfig{
		Model:         "chat-model",
		FlushInterval: time.Hour,
		FlushChars:    10,
	})
	task.now = steppingClock(time.Millisecond)

	require.NoError(t, task.Execute(context.Background()))

	want := "# 📘 Révolution\nEn 1789, les États généraux..."
	assert.Equal(t, want, writer.completed)
	assert.Empty(t, writer.failed)
	assert.True(t, stream.closed)

	// "En 1789, " alone stays under the 10-char threshold.
	assert.Equal(t, []string{
		"# Révolution\n",
		"# Révolution\nEn 1789, les États généraux...",
	}, writer.partials)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Equal(t, "chat-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Histoire")

	require.Len(t, appender.messages, 1)
	assert.Equal(t, domain.RoleAssistant, appender.messages[0].Role)
	assert.Equal(t, want, appender.messages[0].Content)
	assert.Equal(t, convID, appender.messages[0].ConversationID)
}

func TestChatGenerationTask_FlushesOnInterval(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return &sliceStream{deltas: []string{"a", "b", "c", "d"}}, nil
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{
		FlushInterval: 200 * time.Millisecond,
		FlushChars:    1000,
	})
	// The first call seeds the policy, then each delta sees +100ms.
	task.now = steppingClock(100 * time.Millisecond)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, []string{"ab", "abcd"}, writer.partials)
	assert.Equal(t, "abcd", writer.completed)
}

func TestChatGenerationTask_StreamErrorKeepsPartial(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return &sliceStream{deltas: []string{"début "}, err: errors.New("connection reset")}, nil
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, &mockAppender{}, ChatGenerationConfig{
		FlushInterval: time.Hour,
		FlushChars:    1000,
	})

	err := task.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.FailureGeneration, writer.failed)
	assert.Equal(t, []string{"début "}, writer.partials)
	assert.Empty(t, writer.completed)
}

func TestChatGenerationTask_RetriesRateLimitOnOpen(t *testing.T) {
	row := newRow(t, nil)
	attempts := 0
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			attempts++
			switch attempts {
			case 1:
				return nil, generation.ErrRateLimited
			case 2:
				return &sliceStream{err: generation.ErrRateLimited}, nil
			default:
				return &sliceStream{deltas: []string{"ok"}}, nil
			}
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{
		FlushInterval: time.Hour,
		FlushChars:    1000,
		Retry:         generation.RetryPolicy{MaxRetries: 3, Delay: time.Millisecond},
	})

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "ok", writer.completed)
}

func TestChatGenerationTask_RateLimitExhausted(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return nil, generation.ErrRateLimited
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{
		Retry: generation.RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
	})

	err := task.Execute(context.Background())
	assert.ErrorIs(t, err, generation.ErrRateLimited)
	assert.Equal(t, domain.FailureRateLimited, writer.failed)
	assert.Len(t, model.requests, 2)
}

func TestChatGenerationTask_EmptyAnswerFails(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return &sliceStream{deltas: []string{"  ", "\n"}}, nil
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{FlushChars: 1000, FlushInterval: time.Hour})

	err := task.Execute(context.Background())
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	assert.Equal(t, domain.FailureEmptyResponse, writer.failed)
	assert.Empty(t, writer.completed)
}

func TestChatGenerationTask_StopsWhenRowNoLongerGenerating(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return &sliceStream{deltas: []string{"0123456789", "suite"}}, nil
		},
	}
	writer := &mockWriter{
		UpdatePartialFn: func(ctx context.Context, id uuid.UUID, content string) error {
			return store.ErrTaskNotGenerating
		},
	}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{FlushChars: 5, FlushInterval: time.Hour})

	err := task.Execute(context.Background())
	assert.ErrorIs(t, err, store.ErrTaskNotGenerating)
	assert.Empty(t, writer.failed)
	assert.Empty(t, writer.completed)
	assert.Len(t, writer.partials, 1)
}

func TestChatGenerationTask_FailOnPanic(t *testing.T) {
	row := newRow(t, nil)
	writer := &mockWriter{}
	task := newChatTask(t, row, &mockChatModel{}, writer, nil, ChatGenerationConfig{})

	task.Fail(context.Background(), errors.New("task panicked: nil map"))
	assert.Equal(t, domain.FailureGeneration, writer.failed)
}

func TestChatGenerationTask_TerminalRowRejectsTransitions(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return &sliceStream{deltas: []string{"Réponse"}}, nil
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{FlushChars: 1000, FlushInterval: time.Hour})
	task.now = steppingClock(time.Millisecond)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, domain.TaskStatusCompleted, task.row.Status)
	require.NotNil(t, task.row.CompletedAt)
	assert.Equal(t, domain.TaskStatusGenerating, row.Status, "caller's row is not shared with the worker")

	task.Fail(context.Background(), errors.New("task panicked after completion"))
	assert.Empty(t, writer.failed)
	assert.Equal(t, domain.TaskStatusCompleted, task.row.Status)

	err := task.Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, writer.failed)
	assert.Len(t, model.requests, 2)
}

func TestChatGenerationTask_FailedRowKeepsPartial(t *testing.T) {
	row := newRow(t, nil)
	model := &mockChatModel{
		StreamChatFn: func(ctx context.Context, req generation.CompletionRequest) (generation.Stream, error) {
			return &sliceStream{deltas: []string{"début "}, err: errors.New("connection reset")}, nil
		},
	}
	writer := &mockWriter{}
	task := newChatTask(t, row, model, writer, nil, ChatGenerationConfig{FlushChars: 1000, FlushInterval: time.Hour})

	require.Error(t, task.Execute(context.Background()))
	assert.Equal(t, domain.TaskStatusFailed, task.row.Status)
	assert.Equal(t, "début ", task.row.PartialContent)
	assert.Equal(t, domain.FailureGeneration, task.row.ErrorMessage)
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: generation.ErrRateLimited, want: domain.FailureRateLimited},
		{err: generation.ErrContentBlocked, want: domain.FailureBlocked},
		{err: context.DeadlineExceeded, want: domain.FailureTimeout},
		{err: context.Canceled, want: domain.FailureInterrupted},
		{err: errors.New("other"), want: domain.FailureGeneration},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureReason(tt.err), tt.err.Error())
	}
}

func TestNewChatGenerationTask_Validation(t *testing.T) {
	_, err := NewChatGenerationTask(nil, ChatGenerationDeps{}, ChatGenerationConfig{})
	assert.Error(t, err)

	_, err = NewChatGenerationTask(newRow(t, nil), ChatGenerationDeps{}, ChatGenerationConfig{})
	assert.Error(t, err)
}
