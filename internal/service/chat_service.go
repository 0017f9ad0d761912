package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/nextudy/nextudy-api/internal/task"
)

// TaskSubmitter queues background tasks without blocking.
type TaskSubmitter interface {
	Submit(t task.Task) error
}

// ChatTaskFactory builds the background streamer for a generation row.
type ChatTaskFactory func(row *domain.GenerationTask) (task.Task, error)

// StartGenerationInput is a tutoring chat turn submitted by the client.
type StartGenerationInput struct {
	MessageID      string
	ConversationID *uuid.UUID
	Subject        string
	Grade          string
	Format         domain.ChatFormat
	Messages       []domain.ChatMessage
}

// ChatService creates generation tasks and serves their status.
type ChatService struct {
	db            *sql.DB
	tasks         store.GenerationTaskStore
	conversations store.ConversationStore
	runner        TaskSubmitter
	newTask       ChatTaskFactory
	historyLimit  int
	logger        *slog.Logger
	now           func() time.Time
}

// NewChatService creates a ChatService. historyLimit bounds the non-system
// messages forwarded to the model.
func NewChatService(
	db *sql.DB,
	tasks store.GenerationTaskStore,
	conversations store.ConversationStore,
	runner TaskSubmitter,
	newTask ChatTaskFactory,
	historyLimit int,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		db:            db,
		tasks:         tasks,
		conversations: conversations,
		runner:        runner,
		newTask:       newTask,
		historyLimit:  historyLimit,
		logger:        logger.With("component", "chat_service"),
		now:           time.Now,
	}
}

// StartGeneration records a generation task and queues its streamer. The
// returned bool is false when the message id was already submitted, in
// which case the existing task is returned untouched.
func (s *ChatService) StartGeneration(ctx context.Context, userID uuid.UUID, in StartGenerationInput) (*domain.GenerationTask, bool, error) {
	row, err := domain.NewGenerationTask(
		userID,
		in.MessageID,
		in.ConversationID,
		in.Subject,
		in.Grade,
		in.Format,
		domain.TrimHistory(in.Messages, s.historyLimit),
	)
	if err != nil {
		return nil, false, wrap("start_generation", invalid(err))
	}

	existing, err := s.tasks.GetByMessageID(ctx, userID, row.MessageID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, wrap("start_generation", err)
	}

	if in.ConversationID != nil {
		if _, err := s.ownedConversation(ctx, userID, *in.ConversationID); err != nil {
			return nil, false, wrap("start_generation", err)
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		if row.ConversationID == nil {
			return nil
		}
		msg, err := domain.NewConversationMessage(*row.ConversationID, domain.RoleUser, row.LastUserMessage())
		if err != nil {
			return err
		}
		return s.conversations.WithTx(tx).AddMessage(ctx, msg)
	})
	if errors.Is(err, store.ErrTaskExists) {
		// Lost a race with a concurrent submission of the same message.
		existing, getErr := s.tasks.GetByMessageID(ctx, userID, row.MessageID)
		if getErr != nil {
			return nil, false, wrap("start_generation", getErr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, wrap("start_generation", err)
	}

	t, err := s.newTask(row)
	if err == nil {
		err = s.runner.Submit(t)
	}
	if err != nil {
		s.failUnqueued(ctx, row, err)
		if errors.Is(err, task.ErrQueueFull) || errors.Is(err, task.ErrRunnerStopped) {
			return nil, false, wrap("start_generation", ErrQueueFull)
		}
		return nil, false, wrap("start_generation", err)
	}

	s.logger.DebugContext(ctx, "generation queued",
		"task_id", row.ID,
		"message_id", row.MessageID,
		"history", len(row.Messages))
	return row, true, nil
}

// GetTask returns the caller's task for a client message id.
func (s *ChatService) GetTask(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error) {
	t, err := s.tasks.GetByMessageID(ctx, userID, messageID)
	return t, wrap("get_generation_task", err)
}

// failUnqueued marks a row that never reached a worker as failed so the
// poller does not wait for it forever.
func (s *ChatService) failUnqueued(ctx context.Context, row *domain.GenerationTask, cause error) {
	reason := domain.FailureQueueFull
	if !errors.Is(cause, task.ErrQueueFull) {
		reason = domain.FailureGeneration
	}
	s.logger.WarnContext(ctx, "generation could not be queued", "task_id", row.ID, "error", cause)

	if err := row.Fail(reason, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "unqueued task already finished", "task_id", row.ID, "status", row.Status)
		return
	}
	if err := s.tasks.Fail(context.WithoutCancel(ctx), row.ID, row.ErrorMessage, *row.CompletedAt); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark unqueued task as failed", "task_id", row.ID, "error", err)
	}
}

func (s *ChatService) ownedConversation(ctx context.Context, userID, id uuid.UUID) (*domain.Conversation, error) {
	return owned(ctx, s.conversations.GetByID, id, userID, store.ErrConversationNotFound,
		func(c *domain.Conversation) uuid.UUID { return c.UserID })
}

// owned loads a row and hides it behind notFound when it belongs to
// someone else.
func owned[T any](
	ctx context.Context,
	get func(context.Context, uuid.UUID) (*T, error),
	id, userID uuid.UUID,
	notFound error,
	ownerOf func(*T) uuid.UUID,
) (*T, error) {
	row, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerOf(row) != userID {
		return nil, notFound
	}
	return row, nil
}
