package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
)

// ConversationStore persists tutoring conversations and their messages.
type ConversationStore interface {
	Create(ctx context.Context, c *domain.Conversation) error

	// GetByID returns ErrConversationNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)

	// ListByUser returns conversations most recently updated first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error)

	// Rename updates the title.
	Rename(ctx context.Context, id uuid.UUID, title string) error

	// Delete removes the conversation and its messages.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMessage appends a message and bumps the conversation's updated_at.
	AddMessage(ctx context.Context, m *domain.ConversationMessage) error

	// ListMessages returns messages in chronological order.
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.ConversationMessage, error)

	WithTx(tx *sql.Tx) ConversationStore
}

// GenerationTaskStore persists generation task rows. All writes after
// creation are conditional on the row still being in the generating state.
type GenerationTaskStore interface {
	// Create inserts the task. Returns ErrTaskExists when the user already
	// has a task for the same message id.
	Create(ctx context.Context, task *domain.GenerationTask) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)

	// GetByMessageID returns the user's task for a client message id.
	GetByMessageID(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error)

	// UpdatePartial overwrites partial_content. Returns ErrTaskNotGenerating
	// once the task is terminal.
	UpdatePartial(ctx context.Context, id uuid.UUID, content string) error

	// Complete stores the final content and marks the task completed.
	Complete(ctx context.Context, id uuid.UUID, content string, completedAt time.Time) error

	// Fail marks the task failed, keeping any partial content.
	Fail(ctx context.Context, id uuid.UUID, reason string, failedAt time.Time) error

	// FailGenerating fails every task still generating that was created
	// before the cutoff and returns how many rows changed.
	FailGenerating(ctx context.Context, createdBefore time.Time, reason string) (int64, error)

	WithTx(tx *sql.Tx) GenerationTaskStore
}
