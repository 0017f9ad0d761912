package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
)

// SummaryStore persists generated summaries.
type SummaryStore interface {
	Create(ctx context.Context, s *domain.Summary) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Summary, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FlashcardStore persists generated flashcard sets.
type FlashcardStore interface {
	Create(ctx context.Context, set *domain.FlashcardSet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FlashcardSet, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.FlashcardSet, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuizStore persists generated QCM quizzes.
type QuizStore interface {
	Create(ctx context.Context, q *domain.Quiz) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Quiz, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentStore persists uploaded document metadata and extracted text.
type DocumentStore interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TodoStore persists planner entries.
type TodoStore interface {
	Create(ctx context.Context, t *domain.Todo) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Todo, error)
	Update(ctx context.Context, t *domain.Todo) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListOpenDueOn returns open todos due on the given calendar day,
	// ordered by user.
	ListOpenDueOn(ctx context.Context, day time.Time) ([]domain.Todo, error)
}
