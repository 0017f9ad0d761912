package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/nextudy/nextudy-api/internal/store"
)

// The interfaces below are the service methods each handler calls. The
// concrete services in internal/service satisfy them.

// AccountService signs users up and in.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Activate(ctx context.Context, tokenID uuid.UUID, secret string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	RequestLoginCode(ctx context.Context, email string) error
	VerifyLoginCode(ctx context.Context, email, code string) (*service.TokenPair, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, gradeLevel string) (*domain.User, error)
}

// ChatService starts generation tasks and reports their progress.
type ChatService interface {
	StartGeneration(ctx context.Context, userID uuid.UUID, in service.StartGenerationInput) (*domain.GenerationTask, bool, error)
	GetTask(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error)
}

// ConversationService manages saved conversations.
type ConversationService interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error)
	Create(ctx context.Context, userID uuid.UUID, in service.ConversationInput) (*domain.Conversation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*service.ConversationDetail, error)
	Rename(ctx context.Context, userID, id uuid.UUID, title string) (*domain.Conversation, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// StudyService generates and stores summaries, flashcards and QCM.
type StudyService interface {
	CreateSummary(ctx context.Context, userID uuid.UUID, in service.StudySource) (*domain.Summary, error)
	ListSummaries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Summary, error)
	GetSummary(ctx context.Context, userID, id uuid.UUID) (*domain.Summary, error)
	DeleteSummary(ctx context.Context, userID, id uuid.UUID) error

	CreateFlashcards(ctx context.Context, userID uuid.UUID, in service.FlashcardsInput) (*domain.FlashcardSet, error)
	ListFlashcards(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.FlashcardSet, error)
	GetFlashcards(ctx context.Context, userID, id uuid.UUID) (*domain.FlashcardSet, error)
	DeleteFlashcards(ctx context.Context, userID, id uuid.UUID) error

	CreateQuiz(ctx context.Context, userID uuid.UUID, in service.QuizInput) (*domain.Quiz, error)
	ListQuizzes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, userID, id uuid.UUID) (*domain.Quiz, error)
	DeleteQuiz(ctx context.Context, userID, id uuid.UUID) error
}

// DocumentService stores uploads.
type DocumentService interface {
	MaxBytes() int64
	Upload(ctx context.Context, userID uuid.UUID, in service.UploadInput) (*domain.Document, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Document, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*service.DocumentView, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// TodoService manages the study planner.
type TodoService interface {
	List(ctx context.Context, userID uuid.UUID) ([]domain.Todo, error)
	Create(ctx context.Context, userID uuid.UUID, in service.TodoInput) (*domain.Todo, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch service.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// BillingService runs Stripe checkout and webhooks.
type BillingService interface {
	Checkout(ctx context.Context, userID uuid.UUID) (string, error)
	Portal(ctx context.Context, userID uuid.UUID) (string, error)
	Subscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// AdminService reviews accounts and reports platform stats.
type AdminService interface {
	ListPending(ctx context.Context, limit, offset int) ([]domain.User, error)
	Approve(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error)
	Reject(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error)
	Stats(ctx context.Context) (*store.PlatformStats, error)
}

var (
	_ AccountService      = (*service.AccountService)(nil)
	_ ChatService         = (*service.ChatService)(nil)
	_ ConversationService = (*service.ConversationService)(nil)
	_ StudyService        = (*service.StudyService)(nil)
	_ DocumentService     = (*service.DocumentService)(nil)
	_ TodoService         = (*service.TodoService)(nil)
	_ BillingService      = (*service.BillingService)(nil)
	_ AdminService        = (*service.AdminService)(nil)
)
