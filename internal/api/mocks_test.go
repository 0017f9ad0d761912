package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/store"
)

var errNotStubbed = errors.New("not stubbed")

type mockJWTService struct {
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)
}

func (m *mockJWTService) GenerateToken(context.Context, uuid.UUID) (string, error) {
	return "", errNotStubbed
}

func (m *mockJWTService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}

func (m *mockJWTService) GenerateRefreshToken(context.Context, uuid.UUID) (string, error) {
	return "", errNotStubbed
}

func (m *mockJWTService) ValidateRefreshToken(context.Context, string) (*auth.Claims, error) {
	return nil, errNotStubbed
}

func (m *mockJWTService) AccessTokenLifetime() time.Duration { return 15 * time.Minute }

type mockAccountService struct {
	RegisterFn         func(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	ActivateFn         func(ctx context.Context, tokenID uuid.UUID, secret string) (*domain.User, error)
	LoginFn            func(ctx context.Context, email, password string) (*service.TokenPair, error)
	RefreshFn          func(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	RequestLoginCodeFn func(ctx context.Context, email string) error
	VerifyLoginCodeFn  func(ctx context.Context, email, code string) (*service.TokenPair, error)
	GetUserFn          func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfileFn    func(ctx context.Context, userID uuid.UUID, fullName, gradeLevel string) (*domain.User, error)
}

func (m *mockAccountService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, in)
	}
	return nil, errNotStubbed
}

func (m *mockAccountService) Activate(ctx context.Context, tokenID uuid.UUID, secret string) (*domain.User, error) {
	if m.ActivateFn != nil {
		return m.ActivateFn(ctx, tokenID, secret)
	}
	return nil, errNotStubbed
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*service.TokenPair, error) {
	if m.LoginFn != nil {
		return m.LoginFn(ctx, email, password)
	}
	return nil, errNotStubbed
}

func (m *mockAccountService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return nil, errNotStubbed
}

func (m *mockAccountService) RequestLoginCode(ctx context.Context, email string) error {
	if m.RequestLoginCodeFn != nil {
		return m.RequestLoginCodeFn(ctx, email)
	}
	return errNotStubbed
}

func (m *mockAccountService) VerifyLoginCode(ctx context.Context, email, code string) (*service.TokenPair, error) {
	if m.VerifyLoginCodeFn != nil {
		return m.VerifyLoginCodeFn(ctx, email, code)
	}
	return nil, errNotStubbed
}

func (m *mockAccountService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userID)
	}
	return nil, errNotStubbed
}

func (m *mockAccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, gradeLevel string) (*domain.User, error) {
	if m.UpdateProfileFn != nil {
		return m.UpdateProfileFn(ctx, userID, fullName, gradeLevel)
	}
	return nil, errNotStubbed
}

type mockChatService struct {
	StartGenerationFn func(ctx context.Context, userID uuid.UUID, in service.StartGenerationInput) (*domain.GenerationTask, bool, error)
	GetTaskFn         func(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error)
}

func (m *mockChatService) StartGeneration(ctx context.Context, userID uuid.UUID, in service.StartGenerationInput) (*domain.GenerationTask, bool, error) {
	if m.StartGenerationFn != nil {
		return m.StartGenerationFn(ctx, userID, in)
	}
	return nil, false, errNotStubbed
}

func (m *mockChatService) GetTask(ctx context.Context, userID uuid.UUID, messageID string) (*domain.GenerationTask, error) {
	if m.GetTaskFn != nil {
		return m.GetTaskFn(ctx, userID, messageID)
	}
	return nil, errNotStubbed
}

type mockConversationService struct {
	ListFn   func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error)
	CreateFn func(ctx context.Context, userID uuid.UUID, in service.ConversationInput) (*domain.Conversation, error)
	GetFn    func(ctx context.Context, userID, id uuid.UUID) (*service.ConversationDetail, error)
	RenameFn func(ctx context.Context, userID, id uuid.UUID, title string) (*domain.Conversation, error)
	DeleteFn func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockConversationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, userID, limit, offset)
	}
	return nil, errNotStubbed
}

func (m *mockConversationService) Create(ctx context.Context, userID uuid.UUID, in service.ConversationInput) (*domain.Conversation, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, userID, in)
	}
	return nil, errNotStubbed
}

func (m *mockConversationService) Get(ctx context.Context, userID, id uuid.UUID) (*service.ConversationDetail, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, userID, id)
	}
	return nil, errNotStubbed
}

func (m *mockConversationService) Rename(ctx context.Context, userID, id uuid.UUID, title string) (*domain.Conversation, error) {
	if m.RenameFn != nil {
		return m.RenameFn(ctx, userID, id, title)
	}
	return nil, errNotStubbed
}

func (m *mockConversationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, userID, id)
	}
	return errNotStubbed
}

type mockStudyService struct {
	CreateSummaryFn    func(ctx context.Context, userID uuid.UUID, in service.StudySource) (*domain.Summary, error)
	GetSummaryFn       func(ctx context.Context, userID, id uuid.UUID) (*domain.Summary, error)
	CreateFlashcardsFn func(ctx context.Context, userID uuid.UUID, in service.FlashcardsInput) (*domain.FlashcardSet, error)
	CreateQuizFn       func(ctx context.Context, userID uuid.UUID, in service.QuizInput) (*domain.Quiz, error)
	DeleteQuizFn       func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockStudyService) CreateSummary(ctx context.Context, userID uuid.UUID, in service.StudySource) (*domain.Summary, error) {
	if m.CreateSummaryFn != nil {
		return m.CreateSummaryFn(ctx, userID, in)
	}
	return nil, errNotStubbed
}

func (m *mockStudyService) ListSummaries(context.Context, uuid.UUID, int, int) ([]domain.Summary, error) {
	return nil, nil
}

func (m *mockStudyService) GetSummary(ctx context.Context, userID, id uuid.UUID) (*domain.Summary, error) {
	if m.GetSummaryFn != nil {
		return m.GetSummaryFn(ctx, userID, id)
	}
	return nil, errNotStubbed
}

func (m *mockStudyService) DeleteSummary(context.Context, uuid.UUID, uuid.UUID) error {
	return errNotStubbed
}

func (m *mockStudyService) CreateFlashcards(ctx context.Context, userID uuid.UUID, in service.FlashcardsInput) (*domain.FlashcardSet, error) {
	if m.CreateFlashcardsFn != nil {
		return m.CreateFlashcardsFn(ctx, userID, in)
	}
	return nil, errNotStubbed
}

func (m *mockStudyService) ListFlashcards(context.Context, uuid.UUID, int, int) ([]domain.FlashcardSet, error) {
	return nil, nil
}

func (m *mockStudyService) GetFlashcards(context.Context, uuid.UUID, uuid.UUID) (*domain.FlashcardSet, error) {
	return nil, errNotStubbed
}

func (m *mockStudyService) DeleteFlashcards(context.Context, uuid.UUID, uuid.UUID) error {
	return errNotStubbed
}

func (m *mockStudyService) CreateQuiz(ctx context.Context, userID uuid.UUID, in service.QuizInput) (*domain.Quiz, error) {
	if m.CreateQuizFn != nil {
		return m.CreateQuizFn(ctx, userID, in)
	}
	return nil, errNotStubbed
}

func (m *mockStudyService) ListQuizzes(context.Context, uuid.UUID, int, int) ([]domain.Quiz, error) {
	return nil, nil
}

func (m *mockStudyService) GetQuiz(context.Context, uuid.UUID, uuid.UUID) (*domain.Quiz, error) {
	return nil, errNotStubbed
}

func (m *mockStudyService) DeleteQuiz(ctx context.Context, userID, id uuid.UUID) error {
	if m.DeleteQuizFn != nil {
		return m.DeleteQuizFn(ctx, userID, id)
	}
	return errNotStubbed
}

type mockDocumentService struct {
	MaxBytesValue int64
	UploadFn      func(ctx context.Context, userID uuid.UUID, in service.UploadInput) (*domain.Document, error)
	GetFn         func(ctx context.Context, userID, id uuid.UUID) (*service.DocumentView, error)
}

func (m *mockDocumentService) MaxBytes() int64 { return m.MaxBytesValue }

func (m *mockDocumentService) Upload(ctx context.Context, userID uuid.UUID, in service.UploadInput) (*domain.Document, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, userID, in)
	}
	return nil, errNotStubbed
}

func (m *mockDocumentService) List(context.Context, uuid.UUID, int, int) ([]domain.Document, error) {
	return nil, nil
}

func (m *mockDocumentService) Get(ctx context.Context, userID, id uuid.UUID) (*service.DocumentView, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, userID, id)
	}
	return nil, errNotStubbed
}

func (m *mockDocumentService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return errNotStubbed
}

type mockTodoService struct {
	CreateFn func(ctx context.Context, userID uuid.UUID, in service.TodoInput) (*domain.Todo, error)
	UpdateFn func(ctx context.Context, userID, id uuid.UUID, patch service.TodoPatch) (*domain.Todo, error)
}

func (m *mockTodoService) List(context.Context, uuid.UUID) ([]domain.Todo, error) {
	return nil, nil
}

func (m *mockTodoService) Create(ctx context.Context, userID uuid.UUID, in service.TodoInput) (*domain.Todo, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, userID, in)
	}
	return nil, errNotStubbed
}

func (m *mockTodoService) Update(ctx context.Context, userID, id uuid.UUID, patch service.TodoPatch) (*domain.Todo, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, userID, id, patch)
	}
	return nil, errNotStubbed
}

func (m *mockTodoService) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return errNotStubbed
}

type mockBillingService struct {
	CheckoutFn      func(ctx context.Context, userID uuid.UUID) (string, error)
	HandleWebhookFn func(ctx context.Context, payload []byte, signature string) error
}

func (m *mockBillingService) Checkout(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CheckoutFn != nil {
		return m.CheckoutFn(ctx, userID)
	}
	return "", errNotStubbed
}

func (m *mockBillingService) Portal(context.Context, uuid.UUID) (string, error) {
	return "", errNotStubbed
}

func (m *mockBillingService) Subscription(context.Context, uuid.UUID) (*domain.Subscription, error) {
	return nil, errNotStubbed
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.HandleWebhookFn != nil {
		return m.HandleWebhookFn(ctx, payload, signature)
	}
	return errNotStubbed
}

type mockAdminService struct {
	ApproveFn func(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error)
	StatsFn   func(ctx context.Context) (*store.PlatformStats, error)
}

func (m *mockAdminService) ListPending(context.Context, int, int) ([]domain.User, error) {
	return nil, nil
}

func (m *mockAdminService) Approve(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error) {
	if m.ApproveFn != nil {
		return m.ApproveFn(ctx, adminID, userID)
	}
	return nil, errNotStubbed
}

func (m *mockAdminService) Reject(context.Context, uuid.UUID, uuid.UUID) (*domain.User, error) {
	return nil, errNotStubbed
}

func (m *mockAdminService) Stats(ctx context.Context) (*store.PlatformStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return nil, errNotStubbed
}
