package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email      string `json:"email"       validate:"required,email"`
	Password   string `json:"password"    validate:"required,min=8,max=72"`
	FullName   string `json:"full_name"   validate:"max=120"`
	GradeLevel string `json:"grade_level" validate:"max=40"`
}

// RegisterResponse tells the client whether the account awaits approval.
type RegisterResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

// ActivateRequest is posted by the admin approval page.
type ActivateRequest struct {
	TokenID uuid.UUID `json:"token_id" validate:"required"`
	Token   string    `json:"token"    validate:"required"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginCodeRequest asks for a one-time login code.
type LoginCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyLoginCodeRequest exchanges a login code for tokens.
type VerifyLoginCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

// AuthResponse is returned by every sign-in endpoint.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    string       `json:"expires_at"`
	User         *domain.User `json:"user,omitempty"`
}

func newAuthResponse(pair *service.TokenPair, user *domain.User) AuthResponse {
	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
		User:         user,
	}
}

// UpdateProfileRequest changes the caller's profile.
type UpdateProfileRequest struct {
	FullName   string `json:"full_name"   validate:"max=120"`
	GradeLevel string `json:"grade_level" validate:"max=40"`
}

// ChatMessageRequest is one turn of chat history.
type ChatMessageRequest struct {
	Role    string `json:"role"    validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest starts a background generation.
type ChatRequest struct {
	MessageID      string               `json:"message_id"      validate:"required,max=128"`
	ConversationID *uuid.UUID           `json:"conversation_id"`
	Subject        string               `json:"subject"         validate:"max=80"`
	Grade          string               `json:"grade"           validate:"max=40"`
	Format         string               `json:"format"          validate:"omitempty,oneof=standard short detailed exercise"`
	Messages       []ChatMessageRequest `json:"messages"        validate:"required,min=1,dive"`
}

func (req ChatRequest) toInput() service.StartGenerationInput {
	msgs := make([]domain.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = domain.ChatMessage{Role: domain.MessageRole(m.Role), Content: m.Content}
	}
	return service.StartGenerationInput{
		MessageID:      req.MessageID,
		ConversationID: req.ConversationID,
		Subject:        req.Subject,
		Grade:          req.Grade,
		Format:         domain.ChatFormat(req.Format),
		Messages:       msgs,
	}
}

// GenerationTaskResponse is the poller view of a generation task.
type GenerationTaskResponse struct {
	ID             uuid.UUID         `json:"id"`
	MessageID      string            `json:"message_id"`
	ConversationID *uuid.UUID        `json:"conversation_id,omitempty"`
	Status         domain.TaskStatus `json:"status"`
	Content        string            `json:"content"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

func taskToResponse(t *domain.GenerationTask) GenerationTaskResponse {
	return GenerationTaskResponse{
		ID:             t.ID,
		MessageID:      t.MessageID,
		ConversationID: t.ConversationID,
		Status:         t.Status,
		Content:        t.Content(),
		Error:          t.ErrorMessage,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CompletedAt:    t.CompletedAt,
	}
}

// ConversationRequest creates a conversation.
type ConversationRequest struct {
	Title   string `json:"title"   validate:"max=200"`
	Subject string `json:"subject" validate:"max=80"`
	Grade   string `json:"grade"   validate:"max=40"`
	Format  string `json:"format"  validate:"omitempty,oneof=standard short detailed exercise"`
}

// RenameConversationRequest renames a conversation.
type RenameConversationRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// StudySourceRequest is the shared body of the study content endpoints.
type StudySourceRequest struct {
	Text       string     `json:"text"`
	DocumentID *uuid.UUID `json:"document_id"`
	Title      string     `json:"title" validate:"max=200"`
}

func (req StudySourceRequest) toSource() service.StudySource {
	return service.StudySource{Text: req.Text, DocumentID: req.DocumentID, Title: req.Title}
}

// FlashcardsRequest generates a deck.
type FlashcardsRequest struct {
	StudySourceRequest
	Count int `json:"count" validate:"omitempty,min=1,max=30"`
}

// QuizRequest generates a QCM.
type QuizRequest struct {
	StudySourceRequest
	Count      int    `json:"count"      validate:"omitempty,min=1,max=30"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=facile moyen difficile"`
}

// Default item counts when the client omits count.
const (
	defaultFlashcardCount = 10
	defaultQuestionCount  = 10
)

// TodoRequest creates a todo. due_date is YYYY-MM-DD.
type TodoRequest struct {
	Title   string `json:"title"    validate:"required,max=200"`
	Subject string `json:"subject"  validate:"max=80"`
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// TodoPatchRequest updates a todo. Omitted fields are left alone.
type TodoPatchRequest struct {
	Title        *string `json:"title"          validate:"omitempty,max=200"`
	Subject      *string `json:"subject"        validate:"omitempty,max=80"`
	DueDate      *string `json:"due_date"       validate:"omitempty,datetime=2006-01-02"`
	ClearDueDate bool    `json:"clear_due_date"`
	Done         *bool   `json:"done"`
}

// parseDueDate parses a YYYY-MM-DD date already checked by the validator.
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// URLResponse carries a redirect URL.
type URLResponse struct {
	URL string `json:"url"`
}

// ListResponse wraps paginated lists.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func newListResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Limit: limit, Offset: offset}
}
