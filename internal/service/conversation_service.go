package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// ConversationInput creates a conversation.
type ConversationInput struct {
	Title   string
	Subject string
	Grade   string
	Format  domain.ChatFormat
}

// ConversationDetail is a conversation with its messages.
type ConversationDetail struct {
	domain.Conversation
	Messages []domain.ConversationMessage `json:"messages"`
}

// ConversationService manages saved tutoring conversations.
type ConversationService struct {
	conversations store.ConversationStore
	logger        *slog.Logger
}

// NewConversationService creates a ConversationService.
func NewConversationService(conversations store.ConversationStore, logger *slog.Logger) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		logger:        logger.With("component", "conversation_service"),
	}
}

// List returns the user's conversations, most recent first.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Conversation, error) {
	list, err := s.conversations.ListByUser(ctx, userID, limit, offset)
	return list, wrap("list_conversations", err)
}

// Create starts an empty conversation.
func (s *ConversationService) Create(ctx context.Context, userID uuid.UUID, in ConversationInput) (*domain.Conversation, error) {
	c, err := domain.NewConversation(userID, in.Title, in.Subject, in.Grade, in.Format)
	if err != nil {
		return nil, wrap("create_conversation", invalid(err))
	}
	if err := s.conversations.Create(ctx, c); err != nil {
		return nil, wrap("create_conversation", err)
	}
	return c, nil
}

// Get returns a conversation and its messages.
func (s *ConversationService) Get(ctx context.Context, userID, id uuid.UUID) (*ConversationDetail, error) {
	c, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, wrap("get_conversation", err)
	}
	msgs, err := s.conversations.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, wrap("get_conversation", err)
	}
	if msgs == nil {
		msgs = []domain.ConversationMessage{}
	}
	return &ConversationDetail{Conversation: *c, Messages: msgs}, nil
}

// Rename changes a conversation title.
func (s *ConversationService) Rename(ctx context.Context, userID, id uuid.UUID, title string) (*domain.Conversation, error) {
	c, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, wrap("rename_conversation", err)
	}
	if err := c.Rename(title); err != nil {
		return nil, wrap("rename_conversation", invalid(err))
	}
	if err := s.conversations.Rename(ctx, c.ID, c.Title); err != nil {
		return nil, wrap("rename_conversation", err)
	}
	return c, nil
}

// Delete removes a conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return wrap("delete_conversation", err)
	}
	return wrap("delete_conversation", s.conversations.Delete(ctx, id))
}

func (s *ConversationService) get(ctx context.Context, userID, id uuid.UUID) (*domain.Conversation, error) {
	return owned(ctx, s.conversations.GetByID, id, userID, store.ErrConversationNotFound,
		func(c *domain.Conversation) uuid.UUID { return c.UserID })
}
