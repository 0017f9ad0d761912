package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ChatFormat selects the answer style of the tutoring assistant.
type ChatFormat string

// Supported chat formats.
const (
	FormatStandard ChatFormat = "standard"
	FormatShort    ChatFormat = "short"
	FormatDetailed ChatFormat = "detailed"
	FormatExercise ChatFormat = "exercise"
)

// MessageRole is the author of a chat message.
type MessageRole string

// Message roles, matching the chat completion API roles.
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Field bounds for chat context.
const (
	MaxSubjectLength = 80
	MaxGradeLength   = 40
	MaxTitleLength   = 200
)

// Conversation validation errors
var (
	ErrInvalidFormat      = errors.New("invalid chat format")
	ErrSubjectTooLong     = errors.New("subject is too long")
	ErrGradeTooLong       = errors.New("grade is too long")
	ErrTitleTooLong       = errors.New("title is too long")
	ErrInvalidMessageRole = errors.New("invalid message role")
	ErrEmptyConversation  = errors.New("conversation ID cannot be empty")
)

// ChatMessage is one turn of chat history as sent to the LLM.
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Validate checks the role and that content is not blank.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return ErrInvalidMessageRole
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Conversation is a saved tutoring chat.
type Conversation struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	Grade     string     `json:"grade"`
	Format    ChatFormat `json:"format"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ConversationMessage is a persisted message of a Conversation.
type ConversationMessage struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewConversation creates a conversation owned by userID.
func NewConversation(userID uuid.UUID, title, subject, grade string, format ChatFormat) (*Conversation, error) {
	now := time.Now().UTC()
	c := &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Subject:   NormalizeSubject(subject),
		Grade:     strings.TrimSpace(grade),
		Format:    format,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.Format == "" {
		c.Format = FormatStandard
	}
	if c.Title == "" {
		c.Title = "Nouvelle conversation"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Conversation has valid data.
func (c *Conversation) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyConversation
	}
	if c.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if utf8.RuneCountInString(c.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return ValidateChatContext(c.Subject, c.Grade, c.Format)
}

// Rename changes the conversation title.
func (c *Conversation) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	c.Title = title
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// NewConversationMessage creates a message for conversationID.
func NewConversationMessage(conversationID uuid.UUID, role MessageRole, content string) (*ConversationMessage, error) {
	if conversationID == uuid.Nil {
		return nil, ErrEmptyConversation
	}
	if err := (ChatMessage{Role: role, Content: content}).Validate(); err != nil {
		return nil, err
	}
	return &ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ValidateChatContext checks subject, grade and format of a chat.
func ValidateChatContext(subject, grade string, format ChatFormat) error {
	if utf8.RuneCountInString(subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	if utf8.RuneCountInString(grade) > MaxGradeLength {
		return ErrGradeTooLong
	}
	if !format.Valid() {
		return ErrInvalidFormat
	}
	return nil
}

// Valid reports whether f is a supported format.
func (f ChatFormat) Valid() bool {
	switch f {
	case FormatStandard, FormatShort, FormatDetailed, FormatExercise:
		return true
	default:
		return false
	}
}

// NormalizeSubject trims surrounding whitespace and collapses inner runs.
func NormalizeSubject(subject string) string {
	return strings.Join(strings.Fields(subject), " ")
}

// TrimHistory keeps every system message followed by the last limit
// non-system messages, preserving their relative order. A non-positive
// limit keeps all messages.
func TrimHistory(messages []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 {
		return append([]ChatMessage(nil), messages...)
	}

	var system, others []ChatMessage
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			others = append(others, m)
		}
	}
	if len(others) > limit {
		others = others[len(others)-limit:]
	}

	out := make([]ChatMessage, 0, len(system)+len(others))
	out = append(out, system...)
	return append(out, others...)
}
