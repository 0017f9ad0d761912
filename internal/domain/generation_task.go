package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the state of a background generation task.
type TaskStatus string

// Generation task states. Completed and failed are terminal.
const (
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Failure codes stored in error_message when a task fails.
const (
	FailureInterrupted   = "interrupted"
	FailureTimeout       = "timeout"
	FailureRateLimited   = "rate_limited"
	FailureBlocked       = "content_blocked"
	FailureEmptyResponse = "empty_response"
	FailureQueueFull     = "queue_full"
	FailureGeneration    = "generation_failed"
)

// MaxMessageIDLength bounds the client-supplied message id.
const MaxMessageIDLength = 128

// Generation task validation errors
var (
	ErrEmptyMessageID   = errors.New("message ID cannot be empty")
	ErrMessageIDTooLong = errors.New("message ID is too long")
	ErrNoMessages       = errors.New("at least one message is required")
	ErrLastMessageRole  = errors.New("last message must come from the user")
	ErrInvalidTaskState = errors.New("invalid generation task status")
)

// GenerationTask is the database row a background streamer writes into and
// the client polls. It doubles as a mailbox for partial LLM output.
type GenerationTask struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	MessageID      string        `json:"message_id"`
	ConversationID *uuid.UUID    `json:"conversation_id,omitempty"`
	Status         TaskStatus    `json:"status"`
	PartialContent string        `json:"partial_content"`
	FinalContent   string        `json:"final_content"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	Subject        string        `json:"subject"`
	Grade          string        `json:"grade"`
	Format         ChatFormat    `json:"format"`
	Messages       []ChatMessage `json:"messages"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// NewGenerationTask creates a task in the generating state.
func NewGenerationTask(
	userID uuid.UUID,
	messageID string,
	conversationID *uuid.UUID,
	subject, grade string,
	format ChatFormat,
	messages []ChatMessage,
) (*GenerationTask, error) {
	now := time.Now().UTC()
	if format == "" {
		format = FormatStandard
	}
	t := &GenerationTask{
		ID:             uuid.New(),
		UserID:         userID,
		MessageID:      strings.TrimSpace(messageID),
		ConversationID: conversationID,
		Status:         TaskStatusGenerating,
		Subject:        NormalizeSubject(subject),
		Grade:          strings.TrimSpace(grade),
		Format:         format,
		Messages:       messages,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the GenerationTask has valid data.
func (t *GenerationTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrInvalidID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if t.MessageID == "" {
		return ErrEmptyMessageID
	}
	if len(t.MessageID) > MaxMessageIDLength {
		return ErrMessageIDTooLong
	}
	if err := ValidateChatContext(t.Subject, t.Grade, t.Format); err != nil {
		return err
	}
	if len(t.Messages) == 0 {
		return ErrNoMessages
	}
	for _, m := range t.Messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if t.Messages[len(t.Messages)-1].Role != RoleUser {
		return ErrLastMessageRole
	}
	switch t.Status {
	case TaskStatusGenerating, TaskStatusCompleted, TaskStatusFailed:
	default:
		return ErrInvalidTaskState
	}
	return nil
}

// IsTerminal reports whether the task reached completed or failed.
func (t *GenerationTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// LastUserMessage returns the content of the final user turn.
func (t *GenerationTask) LastUserMessage() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[len(t.Messages)-1].Content
}

// Content returns what a poller should see: the final text once completed,
// otherwise whatever partial text has been flushed.
func (t *GenerationTask) Content() string {
	if t.Status == TaskStatusCompleted {
		return t.FinalContent
	}
	return t.PartialContent
}

// SetPartial records streamed text while generating.
func (t *GenerationTask) SetPartial(content string, now time.Time) error {
	if t.IsTerminal() {
		return ErrInvalidTransition
	}
	t.PartialContent = content
	t.UpdatedAt = now.UTC()
	return nil
}

// Complete moves the task to completed with its final content.
func (t *GenerationTask) Complete(content string, now time.Time) error {
	if t.IsTerminal() {
		return ErrInvalidTransition
	}
	done := now.UTC()
	t.Status = TaskStatusCompleted
	t.FinalContent = content
	t.PartialContent = content
	t.UpdatedAt = done
	t.CompletedAt = &done
	return nil
}

// Fail moves the task to failed. Partial content is kept.
func (t *GenerationTask) Fail(reason string, now time.Time) error {
	if t.IsTerminal() {
		return ErrInvalidTransition
	}
	done := now.UTC()
	t.Status = TaskStatusFailed
	t.ErrorMessage = reason
	t.UpdatedAt = done
	t.CompletedAt = &done
	return nil
}
