package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTodoTitleLength bounds a planner entry title.
const MaxTodoTitleLength = 200

// Todo errors
var ErrTodoTitleTooLong = errors.New("todo title is too long")

// Todo is an entry of the daily study planner.
type Todo struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTodo creates an open todo.
func NewTodo(userID uuid.UUID, title, subject string, due *time.Time) (*Todo, error) {
	now := time.Now().UTC()
	t := &Todo{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Subject:   NormalizeSubject(subject),
		DueDate:   truncateDate(due),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the Todo has valid data.
func (t *Todo) Validate() error {
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(t.Title) > MaxTodoTitleLength {
		return ErrTodoTitleTooLong
	}
	if utf8.RuneCountInString(t.Subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	return nil
}

// Update applies non-nil changes.
func (t *Todo) Update(title, subject *string, due *time.Time, clearDue bool, done *bool) error {
	if title != nil {
		t.Title = strings.TrimSpace(*title)
	}
	if subject != nil {
		t.Subject = NormalizeSubject(*subject)
	}
	if clearDue {
		t.DueDate = nil
	} else if due != nil {
		t.DueDate = truncateDate(due)
	}
	if done != nil {
		t.Done = *done
	}
	t.UpdatedAt = time.Now().UTC()
	return t.Validate()
}

func truncateDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}
