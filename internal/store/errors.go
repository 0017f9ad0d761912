package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation or
	// violates a database constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when a conditional update matched no row.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a transaction cannot commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors
	ErrUserNotFound            = fmt.Errorf("%w: user", ErrNotFound)
	ErrActivationTokenNotFound = fmt.Errorf("%w: activation token", ErrNotFound)
	ErrConversationNotFound    = fmt.Errorf("%w: conversation", ErrNotFound)
	ErrTaskNotFound            = fmt.Errorf("%w: generation task", ErrNotFound)
	ErrSummaryNotFound         = fmt.Errorf("%w: summary", ErrNotFound)
	ErrFlashcardSetNotFound    = fmt.Errorf("%w: flashcard set", ErrNotFound)
	ErrQuizNotFound            = fmt.Errorf("%w: quiz", ErrNotFound)
	ErrDocumentNotFound        = fmt.Errorf("%w: document", ErrNotFound)
	ErrTodoNotFound            = fmt.Errorf("%w: todo", ErrNotFound)
	ErrSubscriptionNotFound    = fmt.Errorf("%w: subscription", ErrNotFound)

	// Entity-specific "duplicate" errors
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
	ErrTaskExists  = fmt.Errorf("%w: generation task for message", ErrDuplicate)

	// ErrTaskNotGenerating is returned when a write targets a task that
	// already reached a terminal state.
	ErrTaskNotGenerating = fmt.Errorf("%w: generation task is not generating", ErrUpdateFailed)

	// ErrActivationTokenUsed is returned when a token was redeemed concurrently.
	ErrActivationTokenUsed = fmt.Errorf("%w: activation token already used", ErrUpdateFailed)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a store failure with the entity and operation it concerns.
type StoreError struct {
	Entity    string // e.g. "generation_task"
	Operation string // e.g. "update_partial"
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
