package service

import (
	"errors"
	"fmt"

	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// Service errors checked by the API layer with errors.Is.
var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and bad login codes.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountPending is returned when a not yet approved user signs in.
	ErrAccountPending = errors.New("account is waiting for approval")

	// ErrAccountRejected is returned when a refused user signs in.
	ErrAccountRejected = errors.New("account has been rejected")

	// ErrInvalidActivation covers unknown, used, expired or mismatched activation links.
	ErrInvalidActivation = errors.New("invalid activation link")

	// ErrRateLimited is returned when a per-email attempt budget is spent.
	ErrRateLimited = errors.New("too many attempts")

	// ErrQueueFull is returned when no generation can be queued right now.
	ErrQueueFull = errors.New("generation queue is full")

	// ErrFeatureDisabled is returned when an optional integration is not configured.
	ErrFeatureDisabled = errors.New("feature is not configured")

	// ErrMissingSource is returned when study content is requested with
	// neither text nor a document.
	ErrMissingSource = errors.New("either text or document_id is required")

	// ErrDocumentTooLarge is returned for uploads above the configured limit.
	ErrDocumentTooLarge = errors.New("document is too large")

	// ErrNoBillingCustomer is returned when the portal is requested before any checkout.
	ErrNoBillingCustomer = errors.New("user has no billing account")

	// ErrAlreadySubscribed is returned when a premium user starts another checkout.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")

	// ErrInvalidWebhook is returned for webhooks whose signature does not verify.
	ErrInvalidWebhook = errors.New("invalid webhook")
)

// ServiceError records the operation a wrapped failure came from.
type ServiceError struct {
	Operation string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// wrap attaches operation to err. Nil stays nil.
func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Operation: operation, Err: err}
}

// invalid marks a domain validation failure so the API answers 400.
func invalid(err error) error {
	if err == nil || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrValidation, err)
}

// IsNotFound reports whether err denotes a missing or foreign row.
func IsNotFound(err error) bool {
	return store.IsNotFoundError(err)
}
