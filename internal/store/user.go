package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
)

// UserStore defines the interface for user (profile) persistence.
type UserStore interface {
	// Create saves a new user. If user.Password is set it is hashed
	// with bcrypt before storage. Returns ErrEmailExists on a taken email.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail looks a user up by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateStatus sets the approval status of a user.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error

	// UpdateProfile updates full name and grade level.
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName, gradeLevel string) error

	// ListByStatus returns users in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.UserStatus, limit, offset int) ([]domain.User, error)

	// ListAdmins returns all active admin accounts.
	ListAdmins(ctx context.Context) ([]domain.User, error)

	// WithTx returns a UserStore bound to tx.
	WithTx(tx *sql.Tx) UserStore
}

// ActivationTokenStore persists admin approval tokens.
type ActivationTokenStore interface {
	Create(ctx context.Context, token *domain.ActivationToken) error

	// GetByID returns ErrActivationTokenNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ActivationToken, error)

	// MarkUsed sets used_at only if it is still NULL. Returns
	// ErrActivationTokenUsed if the token was already redeemed.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// DeleteExpired removes tokens that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	WithTx(tx *sql.Tx) ActivationTokenStore
}
