package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Activation token errors
var (
	ErrActivationTokenExpired = errors.New("activation token has expired")
	ErrActivationTokenUsed    = errors.New("activation token has already been used")
)

// ActivationToken is the admin-approval credential issued at registration.
// Only the bcrypt hash of the secret is persisted.
type ActivationToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewActivationToken builds a token for userID that expires after ttl.
func NewActivationToken(userID uuid.UUID, tokenHash string, ttl time.Duration) (*ActivationToken, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if tokenHash == "" {
		return nil, ErrEmptyContent
	}
	now := time.Now().UTC()
	return &ActivationToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// CheckUsable returns nil when the token is unused and not expired at now.
func (t *ActivationToken) CheckUsable(now time.Time) error {
	if t.UsedAt != nil {
		return ErrActivationTokenUsed
	}
	if !now.Before(t.ExpiresAt) {
		return ErrActivationTokenExpired
	}
	return nil
}

// IsUsable reports whether the token can still be redeemed at now.
func (t *ActivationToken) IsUsable(now time.Time) bool {
	return t.CheckUsable(now) == nil
}

// MarkUsed records redemption of the token.
func (t *ActivationToken) MarkUsed(now time.Time) error {
	if err := t.CheckUsable(now); err != nil {
		return err
	}
	used := now.UTC()
	t.UsedAt = &used
	return nil
}
