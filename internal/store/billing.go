package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
)

// SubscriptionStore persists Stripe subscription state per user.
type SubscriptionStore interface {
	// GetByUserID returns ErrSubscriptionNotFound when the user never subscribed.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// GetByCustomerID looks a subscription up by Stripe customer id.
	GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error)

	// Upsert inserts or replaces the row keyed by user id.
	Upsert(ctx context.Context, s *domain.Subscription) error

	WithTx(tx *sql.Tx) SubscriptionStore
}

// PlatformStats aggregates counts shown on the admin dashboard.
type PlatformStats struct {
	UsersByStatus map[domain.UserStatus]int `json:"users_by_status"`
	TasksByStatus map[domain.TaskStatus]int `json:"tasks_by_status"`
	Summaries     int                       `json:"summaries"`
	FlashcardSets int                       `json:"flashcard_sets"`
	Quizzes       int                       `json:"quizzes"`
	Documents     int                       `json:"documents"`
	ActiveSubs    int                       `json:"active_subscriptions"`
}

// StatsStore computes admin dashboard aggregates.
type StatsStore interface {
	PlatformStats(ctx context.Context) (*PlatformStats, error)
}
