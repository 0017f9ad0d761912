package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

const subscriptionColumns = `user_id, stripe_customer_id, stripe_subscription_id, status, plan, current_period_end, updated_at`

// PostgresSubscriptionStore implements store.SubscriptionStore.
type PostgresSubscriptionStore struct {
	db store.DBTX
}

// NewPostgresSubscriptionStore creates a subscription store.
func NewPostgresSubscriptionStore(db store.DBTX) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

var _ store.SubscriptionStore = (*PostgresSubscriptionStore)(nil)

// WithTx implements store.SubscriptionStore.
func (s *PostgresSubscriptionStore) WithTx(tx *sql.Tx) store.SubscriptionStore {
	return &PostgresSubscriptionStore{db: tx}
}

func (s *PostgresSubscriptionStore) getOne(ctx context.Context, where string, arg any) (*domain.Subscription, error) {
	var sub domain.Subscription
	var customer, subscription sql.NullString
	var status string
	var periodEnd sql.NullTime

	err := s.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+where, arg).
		Scan(&sub.UserID, &customer, &subscription, &status, &sub.Plan, &periodEnd, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubscriptionNotFound
		}
		return nil, MapError(err)
	}
	sub.StripeCustomerID = customer.String
	sub.StripeSubscriptionID = subscription.String
	sub.Status = domain.SubscriptionStatus(status)
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	return &sub, nil
}

// GetByUserID implements store.SubscriptionStore.
func (s *PostgresSubscriptionStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return s.getOne(ctx, "user_id = $1", userID)
}

// GetByCustomerID implements store.SubscriptionStore.
func (s *PostgresSubscriptionStore) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return s.getOne(ctx, "stripe_customer_id = $1", customerID)
}

// Upsert implements store.SubscriptionStore. Empty Stripe ids never
// overwrite stored ones.
func (s *PostgresSubscriptionStore) Upsert(ctx context.Context, sub *domain.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id     = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
			stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, subscriptions.stripe_subscription_id),
			status                 = EXCLUDED.status,
			plan                   = EXCLUDED.plan,
			current_period_end     = EXCLUDED.current_period_end,
			updated_at             = EXCLUDED.updated_at`,
		sub.UserID, nullString(sub.StripeCustomerID), nullString(sub.StripeSubscriptionID),
		sub.Status, sub.Plan, nullTime(sub.CurrentPeriodEnd), sub.UpdatedAt)
	return MapError(err)
}
