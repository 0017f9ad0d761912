package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the Stripe subscription status.
type SubscriptionStatus string

// Subscription statuses used by the application.
const (
	SubscriptionNone       SubscriptionStatus = "none"
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionUnpaid     SubscriptionStatus = "unpaid"
)

// Subscription links a user to their Stripe customer and subscription.
type Subscription struct {
	UserID               uuid.UUID          `json:"user_id"`
	StripeCustomerID     string             `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `json:"stripe_subscription_id,omitempty"`
	Status               SubscriptionStatus `json:"status"`
	Plan                 string             `json:"plan,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// IsPremium reports whether the subscription grants paid features.
func (s *Subscription) IsPremium() bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}
