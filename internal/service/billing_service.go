package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/stripeclient"
	"github.com/nextudy/nextudy-api/internal/store"
)

// PaymentProvider is the subset of Stripe the billing flow needs.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req stripeclient.CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*stripeclient.SubscriptionEvent, error)
}

// BillingURLs are the web app pages Stripe redirects back to.
type BillingURLs struct {
	Success      string
	Cancel       string
	PortalReturn string
}

// BillingService runs subscription checkout and keeps subscription rows in
// sync with Stripe webhooks.
type BillingService struct {
	subscriptions store.SubscriptionStore
	users         store.UserStore
	provider      PaymentProvider
	urls          BillingURLs
	plan          string
	logger        *slog.Logger
	now           func() time.Time
}

// NewBillingService creates a BillingService. A nil provider disables billing.
func NewBillingService(
	subscriptions store.SubscriptionStore,
	users store.UserStore,
	provider PaymentProvider,
	urls BillingURLs,
	plan string,
	logger *slog.Logger,
) *BillingService {
	return &BillingService{
		subscriptions: subscriptions,
		users:         users,
		provider:      provider,
		urls:          urls,
		plan:          plan,
		logger:        logger.With("component", "billing_service"),
		now:           time.Now,
	}
}

// Checkout returns the URL of a new subscription Checkout session.
func (s *BillingService) Checkout(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.provider == nil {
		return "", wrap("checkout", ErrFeatureDisabled)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", wrap("checkout", err)
	}

	req := stripeclient.CheckoutRequest{
		UserID:     user.ID,
		Email:      user.Email,
		SuccessURL: s.urls.Success,
		CancelURL:  s.urls.Cancel,
	}
	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if sub.IsPremium() {
			return "", wrap("checkout", ErrAlreadySubscribed)
		}
		req.CustomerID = sub.StripeCustomerID
	case !errors.Is(err, store.ErrNotFound):
		return "", wrap("checkout", err)
	}

	link, err := s.provider.CreateCheckoutSession(ctx, req)
	return link, wrap("checkout", err)
}

// Portal returns a Stripe billing portal URL for the user's customer.
func (s *BillingService) Portal(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.provider == nil {
		return "", wrap("billing_portal", ErrFeatureDisabled)
	}
	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sub.StripeCustomerID == "") {
		return "", wrap("billing_portal", ErrNoBillingCustomer)
	}
	if err != nil {
		return "", wrap("billing_portal", err)
	}
	link, err := s.provider.CreatePortalSession(ctx, sub.StripeCustomerID, s.urls.PortalReturn)
	return link, wrap("billing_portal", err)
}

// Subscription returns the user's subscription, or a "none" placeholder.
func (s *BillingService) Subscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.Subscription{UserID: userID, Status: domain.SubscriptionNone}, nil
	}
	return sub, wrap("get_subscription", err)
}

// HandleWebhook verifies a Stripe webhook and applies it. Events the
// application does not track are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return wrap("stripe_webhook", ErrFeatureDisabled)
	}
	event, err := s.provider.ParseWebhook(payload, signature)
	if errors.Is(err, stripeclient.ErrUnhandledEvent) {
		return nil
	}
	if errors.Is(err, stripeclient.ErrInvalidSignature) {
		return wrap("stripe_webhook", ErrInvalidWebhook)
	}
	if err != nil {
		return wrap("stripe_webhook", err)
	}

	sub, err := s.subscriptionFor(ctx, event)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.WarnContext(ctx, "webhook for unknown customer ignored",
				"event", event.Kind,
				"customer_id", event.CustomerID)
			return nil
		}
		return wrap("stripe_webhook", err)
	}

	if event.CustomerID != "" {
		sub.StripeCustomerID = event.CustomerID
	}
	if event.SubscriptionID != "" {
		sub.StripeSubscriptionID = event.SubscriptionID
	}
	if event.Status != "" {
		sub.Status = domain.SubscriptionStatus(strings.ToLower(event.Status))
	}
	if event.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = event.CurrentPeriodEnd
	}
	if event.PriceID != "" {
		sub.Plan = event.PriceID
	} else if sub.Plan == "" {
		sub.Plan = s.plan
	}
	sub.UpdatedAt = s.now().UTC()

	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		return wrap("stripe_webhook", err)
	}
	s.logger.InfoContext(ctx, "subscription updated",
		"event", event.Kind,
		"user_id", sub.UserID,
		"status", sub.Status)
	return nil
}

// subscriptionFor finds the row an event applies to: by the user id put in
// the checkout metadata, else by Stripe customer.
func (s *BillingService) subscriptionFor(ctx context.Context, event *stripeclient.SubscriptionEvent) (*domain.Subscription, error) {
	if event.UserID != uuid.Nil {
		sub, err := s.subscriptions.GetByUserID(ctx, event.UserID)
		if errors.Is(err, store.ErrNotFound) {
			if _, err := s.users.GetByID(ctx, event.UserID); err != nil {
				return nil, err
			}
			return &domain.Subscription{UserID: event.UserID, Status: domain.SubscriptionNone}, nil
		}
		return sub, err
	}
	if event.CustomerID == "" {
		return nil, store.ErrSubscriptionNotFound
	}
	return s.subscriptions.GetByCustomerID(ctx, event.CustomerID)
}
