package stripeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Webhook event kinds handled by the application.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// metadataUserID links Stripe objects back to a Nextudy user.
const metadataUserID = "user_id"

// Errors
var (
	ErrInvalidSignature = errors.New("invalid stripe webhook signature")
	ErrUnhandledEvent   = errors.New("unhandled stripe event")
)

// CheckoutRequest describes a subscription checkout.
type CheckoutRequest struct {
	UserID     uuid.UUID
	Email      string
	CustomerID string
	SuccessURL string
	CancelURL  string
}

// SubscriptionEvent is the subscription state carried by a webhook.
type SubscriptionEvent struct {
	Kind             string
	UserID           uuid.UUID
	CustomerID       string
	SubscriptionID   string
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
}

// Client talks to the Stripe API.
type Client struct {
	api           *client.API
	priceID       string
	webhookSecret string
}

// New creates a Client. backends may be nil to use Stripe's default endpoints.
func New(secretKey, webhookSecret, priceID string, backends *stripe.Backends) *Client {
	return &Client{
		api:           client.New(secretKey, backends),
		priceID:       priceID,
		webhookSecret: webhookSecret,
	}
}

// CreateCheckoutSession starts a subscription Checkout and returns its URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(c.priceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataUserID: req.UserID.String()},
		},
		Locale: stripe.String("fr"),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens the billing portal for customerID.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return session.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the
// subscription state of handled events. Other event types return
// ErrUnhandledEvent.
func (c *Client) ParseWebhook(payload []byte, signature string) (*SubscriptionEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	kind := string(event.Type)
	switch kind {
	case EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		return checkoutEvent(kind, &session), nil

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return subscriptionEvent(kind, &sub), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, kind)
	}
}

func checkoutEvent(kind string, s *stripe.CheckoutSession) *SubscriptionEvent {
	ev := &SubscriptionEvent{Kind: kind, Status: "active"}
	ev.UserID, _ = uuid.Parse(s.ClientReferenceID)
	if s.Customer != nil {
		ev.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		ev.SubscriptionID = s.Subscription.ID
	}
	return ev
}

func subscriptionEvent(kind string, s *stripe.Subscription) *SubscriptionEvent {
	ev := &SubscriptionEvent{
		Kind:           kind,
		SubscriptionID: s.ID,
		Status:         string(s.Status),
	}
	ev.UserID, _ = uuid.Parse(s.Metadata[metadataUserID])
	if s.Customer != nil {
		ev.CustomerID = s.Customer.ID
	}
	if kind == EventSubscriptionDeleted {
		ev.Status = string(stripe.SubscriptionStatusCanceled)
	}
	if s.CurrentPeriodEnd > 0 {
		end := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		ev.CurrentPeriodEnd = &end
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		ev.PriceID = s.Items.Data[0].Price.ID
	}
	return ev
}
