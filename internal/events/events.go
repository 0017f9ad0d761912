package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	// UserRegistered is emitted after a student signs up and is waiting for approval.
	UserRegistered = "user.registered"
	// UserActivated is emitted once an admin approves an account.
	UserActivated = "user.activated"
	// UserRejected is emitted once an admin refuses an account.
	UserRejected = "user.rejected"
	// LoginCodeIssued is emitted when a one-time login code must be mailed.
	LoginCodeIssued = "auth.login_code_issued"
)

// Event is a typed notification with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of eventType with payload serialized as JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   b,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UserRegisteredPayload accompanies UserRegistered. TokenSecret is the
// clear activation secret; it only ever lives in memory and in the mail.
type UserRegisteredPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	TokenID     uuid.UUID `json:"token_id"`
	TokenSecret string    `json:"token_secret"`
}

// UserReviewedPayload accompanies UserActivated and UserRejected.
type UserReviewedPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// LoginCodePayload accompanies LoginCodeIssued.
type LoginCodePayload struct {
	Email      string `json:"email"`
	Code       string `json:"code"`
	TTLMinutes int    `json:"ttl_minutes"`
}

// EventHandler reacts to events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
