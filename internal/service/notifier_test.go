package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdmins struct {
	admins []domain.User
	err    error
}

func (s stubAdmins) ListAdmins(context.Context) ([]domain.User, error) { return s.admins, s.err }

func mustEvent(t *testing.T, eventType string, payload any) *events.Event {
	t.Helper()
	e, err := events.NewEvent(eventType, payload)
	require.NoError(t, err)
	return e
}

func TestNotifier_ApprovalRequest(t *testing.T) {
	m := &recordingMailer{}
	admins := stubAdmins{admins: []domain.User{{Email: "Admin@Nextudy.fr"}, {Email: "prof@nextudy.fr"}}}
	n := NewNotifier(m, admins, []string{"admin@nextudy.fr"}, "https://app.nextudy.fr/", quietLogger())

	tokenID := uuid.MustParse("6f1c2a8e-7d5b-4c1e-9a3f-2b8d4e6f0a1c")
	err := n.HandleEvent(context.Background(), mustEvent(t, events.UserRegistered, events.UserRegisteredPayload{
		UserID:      uuid.New(),
		Email:       "lea@example.fr",
		FullName:    "Léa Martin",
		TokenID:     tokenID,
		TokenSecret: "s3cr3t",
	}))
	require.NoError(t, err)

	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, []string{"admin@nextudy.fr", "prof@nextudy.fr"}, msg.To)
	assert.Equal(t, "Nouvelle inscription à valider : Léa Martin", msg.Subject)
	assert.Contains(t, msg.Text, "https://app.nextudy.fr/admin/activate?token=s3cr3t&token_id="+tokenID.String())
}

func TestNotifier_NoAdmins(t *testing.T) {
	m := &recordingMailer{}
	n := NewNotifier(m, nil, nil, "https://app.nextudy.fr", quietLogger())

	err := n.HandleEvent(context.Background(), mustEvent(t, events.UserRegistered, events.UserRegisteredPayload{Email: "a@example.fr"}))
	require.NoError(t, err)
	assert.Empty(t, m.sent)
}

func TestNotifier_AdminListFailure(t *testing.T) {
	boom := errors.New("db down")
	n := NewNotifier(&recordingMailer{}, stubAdmins{err: boom}, nil, "", quietLogger())

	err := n.HandleEvent(context.Background(), mustEvent(t, events.UserRegistered, events.UserRegisteredPayload{}))
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_UserMails(t *testing.T) {
	tests := []struct {
		name        string
		event       *events.Event
		wantSubject string
		wantText    string
	}{
		{
			name:        "activated",
			event:       mustEvent(t, events.UserActivated, events.UserReviewedPayload{Email: "lea@example.fr", FullName: "Léa"}),
			wantSubject: "Ton compte Nextudy est activé",
			wantText:    "https://app.nextudy.fr/login",
		},
		{
			name:        "login code",
			event:       mustEvent(t, events.LoginCodeIssued, events.LoginCodePayload{Email: "lea@example.fr", Code: "042917", TTLMinutes: 10}),
			wantSubject: "Ton code de connexion Nextudy : 042917",
			wantText:    "valable 10 minutes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &recordingMailer{}
			n := NewNotifier(m, nil, nil, "https://app.nextudy.fr", quietLogger())

			require.NoError(t, n.HandleEvent(context.Background(), tt.event))
			require.Len(t, m.sent, 1)
			assert.Equal(t, []string{"lea@example.fr"}, m.sent[0].To)
			assert.Equal(t, tt.wantSubject, m.sent[0].Subject)
			assert.Contains(t, m.sent[0].Text, tt.wantText)
		})
	}
}

func TestNotifier_SubscribedThroughEmitter(t *testing.T) {
	m := &recordingMailer{}
	emitter := events.NewInMemoryEventEmitter(quietLogger())
	NewNotifier(m, nil, nil, "https://app.nextudy.fr", quietLogger()).Subscribe(emitter)

	err := emitter.EmitEvent(context.Background(), mustEvent(t, events.UserRejected, events.UserReviewedPayload{Email: "tom@example.fr"}))
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"tom@example.fr"}, m.sent[0].To)
}
