package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/events"
	"github.com/nextudy/nextudy-api/internal/platform/mailer"
)

// AdminLister returns the active admin accounts.
type AdminLister interface {
	ListAdmins(ctx context.Context) ([]domain.User, error)
}

// Notifier turns account events into transactional mail.
type Notifier struct {
	mailer      mailer.Mailer
	admins      AdminLister
	adminEmails []string
	publicURL   string
	logger      *slog.Logger
}

// NewNotifier creates a Notifier. adminEmails are always copied on approval
// requests in addition to the admin accounts.
func NewNotifier(m mailer.Mailer, admins AdminLister, adminEmails []string, publicURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		mailer:      m,
		admins:      admins,
		adminEmails: adminEmails,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers the notifier for every event it handles.
func (n *Notifier) Subscribe(emitter *events.InMemoryEventEmitter) {
	emitter.Subscribe(n,
		events.UserRegistered,
		events.UserActivated,
		events.UserRejected,
		events.LoginCodeIssued,
	)
}

// HandleEvent implements events.EventHandler.
func (n *Notifier) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.UserRegistered:
		var p events.UserRegisteredPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return err
		}
		return n.approvalRequest(ctx, p)

	case events.UserActivated, events.UserRejected:
		var p events.UserReviewedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return err
		}
		tmpl := "account_activated"
		if event.Type == events.UserRejected {
			tmpl = "account_rejected"
		}
		return n.send(ctx, tmpl, []string{p.Email}, mailer.AccountDecision{
			FullName: p.FullName,
			LoginURL: n.publicURL + "/login",
		})

	case events.LoginCodeIssued:
		var p events.LoginCodePayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return err
		}
		return n.send(ctx, "login_code", []string{p.Email}, mailer.LoginCode{
			Code:       p.Code,
			TTLMinutes: p.TTLMinutes,
		})
	}
	return nil
}

func (n *Notifier) approvalRequest(ctx context.Context, p events.UserRegisteredPayload) error {
	recipients := append([]string(nil), n.adminEmails...)
	if n.admins != nil {
		admins, err := n.admins.ListAdmins(ctx)
		if err != nil {
			return fmt.Errorf("list admins: %w", err)
		}
		for _, a := range admins {
			recipients = append(recipients, a.Email)
		}
	}
	for i := range recipients {
		recipients[i] = domain.NormalizeEmail(recipients[i])
	}
	slices.Sort(recipients)
	recipients = slices.Compact(recipients)
	if len(recipients) == 0 {
		n.logger.WarnContext(ctx, "no admin to approve registration", "user_id", p.UserID)
		return nil
	}

	q := url.Values{}
	q.Set("token_id", p.TokenID.String())
	q.Set("token", p.TokenSecret)
	return n.send(ctx, "approval_request", recipients, mailer.ApprovalRequest{
		FullName:    p.FullName,
		Email:       p.Email,
		ApprovalURL: n.publicURL + "/admin/activate?" + q.Encode(),
	})
}

func (n *Notifier) send(ctx context.Context, tmpl string, to []string, data any) error {
	msg, err := mailer.Render(tmpl, to, data)
	if err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", tmpl, err)
	}
	n.logger.DebugContext(ctx, "mail sent", "template", tmpl, "recipients", len(to))
	return nil
}

var _ events.EventHandler = (*Notifier)(nil)
