package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextudy/nextudy-api/internal/config"
	"github.com/nextudy/nextudy-api/internal/redact"
	"github.com/wneessen/go-mail"
)

// ErrNoRecipient is returned when a message has no recipient.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is a rendered e-mail.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTPMailer, or a LogMailer when no SMTP host is configured.
func New(cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	if cfg.Host == "" {
		logger.Warn("no SMTP host configured, e-mails will only be logged")
		return &LogMailer{logger: logger}, nil
	}
	return NewSMTPMailer(cfg, logger)
}

// SMTPMailer delivers messages through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTPMailer. STARTTLS is used when the relay offers it.
func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: logger.With(slog.String("component", "mailer")),
	}, nil
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm, err := buildMsg(m.from, msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		m.logger.ErrorContext(ctx, "failed to send e-mail",
			slog.String("subject", msg.Subject),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("send e-mail: %w", err)
	}
	m.logger.InfoContext(ctx, "e-mail sent",
		slog.String("subject", msg.Subject),
		slog.Int("recipients", len(msg.To)))
	return nil
}

func buildMsg(from string, msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, ErrNoRecipient
	}
	mm := mail.NewMsg()
	if err := mm.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := mm.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mm.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return mm, nil
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg at INFO level. Bodies are logged so login codes can be read in development.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	m.logger.InfoContext(ctx, "e-mail not sent (no SMTP relay)",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text))
	return nil
}
