package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/platform/mailer"
	"github.com/nextudy/nextudy-api/internal/store"
)

// ReminderService mails every user the list of their open todos due today.
// "Today" is the calendar day in the service's location.
type ReminderService struct {
	todos     store.TodoStore
	users     store.UserStore
	mailer    mailer.Mailer
	publicURL string
	location  *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// NewReminderService creates a ReminderService. A nil location means UTC.
func NewReminderService(
	todos store.TodoStore,
	users store.UserStore,
	m mailer.Mailer,
	publicURL string,
	location *time.Location,
	logger *slog.Logger,
) *ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &ReminderService{
		todos:     todos,
		users:     users,
		mailer:    m,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		location:  location,
		logger:    logger.With("component", "todo_reminders"),
		now:       time.Now,
	}
}

// SendDueToday mails one reminder per user with open todos due today and
// returns how many mails went out. A failing user does not stop the others.
func (s *ReminderService) SendDueToday(ctx context.Context) (int, error) {
	todos, err := s.todos.ListOpenDueOn(ctx, s.now().In(s.location))
	if err != nil {
		return 0, wrap("send_todo_reminders", err)
	}

	byUser := make(map[uuid.UUID][]string)
	var order []uuid.UUID
	for _, t := range todos {
		if _, seen := byUser[t.UserID]; !seen {
			order = append(order, t.UserID)
		}
		byUser[t.UserID] = append(byUser[t.UserID], t.Title)
	}

	sent := 0
	var errs []error
	for _, userID := range order {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := s.remind(ctx, userID, byUser[userID])
		if err != nil {
			s.logger.ErrorContext(ctx, "todo reminder failed", "user_id", userID, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			sent++
		}
	}

	s.logger.InfoContext(ctx, "todo reminders sent", "sent", sent, "failed", len(errs))
	return sent, wrap("send_todo_reminders", errors.Join(errs...))
}

// remind reports false for accounts that are not active.
func (s *ReminderService) remind(ctx context.Context, userID uuid.UUID, titles []string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.IsActive() {
		return false, nil
	}
	msg, err := mailer.Render("todo_reminder", []string{user.Email}, mailer.TodoReminder{
		FullName: user.FullName,
		Todos:    titles,
		URL:      s.publicURL + "/planner",
	})
	if err != nil {
		return false, err
	}
	return true, s.mailer.Send(ctx, msg)
}
