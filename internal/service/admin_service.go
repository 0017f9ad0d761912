package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/events"
	"github.com/nextudy/nextudy-api/internal/store"
)

// AdminService backs the admin dashboard: account review and platform stats.
type AdminService struct {
	users  store.UserStore
	stats  store.StatsStore
	events events.EventEmitter
	logger *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(users store.UserStore, stats store.StatsStore, emitter events.EventEmitter, logger *slog.Logger) *AdminService {
	return &AdminService{
		users:  users,
		stats:  stats,
		events: emitter,
		logger: logger.With("component", "admin_service"),
	}
}

// ListPending returns accounts waiting for approval, oldest first.
func (s *AdminService) ListPending(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.users.ListByStatus(ctx, domain.UserStatusPending, limit, offset)
	return users, wrap("list_pending_users", err)
}

// Approve activates an account.
func (s *AdminService) Approve(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrap("approve_user", err)
	}
	if err := user.Activate(); err != nil {
		return nil, wrap("approve_user", err)
	}
	if err := s.users.UpdateStatus(ctx, user.ID, user.Status); err != nil {
		return nil, wrap("approve_user", err)
	}

	emit(ctx, s.events, s.logger, events.UserActivated, reviewedPayload(user))
	s.logger.InfoContext(ctx, "user approved", "user_id", user.ID, "admin_id", adminID)
	return user, nil
}

// Reject refuses a pending account.
func (s *AdminService) Reject(ctx context.Context, adminID, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrap("reject_user", err)
	}
	if err := user.Reject(); err != nil {
		return nil, wrap("reject_user", err)
	}
	if err := s.users.UpdateStatus(ctx, user.ID, user.Status); err != nil {
		return nil, wrap("reject_user", err)
	}

	emit(ctx, s.events, s.logger, events.UserRejected, reviewedPayload(user))
	s.logger.InfoContext(ctx, "user rejected", "user_id", user.ID, "admin_id", adminID)
	return user, nil
}

// Stats returns the platform aggregates.
func (s *AdminService) Stats(ctx context.Context) (*store.PlatformStats, error) {
	stats, err := s.stats.PlatformStats(ctx)
	return stats, wrap("platform_stats", err)
}
