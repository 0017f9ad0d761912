package api

import (
	"log/slog"
	"net/http"

	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
)

// AdminHandler serves account review and platform stats. Routes are mounted
// behind the admin middleware.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AdminHandler")
	}
	return &AdminHandler{
		admin:  admin,
		logger: logger.With(slog.String("component", "admin_handler")),
	}
}

// ListPending handles GET /api/admin/users/pending.
func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	users, err := h.admin.ListPending(r.Context(), limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newListResponse(users, limit, offset))
}

// Approve handles POST /api/admin/users/{id}/approve.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, userID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.admin.Approve(r.Context(), adminID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("user approved",
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// Reject handles POST /api/admin/users/{id}/reject.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, userID, ok := userAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.admin.Reject(r.Context(), adminID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("user rejected",
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
