package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/store"
)

// UserLookup loads the account behind an authenticated request.
type UserLookup interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	users      UserLookup
}

// NewAuthMiddleware creates an AuthMiddleware. users is only needed by
// RequireAdmin.
func NewAuthMiddleware(jwtService auth.JWTService, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
	}
}

// Authenticate validates the Bearer access token and stores the user ID in
// the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentification requise")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Session expirée")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Jeton invalide")
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Erreur d'authentification", err)
			}
			return
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID)
		log := logger.FromContext(ctx).With(slog.String("user_id", claims.UserID.String()))
		ctx = logger.WithLogger(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin lets only active admin accounts through. It must run after
// Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := shared.GetUserID(r.Context())
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentification requise")
			return
		}

		user, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) || store.IsNotFoundError(err) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentification requise")
				return
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Erreur d'authentification", err)
			return
		}
		if !user.IsAdmin() || !user.IsActive() {
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, "Accès réservé aux administrateurs", nil,
				shared.WithElevatedLogLevel())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID extracts the user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	return shared.GetUserID(r.Context())
}
