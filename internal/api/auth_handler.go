package api

import (
	"log/slog"
	"net/http"

	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/nextudy/nextudy-api/internal/service"
)

// AuthHandler handles signup, activation and sign-in requests.
type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AuthHandler")
	}
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /api/auth/register. The account stays pending until
// an admin approves it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		GradeLevel: req.GradeLevel,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	message := "Inscription enregistrée. Ton compte sera activé après validation."
	if user.IsActive() {
		message = "Compte créé"
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("status", string(user.Status)))
	shared.RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{User: user, Message: message})
}

// Activate handles POST /api/auth/activate, reached from the admin approval link.
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.Activate(r.Context(), req.TokenID, req.Token)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newAuthResponse(pair, nil))
}

// RefreshToken handles POST /api/auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newAuthResponse(pair, nil))
}

// RequestLoginCode handles POST /api/auth/login-code/request. The response
// is the same whether or not the email belongs to an account.
func (h *AuthHandler) RequestLoginCode(w http.ResponseWriter, r *http.Request) {
	var req LoginCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accounts.RequestLoginCode(r.Context(), req.Email); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
		"message": "Si un compte existe pour cette adresse, un code vient d'être envoyé.",
	})
}

// VerifyLoginCode handles POST /api/auth/login-code/verify.
func (h *AuthHandler) VerifyLoginCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyLoginCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.accounts.VerifyLoginCode(r.Context(), req.Email, req.Code)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newAuthResponse(pair, nil))
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/me.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, req.FullName, req.GradeLevel)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}
