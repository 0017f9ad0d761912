package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/generation"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/nextudy/nextudy-api/internal/service/auth"
	"github.com/nextudy/nextudy-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"pending account", service.ErrAccountPending, http.StatusForbidden},
		{"rejected account", service.ErrAccountRejected, http.StatusForbidden},
		{"not found", store.ErrSummaryNotFound, http.StatusNotFound},
		{"duplicate email", store.ErrEmailExists, http.StatusConflict},
		{"already reviewed", domain.ErrUserAlreadyReviewed, http.StatusConflict},
		{"too large", service.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge},
		{"empty extraction", domain.ErrEmptyExtraction, http.StatusUnprocessableEntity},
		{"validation", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidFormat), http.StatusBadRequest},
		{"unsupported document", domain.ErrUnsupportedDocument, http.StatusBadRequest},
		{"rate limited", service.ErrRateLimited, http.StatusTooManyRequests},
		{"queue full", service.ErrQueueFull, http.StatusServiceUnavailable},
		{"feature disabled", service.ErrFeatureDisabled, http.StatusServiceUnavailable},
		{"model rate limited", generation.ErrRateLimited, http.StatusServiceUnavailable},
		{"bad model output", generation.ErrInvalidResponse, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.want, MapErrorToStatusCode(fmt.Errorf("op: %w", tc.err)), "wrapped")
		})
	}
}

func TestGetSafeErrorMessage_DoesNotLeakInternals(t *testing.T) {
	t.Parallel()

	errs := []error{
		errors.New(`pq: relation "users" does not exist`),
		fmt.Errorf("groq: 401 invalid api key gsk_abcdef: %w", generation.ErrGenerationFailed),
		fmt.Errorf("dial tcp 10.0.0.3:5432: connection refused"),
	}
	for _, err := range errs {
		msg := GetSafeErrorMessage(err)
		assert.NotContains(t, msg, "gsk_")
		assert.NotContains(t, msg, "10.0.0.3")
		assert.NotContains(t, strings.ToLower(msg), "relation")
	}
}

func TestValidationMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrPasswordTooShort, "Le mot de passe doit contenir au moins 8 caractères"},
		{domain.ErrInvalidItemCount, "Le nombre d'éléments doit être compris entre 1 et 30"},
		{domain.ErrInvalidDifficulty, "Difficulté invalide"},
		{errors.New("other"), "Données invalides"},
	}
	for _, tc := range tests {
		err := fmt.Errorf("%w: %w", domain.ErrValidation, tc.err)
		assert.Equal(t, tc.want, GetSafeErrorMessage(err))
	}
}
