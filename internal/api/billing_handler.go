package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/nextudy/nextudy-api/internal/api/shared"
	"github.com/nextudy/nextudy-api/internal/platform/logger"
)

// maxWebhookBytes bounds Stripe webhook payloads.
const maxWebhookBytes = 64 << 10

// BillingHandler serves Stripe checkout, portal and webhooks.
type BillingHandler struct {
	billing BillingService
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billing BillingService, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BillingHandler")
	}
	return &BillingHandler{
		billing: billing,
		logger:  logger.With(slog.String("component", "billing_handler")),
	}
}

// Checkout handles POST /api/billing/checkout.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	url, err := h.billing.Checkout(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, URLResponse{URL: url})
}

// Portal handles POST /api/billing/portal.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	url, err := h.billing.Portal(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, URLResponse{URL: url})
}

// Subscription handles GET /api/billing/subscription.
func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.billing.Subscription(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sub)
}

// Webhook handles POST /api/billing/webhook. It is public; the payload is
// authenticated by its Stripe-Signature header.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Requête trop volumineuse", err)
		return
	}

	if err := h.billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("stripe webhook processed")
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"received": true})
}
