package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nextudy/nextudy-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout(t *testing.T) {
	t.Parallel()

	t.Run("returns the session url", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.billing.CheckoutFn = func(_ context.Context, userID uuid.UUID) (string, error) {
			assert.Equal(t, ts.userID, userID)
			return "https://checkout.stripe.com/c/pay/cs_test", nil
		}

		rec := ts.do(http.MethodPost, "/api/billing/checkout", "", userToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/pay/cs_test"}`, rec.Body.String())
	})

	t.Run("already premium", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.billing.CheckoutFn = func(context.Context, uuid.UUID) (string, error) {
			return "", fmt.Errorf("checkout: %w", service.ErrAlreadySubscribed)
		}

		rec := ts.do(http.MethodPost, "/api/billing/checkout", "", userToken)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	post := func(ts *testServer, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
		req.Header.Set("Stripe-Signature", signature)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("forwards payload and signature", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		var gotPayload, gotSig string
		ts.billing.HandleWebhookFn = func(_ context.Context, payload []byte, signature string) error {
			gotPayload, gotSig = string(payload), signature
			return nil
		}

		rec := post(ts, "t=1,v1=abc")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"type":"checkout.session.completed"}`, gotPayload)
		assert.Equal(t, "t=1,v1=abc", gotSig)
	})

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		ts.billing.HandleWebhookFn = func(context.Context, []byte, string) error {
			return fmt.Errorf("stripe_webhook: %w", service.ErrInvalidWebhook)
		}

		rec := post(ts, "forged")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Signature invalide", decodeError(t, rec).Error)
	})
}
