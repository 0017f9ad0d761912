package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nextudy/nextudy-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithLogger(buf *bytes.Buffer) *http.Request {
	log := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := logger.WithLogger(context.Background(), log)
	ctx = WithTraceID(ctx, "trace-123")
	return httptest.NewRequest(http.MethodGet, "/api/test", nil).WithContext(ctx)
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	RespondWithJSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, map[string]string{"ok": "oui"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"oui"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	RespondWithJSON(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		elevated  bool
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, false, "ERROR"},
		{"rate limited", http.StatusTooManyRequests, false, "WARN"},
		{"forbidden elevated", http.StatusForbidden, true, "WARN"},
		{"bad request", http.StatusBadRequest, false, "DEBUG"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			req := requestWithLogger(&buf)
			rec := httptest.NewRecorder()

			var opts []ResponseOption
			if tc.elevated {
				opts = append(opts, WithElevatedLogLevel())
			}
			RespondWithErrorAndLog(rec, req, tc.status, "Oups", errors.New("password=hunter2 failed"), opts...)

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, ErrorResponse{Error: "Oups", TraceID: "trace-123"}, body)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tc.wantLevel, entry["level"])
			assert.Equal(t, "trace-123", entry["trace_id"])
			assert.NotContains(t, buf.String(), "hunter2")
		})
	}
}
