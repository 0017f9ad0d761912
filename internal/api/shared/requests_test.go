package shared

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"omitempty,max=5"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr error
		fails   bool
	}{
		{name: "valid", body: `{"email":"a@b.fr","count":2}`},
		{name: "empty", body: "", wantErr: ErrEmptyBody, fails: true},
		{name: "malformed", body: `{"email":`, fails: true},
		{name: "unknown field", body: `{"email":"a@b.fr","admin":true}`, fails: true},
		{name: "wrong type", body: `{"count":"deux"}`, fails: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var v sampleRequest
			err := DecodeJSON(req, &v)
			if !tc.fails {
				require.NoError(t, err)
				assert.Equal(t, "a@b.fr", v.Email)
				return
			}
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestDecodeJSON_BodyLimit(t *testing.T) {
	t.Parallel()
	body := `{"email":"` + strings.Repeat("a", MaxJSONBodyBytes) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var v sampleRequest
	assert.Error(t, DecodeJSON(req, &v))
}

func TestValidateRequest_UsesJSONNames(t *testing.T) {
	t.Parallel()

	err := ValidateRequest(&sampleRequest{Email: "a@b.fr", Count: 9})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "count", verrs[0].Field())
	assert.Equal(t, "max", verrs[0].Tag())

	assert.NoError(t, ValidateRequest(&sampleRequest{Email: "a@b.fr"}))
}
