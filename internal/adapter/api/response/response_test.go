package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "validation",
			err:        domain.ErrValidation.WithMessage("Company name is required"),
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]string{"error": "Company name is required"},
		},
		{
			name: "diagnostic fields",
			err: domain.ErrRateLimitExceeded.
				WithDetail("Too many signup attempts").
				WithSolution("Wait a few minutes"),
			wantStatus: http.StatusTooManyRequests,
			wantBody: map[string]string{
				"error":    "Email rate limit exceeded",
				"message":  "Too many signup attempts",
				"solution": "Wait a few minutes",
			},
		},
		{
			name:       "wrapped cause is not leaked",
			err:        fmt.Errorf("verify: %w", domain.ErrInvalidToken.Wrap(errors.New("invalid JWT: signature is invalid"))),
			wantStatus: http.StatusUnauthorized,
			wantBody:   map[string]string{"error": "Invalid token"},
		},
		{name: "forbidden", err: domain.ErrPermissionDenied, wantStatus: http.StatusForbidden, wantBody: map[string]string{"error": "Insufficient permissions"}},
		{name: "not found", err: domain.ErrNoTenant, wantStatus: http.StatusNotFound, wantBody: map[string]string{"error": "User not associated with any tenant"}},
		{name: "dependency", err: domain.ErrTenantUpdateFailed, wantStatus: http.StatusInternalServerError, wantBody: map[string]string{"error": "Failed to update tenant"}},
		{name: "plain error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantBody: map[string]string{"error": "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Error(rr, nil, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, decode(t, rr))
		})
	}
}
