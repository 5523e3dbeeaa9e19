package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/domain/mocks"
	"github.com/V4T54L/tenant-gateway/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	provider  *mocks.MockIdentityProvider
	directory *mocks.MockTenantDirectory
	guard     *Guard
}

func newFixture() *fixture {
	provider := &mocks.MockIdentityProvider{Users: map[string]*domain.User{
		"owner-token":  {ID: "u-owner", Email: "owner@x.io"},
		"viewer-token": {ID: "u-viewer", Email: "viewer@x.io"},
		"orphan-token": {ID: "u-orphan", Email: "orphan@x.io"},
	}}
	directory := mocks.NewMockTenantDirectory()
	now := time.Now()
	directory.Memberships = []domain.TenantMembership{
		{ID: "m-1", TenantID: "t-1", UserID: "u-owner", Role: domain.RoleOwner, CreatedAt: now},
		{ID: "m-2", TenantID: "t-1", UserID: "u-viewer", Role: domain.RoleViewer, CreatedAt: now},
	}

	logger := discardLogger()
	guard := NewGuard(
		usecase.NewTokenVerifier(provider, logger, nil),
		usecase.NewMembershipResolver(directory, logger),
		logger,
	)
	return &fixture{provider: provider, directory: directory, guard: guard}
}

// principalEcho writes the principal the guard passed along.
var principalEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "no principal", http.StatusTeapot)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"user_id": p.UserID, "tenant_id": p.TenantID, "role": string(p.Role)})
})

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/tenant/profile", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func body(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestGuard_TenantRequired(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization token required"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "Authorization token required"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Authorization token required"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "Invalid token"},
		{"no tenant", "Bearer orphan-token", http.StatusNotFound, "User not associated with any tenant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rr := serve(f.guard.TenantRequired(principalEcho), tt.header)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, map[string]string{"error": tt.wantError}, body(t, rr))
		})
	}

	t.Run("resolves principal", func(t *testing.T) {
		f := newFixture()
		rr := serve(f.guard.TenantRequired(principalEcho), "bearer viewer-token")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[string]string{"user_id": "u-viewer", "tenant_id": "t-1", "role": "viewer"}, body(t, rr))
	})

	t.Run("directory failure", func(t *testing.T) {
		f := newFixture()
		f.directory.ListMembershipsErr = errors.New("connection refused")
		rr := serve(f.guard.TenantRequired(principalEcho), "Bearer owner-token")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to fetch tenant info", body(t, rr)["error"])
	})

	t.Run("provider unavailable", func(t *testing.T) {
		f := newFixture()
		f.provider.GetUserErr = &domain.ProviderError{Reason: domain.ProviderReasonUnavailable, Message: "dial tcp: connection refused"}
		rr := serve(f.guard.TenantRequired(principalEcho), "Bearer owner-token")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.NotContains(t, rr.Body.String(), "dial tcp")
	})
}

func TestGuard_InvalidTokenDoesNotLeakProviderDetail(t *testing.T) {
	f := newFixture()
	f.provider.GetUserErr = &domain.ProviderError{
		Reason:  domain.ProviderReasonInvalidToken,
		Status:  http.StatusUnauthorized,
		Message: "invalid JWT: unable to parse or verify signature, token is expired by 1h2m",
	}
	rr := serve(f.guard.TenantRequired(principalEcho), "Bearer expired")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, map[string]string{"error": "Invalid token"}, body(t, rr))
}

func TestGuard_RoleRequired(t *testing.T) {
	f := newFixture()
	h := f.guard.RoleRequired(domain.RoleOwner, domain.RoleAdmin)(principalEcho)

	t.Run("viewer is forbidden", func(t *testing.T) {
		rr := serve(h, "Bearer viewer-token")
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, map[string]string{"error": "Insufficient permissions. Required: owner, admin"}, body(t, rr))
	})

	t.Run("owner passes", func(t *testing.T) {
		rr := serve(h, "Bearer owner-token")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "owner", body(t, rr)["role"])
	})

	t.Run("authentication runs first", func(t *testing.T) {
		rr := serve(h, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":    "abc",
		"bearer abc":    "abc",
		"Bearer  abc  ": "abc",
		"Token abc":     "",
		"Bearer":        "",
		"":              "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), "header %q", header)
	}
}
