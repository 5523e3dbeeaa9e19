package supabase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/tenant-gateway/internal/adapter/pii"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

const serviceKey = "service-role-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newAuthClient(t *testing.T, h http.HandlerFunc) *AuthClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := discardLogger()
	return NewAuthClient(Options{URL: srv.URL, ServiceKey: serviceKey, Timeout: 2 * time.Second}, pii.NewRedactor(nil, logger), logger)
}

func TestAuthClient_SignUp(t *testing.T) {
	t.Run("session returned", func(t *testing.T) {
		c := newAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			assert.Equal(t, serviceKey, r.Header.Get("apikey"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@x.io", body["email"])
			assert.Equal(t, "pw123456", body["password"])

			writeJSON(w, http.StatusOK, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1700003600,"user":{"id":"u-1","email":"a@x.io"}}`)
		})

		res, err := c.SignUp(context.Background(), "a@x.io", "pw123456")
		require.NoError(t, err)
		require.NotNil(t, res.User)
		assert.Equal(t, "u-1", res.User.ID)
		require.NotNil(t, res.Session)
		assert.Equal(t, "at", res.Session.AccessToken)
		assert.Equal(t, int64(1700003600), res.Session.ExpiresAt)
	})

	t.Run("confirmation pending returns bare user", func(t *testing.T) {
		c := newAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"id":"u-2","email":"b@x.io","confirmation_sent_at":"2024-01-01T00:00:00Z"}`)
		})

		res, err := c.SignUp(context.Background(), "b@x.io", "pw123456")
		require.NoError(t, err)
		assert.Equal(t, "u-2", res.User.ID)
		assert.Nil(t, res.Session)
	})

	tests := []struct {
		name   string
		status int
		body   string
		want   domain.ProviderReason
	}{
		{"structured email exists", 422, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`, domain.ProviderReasonEmailTaken},
		{"legacy email exists", 400, `{"msg":"User already registered"}`, domain.ProviderReasonEmailTaken},
		{"rate limit status", 429, `{"msg":"slow down"}`, domain.ProviderReasonRateLimited},
		{"weak password", 422, `{"error_code":"weak_password","msg":"Password should be at least 6 characters."}`, domain.ProviderReasonWeakPassword},
		{"invalid email text", 400, `{"msg":"Unable to validate email address: invalid format"}`, domain.ProviderReasonInvalidEmail},
		{"server error", 503, `upstream unavailable`, domain.ProviderReasonUnavailable},
		{"unknown", 400, `{"msg":"Signups not allowed for this instance"}`, domain.ProviderReasonUnknown},
		{"email not confirmed", 400, `{"error_code":"email_not_confirmed","msg":"Email not confirmed"}`, domain.ProviderReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.SignUp(context.Background(), "a@x.io", "pw")
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.ProviderReasonOf(err))
		})
	}
}

func TestAuthClient_SignInAndRefresh(t *testing.T) {
	c := newAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		switch r.URL.Query().Get("grant_type") {
		case "password":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "right" {
				writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u-1","email":"a@x.io"}}`)
		case "refresh_token":
			writeJSON(w, http.StatusOK, `{"access_token":"at2","refresh_token":"rt2","expires_at":1800000000,"user":{"id":"u-1"}}`)
		default:
			t.Errorf("unexpected grant_type %q", r.URL.Query().Get("grant_type"))
		}
	})

	res, err := c.SignInWithPassword(context.Background(), "a@x.io", "right")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", res.User.Email)
	assert.Greater(t, res.Session.ExpiresAt, time.Now().Unix())

	_, err = c.SignInWithPassword(context.Background(), "a@x.io", "wrong")
	assert.Equal(t, domain.ProviderReasonInvalidCredentials, domain.ProviderReasonOf(err))

	res, err = c.RefreshSession(context.Background(), "rt")
	require.NoError(t, err)
	assert.Equal(t, "at2", res.Session.AccessToken)
	assert.Equal(t, int64(1800000000), res.Session.ExpiresAt)
}

func TestAuthClient_GetUserAndSignOut(t *testing.T) {
	c := newAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/auth/v1/user":
			if auth != "Bearer good" {
				writeJSON(w, http.StatusUnauthorized, `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT: unable to parse or verify signature"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"id":"u-1","email":"a@x.io","role":"authenticated"}`)
		case "/auth/v1/logout":
			assert.Equal(t, "Bearer good", auth)
			w.WriteHeader(http.StatusNoContent)
		case "/auth/v1/admin/users/u-9":
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "Bearer "+serviceKey, auth)
			writeJSON(w, http.StatusOK, `{}`)
		default:
			http.NotFound(w, r)
		}
	})

	u, err := c.GetUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	_, err = c.GetUser(context.Background(), "bad")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderReasonInvalidToken, pe.Reason)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)

	require.NoError(t, c.SignOut(context.Background(), "good"))
	require.NoError(t, c.DeleteUser(context.Background(), "u-9"))
}

func TestAuthClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewAuthClient(Options{URL: url, ServiceKey: serviceKey, Timeout: time.Second}, nil, discardLogger())
	_, err := c.GetUser(context.Background(), "tok")
	assert.Equal(t, domain.ProviderReasonUnavailable, domain.ProviderReasonOf(err))
}

func TestClassifyAuthFailure_CodeBeatsMessage(t *testing.T) {
	pe := classifyAuthFailure(http.StatusBadRequest, &authErrorBody{ErrorCode: "weak_password", Msg: "User already registered"})
	assert.Equal(t, domain.ProviderReasonWeakPassword, pe.Reason)

	pe = classifyAuthFailure(http.StatusBadRequest, nil)
	assert.Equal(t, domain.ProviderReasonUnknown, pe.Reason)
	assert.Equal(t, "auth request failed with status 400", pe.Message)
}
