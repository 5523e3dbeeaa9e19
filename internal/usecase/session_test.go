package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/domain/mocks"
)

type recordingInvalidator struct {
	tokens []string
}

func (r *recordingInvalidator) Invalidate(token string) { r.tokens = append(r.tokens, token) }

const userID = "0e0c9d3c-8a51-4b1e-a3d7-3b1cb0d1b8a2"

func seededDirectory() *mocks.MockTenantDirectory {
	dir := mocks.NewMockTenantDirectory()
	industry := "hvac"
	dir.Tenants["t-1"] = &domain.Tenant{ID: "t-1", Name: "Acme", Timezone: "America/Toronto", Industry: &industry, Status: domain.StatusActive}
	dir.Memberships = append(dir.Memberships, domain.TenantMembership{ID: "m-1", TenantID: "t-1", UserID: userID, Role: domain.RoleAdmin, CreatedAt: time.Now()})
	return dir
}

func newSessionUseCase(provider *mocks.MockIdentityProvider, dir *mocks.MockTenantDirectory, inv TokenInvalidator) *SessionUseCase {
	logger := discardLogger()
	return NewSessionUseCase(
		provider,
		NewTokenVerifier(provider, logger, nil),
		NewMembershipResolver(dir, logger),
		dir,
		inv,
		logger,
	)
}

func TestSessionUseCase_Signin(t *testing.T) {
	okProvider := func() *mocks.MockIdentityProvider {
		return &mocks.MockIdentityProvider{SignInResult: &domain.AuthResult{
			User:    &domain.User{ID: userID, Email: "a@x.io"},
			Session: &domain.Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1700000000},
		}}
	}

	t.Run("success", func(t *testing.T) {
		uc := newSessionUseCase(okProvider(), seededDirectory(), nil)

		res, err := uc.Signin(context.Background(), "a@x.io", "pw")
		require.NoError(t, err)
		assert.Equal(t, userID, res.User.ID)
		assert.Equal(t, "t-1", res.Tenant.ID)
		assert.Equal(t, domain.RoleAdmin, res.Tenant.Role)
		assert.Equal(t, "hvac", *res.Tenant.Industry)
		assert.Equal(t, int64(1700000000), res.Session.ExpiresAt)
	})

	t.Run("missing fields", func(t *testing.T) {
		provider := okProvider()
		uc := newSessionUseCase(provider, seededDirectory(), nil)

		_, err := uc.Signin(context.Background(), "", "pw")
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, provider.SignInCalls)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		provider := okProvider()
		provider.SignInErr = &domain.ProviderError{Reason: domain.ProviderReasonInvalidCredentials, Message: "Invalid login credentials"}
		uc := newSessionUseCase(provider, seededDirectory(), nil)

		_, err := uc.Signin(context.Background(), "a@x.io", "bad")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Invalid email or password", de.Message)
		assert.Equal(t, domain.KindUnauthenticated, de.Kind)
	})

	t.Run("other provider failure", func(t *testing.T) {
		provider := okProvider()
		provider.SignInErr = &domain.ProviderError{Reason: domain.ProviderReasonUnavailable, Message: "upstream timeout"}
		uc := newSessionUseCase(provider, seededDirectory(), nil)

		_, err := uc.Signin(context.Background(), "a@x.io", "pw")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Authentication error: upstream timeout", de.Message)
	})

	t.Run("provider message classification", func(t *testing.T) {
		tests := []struct {
			name        string
			err         error
			wantCode    *domain.Error
			wantMessage string
		}{
			{
				"unconfirmed email is not a credentials error",
				&domain.ProviderError{Reason: domain.ProviderReasonUnknown, Status: 400, Message: "Email not confirmed"},
				domain.ErrSigninFailed,
				"Authentication error: Email not confirmed",
			},
			{
				"invalid in message",
				&domain.ProviderError{Reason: domain.ProviderReasonUnknown, Status: 400, Message: "Invalid login request payload"},
				domain.ErrInvalidCredentials,
				"Invalid email or password",
			},
			{
				"credentials in plain error",
				errors.New("missing credentials"),
				domain.ErrInvalidCredentials,
				"Invalid email or password",
			},
			{
				"invalid email reason",
				&domain.ProviderError{Reason: domain.ProviderReasonInvalidEmail, Message: "Unable to validate email address"},
				domain.ErrInvalidCredentials,
				"Invalid email or password",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				provider := okProvider()
				provider.SignInErr = tt.err
				uc := newSessionUseCase(provider, seededDirectory(), nil)

				_, err := uc.Signin(context.Background(), "a@x.io", "pw")
				require.ErrorIs(t, err, tt.wantCode)
				var de *domain.Error
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.wantMessage, de.Message)
				assert.Equal(t, domain.KindUnauthenticated, de.Kind)
			})
		}
	})

	t.Run("no membership", func(t *testing.T) {
		uc := newSessionUseCase(okProvider(), mocks.NewMockTenantDirectory(), nil)

		_, err := uc.Signin(context.Background(), "a@x.io", "pw")
		require.ErrorIs(t, err, domain.ErrNoTenant)
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "User not associated with any tenant. Please contact support.", de.Message)
		assert.Equal(t, domain.KindNotFound, de.Kind)
	})

	t.Run("directory failure", func(t *testing.T) {
		dir := seededDirectory()
		dir.ListMembershipsErr = errors.New("timeout")
		uc := newSessionUseCase(okProvider(), dir, nil)

		_, err := uc.Signin(context.Background(), "a@x.io", "pw")
		require.ErrorIs(t, err, domain.ErrTenantLookupFailed)
	})
}

func TestSessionUseCase_Signout(t *testing.T) {
	t.Run("success invalidates cache", func(t *testing.T) {
		inv := &recordingInvalidator{}
		provider := &mocks.MockIdentityProvider{}
		uc := newSessionUseCase(provider, seededDirectory(), inv)

		require.NoError(t, uc.Signout(context.Background(), "tok"))
		assert.Equal(t, 1, provider.SignOutCalls)
		assert.Equal(t, []string{"tok"}, inv.tokens)
	})

	t.Run("invalid token", func(t *testing.T) {
		provider := &mocks.MockIdentityProvider{SignOutErr: &domain.ProviderError{Reason: domain.ProviderReasonInvalidToken}}
		uc := newSessionUseCase(provider, seededDirectory(), nil)

		assert.ErrorIs(t, uc.Signout(context.Background(), "tok"), domain.ErrInvalidToken)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := &mocks.MockIdentityProvider{SignOutErr: errors.New("boom")}
		uc := newSessionUseCase(provider, seededDirectory(), nil)

		err := uc.Signout(context.Background(), "tok")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Sign out failed: boom", de.Message)
		assert.Equal(t, domain.KindDependency, de.Kind)
	})
}

func TestSessionUseCase_Refresh(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		uc := newSessionUseCase(&mocks.MockIdentityProvider{}, seededDirectory(), nil)
		_, err := uc.Refresh(context.Background(), "")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Refresh token required", de.Message)
	})

	t.Run("success", func(t *testing.T) {
		provider := &mocks.MockIdentityProvider{RefreshResult: &domain.AuthResult{Session: &domain.Session{AccessToken: "new"}}}
		uc := newSessionUseCase(provider, seededDirectory(), nil)
		s, err := uc.Refresh(context.Background(), "rt")
		require.NoError(t, err)
		assert.Equal(t, "new", s.AccessToken)
	})

	t.Run("no session", func(t *testing.T) {
		provider := &mocks.MockIdentityProvider{RefreshResult: &domain.AuthResult{}}
		uc := newSessionUseCase(provider, seededDirectory(), nil)
		_, err := uc.Refresh(context.Background(), "rt")
		assert.ErrorIs(t, err, domain.ErrRefreshFailed)
	})

	t.Run("provider failure", func(t *testing.T) {
		provider := &mocks.MockIdentityProvider{RefreshErr: errors.New("Invalid Refresh Token")}
		uc := newSessionUseCase(provider, seededDirectory(), nil)
		_, err := uc.Refresh(context.Background(), "rt")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Token refresh failed: Invalid Refresh Token", de.Message)
		assert.Equal(t, domain.KindUnauthenticated, de.Kind)
	})
}

func TestSessionUseCase_CurrentUser(t *testing.T) {
	provider := &mocks.MockIdentityProvider{Users: map[string]*domain.User{"tok": {ID: userID, Email: "a@x.io"}}}

	t.Run("success", func(t *testing.T) {
		uc := newSessionUseCase(provider, seededDirectory(), nil)
		p, err := uc.CurrentUser(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "a@x.io", p.User.Email)
		assert.Equal(t, "Acme", p.Tenant.Name)
	})

	t.Run("invalid token", func(t *testing.T) {
		uc := newSessionUseCase(provider, seededDirectory(), nil)
		_, err := uc.CurrentUser(context.Background(), "nope")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("no tenant", func(t *testing.T) {
		uc := newSessionUseCase(provider, mocks.NewMockTenantDirectory(), nil)
		_, err := uc.CurrentUser(context.Background(), "tok")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "User not associated with any tenant", de.Message)
	})
}
