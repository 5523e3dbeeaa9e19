package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/domain"
	"github.com/V4T54L/tenant-gateway/internal/domain/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSignupProvider() *mocks.MockIdentityProvider {
	return &mocks.MockIdentityProvider{
		SignUpResult: &domain.AuthResult{
			User:    &domain.User{ID: "5a4f7f4e-3f0e-4a57-9d43-4c1f4f3f1a01", Email: "a@x.io"},
			Session: &domain.Session{AccessToken: "access", RefreshToken: "refresh"},
		},
	}
}

func validSignup() SignupRequest {
	return SignupRequest{Email: "a@x.io", Password: "secret123", CompanyName: "Acme"}
}

func TestSignupUseCase_Success(t *testing.T) {
	provider := newSignupProvider()
	dir := mocks.NewMockTenantDirectory()
	m := metrics.NewGatewayMetrics(prometheus.NewRegistry())
	uc := NewSignupUseCase(provider, dir, SignupOptions{}, discardLogger(), m)

	res, err := uc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.Equal(t, "a@x.io", res.User.Email)
	assert.Equal(t, "Acme", res.Tenant.Name)
	assert.Equal(t, domain.RoleOwner, res.Tenant.Role)
	require.NotNil(t, res.Session)
	assert.Equal(t, "access", res.Session.AccessToken)

	tenant, ok := dir.Tenants[res.Tenant.ID]
	require.True(t, ok, "tenant should be persisted")
	assert.Equal(t, "America/Toronto", tenant.Timezone)
	assert.Equal(t, []string{"a@x.io"}, tenant.DefaultEmailRecipients)

	require.Len(t, dir.Memberships, 1)
	assert.Equal(t, domain.RoleOwner, dir.Memberships[0].Role)
	assert.Equal(t, res.User.ID, dir.Memberships[0].UserID)

	cfg, ok := dir.AgentConfigs[res.Tenant.ID]
	require.True(t, ok, "default agent config should be created")
	assert.Equal(t, domain.DefaultGreeting, cfg.Greeting)
	assert.Equal(t, "professional", cfg.Tone)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.True(t, cfg.StoreTranscripts)
	assert.True(t, cfg.StoreRecordings)

	assert.Equal(t, 1, dir.PrivilegedCalls)
	assert.Equal(t, 0, dir.InsertCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignupSteps.WithLabelValues("agent_config", "ok")))
}

func TestSignupUseCase_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		req     SignupRequest
		wantMsg string
	}{
		{"missing email", SignupRequest{Password: "x", CompanyName: "Acme"}, "Email and password are required"},
		{"missing password", SignupRequest{Email: "a@x.io", CompanyName: "Acme"}, "Email and password are required"},
		{"missing company", SignupRequest{Email: "a@x.io", Password: "x"}, "Company name is required"},
		{"blank company", SignupRequest{Email: "a@x.io", Password: "x", CompanyName: "   "}, "Company name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newSignupProvider()
			dir := mocks.NewMockTenantDirectory()
			uc := NewSignupUseCase(provider, dir, SignupOptions{}, discardLogger(), nil)

			_, err := uc.Signup(context.Background(), tt.req)

			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.wantMsg, de.Message)
			assert.Zero(t, provider.Calls(), "no provider call on invalid input")
			assert.Zero(t, dir.PrivilegedCalls+dir.InsertCalls)
		})
	}
}

func TestSignupUseCase_ProviderFailures(t *testing.T) {
	tests := []struct {
		name       string
		reason     domain.ProviderReason
		want       *domain.Error
		wantKind   domain.ErrorKind
		wantDetail string
	}{
		{"email taken", domain.ProviderReasonEmailTaken, domain.ErrEmailAlreadyRegistered, domain.KindValidation, "This email address is already in use. Please sign in instead."},
		{"rate limited", domain.ProviderReasonRateLimited, domain.ErrRateLimitExceeded, domain.KindRateLimited, ""},
		{"invalid email", domain.ProviderReasonInvalidEmail, domain.ErrInvalidEmail, domain.KindValidation, "Please provide a valid email address."},
		{"weak password", domain.ProviderReasonWeakPassword, domain.ErrWeakPassword, domain.KindValidation, "Password must be at least 6 characters long."},
		{"other", domain.ProviderReasonUnknown, domain.ErrAuthentication, domain.KindValidation, "database exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newSignupProvider()
			provider.SignUpErr = &domain.ProviderError{Reason: tt.reason, Message: "database exploded"}
			dir := mocks.NewMockTenantDirectory()
			uc := NewSignupUseCase(provider, dir, SignupOptions{}, discardLogger(), nil)

			_, err := uc.Signup(context.Background(), validSignup())

			require.ErrorIs(t, err, tt.want)
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.wantKind, de.Kind)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, de.Detail)
			}
			assert.Empty(t, dir.Tenants, "no tenant after identity failure")
		})
	}
}

func TestSignupUseCase_NoUserReturned(t *testing.T) {
	provider := &mocks.MockIdentityProvider{SignUpResult: &domain.AuthResult{}}
	uc := NewSignupUseCase(provider, mocks.NewMockTenantDirectory(), SignupOptions{}, discardLogger(), nil)

	_, err := uc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, domain.ErrUserNotCreated)
}

func TestSignupUseCase_NoSessionIssued(t *testing.T) {
	provider := newSignupProvider()
	provider.SignUpResult.Session = nil
	uc := NewSignupUseCase(provider, mocks.NewMockTenantDirectory(), SignupOptions{}, discardLogger(), nil)

	res, err := uc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	assert.Nil(t, res.Session)
}

func TestSignupUseCase_TenantFallback(t *testing.T) {
	t.Run("insert used when procedure fails", func(t *testing.T) {
		dir := mocks.NewMockTenantDirectory()
		dir.CreatePrivilegedErr = errors.New("function create_tenant does not exist")
		tz := "Europe/Paris"
		req := validSignup()
		req.Timezone = &tz
		req.DefaultEmailRecipients = []string{"ops@x.io"}

		uc := NewSignupUseCase(newSignupProvider(), dir, SignupOptions{}, discardLogger(), nil)
		res, err := uc.Signup(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 1, dir.InsertCalls)
		tenant := dir.Tenants[res.Tenant.ID]
		require.NotNil(t, tenant)
		assert.Equal(t, "Europe/Paris", tenant.Timezone)
		assert.Equal(t, []string{"ops@x.io"}, tenant.DefaultEmailRecipients)
	})

	t.Run("row level security", func(t *testing.T) {
		dir := mocks.NewMockTenantDirectory()
		dir.CreatePrivilegedErr = errors.New("rpc failed")
		dir.InsertTenantErr = &domain.DirectoryError{Reason: domain.DirectoryReasonRowSecurity, Code: "42501", Message: "new row violates row-level security policy"}

		uc := NewSignupUseCase(newSignupProvider(), dir, SignupOptions{}, discardLogger(), nil)
		_, err := uc.Signup(context.Background(), validSignup())

		require.ErrorIs(t, err, domain.ErrTenantCreationBlocked)
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Failed to create tenant", de.Message)
		assert.Contains(t, de.Detail, "RLS policy blocking tenant creation")
		assert.Contains(t, de.Details, "row-level security")
		assert.Contains(t, de.Solution, "fix_rls_service_role.sql")
	})

	t.Run("no row returned", func(t *testing.T) {
		dir := mocks.NewMockTenantDirectory()
		dir.CreatePrivilegedErr = errors.New("rpc failed")
		dir.InsertTenantNoRow = true

		uc := NewSignupUseCase(newSignupProvider(), dir, SignupOptions{}, discardLogger(), nil)
		_, err := uc.Signup(context.Background(), validSignup())

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Failed to create tenant", de.Message)
		assert.Contains(t, de.Details, "service_role key")
	})

	t.Run("other failure", func(t *testing.T) {
		dir := mocks.NewMockTenantDirectory()
		dir.CreatePrivilegedErr = errors.New("rpc failed")
		dir.InsertTenantErr = errors.New("connection reset")

		uc := NewSignupUseCase(newSignupProvider(), dir, SignupOptions{}, discardLogger(), nil)
		_, err := uc.Signup(context.Background(), validSignup())

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Failed to create tenant: connection reset", de.Message)
		assert.Equal(t, domain.KindDependency, de.Kind)
	})
}

func TestSignupUseCase_MembershipFailure(t *testing.T) {
	t.Run("orphans left without compensation", func(t *testing.T) {
		provider := newSignupProvider()
		dir := mocks.NewMockTenantDirectory()
		dir.CreateMembershipErr = errors.New("insert failed")

		uc := NewSignupUseCase(provider, dir, SignupOptions{}, discardLogger(), nil)
		_, err := uc.Signup(context.Background(), validSignup())

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Failed to create tenant user: insert failed", de.Message)
		assert.Len(t, dir.Tenants, 1, "tenant stays behind")
		assert.Empty(t, dir.DeletedTenants)
		assert.Empty(t, provider.DeletedUsers)
		assert.Zero(t, dir.AgentConfigCreates)
	})

	t.Run("compensation removes tenant and identity", func(t *testing.T) {
		provider := newSignupProvider()
		dir := mocks.NewMockTenantDirectory()
		dir.CreateMembershipErr = errors.New("insert failed")

		uc := NewSignupUseCase(provider, dir, SignupOptions{Compensate: true}, discardLogger(), nil)
		_, err := uc.Signup(context.Background(), validSignup())

		require.ErrorIs(t, err, domain.ErrMembershipCreationFailed)
		assert.Empty(t, dir.Tenants)
		assert.Len(t, dir.DeletedTenants, 1)
		assert.Equal(t, []string{provider.SignUpResult.User.ID}, provider.DeletedUsers)
	})
}

func TestSignupUseCase_TenantFailureCompensatesIdentity(t *testing.T) {
	provider := newSignupProvider()
	dir := mocks.NewMockTenantDirectory()
	dir.CreatePrivilegedErr = errors.New("rpc failed")
	dir.InsertTenantErr = errors.New("boom")

	uc := NewSignupUseCase(provider, dir, SignupOptions{Compensate: true}, discardLogger(), nil)
	_, err := uc.Signup(context.Background(), validSignup())

	require.Error(t, err)
	assert.Empty(t, dir.DeletedTenants)
	assert.Equal(t, []string{provider.SignUpResult.User.ID}, provider.DeletedUsers)
}

func TestSignupUseCase_AgentConfigFailureIsNonFatal(t *testing.T) {
	dir := mocks.NewMockTenantDirectory()
	dir.CreateAgentConfigErr = errors.New("table missing")
	m := metrics.NewGatewayMetrics(prometheus.NewRegistry())

	uc := NewSignupUseCase(newSignupProvider(), dir, SignupOptions{}, discardLogger(), m)
	res, err := uc.Signup(context.Background(), validSignup())

	require.NoError(t, err)
	assert.NotEmpty(t, res.Tenant.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignupSteps.WithLabelValues("agent_config", "failed")))
}
