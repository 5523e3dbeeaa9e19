package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// TokenInvalidator drops any cached verification result for a token.
type TokenInvalidator interface {
	Invalidate(token string)
}

// TenantSummary is the tenant view returned by signin and /auth/me.
type TenantSummary struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Role     domain.Role         `json:"role"`
	Timezone string              `json:"timezone"`
	Industry *string             `json:"industry"`
	Status   domain.TenantStatus `json:"status"`
}

// SigninResult is the outcome of a password signin.
type SigninResult struct {
	User    domain.User
	Tenant  TenantSummary
	Session *domain.Session
}

// Profile is the authenticated caller together with their primary tenant.
type Profile struct {
	User   domain.User   `json:"user"`
	Tenant TenantSummary `json:"tenant"`
}

// SessionUseCase handles signin, signout, refresh and the current-user lookup.
type SessionUseCase struct {
	provider    domain.IdentityProvider
	verifier    *TokenVerifier
	resolver    *MembershipResolver
	tenants     domain.TenantRepository
	invalidator TokenInvalidator
	logger      *slog.Logger
}

// NewSessionUseCase creates a new SessionUseCase. invalidator may be nil.
func NewSessionUseCase(
	provider domain.IdentityProvider,
	verifier *TokenVerifier,
	resolver *MembershipResolver,
	tenants domain.TenantRepository,
	invalidator TokenInvalidator,
	logger *slog.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		provider:    provider,
		verifier:    verifier,
		resolver:    resolver,
		tenants:     tenants,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Signin exchanges credentials for a session and loads the caller's primary tenant.
func (uc *SessionUseCase) Signin(ctx context.Context, email, password string) (*SigninResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrValidation.WithMessage("Email and password are required")
	}

	auth, err := uc.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if credentialsRejected(err) {
			return nil, domain.ErrInvalidCredentials.Wrap(err)
		}
		uc.logger.Warn("signin failed", "error", err)
		return nil, domain.ErrSigninFailed.WithMessage("Authentication error: " + providerMessage(err)).Wrap(err)
	}
	if auth == nil || auth.User == nil || auth.User.ID == "" {
		return nil, domain.ErrInvalidCredentials.WithMessage("Invalid credentials")
	}

	tenant, err := uc.primaryTenant(ctx, auth.User.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoTenant) {
			return nil, domain.ErrNoTenant.WithMessage("User not associated with any tenant. Please contact support.")
		}
		uc.logger.Error("failed to load tenant after signin", "user_id", auth.User.ID, "error", err)
		return nil, domain.ErrTenantLookupFailed.WithMessage("Failed to fetch tenant info: " + err.Error()).Wrap(err)
	}

	return &SigninResult{
		User:    *auth.User,
		Tenant:  *tenant,
		Session: auth.Session,
	}, nil
}

// credentialsRejected reports whether a signin failure means the caller
// supplied bad credentials: a credentials or email reason, or a provider
// message mentioning "invalid" or "credentials".
func credentialsRejected(err error) bool {
	switch domain.ProviderReasonOf(err) {
	case domain.ProviderReasonInvalidCredentials, domain.ProviderReasonInvalidEmail:
		return true
	}
	msg := strings.ToLower(providerMessage(err))
	return strings.Contains(msg, "invalid") || strings.Contains(msg, "credentials")
}

// providerMessage is the provider's own text for err.
func providerMessage(err error) string {
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

// Signout revokes the session behind token.
func (uc *SessionUseCase) Signout(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingToken
	}
	if uc.invalidator != nil {
		defer uc.invalidator.Invalidate(token)
	}

	if err := uc.provider.SignOut(ctx, token); err != nil {
		if domain.ProviderReasonOf(err) == domain.ProviderReasonInvalidToken {
			return domain.ErrInvalidToken.Wrap(err)
		}
		uc.logger.Error("signout failed", "error", err)
		return domain.ErrSignoutFailed.WithMessage("Sign out failed: " + err.Error()).Wrap(err)
	}
	return nil
}

// Refresh exchanges a refresh token for a new session.
func (uc *SessionUseCase) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrValidation.WithMessage("Refresh token required")
	}

	auth, err := uc.provider.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, domain.ErrRefreshFailed.WithMessage("Token refresh failed: " + err.Error()).Wrap(err)
	}
	if auth == nil || auth.Session == nil {
		return nil, domain.ErrRefreshFailed
	}
	return auth.Session, nil
}

// CurrentUser returns the profile of the token's owner.
func (uc *SessionUseCase) CurrentUser(ctx context.Context, token string) (*Profile, error) {
	user, err := uc.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	tenant, err := uc.primaryTenant(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoTenant) {
			return nil, domain.ErrNoTenant
		}
		uc.logger.Error("failed to load tenant for current user", "user_id", user.ID, "error", err)
		return nil, domain.ErrProfileUnavailable.WithMessage("Failed to get user info: " + err.Error()).Wrap(err)
	}

	return &Profile{User: *user, Tenant: *tenant}, nil
}

func (uc *SessionUseCase) primaryTenant(ctx context.Context, userID string) (*TenantSummary, error) {
	membership, err := uc.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	tenant, err := uc.tenants.GetTenant(ctx, membership.TenantID)
	if err != nil {
		return nil, err
	}
	return &TenantSummary{
		ID:       tenant.ID,
		Name:     tenant.Name,
		Role:     membership.Role,
		Timezone: tenant.Timezone,
		Industry: tenant.Industry,
		Status:   tenant.Status,
	}, nil
}
