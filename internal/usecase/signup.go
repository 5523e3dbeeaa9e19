package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

const (
	stepIdentity    = "identity"
	stepTenant      = "tenant"
	stepMembership  = "membership"
	stepAgentConfig = "agent_config"
)

const (
	rlsBlockedMessage  = "RLS policy blocking tenant creation. Please run fix_rls_service_role.sql in Supabase SQL Editor."
	rlsBlockedSolution = "1. Run fix_rls_service_role.sql in Supabase SQL Editor\n" +
		"2. Verify SUPABASE_SECRET_KEY is the service_role key (not anon key)\n" +
		"3. Service role key should start with 'eyJ...' and be much longer than anon key"
	noRowDetails = "Service role key may not be configured correctly. Ensure SUPABASE_SECRET_KEY is the service_role key, not the anon key."
)

// SignupRequest is the input of a self-service signup.
type SignupRequest struct {
	Email                  string   `json:"email"`
	Password               string   `json:"password"`
	CompanyName            string   `json:"company_name"`
	Timezone               *string  `json:"timezone"`
	Industry               *string  `json:"industry"`
	DefaultEmailRecipients []string `json:"default_email_recipients"`
}

// SignupTenant is the tenant summary returned by a signup.
type SignupTenant struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// SignupResult is the outcome of a successful signup. Session is nil when
// the provider did not issue one.
type SignupResult struct {
	User    domain.User
	Tenant  SignupTenant
	Session *domain.Session
}

// SignupOptions tunes the signup orchestration.
type SignupOptions struct {
	DefaultTimezone string
	// Compensate deletes the identity and tenant created by earlier steps
	// when a later step fails.
	Compensate bool
}

// SignupUseCase creates an identity, a tenant, the owner membership and the
// default agent config, in that order.
type SignupUseCase struct {
	provider  domain.IdentityProvider
	directory domain.TenantDirectory
	opts      SignupOptions
	logger    *slog.Logger
	metrics   *metrics.GatewayMetrics
}

// NewSignupUseCase creates a new SignupUseCase.
func NewSignupUseCase(provider domain.IdentityProvider, directory domain.TenantDirectory, opts SignupOptions, logger *slog.Logger, m *metrics.GatewayMetrics) *SignupUseCase {
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "America/Toronto"
	}
	return &SignupUseCase{
		provider:  provider,
		directory: directory,
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

// Signup runs the four signup steps. The first three are fatal; a failure
// creating the agent config is logged and the signup still succeeds.
func (uc *SignupUseCase) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrValidation.WithMessage("Email and password are required")
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, domain.ErrValidation.WithMessage("Company name is required")
	}

	// 1. Identity
	auth, err := uc.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		uc.metrics.SignupStep(stepIdentity, "failed")
		uc.logger.Warn("signup rejected by identity provider", "reason", domain.ProviderReasonOf(err), "error", err)
		return nil, signupProviderError(err)
	}
	if auth == nil || auth.User == nil || auth.User.ID == "" {
		uc.metrics.SignupStep(stepIdentity, "failed")
		return nil, domain.ErrUserNotCreated
	}
	uc.metrics.SignupStep(stepIdentity, "ok")
	user := *auth.User
	if user.Email == "" {
		user.Email = req.Email
	}

	// 2. Tenant
	tenant, err := uc.createTenant(ctx, req)
	if err != nil {
		uc.metrics.SignupStep(stepTenant, "failed")
		uc.abandon(ctx, stepTenant, user.ID, "")
		return nil, err
	}
	uc.metrics.SignupStep(stepTenant, "ok")

	// 3. Owner membership
	membership, err := uc.directory.CreateMembership(ctx, domain.TenantMembership{
		TenantID: tenant.ID,
		UserID:   user.ID,
		Role:     domain.RoleOwner,
	})
	if err != nil || membership == nil {
		uc.metrics.SignupStep(stepMembership, "failed")
		uc.abandon(ctx, stepMembership, user.ID, tenant.ID)
		if err != nil {
			return nil, domain.ErrMembershipCreationFailed.WithMessage("Failed to create tenant user: " + err.Error()).Wrap(err)
		}
		return nil, domain.ErrMembershipNotLinked
	}
	uc.metrics.SignupStep(stepMembership, "ok")

	// 4. Default agent config
	if _, err := uc.directory.CreateAgentConfig(ctx, domain.DefaultAgentConfig(tenant.ID)); err != nil {
		uc.metrics.SignupStep(stepAgentConfig, "failed")
		uc.logger.Warn("failed to create default agent config", "tenant_id", tenant.ID, "error", err)
	} else {
		uc.metrics.SignupStep(stepAgentConfig, "ok")
	}

	uc.logger.Info("signup completed", "user_id", user.ID, "tenant_id", tenant.ID)
	return &SignupResult{
		User:    user,
		Tenant:  SignupTenant{ID: tenant.ID, Name: tenant.Name, Role: domain.RoleOwner},
		Session: auth.Session,
	}, nil
}

func (uc *SignupUseCase) createTenant(ctx context.Context, req SignupRequest) (*domain.Tenant, error) {
	nt := domain.NewTenant{
		Name:                   req.CompanyName,
		Timezone:               uc.opts.DefaultTimezone,
		Industry:               req.Industry,
		DefaultEmailRecipients: req.DefaultEmailRecipients,
	}
	if req.Timezone != nil {
		nt.Timezone = *req.Timezone
	}
	if nt.DefaultEmailRecipients == nil {
		nt.DefaultEmailRecipients = []string{req.Email}
	}

	id, err := uc.directory.CreateTenantPrivileged(ctx, nt)
	if err == nil && id != "" {
		return &domain.Tenant{
			ID:                     id,
			Name:                   nt.Name,
			Timezone:               nt.Timezone,
			Industry:               nt.Industry,
			Status:                 domain.StatusActive,
			DefaultEmailRecipients: nt.DefaultEmailRecipients,
		}, nil
	}
	uc.logger.Warn("privileged tenant creation failed, falling back to direct insert", "error", err)

	tenant, err := uc.directory.InsertTenant(ctx, nt)
	if err != nil {
		if domain.DirectoryReasonOf(err) == domain.DirectoryReasonRowSecurity {
			return nil, domain.ErrTenantCreationBlocked.
				WithDetail(rlsBlockedMessage).
				WithDetails(err.Error()).
				WithSolution(rlsBlockedSolution).
				Wrap(err)
		}
		return nil, domain.ErrTenantCreationFailed.WithMessage("Failed to create tenant: " + err.Error()).Wrap(err)
	}
	if tenant == nil || tenant.ID == "" {
		return nil, domain.ErrTenantCreationFailed.WithDetails(noRowDetails)
	}
	return tenant, nil
}

// abandon handles the state left behind by a failed step. Without
// compensation the orphaned ids are logged for manual cleanup.
func (uc *SignupUseCase) abandon(ctx context.Context, failedStep, userID, tenantID string) {
	if !uc.opts.Compensate {
		uc.logger.Error("signup aborted, partial state left behind",
			"failed_step", failedStep,
			"orphan_user_id", userID,
			"orphan_tenant_id", tenantID,
		)
		return
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if tenantID != "" {
		if err := uc.directory.DeleteTenant(cleanupCtx, tenantID); err != nil {
			uc.logger.Error("failed to compensate tenant", "tenant_id", tenantID, "error", err)
		} else {
			uc.metrics.SignupStep(stepTenant, "compensated")
		}
	}
	if err := uc.provider.DeleteUser(cleanupCtx, userID); err != nil {
		uc.logger.Error("failed to compensate identity", "user_id", userID, "error", err)
		return
	}
	uc.metrics.SignupStep(stepIdentity, "compensated")
}

func signupProviderError(err error) *domain.Error {
	switch domain.ProviderReasonOf(err) {
	case domain.ProviderReasonEmailTaken:
		return domain.ErrEmailAlreadyRegistered.
			WithDetail("This email address is already in use. Please sign in instead.").
			Wrap(err)
	case domain.ProviderReasonRateLimited:
		return domain.ErrRateLimitExceeded.
			WithDetail("Too many signup attempts. Please wait a few minutes and try again, or disable email confirmation in Supabase Auth settings for development.").
			WithSolution("Go to Supabase Dashboard > Authentication > Settings > Disable 'Enable email confirmations' for development").
			Wrap(err)
	case domain.ProviderReasonInvalidEmail:
		return domain.ErrInvalidEmail.WithDetail("Please provide a valid email address.").Wrap(err)
	case domain.ProviderReasonWeakPassword:
		return domain.ErrWeakPassword.WithDetail("Password must be at least 6 characters long.").Wrap(err)
	default:
		return domain.ErrAuthentication.
			WithDetail(err.Error()).
			WithDetails("If this persists, check Supabase Auth settings and rate limits.").
			Wrap(err)
	}
}
