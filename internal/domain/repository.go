package domain

import "context"

// UserResolver resolves an access token to the user it was issued to.
type UserResolver interface {
	// GetUser returns the user owning token. Implementations return a
	// ProviderError with ProviderReasonInvalidToken when the token is rejected
	// and ProviderReasonUnavailable when the provider cannot be reached.
	GetUser(ctx context.Context, token string) (*User, error)
}

// IdentityProvider abstracts the external credential and session provider.
type IdentityProvider interface {
	UserResolver

	// SignUp creates a new identity. The returned session may be nil.
	SignUp(ctx context.Context, email, password string) (*AuthResult, error)

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*AuthResult, error)

	// SignOut revokes the session behind token.
	SignOut(ctx context.Context, token string) error

	// RefreshSession exchanges a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*AuthResult, error)

	// DeleteUser removes an identity using privileged credentials.
	DeleteUser(ctx context.Context, userID string) error
}

// TenantRepository persists tenants.
type TenantRepository interface {
	// CreateTenantPrivileged creates a tenant through the server-side
	// procedure that bypasses row-level security and returns its id.
	CreateTenantPrivileged(ctx context.Context, t NewTenant) (string, error)

	// InsertTenant inserts a tenant row directly. It returns nil, nil when
	// the backend accepted the write but returned no row.
	InsertTenant(ctx context.Context, t NewTenant) (*Tenant, error)

	GetTenant(ctx context.Context, id string) (*Tenant, error)
	UpdateTenant(ctx context.Context, id string, u TenantUpdate) (*Tenant, error)
	DeleteTenant(ctx context.Context, id string) error
}

// MembershipRepository persists tenant memberships.
type MembershipRepository interface {
	// ListMemberships returns every membership of userID, in any order.
	ListMemberships(ctx context.Context, userID string) ([]TenantMembership, error)

	// ListTenantMembers returns the members of tenantID ordered by creation time.
	ListTenantMembers(ctx context.Context, tenantID string) ([]TenantMembership, error)

	// GetMembership returns ErrNotFound when userID is not a member of tenantID.
	GetMembership(ctx context.Context, tenantID, userID string) (*TenantMembership, error)

	CreateMembership(ctx context.Context, m TenantMembership) (*TenantMembership, error)
}

// AgentConfigRepository persists per-tenant agent configuration.
type AgentConfigRepository interface {
	CreateAgentConfig(ctx context.Context, c AgentConfig) (*AgentConfig, error)

	// GetAgentConfig returns ErrNotFound when the tenant has no config row.
	GetAgentConfig(ctx context.Context, tenantID string) (*AgentConfig, error)

	// UpdateAgentConfig returns ErrNotFound when the tenant has no config row.
	UpdateAgentConfig(ctx context.Context, tenantID string, u AgentConfigUpdate) (*AgentConfig, error)
}

// PhoneNumberRepository reads phone number assignments.
type PhoneNumberRepository interface {
	ListPhoneNumbers(ctx context.Context, tenantID string) ([]PhoneNumber, error)

	// FindActivePhoneNumber returns ErrNotFound when no active record matches.
	FindActivePhoneNumber(ctx context.Context, number string) (*PhoneNumber, error)
}

// TenantDirectory is the full tenant data store.
type TenantDirectory interface {
	TenantRepository
	MembershipRepository
	AgentConfigRepository
	PhoneNumberRepository
}

// PhoneTenantCache caches phone number to tenant id lookups.
type PhoneTenantCache interface {
	// Get returns "", false, nil on a miss.
	Get(ctx context.Context, number string) (string, bool, error)
	Set(ctx context.Context, number, tenantID string) error
	// Invalidate drops the entry for number. A missing entry is not an error.
	Invalidate(ctx context.Context, number string) error
}
