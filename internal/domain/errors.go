package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrorKind buckets an Error into the gateway's error taxonomy.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindPermissionDenied
	KindNotFound
	KindRateLimited
	KindDependency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Error is a classified, user-facing failure. Message is rendered as the
// "error" field of the response body; Detail, Details and Solution carry
// optional diagnostic guidance.
type Error struct {
	Kind     ErrorKind
	Code     string
	Message  string
	Detail   string
	Details  string
	Solution string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors carrying the same Code, so copies made by the With*
// helpers still satisfy errors.Is against the sentinel they came from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

// Wrap returns a copy of e with err recorded as its cause.
func (e *Error) Wrap(err error) *Error {
	c := e.clone()
	c.Err = err
	return c
}

// WithMessage returns a copy of e with a different top-level message.
func (e *Error) WithMessage(msg string) *Error {
	c := e.clone()
	c.Message = msg
	return c
}

// WithDetail returns a copy of e with the "message" field set.
func (e *Error) WithDetail(detail string) *Error {
	c := e.clone()
	c.Detail = detail
	return c
}

// WithDetails returns a copy of e with the "details" field set.
func (e *Error) WithDetails(details string) *Error {
	c := e.clone()
	c.Details = details
	return c
}

// WithSolution returns a copy of e with the "solution" field set.
func (e *Error) WithSolution(solution string) *Error {
	c := e.clone()
	c.Solution = solution
	return c
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Authentication and membership.
var (
	ErrMissingToken        = newError(KindUnauthenticated, "missing_token", "Authorization token required")
	ErrInvalidToken        = newError(KindUnauthenticated, "invalid_token", "Invalid token")
	ErrProviderUnavailable = newError(KindUnauthenticated, "provider_unavailable", "Authentication provider unavailable")
	ErrNoTenant            = newError(KindNotFound, "no_tenant", "User not associated with any tenant")
	ErrPermissionDenied    = newError(KindPermissionDenied, "permission_denied", "Insufficient permissions")
)

// Signup.
var (
	ErrValidation               = newError(KindValidation, "validation_failed", "Invalid request")
	ErrEmailAlreadyRegistered   = newError(KindValidation, "email_already_registered", "Email already registered")
	ErrRateLimitExceeded        = newError(KindRateLimited, "rate_limit_exceeded", "Email rate limit exceeded")
	ErrInvalidEmail             = newError(KindValidation, "invalid_email", "Invalid email address")
	ErrWeakPassword             = newError(KindValidation, "weak_password", "Password too weak")
	ErrAuthentication           = newError(KindValidation, "authentication_error", "Authentication error")
	ErrUserNotCreated           = newError(KindValidation, "user_not_created", "Failed to create user")
	ErrTenantCreationBlocked    = newError(KindDependency, "tenant_creation_blocked", "Failed to create tenant")
	ErrTenantCreationFailed     = newError(KindDependency, "tenant_creation_failed", "Failed to create tenant")
	ErrMembershipCreationFailed = newError(KindDependency, "membership_creation_failed", "Failed to create tenant user")
	ErrMembershipNotLinked      = newError(KindDependency, "membership_not_linked", "Failed to link user to tenant")
)

// Sessions.
var (
	ErrInvalidCredentials = newError(KindUnauthenticated, "invalid_credentials", "Invalid email or password")
	ErrSigninFailed       = newError(KindUnauthenticated, "signin_failed", "Authentication error")
	ErrSignoutFailed      = newError(KindDependency, "signout_failed", "Sign out failed")
	ErrRefreshFailed      = newError(KindUnauthenticated, "refresh_failed", "Failed to refresh token")
	ErrProfileUnavailable = newError(KindUnauthenticated, "profile_unavailable", "Failed to get user info")
	ErrTenantLookupFailed = newError(KindDependency, "tenant_lookup_failed", "Failed to fetch tenant info")
)

// Tenant configuration.
var (
	ErrTenantNotFound      = newError(KindNotFound, "tenant_not_found", "Tenant not found")
	ErrAgentConfigNotFound = newError(KindNotFound, "agent_config_not_found", "Agent config not found")
	ErrPhoneNumberNotFound = newError(KindNotFound, "phone_number_not_found", "No active tenant found for phone number")
	ErrNoValidFields       = newError(KindValidation, "no_valid_fields", "No valid fields to update")
	ErrInvalidRole         = newError(KindValidation, "invalid_role", "Invalid role")
	ErrMemberExists        = newError(KindValidation, "member_exists", "User already exists in this tenant")
	ErrTenantUpdateFailed  = newError(KindDependency, "tenant_update_failed", "Failed to update tenant")
	ErrConfigUpdateFailed  = newError(KindDependency, "agent_config_update_failed", "Failed to update agent config")
	ErrInviteFailed        = newError(KindDependency, "invite_failed", "Failed to add user to tenant")
)

// ProviderReason classifies a failure reported by the identity provider.
type ProviderReason string

const (
	ProviderReasonUnknown            ProviderReason = "unknown"
	ProviderReasonEmailTaken         ProviderReason = "email_taken"
	ProviderReasonRateLimited        ProviderReason = "rate_limited"
	ProviderReasonInvalidEmail       ProviderReason = "invalid_email"
	ProviderReasonWeakPassword       ProviderReason = "weak_password"
	ProviderReasonInvalidCredentials ProviderReason = "invalid_credentials"
	ProviderReasonInvalidToken       ProviderReason = "invalid_token"
	ProviderReasonUnavailable        ProviderReason = "unavailable"
)

// ProviderError is a failure returned by an IdentityProvider implementation.
type ProviderError struct {
	Reason  ProviderReason
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ProviderReasonOf extracts the reason from a ProviderError anywhere in err's chain.
func ProviderReasonOf(err error) ProviderReason {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ProviderReasonUnknown
}

// DirectoryReason classifies a failure reported by the tenant directory.
type DirectoryReason string

const (
	DirectoryReasonUnknown      DirectoryReason = "unknown"
	DirectoryReasonRowSecurity  DirectoryReason = "row_security"
	DirectoryReasonDuplicate    DirectoryReason = "duplicate"
	DirectoryReasonForeignKey   DirectoryReason = "foreign_key"
	DirectoryReasonInvalidValue DirectoryReason = "invalid_value"
	DirectoryReasonUnavailable  DirectoryReason = "unavailable"
)

// DirectoryReasonForSQLState maps a Postgres SQLSTATE to a DirectoryReason.
func DirectoryReasonForSQLState(code string) DirectoryReason {
	switch code {
	case "42501":
		return DirectoryReasonRowSecurity
	case "23505":
		return DirectoryReasonDuplicate
	case "23503":
		return DirectoryReasonForeignKey
	case "22P02", "23502", "23514":
		return DirectoryReasonInvalidValue
	}
	return DirectoryReasonUnknown
}

// DirectoryError is a failure returned by a TenantDirectory implementation.
// Code is the SQLSTATE when the backend reported one.
type DirectoryError struct {
	Reason  DirectoryReason
	Code    string
	Message string
	Err     error
}

func (e *DirectoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Reason)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// DirectoryReasonOf extracts the reason from a DirectoryError anywhere in err's chain.
func DirectoryReasonOf(err error) DirectoryReason {
	var de *DirectoryError
	if errors.As(err, &de) {
		return de.Reason
	}
	return DirectoryReasonUnknown
}
