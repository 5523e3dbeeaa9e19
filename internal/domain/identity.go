package domain

// User is an identity owned by the external credential provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the bearer credentials issued by the provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// AuthResult is what the provider returns for signup and password signin.
// Session is nil when the provider did not issue one, e.g. while email
// confirmation is pending.
type AuthResult struct {
	User    *User
	Session *Session
}

// Principal is the authenticated caller resolved for a tenant-scoped request.
type Principal struct {
	UserID   string
	Email    string
	TenantID string
	Role     Role
}

// HasRole reports whether the principal's role is one of roles.
func (p *Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
