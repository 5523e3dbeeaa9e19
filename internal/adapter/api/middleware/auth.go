package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/response"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

type principalKey struct{}

// TokenVerifier resolves a bearer token to its user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// MembershipResolver finds the membership that scopes a user's requests.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.TenantMembership, error)
}

// Guard authenticates requests and resolves the caller's tenant and role.
type Guard struct {
	verifier TokenVerifier
	resolver MembershipResolver
	logger   *slog.Logger
}

// NewGuard creates a new Guard.
func NewGuard(verifier TokenVerifier, resolver MembershipResolver, logger *slog.Logger) *Guard {
	return &Guard{
		verifier: verifier,
		resolver: resolver,
		logger:   logger.With("component", "guard"),
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PrincipalFromContext returns the principal stored by TenantRequired or RoleRequired.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok && p != nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func (g *Guard) authenticate(r *http.Request) (*domain.Principal, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	user, err := g.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, err
	}

	membership, err := g.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoTenant) {
			return nil, err
		}
		g.logger.Error("failed to resolve tenant", "user_id", user.ID, "error", err)
		return nil, domain.ErrTenantLookupFailed.Wrap(err)
	}

	return &domain.Principal{
		UserID:   user.ID,
		Email:    user.Email,
		TenantID: membership.TenantID,
		Role:     membership.Role,
	}, nil
}

// TenantRequired rejects requests that lack a valid token or whose user has
// no tenant, and passes the resolved principal to next.
func (g *Guard) TenantRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.authenticate(r)
		if err != nil {
			response.Error(w, g.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RoleRequired is TenantRequired plus a check that the caller holds one of roles.
func (g *Guard) RoleRequired(roles ...domain.Role) func(http.Handler) http.Handler {
	denied := domain.ErrPermissionDenied.WithMessage("Insufficient permissions. Required: " + domain.JoinRoles(roles))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.authenticate(r)
			if err != nil {
				response.Error(w, g.logger, err)
				return
			}
			if !p.HasRole(roles...) {
				g.logger.Info("role check failed",
					"user_id", p.UserID,
					"tenant_id", p.TenantID,
					"role", p.Role,
					"path", r.URL.Path,
				)
				response.Error(w, g.logger, denied)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
