package usecase

import (
	"context"
	"log/slog"

	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// TokenVerifier turns a bearer token into the user it was issued to.
type TokenVerifier struct {
	resolver domain.UserResolver
	logger   *slog.Logger
	metrics  *metrics.GatewayMetrics
}

// NewTokenVerifier creates a new TokenVerifier.
func NewTokenVerifier(resolver domain.UserResolver, logger *slog.Logger, m *metrics.GatewayMetrics) *TokenVerifier {
	return &TokenVerifier{
		resolver: resolver,
		logger:   logger,
		metrics:  m,
	}
}

// Verify returns the token's user. Failures are either domain.ErrInvalidToken
// or domain.ErrProviderUnavailable; the provider's own message is kept as the
// wrapped cause and never becomes the user-facing message.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		v.metrics.AuthFailure(string(domain.ProviderReasonInvalidToken))
		return nil, domain.ErrInvalidToken
	}

	user, err := v.resolver.GetUser(ctx, token)
	if err != nil {
		reason := domain.ProviderReasonOf(err)
		v.metrics.AuthFailure(string(reason))
		if reason == domain.ProviderReasonUnavailable {
			v.logger.Warn("identity provider unavailable during token verification", "error", err)
			return nil, domain.ErrProviderUnavailable.Wrap(err)
		}
		v.logger.Debug("token rejected", "reason", reason, "error", err)
		return nil, domain.ErrInvalidToken.Wrap(err)
	}
	if user == nil || user.ID == "" {
		v.metrics.AuthFailure(string(domain.ProviderReasonInvalidToken))
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}
