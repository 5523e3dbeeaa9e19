package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// PhoneResolver maps inbound phone numbers to the tenant that owns them.
type PhoneResolver struct {
	repo    domain.PhoneNumberRepository
	cache   domain.PhoneTenantCache
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics
}

// NewPhoneResolver creates a new PhoneResolver. cache may be nil.
func NewPhoneResolver(repo domain.PhoneNumberRepository, cache domain.PhoneTenantCache, logger *slog.Logger, m *metrics.GatewayMetrics) *PhoneResolver {
	return &PhoneResolver{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		metrics: m,
	}
}

// ResolveTenant returns the tenant id owning the active record for number.
// Cache errors are logged and the directory is queried instead. A cached
// entry is served until it expires or Invalidate is called for the number.
func (r *PhoneResolver) ResolveTenant(ctx context.Context, number string) (string, error) {
	if number == "" {
		return "", domain.ErrValidation.WithMessage("Phone number is required")
	}

	if r.cache != nil {
		tenantID, ok, err := r.cache.Get(ctx, number)
		switch {
		case err != nil:
			r.logger.Warn("phone cache lookup failed", "error", err)
		case ok:
			r.metrics.PhoneCache(true)
			return tenantID, nil
		default:
			r.metrics.PhoneCache(false)
		}
	}

	record, err := r.repo.FindActivePhoneNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrPhoneNumberNotFound.WithMessage("No active tenant found for phone number: " + number)
		}
		return "", fmt.Errorf("failed to look up phone number: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, number, record.TenantID); err != nil {
			r.logger.Warn("failed to cache phone lookup", "error", err)
		}
	}
	return record.TenantID, nil
}

// Invalidate evicts the cached tenant for number so the next lookup reads the
// directory. It must be called whenever a number is deactivated or reassigned.
func (r *PhoneResolver) Invalidate(ctx context.Context, number string) error {
	if number == "" {
		return domain.ErrValidation.WithMessage("Phone number is required")
	}
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Invalidate(ctx, number); err != nil {
		return fmt.Errorf("failed to invalidate phone lookup: %w", err)
	}
	r.logger.Info("phone lookup invalidated", "phone_number", number)
	return nil
}
