package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// MembershipResolver finds the primary tenant membership of a user.
type MembershipResolver struct {
	repo   domain.MembershipRepository
	logger *slog.Logger
}

// NewMembershipResolver creates a new MembershipResolver.
func NewMembershipResolver(repo domain.MembershipRepository, logger *slog.Logger) *MembershipResolver {
	return &MembershipResolver{repo: repo, logger: logger}
}

// Resolve returns the user's earliest-created membership, ties broken by
// tenant id. It returns domain.ErrNoTenant when the user has none.
func (r *MembershipResolver) Resolve(ctx context.Context, userID string) (*domain.TenantMembership, error) {
	memberships, err := r.repo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user %s: %w", userID, err)
	}
	if len(memberships) == 0 {
		return nil, domain.ErrNoTenant
	}

	domain.SortMemberships(memberships)
	if len(memberships) > 1 {
		r.logger.Debug("user belongs to several tenants, using earliest",
			"user_id", userID,
			"tenant_id", memberships[0].TenantID,
			"memberships", len(memberships),
		)
	}

	primary := memberships[0]
	return &primary, nil
}
