package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// Patch is a partially decoded JSON update body.
type Patch map[string]json.RawMessage

// TenantUseCase serves the tenant configuration endpoints. Every method acts
// on the tenant of the given principal.
type TenantUseCase struct {
	directory domain.TenantDirectory
	logger    *slog.Logger
}

// NewTenantUseCase creates a new TenantUseCase.
func NewTenantUseCase(directory domain.TenantDirectory, logger *slog.Logger) *TenantUseCase {
	return &TenantUseCase{directory: directory, logger: logger}
}

// GetProfile returns the caller's tenant.
func (uc *TenantUseCase) GetProfile(ctx context.Context, p *domain.Principal) (*domain.Tenant, error) {
	tenant, err := uc.directory.GetTenant(ctx, p.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant %s: %w", p.TenantID, err)
	}
	return tenant, nil
}

// UpdateProfile applies the recognised fields of patch to the caller's tenant.
func (uc *TenantUseCase) UpdateProfile(ctx context.Context, p *domain.Principal, patch Patch) (*domain.Tenant, error) {
	update, err := parseTenantUpdate(patch)
	if err != nil {
		return nil, err
	}

	tenant, err := uc.directory.UpdateTenant(ctx, p.TenantID, update)
	if err != nil || tenant == nil {
		uc.logger.Error("failed to update tenant", "tenant_id", p.TenantID, "error", err)
		return nil, domain.ErrTenantUpdateFailed.Wrap(err)
	}
	uc.logger.Info("tenant updated", "tenant_id", p.TenantID, "user_id", p.UserID)
	return tenant, nil
}

// GetAgentConfig returns the caller's agent config. It is never created on read.
func (uc *TenantUseCase) GetAgentConfig(ctx context.Context, p *domain.Principal) (*domain.AgentConfig, error) {
	cfg, err := uc.directory.GetAgentConfig(ctx, p.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAgentConfigNotFound
		}
		return nil, fmt.Errorf("failed to get agent config for tenant %s: %w", p.TenantID, err)
	}
	return cfg, nil
}

// UpdateAgentConfig applies the recognised fields of patch to the caller's agent config.
func (uc *TenantUseCase) UpdateAgentConfig(ctx context.Context, p *domain.Principal, patch Patch) (*domain.AgentConfig, error) {
	update, err := parseAgentConfigUpdate(patch)
	if err != nil {
		return nil, err
	}

	cfg, err := uc.directory.UpdateAgentConfig(ctx, p.TenantID, update)
	if err != nil || cfg == nil {
		uc.logger.Error("failed to update agent config", "tenant_id", p.TenantID, "error", err)
		return nil, domain.ErrConfigUpdateFailed.Wrap(err)
	}
	uc.logger.Info("agent config updated", "tenant_id", p.TenantID, "user_id", p.UserID)
	return cfg, nil
}

// ListPhoneNumbers returns every phone number assigned to the caller's tenant.
func (uc *TenantUseCase) ListPhoneNumbers(ctx context.Context, p *domain.Principal) ([]domain.PhoneNumber, error) {
	numbers, err := uc.directory.ListPhoneNumbers(ctx, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phone numbers for tenant %s: %w", p.TenantID, err)
	}
	if numbers == nil {
		numbers = []domain.PhoneNumber{}
	}
	return numbers, nil
}

// ListUsers returns the members of the caller's tenant.
func (uc *TenantUseCase) ListUsers(ctx context.Context, p *domain.Principal) ([]domain.TenantMembership, error) {
	members, err := uc.directory.ListTenantMembers(ctx, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of tenant %s: %w", p.TenantID, err)
	}
	if members == nil {
		members = []domain.TenantMembership{}
	}
	return members, nil
}

// InviteUser adds an existing identity to the caller's tenant with role.
func (uc *TenantUseCase) InviteUser(ctx context.Context, p *domain.Principal, userID, role string) (*domain.TenantMembership, error) {
	if userID == "" || role == "" {
		return nil, domain.ErrValidation.WithMessage("user_id and role are required")
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, domain.ErrValidation.WithMessage("Invalid user_id")
	}

	_, err := uc.directory.GetMembership(ctx, p.TenantID, userID)
	switch {
	case err == nil:
		return nil, domain.ErrMemberExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	m, err := uc.directory.CreateMembership(ctx, domain.TenantMembership{
		TenantID: p.TenantID,
		UserID:   userID,
		Role:     r,
	})
	if err != nil {
		switch domain.DirectoryReasonOf(err) {
		case domain.DirectoryReasonDuplicate:
			return nil, domain.ErrMemberExists
		case domain.DirectoryReasonForeignKey, domain.DirectoryReasonInvalidValue:
			return nil, domain.ErrValidation.WithMessage("Invalid user_id").Wrap(err)
		}
		uc.logger.Error("failed to add user to tenant", "tenant_id", p.TenantID, "user_id", userID, "error", err)
		return nil, domain.ErrInviteFailed.Wrap(err)
	}
	if m == nil {
		return nil, domain.ErrInviteFailed
	}

	uc.logger.Info("user added to tenant", "tenant_id", p.TenantID, "user_id", userID, "role", r, "invited_by", p.UserID)
	return m, nil
}

func parseTenantUpdate(patch Patch) (domain.TenantUpdate, error) {
	var u domain.TenantUpdate
	for field, raw := range patch {
		switch field {
		case "name":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil || strings.TrimSpace(name) == "" {
				return u, invalidField(field)
			}
			u.Name = &name
		case "timezone":
			var tz string
			if err := json.Unmarshal(raw, &tz); err != nil || tz == "" {
				return u, invalidField(field)
			}
			u.Timezone = &tz
		case "industry":
			var industry *string
			if err := json.Unmarshal(raw, &industry); err != nil {
				return u, invalidField(field)
			}
			if industry == nil {
				industry = new(string)
			}
			u.Industry = industry
		case "default_email_recipients":
			var recipients []string
			if err := json.Unmarshal(raw, &recipients); err != nil {
				return u, invalidField(field)
			}
			if recipients == nil {
				recipients = []string{}
			}
			u.DefaultEmailRecipients = &recipients
		}
	}
	if u.Empty() {
		return u, domain.ErrNoValidFields
	}
	return u, nil
}

func parseAgentConfigUpdate(patch Patch) (domain.AgentConfigUpdate, error) {
	var u domain.AgentConfigUpdate
	for field, raw := range patch {
		switch field {
		case "greeting":
			if err := json.Unmarshal(raw, &u.Greeting); err != nil || u.Greeting == nil {
				return u, invalidField(field)
			}
		case "tone":
			if err := json.Unmarshal(raw, &u.Tone); err != nil || u.Tone == nil {
				return u, invalidField(field)
			}
		case "business_hours":
			if !isJSONObject(raw) {
				return u, invalidField(field)
			}
			u.BusinessHours = raw
		case "escalation_rules":
			if !isJSONObject(raw) {
				return u, invalidField(field)
			}
			u.EscalationRules = raw
		case "custom_prompts":
			if !json.Valid(raw) {
				return u, invalidField(field)
			}
			u.CustomPrompts = raw
		case "allowed_actions":
			var actions []string
			if err := json.Unmarshal(raw, &actions); err != nil {
				return u, invalidField(field)
			}
			if actions == nil {
				actions = []string{}
			}
			u.AllowedActions = &actions
		case "store_transcripts":
			if err := json.Unmarshal(raw, &u.StoreTranscripts); err != nil || u.StoreTranscripts == nil {
				return u, invalidField(field)
			}
		case "store_recordings":
			if err := json.Unmarshal(raw, &u.StoreRecordings); err != nil || u.StoreRecordings == nil {
				return u, invalidField(field)
			}
		case "retention_days":
			if err := json.Unmarshal(raw, &u.RetentionDays); err != nil || u.RetentionDays == nil || *u.RetentionDays < 0 {
				return u, invalidField(field)
			}
		}
	}
	if u.Empty() {
		return u, domain.ErrNoValidFields
	}
	return u, nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

func invalidField(field string) error {
	return domain.ErrValidation.WithMessage("Invalid value for " + field)
}
