package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Role defines the access level a user holds within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleViewer Role = "viewer"
)

// Roles lists every valid role in descending privilege.
var Roles = []Role{RoleOwner, RoleAdmin, RoleAgent, RoleViewer}

// ParseRole returns the Role named by s, or false if s is not one of Roles.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// JoinRoles renders roles as "owner, admin".
func JoinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// TenantStatus is the lifecycle state of a tenant or phone number.
type TenantStatus string

const (
	StatusActive   TenantStatus = "active"
	StatusInactive TenantStatus = "inactive"
)

// Tenant represents a company-level account.
type Tenant struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Timezone               string       `json:"timezone"`
	Industry               *string      `json:"industry"`
	Status                 TenantStatus `json:"status"`
	DefaultEmailRecipients []string     `json:"default_email_recipients"`
	CreatedAt              time.Time    `json:"created_at,omitzero"`
	UpdatedAt              time.Time    `json:"updated_at,omitzero"`
}

// NewTenant carries the fields needed to create a tenant.
type NewTenant struct {
	Name                   string
	Timezone               string
	Industry               *string
	DefaultEmailRecipients []string
}

// TenantUpdate is a partial update of a tenant profile. Nil fields are left
// untouched; an Industry pointing at "" clears the industry.
type TenantUpdate struct {
	Name                   *string   `json:"name,omitempty"`
	Timezone               *string   `json:"timezone,omitempty"`
	Industry               *string   `json:"industry,omitempty"`
	DefaultEmailRecipients *[]string `json:"default_email_recipients,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u TenantUpdate) Empty() bool {
	return u.Name == nil && u.Timezone == nil && u.Industry == nil && u.DefaultEmailRecipients == nil
}

// TenantMembership links a user to a tenant with a role.
type TenantMembership struct {
	ID        string    `json:"id,omitempty"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// SortMemberships orders memberships by creation time, oldest first, breaking
// ties by tenant id so the primary membership is stable across calls.
func SortMemberships(ms []TenantMembership) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].TenantID < ms[j].TenantID
	})
}

// AgentConfig holds the per-tenant settings of the automated calling agent.
type AgentConfig struct {
	ID               string          `json:"id,omitempty"`
	TenantID         string          `json:"tenant_id"`
	Greeting         string          `json:"greeting"`
	Tone             string          `json:"tone"`
	BusinessHours    json.RawMessage `json:"business_hours"`
	EscalationRules  json.RawMessage `json:"escalation_rules"`
	AllowedActions   []string        `json:"allowed_actions"`
	CustomPrompts    json.RawMessage `json:"custom_prompts"`
	StoreTranscripts bool            `json:"store_transcripts"`
	StoreRecordings  bool            `json:"store_recordings"`
	RetentionDays    int             `json:"retention_days"`
	CreatedAt        time.Time       `json:"created_at,omitzero"`
	UpdatedAt        time.Time       `json:"updated_at,omitzero"`
}

const (
	DefaultGreeting      = "Thank you for calling. How may I assist you today?"
	DefaultTone          = "professional"
	DefaultRetentionDays = 90
)

// DefaultAgentConfig returns the configuration created for a new tenant.
func DefaultAgentConfig(tenantID string) AgentConfig {
	return AgentConfig{
		TenantID:         tenantID,
		Greeting:         DefaultGreeting,
		Tone:             DefaultTone,
		BusinessHours:    json.RawMessage(`{}`),
		EscalationRules:  json.RawMessage(`{}`),
		AllowedActions:   []string{},
		StoreTranscripts: true,
		StoreRecordings:  true,
		RetentionDays:    DefaultRetentionDays,
	}
}

// AgentConfigUpdate is a partial update of an agent config. Nil fields are left untouched.
type AgentConfigUpdate struct {
	Greeting         *string         `json:"greeting,omitempty"`
	Tone             *string         `json:"tone,omitempty"`
	BusinessHours    json.RawMessage `json:"business_hours,omitempty"`
	EscalationRules  json.RawMessage `json:"escalation_rules,omitempty"`
	AllowedActions   *[]string       `json:"allowed_actions,omitempty"`
	CustomPrompts    json.RawMessage `json:"custom_prompts,omitempty"`
	StoreTranscripts *bool           `json:"store_transcripts,omitempty"`
	StoreRecordings  *bool           `json:"store_recordings,omitempty"`
	RetentionDays    *int            `json:"retention_days,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u AgentConfigUpdate) Empty() bool {
	return u.Greeting == nil && u.Tone == nil && u.BusinessHours == nil && u.EscalationRules == nil &&
		u.AllowedActions == nil && u.CustomPrompts == nil && u.StoreTranscripts == nil &&
		u.StoreRecordings == nil && u.RetentionDays == nil
}

// PhoneNumber maps an inbound number to its owning tenant.
type PhoneNumber struct {
	ID          string       `json:"id,omitempty"`
	PhoneNumber string       `json:"phone_number"`
	TenantID    string       `json:"tenant_id"`
	Status      TenantStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at,omitzero"`
}
