package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/V4T54L/tenant-gateway/internal/adapter/pii"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

const (
	tenantsTable      = "tenants"
	membershipsTable  = "tenant_users"
	agentConfigTable  = "tenant_agent_config"
	phoneNumbersTable = "phone_numbers"

	membershipColumns = "id,tenant_id,user_id,role,created_at"
	returnRows        = "return=representation"
)

// RestClient implements domain.TenantDirectory against PostgREST using the
// service role key, which bypasses row-level security.
type RestClient struct {
	http     *resty.Client
	redactor *pii.Redactor
	logger   *slog.Logger
}

// NewRestClient creates a PostgREST client. redactor may be nil.
func NewRestClient(opts Options, redactor *pii.Redactor, logger *slog.Logger) *RestClient {
	return &RestClient{
		http:     newHTTPClient(opts),
		redactor: redactor,
		logger:   logger.With("component", "postgrest"),
	}
}

type restCall struct {
	method string
	path   string
	query  map[string]string
	body   interface{}
	prefer string
	out    interface{}
}

func (c *RestClient) do(ctx context.Context, call restCall) error {
	req := c.http.R().SetContext(ctx).SetError(&restErrorBody{})
	if call.query != nil {
		req.SetQueryParams(call.query)
	}
	if call.body != nil {
		req.SetBody(call.body)
	}
	if call.prefer != "" {
		req.SetHeader("Prefer", call.prefer)
	}
	if call.out != nil {
		req.SetResult(call.out)
	}

	resp, err := req.Execute(call.method, "/rest/v1/"+call.path)
	if err != nil {
		c.logger.Warn("postgrest request failed", "method", call.method, "path", call.path, "error", err)
		return &domain.DirectoryError{Reason: domain.DirectoryReasonUnavailable, Message: err.Error(), Err: err}
	}
	if !resp.IsError() {
		return nil
	}

	body, _ := resp.Error().(*restErrorBody)
	de := classifyRestFailure(resp.StatusCode(), body)
	c.logger.Warn("postgrest request rejected",
		"method", call.method,
		"path", call.path,
		"status", resp.StatusCode(),
		"code", de.Code,
		"body", string(c.redactor.RedactJSON(resp.Body())),
	)
	return de
}

func eq(v string) string { return "eq." + v }

type createTenantParams struct {
	Name                   string   `json:"p_name"`
	Timezone               string   `json:"p_timezone"`
	Industry               *string  `json:"p_industry"`
	DefaultEmailRecipients []string `json:"p_default_email_recipients"`
}

func (c *RestClient) CreateTenantPrivileged(ctx context.Context, t domain.NewTenant) (string, error) {
	var id string
	err := c.do(ctx, restCall{
		method: http.MethodPost,
		path:   "rpc/create_tenant",
		body: createTenantParams{
			Name:                   t.Name,
			Timezone:               t.Timezone,
			Industry:               t.Industry,
			DefaultEmailRecipients: t.DefaultEmailRecipients,
		},
		out: &id,
	})
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("create_tenant returned no data")
	}
	return id, nil
}

type tenantRow struct {
	Name                   string              `json:"name"`
	Timezone               string              `json:"timezone"`
	Industry               *string             `json:"industry"`
	Status                 domain.TenantStatus `json:"status"`
	DefaultEmailRecipients []string            `json:"default_email_recipients"`
}

func (c *RestClient) InsertTenant(ctx context.Context, t domain.NewTenant) (*domain.Tenant, error) {
	var rows []domain.Tenant
	err := c.do(ctx, restCall{
		method: http.MethodPost,
		path:   tenantsTable,
		body: tenantRow{
			Name:                   t.Name,
			Timezone:               t.Timezone,
			Industry:               t.Industry,
			Status:                 domain.StatusActive,
			DefaultEmailRecipients: t.DefaultEmailRecipients,
		},
		prefer: returnRows,
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *RestClient) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	var rows []domain.Tenant
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   tenantsTable,
		query:  map[string]string{"id": eq(id), "select": "*"},
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

func tenantPatch(u domain.TenantUpdate) map[string]interface{} {
	patch := make(map[string]interface{}, 4)
	if u.Name != nil {
		patch["name"] = *u.Name
	}
	if u.Timezone != nil {
		patch["timezone"] = *u.Timezone
	}
	if u.Industry != nil {
		if *u.Industry == "" {
			patch["industry"] = nil
		} else {
			patch["industry"] = *u.Industry
		}
	}
	if u.DefaultEmailRecipients != nil {
		patch["default_email_recipients"] = *u.DefaultEmailRecipients
	}
	return patch
}

func (c *RestClient) UpdateTenant(ctx context.Context, id string, u domain.TenantUpdate) (*domain.Tenant, error) {
	var rows []domain.Tenant
	err := c.do(ctx, restCall{
		method: http.MethodPatch,
		path:   tenantsTable,
		query:  map[string]string{"id": eq(id)},
		body:   tenantPatch(u),
		prefer: returnRows,
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

func (c *RestClient) DeleteTenant(ctx context.Context, id string) error {
	return c.do(ctx, restCall{
		method: http.MethodDelete,
		path:   tenantsTable,
		query:  map[string]string{"id": eq(id)},
	})
}

func (c *RestClient) ListMemberships(ctx context.Context, userID string) ([]domain.TenantMembership, error) {
	var rows []domain.TenantMembership
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   membershipsTable,
		query: map[string]string{
			"user_id": eq(userID),
			"select":  membershipColumns,
			"order":   "created_at.asc,tenant_id.asc",
		},
		out: &rows,
	})
	return rows, err
}

func (c *RestClient) ListTenantMembers(ctx context.Context, tenantID string) ([]domain.TenantMembership, error) {
	var rows []domain.TenantMembership
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   membershipsTable,
		query: map[string]string{
			"tenant_id": eq(tenantID),
			"select":    membershipColumns,
			"order":     "created_at.asc",
		},
		out: &rows,
	})
	return rows, err
}

func (c *RestClient) GetMembership(ctx context.Context, tenantID, userID string) (*domain.TenantMembership, error) {
	var rows []domain.TenantMembership
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   membershipsTable,
		query: map[string]string{
			"tenant_id": eq(tenantID),
			"user_id":   eq(userID),
			"select":    membershipColumns,
		},
		out: &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

type membershipRow struct {
	TenantID string      `json:"tenant_id"`
	UserID   string      `json:"user_id"`
	Role     domain.Role `json:"role"`
}

func (c *RestClient) CreateMembership(ctx context.Context, m domain.TenantMembership) (*domain.TenantMembership, error) {
	var rows []domain.TenantMembership
	err := c.do(ctx, restCall{
		method: http.MethodPost,
		path:   membershipsTable,
		body:   membershipRow{TenantID: m.TenantID, UserID: m.UserID, Role: m.Role},
		prefer: returnRows,
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

type agentConfigRow struct {
	TenantID         string          `json:"tenant_id"`
	Greeting         string          `json:"greeting"`
	Tone             string          `json:"tone"`
	BusinessHours    json.RawMessage `json:"business_hours"`
	EscalationRules  json.RawMessage `json:"escalation_rules"`
	AllowedActions   []string        `json:"allowed_actions"`
	CustomPrompts    json.RawMessage `json:"custom_prompts,omitempty"`
	StoreTranscripts bool            `json:"store_transcripts"`
	StoreRecordings  bool            `json:"store_recordings"`
	RetentionDays    int             `json:"retention_days"`
}

func (c *RestClient) CreateAgentConfig(ctx context.Context, cfg domain.AgentConfig) (*domain.AgentConfig, error) {
	var rows []domain.AgentConfig
	err := c.do(ctx, restCall{
		method: http.MethodPost,
		path:   agentConfigTable,
		body: agentConfigRow{
			TenantID:         cfg.TenantID,
			Greeting:         cfg.Greeting,
			Tone:             cfg.Tone,
			BusinessHours:    cfg.BusinessHours,
			EscalationRules:  cfg.EscalationRules,
			AllowedActions:   cfg.AllowedActions,
			CustomPrompts:    cfg.CustomPrompts,
			StoreTranscripts: cfg.StoreTranscripts,
			StoreRecordings:  cfg.StoreRecordings,
			RetentionDays:    cfg.RetentionDays,
		},
		prefer: returnRows,
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *RestClient) GetAgentConfig(ctx context.Context, tenantID string) (*domain.AgentConfig, error) {
	var rows []domain.AgentConfig
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   agentConfigTable,
		query:  map[string]string{"tenant_id": eq(tenantID), "select": "*"},
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

func (c *RestClient) UpdateAgentConfig(ctx context.Context, tenantID string, u domain.AgentConfigUpdate) (*domain.AgentConfig, error) {
	var rows []domain.AgentConfig
	err := c.do(ctx, restCall{
		method: http.MethodPatch,
		path:   agentConfigTable,
		query:  map[string]string{"tenant_id": eq(tenantID)},
		body:   u,
		prefer: returnRows,
		out:    &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

func (c *RestClient) ListPhoneNumbers(ctx context.Context, tenantID string) ([]domain.PhoneNumber, error) {
	var rows []domain.PhoneNumber
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   phoneNumbersTable,
		query:  map[string]string{"tenant_id": eq(tenantID), "select": "*"},
		out:    &rows,
	})
	return rows, err
}

func (c *RestClient) FindActivePhoneNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	var rows []domain.PhoneNumber
	err := c.do(ctx, restCall{
		method: http.MethodGet,
		path:   phoneNumbersTable,
		query: map[string]string{
			"phone_number": eq(number),
			"status":       eq(string(domain.StatusActive)),
			"select":       "*",
			"limit":        "1",
		},
		out: &rows,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}
