package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// jsonArg passes raw JSON as text so lib/pq does not encode it as bytea.
func jsonArg(raw json.RawMessage) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func scanAgentConfig(row rowScanner) (*domain.AgentConfig, error) {
	var (
		c                   domain.AgentConfig
		hours, rules, extra []byte
		actions             []string
	)
	err := row.Scan(&c.ID, &c.TenantID, &c.Greeting, &c.Tone, &hours, &rules, pq.Array(&actions), &extra,
		&c.StoreTranscripts, &c.StoreRecordings, &c.RetentionDays, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.BusinessHours = hours
	c.EscalationRules = rules
	c.CustomPrompts = extra
	if actions == nil {
		actions = []string{}
	}
	c.AllowedActions = actions
	return &c, nil
}

func (d *Directory) CreateAgentConfig(ctx context.Context, cfg domain.AgentConfig) (*domain.AgentConfig, error) {
	actions := cfg.AllowedActions
	if actions == nil {
		actions = []string{}
	}
	row := d.db.QueryRowContext(ctx,
		`INSERT INTO tenant_agent_config
		   (tenant_id, greeting, tone, business_hours, escalation_rules, allowed_actions, custom_prompts,
		    store_transcripts, store_recordings, retention_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+agentConfigColumns,
		cfg.TenantID, cfg.Greeting, cfg.Tone, jsonArg(cfg.BusinessHours), jsonArg(cfg.EscalationRules),
		pq.Array(actions), jsonArg(cfg.CustomPrompts), cfg.StoreTranscripts, cfg.StoreRecordings, cfg.RetentionDays)
	created, err := scanAgentConfig(row)
	if err != nil {
		return nil, translateError(err)
	}
	return created, nil
}

func (d *Directory) GetAgentConfig(ctx context.Context, tenantID string) (*domain.AgentConfig, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+agentConfigColumns+` FROM tenant_agent_config WHERE tenant_id = $1`, tenantID)
	cfg, err := scanAgentConfig(row)
	if err != nil {
		return nil, translateError(err)
	}
	return cfg, nil
}

func (d *Directory) UpdateAgentConfig(ctx context.Context, tenantID string, u domain.AgentConfigUpdate) (*domain.AgentConfig, error) {
	var set assignments
	if u.Greeting != nil {
		set.add("greeting", *u.Greeting)
	}
	if u.Tone != nil {
		set.add("tone", *u.Tone)
	}
	if u.BusinessHours != nil {
		set.add("business_hours", jsonArg(u.BusinessHours))
	}
	if u.EscalationRules != nil {
		set.add("escalation_rules", jsonArg(u.EscalationRules))
	}
	if u.AllowedActions != nil {
		set.add("allowed_actions", pq.Array(*u.AllowedActions))
	}
	if u.CustomPrompts != nil {
		set.add("custom_prompts", jsonArg(u.CustomPrompts))
	}
	if u.StoreTranscripts != nil {
		set.add("store_transcripts", *u.StoreTranscripts)
	}
	if u.StoreRecordings != nil {
		set.add("store_recordings", *u.StoreRecordings)
	}
	if u.RetentionDays != nil {
		set.add("retention_days", *u.RetentionDays)
	}
	if set.empty() {
		return d.GetAgentConfig(ctx, tenantID)
	}

	query, args := set.update("tenant_agent_config", "tenant_id", tenantID, agentConfigColumns)
	cfg, err := scanAgentConfig(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return cfg, nil
}

func scanPhoneNumber(row rowScanner) (*domain.PhoneNumber, error) {
	var (
		p  domain.PhoneNumber
		id sql.NullString
	)
	if err := row.Scan(&id, &p.PhoneNumber, &p.TenantID, &p.Status, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = id.String
	return &p, nil
}

func (d *Directory) ListPhoneNumbers(ctx context.Context, tenantID string) ([]domain.PhoneNumber, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+phoneColumns+` FROM phone_numbers WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []domain.PhoneNumber
	for rows.Next() {
		p, err := scanPhoneNumber(rows)
		if err != nil {
			return nil, translateError(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (d *Directory) FindActivePhoneNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+phoneColumns+` FROM phone_numbers WHERE phone_number = $1 AND status = $2 LIMIT 1`,
		number, domain.StatusActive)
	p, err := scanPhoneNumber(row)
	if err != nil {
		return nil, translateError(err)
	}
	return p, nil
}
