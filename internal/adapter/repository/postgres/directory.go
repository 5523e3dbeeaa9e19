// Package postgres implements domain.TenantDirectory directly on PostgreSQL,
// for deployments that reach the database without going through PostgREST.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

const (
	tenantColumns      = "id, name, timezone, industry, status, default_email_recipients, created_at, updated_at"
	membershipColumns  = "id, tenant_id, user_id, role, created_at"
	agentConfigColumns = "id, tenant_id, greeting, tone, business_hours, escalation_rules, allowed_actions, custom_prompts, store_transcripts, store_recordings, retention_days, created_at, updated_at"
	phoneColumns       = "id, phone_number, tenant_id, status, created_at"
)

// Directory implements domain.TenantDirectory on a *sql.DB opened with lib/pq.
type Directory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDirectory creates a new PostgreSQL tenant directory.
func NewDirectory(db *sql.DB, logger *slog.Logger) *Directory {
	return &Directory{db: db, logger: logger.With("component", "postgres")}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// translateError maps driver errors onto the directory error model.
// sql.ErrNoRows becomes domain.ErrNotFound.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		msg := pqErr.Message
		if pqErr.Detail != "" {
			msg += ": " + pqErr.Detail
		}
		return &domain.DirectoryError{
			Reason:  domain.DirectoryReasonForSQLState(code),
			Code:    code,
			Message: msg,
			Err:     err,
		}
	}
	return &domain.DirectoryError{Reason: domain.DirectoryReasonUnavailable, Message: err.Error(), Err: err}
}

// assignments builds the SET clause of a partial UPDATE.
type assignments struct {
	cols []string
	args []interface{}
}

func (a *assignments) add(col string, v interface{}) {
	a.args = append(a.args, v)
	a.cols = append(a.cols, fmt.Sprintf("%s = $%d", col, len(a.args)))
}

func (a *assignments) empty() bool { return len(a.cols) == 0 }

func (a *assignments) update(table, keyCol, key, returning string) (string, []interface{}) {
	args := append(a.args, key)
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE %s = $%d RETURNING %s",
		table, strings.Join(a.cols, ", "), keyCol, len(args), returning)
	return query, args
}

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var (
		t          domain.Tenant
		industry   sql.NullString
		recipients []string
	)
	err := row.Scan(&t.ID, &t.Name, &t.Timezone, &industry, &t.Status, pq.Array(&recipients), &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if industry.Valid {
		t.Industry = &industry.String
	}
	if recipients == nil {
		recipients = []string{}
	}
	t.DefaultEmailRecipients = recipients
	return &t, nil
}

// CreateTenantPrivileged calls the create_tenant function installed by Migrate.
func (d *Directory) CreateTenantPrivileged(ctx context.Context, t domain.NewTenant) (string, error) {
	var id sql.NullString
	err := d.db.QueryRowContext(ctx, `SELECT create_tenant($1, $2, $3, $4)`,
		t.Name, t.Timezone, t.Industry, pq.Array(t.DefaultEmailRecipients)).Scan(&id)
	if err != nil {
		return "", translateError(err)
	}
	if !id.Valid || id.String == "" {
		return "", errors.New("create_tenant returned no data")
	}
	return id.String, nil
}

func (d *Directory) InsertTenant(ctx context.Context, t domain.NewTenant) (*domain.Tenant, error) {
	recipients := t.DefaultEmailRecipients
	if recipients == nil {
		recipients = []string{}
	}
	row := d.db.QueryRowContext(ctx,
		`INSERT INTO tenants (id, name, timezone, industry, status, default_email_recipients)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+tenantColumns,
		uuid.NewString(), t.Name, t.Timezone, t.Industry, domain.StatusActive, pq.Array(recipients))
	tenant, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return tenant, nil
}

func (d *Directory) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	tenant, err := scanTenant(row)
	if err != nil {
		return nil, translateError(err)
	}
	return tenant, nil
}

func (d *Directory) UpdateTenant(ctx context.Context, id string, u domain.TenantUpdate) (*domain.Tenant, error) {
	var set assignments
	if u.Name != nil {
		set.add("name", *u.Name)
	}
	if u.Timezone != nil {
		set.add("timezone", *u.Timezone)
	}
	if u.Industry != nil {
		if *u.Industry == "" {
			set.add("industry", nil)
		} else {
			set.add("industry", *u.Industry)
		}
	}
	if u.DefaultEmailRecipients != nil {
		set.add("default_email_recipients", pq.Array(*u.DefaultEmailRecipients))
	}
	if set.empty() {
		return d.GetTenant(ctx, id)
	}

	query, args := set.update("tenants", "id", id, tenantColumns)
	tenant, err := scanTenant(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return tenant, nil
}

func (d *Directory) DeleteTenant(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return translateError(err)
	}
	return nil
}

func scanMembership(row rowScanner) (*domain.TenantMembership, error) {
	var m domain.TenantMembership
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (d *Directory) queryMemberships(ctx context.Context, query string, arg string) ([]domain.TenantMembership, error) {
	rows, err := d.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []domain.TenantMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, translateError(err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (d *Directory) ListMemberships(ctx context.Context, userID string) ([]domain.TenantMembership, error) {
	return d.queryMemberships(ctx,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE user_id = $1 ORDER BY created_at, tenant_id`, userID)
}

func (d *Directory) ListTenantMembers(ctx context.Context, tenantID string) ([]domain.TenantMembership, error) {
	return d.queryMemberships(ctx,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
}

func (d *Directory) GetMembership(ctx context.Context, tenantID, userID string) (*domain.TenantMembership, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM tenant_users WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, translateError(err)
	}
	return m, nil
}

func (d *Directory) CreateMembership(ctx context.Context, m domain.TenantMembership) (*domain.TenantMembership, error) {
	row := d.db.QueryRowContext(ctx,
		`INSERT INTO tenant_users (id, tenant_id, user_id, role) VALUES ($1, $2, $3, $4) RETURNING `+membershipColumns,
		uuid.NewString(), m.TenantID, m.UserID, m.Role)
	created, err := scanMembership(row)
	if err != nil {
		d.logger.Warn("failed to create membership", "tenant_id", m.TenantID, "user_id", m.UserID, "error", err)
		return nil, translateError(err)
	}
	return created, nil
}
