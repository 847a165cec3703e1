package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"tenant-admin-console/internal/tenant/domain"
	userdomain "tenant-admin-console/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, name, mfa_enabled, mfa_required_for_local_users, mfa_methods,
	mfa_grace_period_days, created_at, updated_at`

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	t, err := scanTenant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// List returns all tenants. Returns (nil, error) only on database errors.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create persists the tenant to the database. The tenant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, mfa_enabled, mfa_required_for_local_users, mfa_methods,
			mfa_grace_period_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.MFA.Enabled, t.MFA.RequiredForLocalUsers, joinMethods(t.MFA.Methods),
		t.MFA.GracePeriodDays, t.CreatedAt, t.UpdatedAt)
	return err
}

// Update persists mutable tenant fields keyed by ID.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET name = $2, mfa_enabled = $3, mfa_required_for_local_users = $4,
			mfa_methods = $5, mfa_grace_period_days = $6, updated_at = $7
		WHERE id = $1`,
		t.ID, t.Name, t.MFA.Enabled, t.MFA.RequiredForLocalUsers, joinMethods(t.MFA.Methods),
		t.MFA.GracePeriodDays, t.UpdatedAt)
	return err
}

func scanTenant(scan func(...any) error) (*domain.Tenant, error) {
	var t domain.Tenant
	var methods string
	if err := scan(&t.ID, &t.Name, &t.MFA.Enabled, &t.MFA.RequiredForLocalUsers, &methods,
		&t.MFA.GracePeriodDays, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.MFA.Methods = splitMethods(methods)
	return &t, nil
}

// MFA methods are stored as a comma-joined text column.
func joinMethods(methods []userdomain.MFAMethod) string {
	parts := make([]string, len(methods))
	for i, m := range methods {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func splitMethods(s string) []userdomain.MFAMethod {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]userdomain.MFAMethod, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, userdomain.MFAMethod(p))
		}
	}
	return out
}
