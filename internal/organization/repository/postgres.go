package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"tenant-admin-console/internal/organization/domain"
	userdomain "tenant-admin-console/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the singleton organization row, or nil if it has never been provisioned.
// It returns an error only for database failures, not for the missing row.
func (r *PostgresRepository) Get(ctx context.Context) (*domain.Organization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, mfa_enabled, mfa_required_for_local_users, mfa_methods,
			mfa_grace_period_days, created_at, updated_at
		FROM organizations WHERE id = $1`, domain.DefaultOrganizationID)
	var o domain.Organization
	var methods string
	err := row.Scan(&o.ID, &o.Name, &o.MFA.Enabled, &o.MFA.RequiredForLocalUsers, &methods,
		&o.MFA.GracePeriodDays, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	for _, p := range strings.Split(methods, ",") {
		if p = strings.TrimSpace(p); p != "" {
			o.MFA.Methods = append(o.MFA.Methods, userdomain.MFAMethod(p))
		}
	}
	return &o, nil
}

// Update persists the singleton organization's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Organization) error {
	methods := make([]string, len(o.MFA.Methods))
	for i, m := range o.MFA.Methods {
		methods[i] = string(m)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations SET name = $2, mfa_enabled = $3, mfa_required_for_local_users = $4,
			mfa_methods = $5, mfa_grace_period_days = $6, updated_at = $7
		WHERE id = $1`,
		domain.DefaultOrganizationID, o.Name, o.MFA.Enabled, o.MFA.RequiredForLocalUsers,
		strings.Join(methods, ","), o.MFA.GracePeriodDays, o.UpdatedAt)
	return err
}
