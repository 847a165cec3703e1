package repository

import (
	"context"
	"database/sql"
	"errors"

	"tenant-admin-console/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndTenant returns the membership for the given user and tenant, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, tenant_id, created_at FROM memberships
		WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	var m domain.Membership
	if err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByUser returns all memberships for the given user. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, tenant_id, created_at FROM memberships
		WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.TenantID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// FindOrCreate inserts the membership if the (user, tenant) pair does not exist
// and returns the surviving row. The upsert is a single statement so concurrent
// first logins cannot create duplicates.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO memberships (id, user_id, tenant_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, tenant_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, tenant_id, created_at`,
		m.ID, m.UserID, m.TenantID, m.CreatedAt)
	var out domain.Membership
	if err := row.Scan(&out.ID, &out.UserID, &out.TenantID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the membership row for the pair. Missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, userID, tenantID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	return err
}
