package repository

import (
	"context"
	"database/sql"

	"tenant-admin-console/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, resource, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.TenantID, sql.NullString{String: a.UserID, Valid: a.UserID != ""},
		a.Action, a.Resource, sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}, a.CreatedAt)
	return err
}

// ListByTenant returns audit logs for the tenant, newest first, paginated by
// limit and offset. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, action, resource, metadata, created_at
		FROM audit_logs WHERE tenant_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var userID, metadata sql.NullString
		if err := rows.Scan(&a.ID, &a.TenantID, &userID, &a.Action, &a.Resource, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.UserID = userID.String
		a.Metadata = metadata.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
