package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"tenant-admin-console/internal/rbac/domain"
)

// PostgresRoleRepository persists roles. Permissions are stored as a
// comma-joined text column, matching the tenant MFA methods encoding.
type PostgresRoleRepository struct {
	db *sql.DB
}

// NewPostgresRoleRepository returns a role repository that uses the given db for persistence.
func NewPostgresRoleRepository(db *sql.DB) *PostgresRoleRepository {
	return &PostgresRoleRepository{db: db}
}

const roleColumns = `id, tenant_id, name, description, permissions, parent_role_id,
	is_system, is_active, created_at, updated_at`

// GetByID returns the role for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

// GetByTenantAndName returns the role with the given name in the tenant, or nil if not found.
func (r *PostgresRoleRepository) GetByTenantAndName(ctx context.Context, tenantID, name string) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE tenant_id = $1 AND name = $2`, tenantID, name)
	role, err := scanRole(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

// ListByTenant returns all roles for the tenant. Returns (nil, error) only on database errors.
func (r *PostgresRoleRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Create persists the role to the database. The role must have ID set.
func (r *PostgresRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, tenant_id, name, description, permissions, parent_role_id,
			is_system, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		role.ID, role.TenantID, role.Name, role.Description, strings.Join(role.Permissions, ","),
		nullString(role.ParentRoleID), role.IsSystem, role.IsActive, role.CreatedAt, role.UpdatedAt)
	return err
}

// Update persists mutable role fields keyed by ID.
func (r *PostgresRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE roles SET name = $2, description = $3, permissions = $4, parent_role_id = $5,
			is_active = $6, updated_at = $7
		WHERE id = $1`,
		role.ID, role.Name, role.Description, strings.Join(role.Permissions, ","),
		nullString(role.ParentRoleID), role.IsActive, role.UpdatedAt)
	return err
}

// Delete removes the role row. Assignments referencing it cascade at the schema level.
func (r *PostgresRoleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return err
}

func scanRole(scan func(...any) error) (*domain.Role, error) {
	var role domain.Role
	var perms string
	var parent sql.NullString
	if err := scan(&role.ID, &role.TenantID, &role.Name, &role.Description, &perms, &parent,
		&role.IsSystem, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	role.ParentRoleID = parent.String
	if perms != "" {
		for _, p := range strings.Split(perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				role.Permissions = append(role.Permissions, p)
			}
		}
	}
	return &role, nil
}

// PostgresAssignmentRepository persists user-role assignments.
type PostgresAssignmentRepository struct {
	db *sql.DB
}

// NewPostgresAssignmentRepository returns an assignment repository that uses the given db for persistence.
func NewPostgresAssignmentRepository(db *sql.DB) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{db: db}
}

const assignmentColumns = `id, user_id, tenant_id, role_id, assigned_by, is_active,
	expires_at, created_at, updated_at`

// GetByTriple returns the assignment for (user, tenant, role) regardless of state, or nil if none exists.
func (r *PostgresAssignmentRepository) GetByTriple(ctx context.Context, userID, tenantID, roleID string) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE user_id = $1 AND tenant_id = $2 AND role_id = $3`, userID, tenantID, roleID)
	a, err := scanAssignment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListByUserAndTenant returns all assignments for the pair, including inactive and expired rows.
func (r *PostgresAssignmentRepository) ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE user_id = $1 AND tenant_id = $2`, userID, tenantID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// ListByRole returns all assignments of the role within the tenant.
func (r *PostgresAssignmentRepository) ListByRole(ctx context.Context, tenantID, roleID string) ([]*domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+` FROM role_assignments
		WHERE tenant_id = $1 AND role_id = $2`, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// Create persists the assignment to the database. The assignment must have ID set.
func (r *PostgresAssignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO role_assignments (id, user_id, tenant_id, role_id, assigned_by, is_active,
			expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.TenantID, a.RoleID, nullString(a.AssignedBy), a.IsActive,
		nullTime(a.ExpiresAt), a.CreatedAt, a.UpdatedAt)
	return err
}

// Update persists mutable assignment fields keyed by ID.
func (r *PostgresAssignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE role_assignments SET assigned_by = $2, is_active = $3, expires_at = $4, updated_at = $5
		WHERE id = $1`,
		a.ID, nullString(a.AssignedBy), a.IsActive, nullTime(a.ExpiresAt), a.UpdatedAt)
	return err
}

// Deactivate soft-deletes the active assignment for the triple. Returns rows affected.
func (r *PostgresAssignmentRepository) Deactivate(ctx context.Context, userID, tenantID, roleID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE role_assignments SET is_active = FALSE, updated_at = $4
		WHERE user_id = $1 AND tenant_id = $2 AND role_id = $3 AND is_active`,
		userID, tenantID, roleID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectAssignments(rows *sql.Rows) ([]*domain.Assignment, error) {
	defer rows.Close()
	var out []*domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssignment(scan func(...any) error) (*domain.Assignment, error) {
	var a domain.Assignment
	var assignedBy sql.NullString
	var expires sql.NullTime
	if err := scan(&a.ID, &a.UserID, &a.TenantID, &a.RoleID, &assignedBy, &a.IsActive,
		&expires, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.AssignedBy = assignedBy.String
	if expires.Valid {
		t := expires.Time
		a.ExpiresAt = &t
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
