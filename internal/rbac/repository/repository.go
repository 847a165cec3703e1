package repository

import (
	"context"

	"tenant-admin-console/internal/rbac/domain"
)

// RoleRepository defines persistence for roles.
type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByTenantAndName(ctx context.Context, tenantID, name string) (*domain.Role, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Role, error)
	Create(ctx context.Context, r *domain.Role) error
	Update(ctx context.Context, r *domain.Role) error
	Delete(ctx context.Context, id string) error
}

// AssignmentRepository defines persistence for user-role assignments.
type AssignmentRepository interface {
	// GetByTriple returns the assignment for (user, tenant, role) regardless of
	// active/expiry state, or nil if none exists.
	GetByTriple(ctx context.Context, userID, tenantID, roleID string) (*domain.Assignment, error)
	// ListByUserAndTenant returns all assignments for the pair, including
	// inactive and expired rows; validity filtering is the engine's concern.
	ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Assignment, error)
	ListByRole(ctx context.Context, tenantID, roleID string) ([]*domain.Assignment, error)
	Create(ctx context.Context, a *domain.Assignment) error
	Update(ctx context.Context, a *domain.Assignment) error
	// Deactivate soft-deletes the active assignment for the triple. Returns
	// the number of rows affected.
	Deactivate(ctx context.Context, userID, tenantID, roleID string) (int64, error)
}
