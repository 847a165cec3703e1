package domain

import (
	"errors"
	"time"
)

// Role is a per-tenant named permission bundle. A role may inherit from a
// parent role in the same tenant; resolution unions the chain's permissions.
type Role struct {
	ID           string
	TenantID     string
	Name         string // unique within the tenant
	Description  string
	Permissions  []string
	ParentRoleID string // empty when the role has no parent
	IsSystem     bool   // predefined roles; protected from edit and delete
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the role for persistence. Returns an error describing the first validation failure.
func (r *Role) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// Assignment joins a user to a role within a tenant. The (user, tenant, role)
// triple is unique; re-assignment reactivates the existing row.
type Assignment struct {
	ID         string
	UserID     string
	TenantID   string
	RoleID     string
	AssignedBy string // empty when self-service or bootstrap
	IsActive   bool
	ExpiresAt  *time.Time // nil means no expiry
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsValid reports whether the assignment currently contributes permissions:
// active and either without expiry or not yet expired.
func (a *Assignment) IsValid(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
