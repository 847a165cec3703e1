// Package engine resolves effective permissions and manages roles and role
// assignments within a tenant. All state lives in the injected stores.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"tenant-admin-console/internal/rbac/catalog"
	"tenant-admin-console/internal/rbac/domain"
	userdomain "tenant-admin-console/internal/user/domain"
)

// Sentinel errors for the RBAC engine; callers map them to transport codes.
var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleExists         = errors.New("role name already exists in tenant")
	ErrAssignmentNotFound = errors.New("role assignment not found")
	ErrSystemRole         = errors.New("system role cannot be modified or deleted")
	ErrRoleCycle          = errors.New("parent role chain would form a cycle")
	ErrInvalidPermission  = errors.New("unknown permission key")
)

// maxParentDepth bounds parent-chain traversal so a corrupted store cannot
// loop permission resolution.
const maxParentDepth = 16

// RoleStore is the minimal role repository needed by the engine.
type RoleStore interface {
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByTenantAndName(ctx context.Context, tenantID, name string) (*domain.Role, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Role, error)
	Create(ctx context.Context, r *domain.Role) error
	Update(ctx context.Context, r *domain.Role) error
	Delete(ctx context.Context, id string) error
}

// AssignmentStore is the minimal assignment repository needed by the engine.
type AssignmentStore interface {
	GetByTriple(ctx context.Context, userID, tenantID, roleID string) (*domain.Assignment, error)
	ListByUserAndTenant(ctx context.Context, userID, tenantID string) ([]*domain.Assignment, error)
	ListByRole(ctx context.Context, tenantID, roleID string) ([]*domain.Assignment, error)
	Create(ctx context.Context, a *domain.Assignment) error
	Update(ctx context.Context, a *domain.Assignment) error
	Deactivate(ctx context.Context, userID, tenantID, roleID string) (int64, error)
}

// UserStore is the minimal user repository needed by the engine.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Engine is the RBAC permission-resolution engine. It holds no state of its
// own; construct once and share.
type Engine struct {
	roles       RoleStore
	assignments AssignmentStore
	users       UserStore
}

// New returns an Engine with the given stores.
func New(roles RoleStore, assignments AssignmentStore, users UserStore) *Engine {
	return &Engine{roles: roles, assignments: assignments, users: users}
}

// HasPermission reports whether the user holds the permission in the tenant
// through any valid role assignment. Lookup failures fail closed: the check
// gates authorization decisions, so an error must never grant access.
func (e *Engine) HasPermission(ctx context.Context, userID, tenantID, permission string) bool {
	perms, err := e.resolveUserPermissions(ctx, userID, tenantID)
	if err != nil {
		log.Printf("rbac: permission check failed closed for user=%s tenant=%s: %v", userID, tenantID, err)
		return false
	}
	_, ok := perms[permission]
	return ok
}

// HasAnyPermission reports whether the user holds at least one of the permissions. Fails closed.
func (e *Engine) HasAnyPermission(ctx context.Context, userID, tenantID string, permissions []string) bool {
	perms, err := e.resolveUserPermissions(ctx, userID, tenantID)
	if err != nil {
		log.Printf("rbac: permission check failed closed for user=%s tenant=%s: %v", userID, tenantID, err)
		return false
	}
	for _, p := range permissions {
		if _, ok := perms[p]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the user holds every listed permission. Fails closed.
func (e *Engine) HasAllPermissions(ctx context.Context, userID, tenantID string, permissions []string) bool {
	perms, err := e.resolveUserPermissions(ctx, userID, tenantID)
	if err != nil {
		log.Printf("rbac: permission check failed closed for user=%s tenant=%s: %v", userID, tenantID, err)
		return false
	}
	for _, p := range permissions {
		if _, ok := perms[p]; !ok {
			return false
		}
	}
	return true
}

// UserPermissions returns the deduplicated union of permissions across all
// valid role assignments, sorted for stable output. Returns an empty set on
// internal error (fail closed).
func (e *Engine) UserPermissions(ctx context.Context, userID, tenantID string) []string {
	perms, err := e.resolveUserPermissions(ctx, userID, tenantID)
	if err != nil {
		log.Printf("rbac: permission resolution failed closed for user=%s tenant=%s: %v", userID, tenantID, err)
		return []string{}
	}
	out := make([]string, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// UserRoles returns the roles held by the user in the tenant through valid
// assignments only.
func (e *Engine) UserRoles(ctx context.Context, userID, tenantID string) ([]*domain.Role, error) {
	assignments, err := e.assignments.ListByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	now := time.Now().UTC()
	var out []*domain.Role
	for _, a := range assignments {
		if !a.IsValid(now) {
			continue
		}
		role, err := e.roles.GetByID(ctx, a.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load role %s: %w", a.RoleID, err)
		}
		if role != nil && role.IsActive {
			out = append(out, role)
		}
	}
	return out, nil
}

// AssignRole grants the role to the user within the tenant. If an assignment
// for the triple already exists in any state it is reactivated (expiry
// cleared, assigned_by updated) rather than duplicated.
func (e *Engine) AssignRole(ctx context.Context, userID, tenantID, roleID, assignedBy string) (*domain.Assignment, error) {
	role, err := e.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	if role == nil || role.TenantID != tenantID {
		return nil, ErrRoleNotFound
	}
	existing, err := e.assignments.GetByTriple(ctx, userID, tenantID, roleID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	now := time.Now().UTC()
	if existing != nil {
		existing.IsActive = true
		existing.ExpiresAt = nil
		existing.AssignedBy = assignedBy
		existing.UpdatedAt = now
		if err := e.assignments.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("reactivate assignment: %w", err)
		}
		return existing, nil
	}
	a := &domain.Assignment{
		ID:         uuid.New().String(),
		UserID:     userID,
		TenantID:   tenantID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.assignments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return a, nil
}

// RemoveRole soft-deletes the user's assignment of the role. Returns
// ErrAssignmentNotFound when no active assignment matched.
func (e *Engine) RemoveRole(ctx context.Context, userID, tenantID, roleID string) error {
	affected, err := e.assignments.Deactivate(ctx, userID, tenantID, roleID)
	if err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	if affected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// CreateRoleInput holds the fields for CreateRole.
type CreateRoleInput struct {
	Name         string
	Description  string
	Permissions  []string
	ParentRoleID string
}

// CreateRole creates a tenant role. Permission keys must exist in the catalog
// and the parent, if set, must belong to the tenant and not close a cycle.
func (e *Engine) CreateRole(ctx context.Context, tenantID string, in CreateRoleInput) (*domain.Role, error) {
	for _, p := range in.Permissions {
		if !catalog.IsValidPermission(p) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPermission, p)
		}
	}
	existing, err := e.roles.GetByTenantAndName(ctx, tenantID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("check role name: %w", err)
	}
	if existing != nil {
		return nil, ErrRoleExists
	}
	if in.ParentRoleID != "" {
		if err := e.checkParentChain(ctx, tenantID, in.ParentRoleID, ""); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	role := &domain.Role{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Name:         in.Name,
		Description:  in.Description,
		Permissions:  in.Permissions,
		ParentRoleID: in.ParentRoleID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := e.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// RoleUpdate holds optional fields for UpdateRole; nil fields are unchanged.
type RoleUpdate struct {
	Name         *string
	Description  *string
	Permissions  []string // nil leaves permissions unchanged
	ParentRoleID *string  // pointer to "" clears the parent
	IsActive     *bool
}

// UpdateRole applies the partial update. Returns ErrRoleNotFound for unknown
// roles and ErrSystemRole for predefined roles, which are immutable.
func (e *Engine) UpdateRole(ctx context.Context, roleID string, upd RoleUpdate) (*domain.Role, error) {
	role, err := e.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	if role.IsSystem {
		return nil, ErrSystemRole
	}
	if upd.Name != nil && *upd.Name != role.Name {
		dup, err := e.roles.GetByTenantAndName(ctx, role.TenantID, *upd.Name)
		if err != nil {
			return nil, fmt.Errorf("check role name: %w", err)
		}
		if dup != nil {
			return nil, ErrRoleExists
		}
		role.Name = *upd.Name
	}
	if upd.Description != nil {
		role.Description = *upd.Description
	}
	if upd.Permissions != nil {
		for _, p := range upd.Permissions {
			if !catalog.IsValidPermission(p) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPermission, p)
			}
		}
		role.Permissions = upd.Permissions
	}
	if upd.ParentRoleID != nil {
		if *upd.ParentRoleID != "" {
			if err := e.checkParentChain(ctx, role.TenantID, *upd.ParentRoleID, role.ID); err != nil {
				return nil, err
			}
		}
		role.ParentRoleID = *upd.ParentRoleID
	}
	if upd.IsActive != nil {
		role.IsActive = *upd.IsActive
	}
	role.UpdatedAt = time.Now().UTC()
	if err := e.roles.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return role, nil
}

// DeleteRole removes the role. Returns ErrRoleNotFound for unknown roles and
// ErrSystemRole for predefined roles.
func (e *Engine) DeleteRole(ctx context.Context, roleID string) error {
	role, err := e.roles.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("load role: %w", err)
	}
	if role == nil {
		return ErrRoleNotFound
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	if err := e.roles.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// InitializeTenantRoles creates the catalog's predefined roles for the tenant.
// Idempotent: if the tenant already has any roles, they are returned unchanged.
func (e *Engine) InitializeTenantRoles(ctx context.Context, tenantID string) ([]*domain.Role, error) {
	existing, err := e.roles.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant roles: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}
	now := time.Now().UTC()
	templates := catalog.PredefinedRoles()
	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*domain.Role, 0, len(templates))
	for _, k := range keys {
		tpl := templates[k]
		role := &domain.Role{
			ID:          uuid.New().String(),
			TenantID:    tenantID,
			Name:        tpl.Name,
			Description: tpl.Description,
			Permissions: tpl.Permissions,
			IsSystem:    true,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := e.roles.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("create predefined role %s: %w", tpl.Name, err)
		}
		out = append(out, role)
	}
	return out, nil
}

// GetRole returns the role by id, or ErrRoleNotFound.
func (e *Engine) GetRole(ctx context.Context, roleID string) (*domain.Role, error) {
	role, err := e.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// ListRoles returns all roles defined in the tenant.
func (e *Engine) ListRoles(ctx context.Context, tenantID string) ([]*domain.Role, error) {
	roles, err := e.roles.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant roles: %w", err)
	}
	return roles, nil
}

// UsersWithRole returns the users holding the role in the tenant through valid
// assignments only.
func (e *Engine) UsersWithRole(ctx context.Context, tenantID, roleID string) ([]*userdomain.User, error) {
	assignments, err := e.assignments.ListByRole(ctx, tenantID, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	now := time.Now().UTC()
	var out []*userdomain.User
	for _, a := range assignments {
		if !a.IsValid(now) {
			continue
		}
		u, err := e.users.GetByID(ctx, a.UserID)
		if err != nil {
			return nil, fmt.Errorf("load user %s: %w", a.UserID, err)
		}
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// resolveUserPermissions unions the transitive permission sets of every role
// held through a valid assignment.
func (e *Engine) resolveUserPermissions(ctx context.Context, userID, tenantID string) (map[string]struct{}, error) {
	assignments, err := e.assignments.ListByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	now := time.Now().UTC()
	perms := make(map[string]struct{})
	for _, a := range assignments {
		if !a.IsValid(now) {
			continue
		}
		if err := e.collectRolePermissions(ctx, a.RoleID, perms); err != nil {
			return nil, err
		}
	}
	return perms, nil
}

// collectRolePermissions adds the role's own permissions and those of its
// parent chain into perms. Depth is bounded; exceeding it is a store
// inconsistency and fails the resolution loudly.
func (e *Engine) collectRolePermissions(ctx context.Context, roleID string, perms map[string]struct{}) error {
	seen := make(map[string]bool, 4)
	for depth := 0; roleID != ""; depth++ {
		if depth >= maxParentDepth {
			return fmt.Errorf("role %s: parent chain exceeds depth %d", roleID, maxParentDepth)
		}
		if seen[roleID] {
			return fmt.Errorf("role %s: %w", roleID, ErrRoleCycle)
		}
		seen[roleID] = true
		role, err := e.roles.GetByID(ctx, roleID)
		if err != nil {
			return fmt.Errorf("load role %s: %w", roleID, err)
		}
		if role == nil || !role.IsActive {
			return nil
		}
		for _, p := range role.Permissions {
			perms[p] = struct{}{}
		}
		roleID = role.ParentRoleID
	}
	return nil
}

// checkParentChain verifies the proposed parent exists in the tenant and that
// following its chain never reaches childID (which would close a cycle).
func (e *Engine) checkParentChain(ctx context.Context, tenantID, parentID, childID string) error {
	seen := make(map[string]bool, 4)
	for depth := 0; parentID != ""; depth++ {
		if depth >= maxParentDepth || seen[parentID] {
			return ErrRoleCycle
		}
		if parentID == childID {
			return ErrRoleCycle
		}
		seen[parentID] = true
		parent, err := e.roles.GetByID(ctx, parentID)
		if err != nil {
			return fmt.Errorf("load parent role: %w", err)
		}
		if parent == nil || parent.TenantID != tenantID {
			return ErrRoleNotFound
		}
		parentID = parent.ParentRoleID
	}
	return nil
}
