package httpapi

import (
	"net/http"
	"time"

	platformrbac "tenant-admin-console/internal/platform/rbac"
	"tenant-admin-console/internal/rbac/catalog"
	rbacdomain "tenant-admin-console/internal/rbac/domain"
	"tenant-admin-console/internal/rbac/engine"
)

type rolePayload struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenant_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Permissions  []string `json:"permissions"`
	ParentRoleID string   `json:"parent_role_id,omitempty"`
	IsSystem     bool     `json:"is_system"`
	IsActive     bool     `json:"is_active"`
}

func toRolePayload(role *rbacdomain.Role) rolePayload {
	return rolePayload{
		ID:           role.ID,
		TenantID:     role.TenantID,
		Name:         role.Name,
		Description:  role.Description,
		Permissions:  role.Permissions,
		ParentRoleID: role.ParentRoleID,
		IsSystem:     role.IsSystem,
		IsActive:     role.IsActive,
	}
}

func toRolePayloads(roles []*rbacdomain.Role) []rolePayload {
	out := make([]rolePayload, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRolePayload(r))
	}
	return out
}

// member verifies the caller's membership in the session tenant via the
// platform guard, writing 401/403 on failure. A revoked membership cuts off
// even the self-scoped endpoints, whatever the session token still says.
func (a *API) member(w http.ResponseWriter, r *http.Request) (userID, tenantID string, ok bool) {
	tenantID, userID, err := platformrbac.RequireTenantMember(r.Context(), a.memberships)
	if err != nil {
		respondStatusError(w, err)
		return "", "", false
	}
	return userID, tenantID, true
}

// require checks a permission for the caller via the platform guard, writing
// 401/403 on failure. Checks fail closed inside the engine.
func (a *API) require(w http.ResponseWriter, r *http.Request, permission string) (userID, tenantID string, ok bool) {
	tenantID, userID, err := platformrbac.RequirePermission(r.Context(), a.rbac, permission)
	if err != nil {
		respondStatusError(w, err)
		return "", "", false
	}
	return userID, tenantID, true
}

// ListPermissionCatalog handles GET /v1/rbac/permissions: the static
// permission registry, public because it contains no tenant data.
func (a *API) ListPermissionCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": catalog.AllPermissions(),
		"categories":  catalog.PermissionsByCategory(),
	})
}

// MyPermissions handles GET /v1/rbac/me/permissions.
func (a *API) MyPermissions(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := a.member(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": a.rbac.UserPermissions(r.Context(), userID, tenantID),
	})
}

// MyRoles handles GET /v1/rbac/me/roles.
func (a *API) MyRoles(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := a.member(w, r)
	if !ok {
		return
	}
	roles, err := a.rbac.UserRoles(r.Context(), userID, tenantID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": toRolePayloads(roles)})
}

// ListRoles handles GET /v1/rbac/roles.
func (a *API) ListRoles(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesRead)
	if !ok {
		return
	}
	roles, err := a.rbac.ListRoles(r.Context(), tenantID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": toRolePayloads(roles)})
}

// GetRole handles GET /v1/rbac/roles/{id}.
func (a *API) GetRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesRead)
	if !ok {
		return
	}
	role, err := a.rbac.GetRole(r.Context(), r.PathValue("id"))
	if err != nil {
		respondCoreError(w, err)
		return
	}
	if role.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}
	writeJSON(w, http.StatusOK, toRolePayload(role))
}

type createRoleRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Permissions  []string `json:"permissions"`
	ParentRoleID string   `json:"parent_role_id"`
}

// CreateRole handles POST /v1/rbac/roles.
func (a *API) CreateRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesCreate)
	if !ok {
		return
	}
	var req createRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := a.rbac.CreateRole(r.Context(), tenantID, engine.CreateRoleInput{
		Name:         req.Name,
		Description:  req.Description,
		Permissions:  req.Permissions,
		ParentRoleID: req.ParentRoleID,
	})
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRolePayload(role))
}

type updateRoleRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Permissions  []string `json:"permissions"`
	ParentRoleID *string  `json:"parent_role_id"`
	IsActive     *bool    `json:"is_active"`
}

// UpdateRole handles PATCH /v1/rbac/roles/{id}.
func (a *API) UpdateRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesUpdate)
	if !ok {
		return
	}
	roleID := r.PathValue("id")
	existing, err := a.rbac.GetRole(r.Context(), roleID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	if existing.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := a.rbac.UpdateRole(r.Context(), roleID, engine.RoleUpdate{
		Name:         req.Name,
		Description:  req.Description,
		Permissions:  req.Permissions,
		ParentRoleID: req.ParentRoleID,
		IsActive:     req.IsActive,
	})
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRolePayload(role))
}

// DeleteRole handles DELETE /v1/rbac/roles/{id}.
func (a *API) DeleteRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesDelete)
	if !ok {
		return
	}
	roleID := r.PathValue("id")
	existing, err := a.rbac.GetRole(r.Context(), roleID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	if existing.TenantID != tenantID {
		respondError(w, http.StatusNotFound, "role not found")
		return
	}
	if err := a.rbac.DeleteRole(r.Context(), roleID); err != nil {
		respondCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UsersWithRole handles GET /v1/rbac/roles/{id}/users.
func (a *API) UsersWithRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesRead)
	if !ok {
		return
	}
	users, err := a.rbac.UsersWithRole(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		respondCoreError(w, err)
		return
	}
	out := make([]userPayload, 0, len(users))
	for _, u := range users {
		if p := toUserPayload(u); p != nil {
			out = append(out, *p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// InitializeRoles handles POST /v1/rbac/roles/initialize: creates the
// predefined role set for the caller's tenant. Idempotent.
func (a *API) InitializeRoles(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesCreate)
	if !ok {
		return
	}
	roles, err := a.rbac.InitializeTenantRoles(r.Context(), tenantID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": toRolePayloads(roles)})
}

type assignmentRequest struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

type assignmentPayload struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	RoleID     string `json:"role_id"`
	AssignedBy string `json:"assigned_by,omitempty"`
	IsActive   bool   `json:"is_active"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

// AssignRole handles POST /v1/rbac/assignments.
func (a *API) AssignRole(w http.ResponseWriter, r *http.Request) {
	callerID, tenantID, ok := a.require(w, r, catalog.PermRolesAssign)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.RoleID == "" {
		respondError(w, http.StatusBadRequest, "user_id and role_id are required")
		return
	}
	assignment, err := a.rbac.AssignRole(r.Context(), req.UserID, tenantID, req.RoleID, callerID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	p := assignmentPayload{
		ID:         assignment.ID,
		UserID:     assignment.UserID,
		TenantID:   assignment.TenantID,
		RoleID:     assignment.RoleID,
		AssignedBy: assignment.AssignedBy,
		IsActive:   assignment.IsActive,
	}
	if assignment.ExpiresAt != nil {
		p.ExpiresAt = assignment.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusCreated, p)
}

// RemoveRole handles DELETE /v1/rbac/assignments.
func (a *API) RemoveRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := a.require(w, r, catalog.PermRolesAssign)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.RoleID == "" {
		respondError(w, http.StatusBadRequest, "user_id and role_id are required")
		return
	}
	if err := a.rbac.RemoveRole(r.Context(), req.UserID, tenantID, req.RoleID); err != nil {
		respondCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
