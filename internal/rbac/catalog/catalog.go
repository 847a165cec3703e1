// Package catalog is the static registry of permission keys and the predefined
// role templates each tenant is initialized with. It is immutable after load;
// the engine consults it when bootstrapping tenant roles and validating keys.
package catalog

import "strings"

// Permission keys follow "category:action". The category is the text before
// the first colon.
const (
	PermUsersRead       = "users:read"
	PermUsersCreate     = "users:create"
	PermUsersUpdate     = "users:update"
	PermUsersDelete     = "users:delete"
	PermTenantsRead     = "tenants:read"
	PermTenantsCreate   = "tenants:create"
	PermTenantsUpdate   = "tenants:update"
	PermTenantsDelete   = "tenants:delete"
	PermTenantsSwitch   = "tenants:switch"
	PermRolesRead       = "roles:read"
	PermRolesCreate     = "roles:create"
	PermRolesUpdate     = "roles:update"
	PermRolesDelete     = "roles:delete"
	PermRolesAssign     = "roles:assign"
	PermBlacklistRead   = "blacklist:read"
	PermBlacklistCreate = "blacklist:create"
	PermBlacklistDelete = "blacklist:delete"
	PermMFAManage       = "mfa:manage"
	PermSettingsRead    = "settings:read"
	PermSettingsUpdate  = "settings:update"
	PermAuditRead       = "audit:read"
	PermSystemAdmin     = "system:admin"
)

var permissions = map[string]string{
	PermUsersRead:       "View users within the tenant",
	PermUsersCreate:     "Create users within the tenant",
	PermUsersUpdate:     "Update users within the tenant",
	PermUsersDelete:     "Delete users within the tenant",
	PermTenantsRead:     "View tenant details",
	PermTenantsCreate:   "Create tenants",
	PermTenantsUpdate:   "Update tenant settings",
	PermTenantsDelete:   "Delete tenants",
	PermTenantsSwitch:   "Switch between tenants without membership checks",
	PermRolesRead:       "View roles and their permissions",
	PermRolesCreate:     "Create roles",
	PermRolesUpdate:     "Update roles",
	PermRolesDelete:     "Delete roles",
	PermRolesAssign:     "Assign and remove user roles",
	PermBlacklistRead:   "View blacklist entries",
	PermBlacklistCreate: "Add blacklist entries",
	PermBlacklistDelete: "Remove blacklist entries",
	PermMFAManage:       "Manage MFA enrollment for users",
	PermSettingsRead:    "View tenant settings",
	PermSettingsUpdate:  "Update tenant settings",
	PermAuditRead:       "View the audit log",
	PermSystemAdmin:     "Platform-wide system administration",
}

// RoleTemplate is a predefined role created for each new tenant.
type RoleTemplate struct {
	Name        string
	Description string
	Permissions []string
	IsSystem    bool
}

// Template keys for PredefinedRoles.
const (
	TemplateSuperAdmin  = "super_admin"
	TemplateTenantAdmin = "tenant_admin"
	TemplateManager     = "manager"
	TemplateUser        = "user"
	TemplateViewer      = "viewer"
)

// crossTenantKeys are excluded from the tenant_admin template: they reach
// outside a single tenant's boundary.
var crossTenantKeys = map[string]bool{
	PermSystemAdmin:   true,
	PermTenantsCreate: true,
	PermTenantsDelete: true,
	PermTenantsSwitch: true,
}

// AllPermissions returns permission key -> human description. Never empty.
func AllPermissions() map[string]string {
	out := make(map[string]string, len(permissions))
	for k, v := range permissions {
		out[k] = v
	}
	return out
}

// IsValidPermission reports whether key is a registered permission.
func IsValidPermission(key string) bool {
	_, ok := permissions[key]
	return ok
}

// PredefinedRoles returns the five role templates keyed by template name.
// The "user" and "viewer" templates intentionally share the same permission
// set; they exist as distinct names for assignment semantics.
func PredefinedRoles() map[string]RoleTemplate {
	all := make([]string, 0, len(permissions))
	tenantScoped := make([]string, 0, len(permissions))
	for k := range permissions {
		all = append(all, k)
		if !crossTenantKeys[k] {
			tenantScoped = append(tenantScoped, k)
		}
	}
	basic := []string{PermUsersRead, PermTenantsRead, PermSettingsRead}
	return map[string]RoleTemplate{
		TemplateSuperAdmin: {
			Name:        "Super Admin",
			Description: "Full access to every permission, including system administration",
			Permissions: all,
			IsSystem:    true,
		},
		TemplateTenantAdmin: {
			Name:        "Tenant Admin",
			Description: "Full access within a single tenant",
			Permissions: tenantScoped,
			IsSystem:    true,
		},
		TemplateManager: {
			Name:        "Manager",
			Description: "Day-to-day user and blacklist management",
			Permissions: []string{
				PermUsersRead, PermUsersCreate, PermUsersUpdate,
				PermTenantsRead, PermRolesRead, PermRolesAssign,
				PermBlacklistRead, PermBlacklistCreate, PermBlacklistDelete,
				PermSettingsRead, PermAuditRead,
			},
			IsSystem: true,
		},
		TemplateUser: {
			Name:        "User",
			Description: "Standard read access",
			Permissions: basic,
			IsSystem:    true,
		},
		TemplateViewer: {
			Name:        "Viewer",
			Description: "Read-only access",
			Permissions: basic,
			IsSystem:    true,
		},
	}
}

// CategoryEntry is one permission listed under its category.
type CategoryEntry struct {
	Key         string
	Description string
}

// PermissionsByCategory groups permissions by the text before the first ":".
func PermissionsByCategory() map[string][]CategoryEntry {
	out := make(map[string][]CategoryEntry)
	for k, desc := range permissions {
		category := k
		if i := strings.Index(k, ":"); i >= 0 {
			category = k[:i]
		}
		out[category] = append(out[category], CategoryEntry{Key: k, Description: desc})
	}
	return out
}
