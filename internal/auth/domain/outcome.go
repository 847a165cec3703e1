package domain

import (
	"time"

	tenantdomain "tenant-admin-console/internal/tenant/domain"
	userdomain "tenant-admin-console/internal/user/domain"
)

// Status tags the terminal outcome of a login, tenant-selection, or MFA
// verification step.
type Status string

const (
	// StatusMFASetupRequired halts the login until the user enrolls an MFA method.
	StatusMFASetupRequired Status = "mfa_setup_required"
	// StatusMFARequired halts the login pending MFA verification.
	StatusMFARequired Status = "mfa_required"
	// StatusMultipleTenants asks the user to pick among their tenants.
	StatusMultipleTenants Status = "multiple_tenants"
	// StatusSingle completes a login that resolved to exactly one tenant.
	StatusSingle Status = "single"
	// StatusSuccess completes an explicit tenant selection.
	StatusSuccess Status = "success"
)

// Abstract redirect target names; the HTTP layer maps them to URLs. The core
// never constructs URLs.
const (
	RedirectMFASetup        = "mfa-setup"
	RedirectMFA             = "mfa"
	RedirectTenantSelection = "tenant-selection"
	RedirectDashboard       = "dashboard"
)

// Outcome is the result of an orchestrator operation, carrying enough data
// for the caller to build a response: the user, the resolved tenant or tenant
// list, and a session token on terminal success.
type Outcome struct {
	Status   Status
	Redirect string
	User     *userdomain.User
	// Tenant is set on single/success and on tenant-scoped MFA halts.
	Tenant *tenantdomain.Tenant
	// Tenants is set on multiple_tenants; each membership appears exactly once.
	Tenants []*tenantdomain.Tenant
	// AccessToken is issued on single/success so the caller can establish the
	// session. Empty on halts.
	AccessToken string
	ExpiresAt   time.Time
	// PendingToken is issued on halts instead of AccessToken. It proves the
	// credential step passed and is required to resume the login: tenant
	// selection and MFA endpoints accept it, everything else rejects it.
	PendingToken string
}
