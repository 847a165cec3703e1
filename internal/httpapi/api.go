// Package httpapi is the HTTP transport for the console core: login and MFA
// flows, tenant selection, and role administration. Handlers translate the
// core's sentinel errors into response codes and never hold business logic.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	authdomain "tenant-admin-console/internal/auth/domain"
	"tenant-admin-console/internal/mfa"
	"tenant-admin-console/internal/mfa/verify"
	platformrbac "tenant-admin-console/internal/platform/rbac"
	rbacdomain "tenant-admin-console/internal/rbac/domain"
	"tenant-admin-console/internal/rbac/engine"
	"tenant-admin-console/internal/security"
	userdomain "tenant-admin-console/internal/user/domain"
)

// AuthFlow is the slice of the auth orchestrator the HTTP layer uses.
type AuthFlow interface {
	Login(ctx context.Context, email, password string) (*authdomain.Outcome, error)
	LoginWithOAuth(ctx context.Context, email, subject string) (*authdomain.Outcome, error)
	SelectTenant(ctx context.Context, userID, tenantID string) (*authdomain.Outcome, error)
	VerifyMFA(ctx context.Context, userID, code string, method userdomain.MFAMethod) (*authdomain.Outcome, error)
}

// RoleAdmin is the slice of the RBAC engine the HTTP layer uses.
type RoleAdmin interface {
	HasPermission(ctx context.Context, userID, tenantID, permission string) bool
	UserPermissions(ctx context.Context, userID, tenantID string) []string
	UserRoles(ctx context.Context, userID, tenantID string) ([]*rbacdomain.Role, error)
	GetRole(ctx context.Context, roleID string) (*rbacdomain.Role, error)
	ListRoles(ctx context.Context, tenantID string) ([]*rbacdomain.Role, error)
	CreateRole(ctx context.Context, tenantID string, in engine.CreateRoleInput) (*rbacdomain.Role, error)
	UpdateRole(ctx context.Context, roleID string, upd engine.RoleUpdate) (*rbacdomain.Role, error)
	DeleteRole(ctx context.Context, roleID string) error
	AssignRole(ctx context.Context, userID, tenantID, roleID, assignedBy string) (*rbacdomain.Assignment, error)
	RemoveRole(ctx context.Context, userID, tenantID, roleID string) error
	InitializeTenantRoles(ctx context.Context, tenantID string) ([]*rbacdomain.Role, error)
	UsersWithRole(ctx context.Context, tenantID, roleID string) ([]*userdomain.User, error)
}

// MFASetup is the slice of the verification service used by enrollment endpoints.
type MFASetup interface {
	GenerateTOTPSecret(account string) (*mfa.TOTPSecret, error)
	QRCode(uri string) ([]byte, error)
	AvailableMethods(u *userdomain.User) []userdomain.MFAMethod
	SendChallenge(ctx context.Context, u *userdomain.User) (*verify.Verification, error)
}

// UserGetter loads users for MFA setup endpoints.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	auth        AuthFlow
	rbac        RoleAdmin
	mfa         MFASetup
	users       UserGetter
	memberships platformrbac.TenantMembershipGetter
	tokens      *security.TokenProvider
	readyDB     *sql.DB
	version     string
}

// New builds the API and its routes. readyDB may be nil; readiness then skips
// the database ping.
func New(auth AuthFlow, rbac RoleAdmin, mfa MFASetup, users UserGetter, memberships platformrbac.TenantMembershipGetter, tokens *security.TokenProvider, readyDB *sql.DB, version string) *API {
	a := &API{
		mux:         http.NewServeMux(),
		auth:        auth,
		rbac:        rbac,
		mfa:         mfa,
		users:       users,
		memberships: memberships,
		tokens:      tokens,
		readyDB:     readyDB,
		version:     version,
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)

	a.mux.HandleFunc("POST /v1/auth/login", a.Login)
	a.mux.HandleFunc("POST /v1/auth/oauth", a.LoginOAuth)
	a.mux.HandleFunc("POST /v1/auth/tenant", a.SelectTenant)
	a.mux.HandleFunc("POST /v1/auth/mfa/verify", a.VerifyMFA)

	a.mux.HandleFunc("POST /v1/mfa/totp/secret", a.GenerateTOTPSecret)
	a.mux.HandleFunc("GET /v1/mfa/totp/qr", a.TOTPQRCode)
	a.mux.HandleFunc("POST /v1/mfa/challenge", a.SendChallenge)
	a.mux.HandleFunc("GET /v1/mfa/methods", a.AvailableMethods)

	a.mux.HandleFunc("GET /v1/rbac/permissions", a.ListPermissionCatalog)
	a.mux.HandleFunc("GET /v1/rbac/me/permissions", a.MyPermissions)
	a.mux.HandleFunc("GET /v1/rbac/me/roles", a.MyRoles)

	a.mux.HandleFunc("GET /v1/rbac/roles", a.ListRoles)
	a.mux.HandleFunc("POST /v1/rbac/roles", a.CreateRole)
	a.mux.HandleFunc("GET /v1/rbac/roles/{id}", a.GetRole)
	a.mux.HandleFunc("PATCH /v1/rbac/roles/{id}", a.UpdateRole)
	a.mux.HandleFunc("DELETE /v1/rbac/roles/{id}", a.DeleteRole)
	a.mux.HandleFunc("GET /v1/rbac/roles/{id}/users", a.UsersWithRole)
	a.mux.HandleFunc("POST /v1/rbac/roles/initialize", a.InitializeRoles)

	a.mux.HandleFunc("POST /v1/rbac/assignments", a.AssignRole)
	a.mux.HandleFunc("DELETE /v1/rbac/assignments", a.RemoveRole)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the http.Handler for the server.
func (a *API) Handler() http.Handler {
	return Logging(a.withAuth(a.mux))
}

// Healthz reports liveness.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tenant-admin-console",
		"version": a.version,
	})
}

// Ready reports readiness, pinging the database when one is configured.
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.readyDB != nil {
		if err := a.readyDB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
