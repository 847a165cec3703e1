// Package service implements the authentication orchestrator: the state
// machine driving login from credential verification through the
// organization MFA gate, tenant resolution, and the tenant MFA gate.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"tenant-admin-console/internal/audit"
	authdomain "tenant-admin-console/internal/auth/domain"
	membershipdomain "tenant-admin-console/internal/membership/domain"
	"tenant-admin-console/internal/mfa"
	orgdomain "tenant-admin-console/internal/organization/domain"
	rbacdomain "tenant-admin-console/internal/rbac/domain"
	"tenant-admin-console/internal/security"
	"tenant-admin-console/internal/telemetry"
	telemetrydomain "tenant-admin-console/internal/telemetry/domain"
	tenantdomain "tenant-admin-console/internal/tenant/domain"
	userdomain "tenant-admin-console/internal/user/domain"
)

// Sentinel errors for the auth orchestrator; the transport layer maps them
// to response codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTenantNotFound     = errors.New("tenant not found")
	// ErrNotTenantMember means the user has no membership for the requested tenant.
	ErrNotTenantMember = errors.New("user is not a member of the tenant")
	ErrInvalidMFAToken = errors.New("invalid mfa token")
	// ErrNoDefaultTenant means the "default" tenant row is missing. Multiple
	// flows depend on it; treat as a fatal configuration error.
	ErrNoDefaultTenant = errors.New("default tenant is missing")
	// ErrOrganizationNotConfigured means the organization singleton is absent.
	// Logins are refused rather than silently skipping the org MFA gate.
	ErrOrganizationNotConfigured = errors.New("organization is not configured")
)

// defaultRoleName is the predefined role auto-assigned on default-tenant
// bootstrap. Must match the catalog's "user" template name.
const defaultRoleName = "User"

// UserRepo is the minimal user repository needed by the orchestrator.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

// TenantRepo is the minimal tenant repository needed by the orchestrator.
type TenantRepo interface {
	GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error)
}

// MembershipRepo is the minimal membership repository needed by the orchestrator.
type MembershipRepo interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*membershipdomain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*membershipdomain.Membership, error)
	FindOrCreate(ctx context.Context, m *membershipdomain.Membership) (*membershipdomain.Membership, error)
}

// OrganizationRepo is the minimal organization repository needed by the orchestrator.
type OrganizationRepo interface {
	Get(ctx context.Context) (*orgdomain.Organization, error)
}

// RoleBootstrapper initializes a tenant's predefined roles and assigns one.
// Implemented by the RBAC engine.
type RoleBootstrapper interface {
	InitializeTenantRoles(ctx context.Context, tenantID string) ([]*rbacdomain.Role, error)
	AssignRole(ctx context.Context, userID, tenantID, roleID, assignedBy string) (*rbacdomain.Assignment, error)
}

// MFAVerifier validates a submitted MFA proof for the user's method.
// Implemented by the verify service.
type MFAVerifier interface {
	VerifyToken(ctx context.Context, u *userdomain.User, code string, method userdomain.MFAMethod) (bool, error)
}

// AuthService orchestrates login, tenant selection, and MFA verification.
type AuthService struct {
	users       UserRepo
	tenants     TenantRepo
	memberships MembershipRepo
	orgs        OrganizationRepo
	rbac        RoleBootstrapper
	verifier    MFAVerifier
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	auditLog    audit.Logger
	emitter     telemetry.EventEmitter
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLog and emitter may be nil; both are best-effort sinks.
func NewAuthService(
	users UserRepo,
	tenants TenantRepo,
	memberships MembershipRepo,
	orgs OrganizationRepo,
	rbac RoleBootstrapper,
	verifier MFAVerifier,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLog audit.Logger,
	emitter telemetry.EventEmitter,
) *AuthService {
	return &AuthService{
		users:       users,
		tenants:     tenants,
		memberships: memberships,
		orgs:        orgs,
		rbac:        rbac,
		verifier:    verifier,
		hasher:      hasher,
		tokens:      tokens,
		auditLog:    auditLog,
		emitter:     emitter,
	}
}

// Login authenticates with email/password and runs the login state machine.
func (s *AuthService) Login(ctx context.Context, email, password string) (*authdomain.Outcome, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive || user.PasswordHash == "" {
		s.record(ctx, "", "", "login_failure", "auth", "")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.record(ctx, "", user.ID, "login_failure", "auth", "")
		return nil, ErrInvalidCredentials
	}
	return s.HandleUserLogin(ctx, user)
}

// LoginWithOAuth completes an OAuth2 login for the given email and provider
// subject, creating the user on first login. OAuth users skip MFA entirely.
func (s *AuthService) LoginWithOAuth(ctx context.Context, email, subject string) (*authdomain.Outcome, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		now := time.Now().UTC()
		user = &userdomain.User{
			ID:              uuid.New().String(),
			Email:           email,
			Provider:        userdomain.ProviderOAuth2,
			ProviderSubject: subject,
			Status:          userdomain.UserStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := user.Validate(); err != nil {
			return nil, err
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}
	if user.Status != userdomain.UserStatusActive {
		return nil, ErrInvalidCredentials
	}
	return s.HandleUserLogin(ctx, user)
}

// HandleUserLogin runs the post-credential login state machine: organization
// MFA gate first, then tenant resolution. OAuth users skip the gate.
func (s *AuthService) HandleUserLogin(ctx context.Context, user *userdomain.User) (*authdomain.Outcome, error) {
	if user.IsOAuth() {
		return s.resolveTenants(ctx, user)
	}
	org, err := s.orgs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if org == nil {
		return nil, ErrOrganizationNotConfigured
	}
	if mfa.IsRequired(user, org.MFA) {
		if !mfa.IsConfigured(user) {
			s.record(ctx, "", user.ID, "mfa_setup_required", "auth", "")
			return s.halt(user, nil, authdomain.StatusMFASetupRequired, authdomain.RedirectMFASetup)
		}
		s.record(ctx, "", user.ID, "mfa_required", "auth", "")
		return s.halt(user, nil, authdomain.StatusMFARequired, authdomain.RedirectMFA)
	}
	return s.resolveTenants(ctx, user)
}

// SelectTenant validates the user's membership in the tenant and applies the
// tenant-scoped MFA gate. On success the caller sets the session's active
// tenant from the returned outcome.
func (s *AuthService) SelectTenant(ctx context.Context, userID, tenantID string) (*authdomain.Outcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	membership, err := s.memberships.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, ErrNotTenantMember
	}
	if mfa.IsRequired(user, tenant.MFA) {
		if !mfa.IsConfigured(user) {
			s.record(ctx, tenant.ID, user.ID, "mfa_setup_required", "auth", "")
			return s.halt(user, tenant, authdomain.StatusMFASetupRequired, authdomain.RedirectMFASetup)
		}
		s.record(ctx, tenant.ID, user.ID, "mfa_required", "auth", "")
		return s.halt(user, tenant, authdomain.StatusMFARequired, authdomain.RedirectMFA)
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	s.record(ctx, tenant.ID, user.ID, "tenant_selected", "auth", "")
	return &authdomain.Outcome{
		Status:      authdomain.StatusSuccess,
		Redirect:    authdomain.RedirectDashboard,
		User:        user,
		Tenant:      tenant,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// halt builds a non-terminal outcome carrying a pending token so the caller
// can resume the login. tenant may be nil for organization-level halts.
func (s *AuthService) halt(user *userdomain.User, tenant *tenantdomain.Tenant, status authdomain.Status, redirect string) (*authdomain.Outcome, error) {
	pending, _, err := s.tokens.IssuePending(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue pending token: %w", err)
	}
	return &authdomain.Outcome{
		Status:       status,
		Redirect:     redirect,
		User:         user,
		Tenant:       tenant,
		PendingToken: pending,
	}, nil
}

// VerifyMFA validates the submitted proof and, on success, refreshes the
// user's last-login timestamp and re-enters tenant resolution. It never jumps
// straight to a cached tenant.
func (s *AuthService) VerifyMFA(ctx context.Context, userID, code string, method userdomain.MFAMethod) (*authdomain.Outcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if method == "" {
		method = user.MFAMethod
	}
	// A proof is only meaningful for the method the user actually enrolled;
	// anything else is rejected up front, before it reaches a provider.
	if method != user.MFAMethod || !mfa.IsConfigured(user) {
		s.record(ctx, "", user.ID, "mfa_failure", "auth", "")
		return nil, ErrInvalidMFAToken
	}
	ok, err := s.verifier.VerifyToken(ctx, user, code, method)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.record(ctx, "", user.ID, "mfa_failure", "auth", "")
		return nil, ErrInvalidMFAToken
	}
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Printf("auth: failed to update last login for user=%s: %v", user.ID, err)
	}
	user.LastLoginAt = &now
	s.record(ctx, "", user.ID, "mfa_verified", "auth", "")
	return s.resolveTenants(ctx, user)
}

// resolveTenants maps the user's memberships to a terminal outcome: a tenant
// list to choose from, a single resolved tenant, or a default-tenant
// auto-join for users with no memberships at all.
func (s *AuthService) resolveTenants(ctx context.Context, user *userdomain.User) (*authdomain.Outcome, error) {
	memberships, err := s.memberships.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	switch {
	case len(memberships) > 1:
		tenants := make([]*tenantdomain.Tenant, 0, len(memberships))
		for _, m := range memberships {
			t, err := s.tenants.GetByID(ctx, m.TenantID)
			if err != nil {
				return nil, fmt.Errorf("load tenant %s: %w", m.TenantID, err)
			}
			if t != nil {
				tenants = append(tenants, t)
			}
		}
		out, err := s.halt(user, nil, authdomain.StatusMultipleTenants, authdomain.RedirectTenantSelection)
		if err != nil {
			return nil, err
		}
		out.Tenants = tenants
		return out, nil
	case len(memberships) == 1:
		tenant, err := s.tenants.GetByID(ctx, memberships[0].TenantID)
		if err != nil {
			return nil, fmt.Errorf("load tenant %s: %w", memberships[0].TenantID, err)
		}
		if tenant == nil {
			return nil, ErrTenantNotFound
		}
		return s.completeSingle(ctx, user, tenant)
	default:
		return s.joinDefaultTenant(ctx, user)
	}
}

// joinDefaultTenant attaches a zero-membership user to the "default" tenant,
// initializes its predefined roles, and best-effort assigns the default role.
func (s *AuthService) joinDefaultTenant(ctx context.Context, user *userdomain.User) (*authdomain.Outcome, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantdomain.DefaultTenantID)
	if err != nil {
		return nil, fmt.Errorf("load default tenant: %w", err)
	}
	if tenant == nil {
		return nil, ErrNoDefaultTenant
	}
	// The store upserts atomically; an already-existing membership from a
	// concurrent first login is returned, not an error.
	_, err = s.memberships.FindOrCreate(ctx, &membershipdomain.Membership{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TenantID:  tenant.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create default membership: %w", err)
	}
	s.bootstrapDefaultRole(ctx, user, tenant.ID)
	return s.completeSingle(ctx, user, tenant)
}

// bootstrapDefaultRole is a secondary step: failures are logged, never fatal
// to the login.
func (s *AuthService) bootstrapDefaultRole(ctx context.Context, user *userdomain.User, tenantID string) {
	roles, err := s.rbac.InitializeTenantRoles(ctx, tenantID)
	if err != nil {
		log.Printf("auth: tenant role bootstrap failed for tenant=%s: %v", tenantID, err)
		return
	}
	var defaultRole *rbacdomain.Role
	for _, r := range roles {
		if r.Name == defaultRoleName {
			defaultRole = r
			break
		}
	}
	if defaultRole == nil {
		log.Printf("auth: no %q role in tenant=%s; skipping default assignment", defaultRoleName, tenantID)
		return
	}
	if _, err := s.rbac.AssignRole(ctx, user.ID, tenantID, defaultRole.ID, ""); err != nil {
		log.Printf("auth: default role assignment failed for user=%s tenant=%s: %v", user.ID, tenantID, err)
		return
	}
	s.record(ctx, tenantID, user.ID, "role_assigned", "rbac", `{"role":"`+defaultRoleName+`"}`)
}

// completeSingle finishes a login that resolved to exactly one tenant.
func (s *AuthService) completeSingle(ctx context.Context, user *userdomain.User, tenant *tenantdomain.Tenant) (*authdomain.Outcome, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	s.record(ctx, tenant.ID, user.ID, "login_success", "auth", "")
	return &authdomain.Outcome{
		Status:      authdomain.StatusSingle,
		Redirect:    authdomain.RedirectDashboard,
		User:        user,
		Tenant:      tenant,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// record writes the event to the audit log and telemetry sinks. Best-effort.
func (s *AuthService) record(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, tenantID, userID, action, resource, metadata)
	}
	if s.emitter != nil {
		event := &telemetrydomain.Event{
			TenantID:  tenantID,
			UserID:    userID,
			EventType: action,
			Source:    resource,
			CreatedAt: time.Now().UTC(),
		}
		if metadata != "" {
			event.Metadata = []byte(metadata)
		}
		if err := s.emitter.Emit(ctx, event); err != nil {
			log.Printf("auth: telemetry emit failed for %s: %v", action, err)
		}
	}
}
