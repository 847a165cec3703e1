package httpapi

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authdomain "tenant-admin-console/internal/auth/domain"
	authservice "tenant-admin-console/internal/auth/service"
	membershipdomain "tenant-admin-console/internal/membership/domain"
	"tenant-admin-console/internal/mfa"
	"tenant-admin-console/internal/mfa/verify"
	rbacdomain "tenant-admin-console/internal/rbac/domain"
	"tenant-admin-console/internal/rbac/engine"
	"tenant-admin-console/internal/security"
	userdomain "tenant-admin-console/internal/user/domain"
)

type fakeAuthFlow struct {
	outcome *authdomain.Outcome
	err     error
}

func (f *fakeAuthFlow) Login(ctx context.Context, email, password string) (*authdomain.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeAuthFlow) LoginWithOAuth(ctx context.Context, email, subject string) (*authdomain.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeAuthFlow) SelectTenant(ctx context.Context, userID, tenantID string) (*authdomain.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeAuthFlow) VerifyMFA(ctx context.Context, userID, code string, method userdomain.MFAMethod) (*authdomain.Outcome, error) {
	return f.outcome, f.err
}

type fakeRoleAdmin struct {
	granted map[string]bool
	roles   map[string]*rbacdomain.Role
	created *rbacdomain.Role
	err     error
}

func (f *fakeRoleAdmin) HasPermission(ctx context.Context, userID, tenantID, permission string) bool {
	return f.granted[permission]
}

func (f *fakeRoleAdmin) UserPermissions(ctx context.Context, userID, tenantID string) []string {
	out := make([]string, 0, len(f.granted))
	for p, ok := range f.granted {
		if ok {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeRoleAdmin) UserRoles(ctx context.Context, userID, tenantID string) ([]*rbacdomain.Role, error) {
	return nil, f.err
}

func (f *fakeRoleAdmin) GetRole(ctx context.Context, roleID string) (*rbacdomain.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	role, ok := f.roles[roleID]
	if !ok {
		return nil, engine.ErrRoleNotFound
	}
	return role, nil
}

func (f *fakeRoleAdmin) ListRoles(ctx context.Context, tenantID string) ([]*rbacdomain.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*rbacdomain.Role
	for _, role := range f.roles {
		if role.TenantID == tenantID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (f *fakeRoleAdmin) CreateRole(ctx context.Context, tenantID string, in engine.CreateRoleInput) (*rbacdomain.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = &rbacdomain.Role{
		ID:          "r-new",
		TenantID:    tenantID,
		Name:        in.Name,
		Description: in.Description,
		Permissions: in.Permissions,
		IsActive:    true,
	}
	return f.created, nil
}

func (f *fakeRoleAdmin) UpdateRole(ctx context.Context, roleID string, upd engine.RoleUpdate) (*rbacdomain.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	role, ok := f.roles[roleID]
	if !ok {
		return nil, engine.ErrRoleNotFound
	}
	if role.IsSystem {
		return nil, engine.ErrSystemRole
	}
	return role, nil
}

func (f *fakeRoleAdmin) DeleteRole(ctx context.Context, roleID string) error {
	role, ok := f.roles[roleID]
	if !ok {
		return engine.ErrRoleNotFound
	}
	if role.IsSystem {
		return engine.ErrSystemRole
	}
	delete(f.roles, roleID)
	return nil
}

func (f *fakeRoleAdmin) AssignRole(ctx context.Context, userID, tenantID, roleID, assignedBy string) (*rbacdomain.Assignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rbacdomain.Assignment{
		ID:         "a-1",
		UserID:     userID,
		TenantID:   tenantID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
		IsActive:   true,
	}, nil
}

func (f *fakeRoleAdmin) RemoveRole(ctx context.Context, userID, tenantID, roleID string) error {
	return f.err
}

func (f *fakeRoleAdmin) InitializeTenantRoles(ctx context.Context, tenantID string) ([]*rbacdomain.Role, error) {
	return nil, f.err
}

func (f *fakeRoleAdmin) UsersWithRole(ctx context.Context, tenantID, roleID string) ([]*userdomain.User, error) {
	return nil, f.err
}

type fakeMFASetup struct{}

func (fakeMFASetup) GenerateTOTPSecret(account string) (*mfa.TOTPSecret, error) {
	return &mfa.TOTPSecret{Secret: "JBSWY3DPEHPK3PXP", URI: "otpauth://totp/test"}, nil
}

func (fakeMFASetup) QRCode(uri string) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (fakeMFASetup) AvailableMethods(u *userdomain.User) []userdomain.MFAMethod {
	return []userdomain.MFAMethod{userdomain.MFAMethodTOTP}
}

func (fakeMFASetup) SendChallenge(ctx context.Context, u *userdomain.User) (*verify.Verification, error) {
	return &verify.Verification{ID: "v-1", Status: "pending"}, nil
}

type fakeUserGetter struct {
	users map[string]*userdomain.User
}

func (f *fakeUserGetter) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	return f.users[id], nil
}

type fakeMembershipGetter struct {
	members map[string]bool
}

func (f *fakeMembershipGetter) GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*membershipdomain.Membership, error) {
	if !f.members[userID+":"+tenantID] {
		return nil, nil
	}
	return &membershipdomain.Membership{ID: userID + ":" + tenantID, UserID: userID, TenantID: tenantID}, nil
}

type apiFixture struct {
	api         *API
	auth        *fakeAuthFlow
	rbac        *fakeRoleAdmin
	memberships *fakeMembershipGetter
	tokens      *security.TokenProvider
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tokens := security.NewTokenProvider(key, &key.PublicKey, "console-test", "console", time.Hour)
	auth := &fakeAuthFlow{}
	rbac := &fakeRoleAdmin{granted: map[string]bool{}, roles: map[string]*rbacdomain.Role{}}
	users := &fakeUserGetter{users: map[string]*userdomain.User{
		"u1": {ID: "u1", Email: "alice@example.com", Status: userdomain.UserStatusActive},
	}}
	memberships := &fakeMembershipGetter{members: map[string]bool{}}
	api := New(auth, rbac, fakeMFASetup{}, users, memberships, tokens, nil, "test")
	return &apiFixture{api: api, auth: auth, rbac: rbac, memberships: memberships, tokens: tokens}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) sessionToken(t *testing.T, userID, tenantID string) string {
	t.Helper()
	token, _, err := f.tokens.Issue(userID, tenantID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (f *apiFixture) pendingToken(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := f.tokens.IssuePending(userID)
	if err != nil {
		t.Fatalf("issue pending token: %v", err)
	}
	return token
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.outcome = &authdomain.Outcome{
		Status:      authdomain.StatusSingle,
		Redirect:    authdomain.RedirectDashboard,
		User:        &userdomain.User{ID: "u1", Email: "alice@example.com"},
		AccessToken: "token-123",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	rec := f.request(t, http.MethodPost, "/v1/auth/login", loginRequest{Email: "alice@example.com", Password: "pw"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out outcomePayload
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "single" || out.AccessToken != "token-123" {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.err = authservice.ErrInvalidCredentials

	rec := f.request(t, http.MethodPost, "/v1/auth/login", loginRequest{Email: "a@b.c", Password: "bad"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVerifyMFAInvalidToken(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.err = authservice.ErrInvalidMFAToken

	rec := f.request(t, http.MethodPost, "/v1/auth/mfa/verify", verifyMFARequest{Code: "000000", Method: "totp"}, f.pendingToken(t, "u1"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestSelectTenantNotMember(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.err = authservice.ErrNotTenantMember

	rec := f.request(t, http.MethodPost, "/v1/auth/tenant", selectTenantRequest{TenantID: "acme"}, f.pendingToken(t, "u1"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestSelectTenantRequiresToken(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.outcome = &authdomain.Outcome{
		Status:      authdomain.StatusSuccess,
		AccessToken: "token-123",
	}

	rec := f.request(t, http.MethodPost, "/v1/auth/tenant", selectTenantRequest{TenantID: "acme"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("token-123")) {
		t.Fatal("no session token may be minted without a verified login")
	}
}

func TestSelectTenantWithPendingToken(t *testing.T) {
	f := newAPIFixture(t)
	f.auth.outcome = &authdomain.Outcome{
		Status:      authdomain.StatusSuccess,
		Redirect:    authdomain.RedirectDashboard,
		AccessToken: "token-123",
	}

	rec := f.request(t, http.MethodPost, "/v1/auth/tenant", selectTenantRequest{TenantID: "acme"}, f.pendingToken(t, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestPendingTokenRejectedOnProtectedRoutes(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/rbac/me/permissions", nil, f.pendingToken(t, "u1"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/rbac/roles", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRouteRejectsBadToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/rbac/roles", nil, "garbage")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestListRolesRequiresPermission(t *testing.T) {
	f := newAPIFixture(t)
	token := f.sessionToken(t, "u1", "acme")

	rec := f.request(t, http.MethodGet, "/v1/rbac/roles", nil, token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestListRoles(t *testing.T) {
	f := newAPIFixture(t)
	f.rbac.granted["roles:read"] = true
	f.rbac.roles["r1"] = &rbacdomain.Role{ID: "r1", TenantID: "acme", Name: "Manager", IsActive: true}
	token := f.sessionToken(t, "u1", "acme")

	rec := f.request(t, http.MethodGet, "/v1/rbac/roles", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Roles []rolePayload `json:"roles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Roles) != 1 || out.Roles[0].Name != "Manager" {
		t.Errorf("unexpected roles: %+v", out.Roles)
	}
}

func TestCreateRole(t *testing.T) {
	f := newAPIFixture(t)
	f.rbac.granted["roles:create"] = true
	token := f.sessionToken(t, "u1", "acme")

	rec := f.request(t, http.MethodPost, "/v1/rbac/roles", createRoleRequest{
		Name:        "Support",
		Permissions: []string{"users:read"},
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if f.rbac.created == nil || f.rbac.created.TenantID != "acme" {
		t.Errorf("role not created in caller tenant: %+v", f.rbac.created)
	}
}

func TestUpdateSystemRoleRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.rbac.granted["roles:update"] = true
	f.rbac.roles["r-sys"] = &rbacdomain.Role{ID: "r-sys", TenantID: "acme", Name: "Super Admin", IsSystem: true}
	token := f.sessionToken(t, "u1", "acme")

	name := "Renamed"
	rec := f.request(t, http.MethodPatch, "/v1/rbac/roles/r-sys", updateRoleRequest{Name: &name}, token)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestGetRoleCrossTenantHidden(t *testing.T) {
	f := newAPIFixture(t)
	f.rbac.granted["roles:read"] = true
	f.rbac.roles["r-other"] = &rbacdomain.Role{ID: "r-other", TenantID: "globex", Name: "Other"}
	token := f.sessionToken(t, "u1", "acme")

	rec := f.request(t, http.MethodGet, "/v1/rbac/roles/r-other", nil, token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAssignRole(t *testing.T) {
	f := newAPIFixture(t)
	f.rbac.granted["roles:assign"] = true
	token := f.sessionToken(t, "admin-1", "acme")

	rec := f.request(t, http.MethodPost, "/v1/rbac/assignments", assignmentRequest{UserID: "u2", RoleID: "r1"}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var out assignmentPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AssignedBy != "admin-1" {
		t.Errorf("assigned_by = %q, want admin-1", out.AssignedBy)
	}
}

func TestPermissionCatalogIsPublic(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/rbac/permissions", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		Permissions map[string]string `json:"permissions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out.Permissions["roles:create"]; !ok {
		t.Error("catalog should list roles:create")
	}
}

func TestGenerateTOTPSecret(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/v1/mfa/totp/secret", nil, f.pendingToken(t, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["secret"] == "" || out["uri"] == "" {
		t.Errorf("expected secret and uri, got %v", out)
	}
}

func TestGenerateTOTPSecretRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/v1/mfa/totp/secret", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}

func TestSendChallengeRequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodPost, "/v1/mfa/challenge", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}

func TestAvailableMethods(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/mfa/methods", nil, f.pendingToken(t, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestAvailableMethodsUnknownUser(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(t, http.MethodGet, "/v1/mfa/methods", nil, f.pendingToken(t, "ghost"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMyPermissionsRequiresMembership(t *testing.T) {
	f := newAPIFixture(t)
	f.rbac.granted["users:read"] = true
	token := f.sessionToken(t, "u1", "acme")

	rec := f.request(t, http.MethodGet, "/v1/rbac/me/permissions", nil, token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}

	f.memberships.members["u1:acme"] = true
	rec = f.request(t, http.MethodGet, "/v1/rbac/me/permissions", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a member: %s", rec.Code, rec.Body.String())
	}
}
