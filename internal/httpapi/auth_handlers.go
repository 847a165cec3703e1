package httpapi

import (
	"net/http"
	"time"

	authdomain "tenant-admin-console/internal/auth/domain"
	"tenant-admin-console/internal/server/interceptors"
	tenantdomain "tenant-admin-console/internal/tenant/domain"
	userdomain "tenant-admin-console/internal/user/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthLoginRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

type selectTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

type verifyMFARequest struct {
	Code   string `json:"code"`
	Method string `json:"method"`
}

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	MFAMethod string `json:"mfa_method,omitempty"`
}

type tenantPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type outcomePayload struct {
	Status       string          `json:"status"`
	Redirect     string          `json:"redirect"`
	User         *userPayload    `json:"user,omitempty"`
	Tenant       *tenantPayload  `json:"tenant,omitempty"`
	Tenants      []tenantPayload `json:"tenants,omitempty"`
	AccessToken  string          `json:"access_token,omitempty"`
	PendingToken string          `json:"pending_token,omitempty"`
	ExpiresAt    string          `json:"expires_at,omitempty"`
}

func toUserPayload(u *userdomain.User) *userPayload {
	if u == nil {
		return nil
	}
	return &userPayload{
		ID:        u.ID,
		Email:     u.Email,
		Provider:  string(u.Provider),
		MFAMethod: string(u.MFAMethod),
	}
}

func toTenantPayload(t *tenantdomain.Tenant) *tenantPayload {
	if t == nil {
		return nil
	}
	return &tenantPayload{ID: t.ID, Name: t.Name}
}

func toOutcomePayload(o *authdomain.Outcome) outcomePayload {
	p := outcomePayload{
		Status:       string(o.Status),
		Redirect:     o.Redirect,
		User:         toUserPayload(o.User),
		Tenant:       toTenantPayload(o.Tenant),
		AccessToken:  o.AccessToken,
		PendingToken: o.PendingToken,
	}
	for _, t := range o.Tenants {
		if tp := toTenantPayload(t); tp != nil {
			p.Tenants = append(p.Tenants, *tp)
		}
	}
	if !o.ExpiresAt.IsZero() {
		p.ExpiresAt = o.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return p
}

// Login handles POST /v1/auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomePayload(out))
}

// LoginOAuth handles POST /v1/auth/oauth. The gateway in front of the console
// completes the OAuth2 code exchange and forwards the verified email and subject.
func (a *API) LoginOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := a.auth.LoginWithOAuth(r.Context(), req.Email, req.Subject)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomePayload(out))
}

// SelectTenant handles POST /v1/auth/tenant. The user id comes from the
// validated pending or session token, never from the request body.
func (a *API) SelectTenant(w http.ResponseWriter, r *http.Request) {
	userID, ok := interceptors.GetUserID(r.Context())
	if !ok || userID == "" {
		respondError(w, http.StatusUnauthorized, "session required")
		return
	}
	var req selectTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		respondError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	out, err := a.auth.SelectTenant(r.Context(), userID, req.TenantID)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomePayload(out))
}

// VerifyMFA handles POST /v1/auth/mfa/verify. The user id comes from the
// validated pending or session token, never from the request body.
func (a *API) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := interceptors.GetUserID(r.Context())
	if !ok || userID == "" {
		respondError(w, http.StatusUnauthorized, "session required")
		return
	}
	var req verifyMFARequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}
	out, err := a.auth.VerifyMFA(r.Context(), userID, req.Code, userdomain.MFAMethod(req.Method))
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomePayload(out))
}
