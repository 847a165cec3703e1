package httpapi

import (
	"net/http"

	"tenant-admin-console/internal/server/interceptors"
	userdomain "tenant-admin-console/internal/user/domain"
)

// loadUser resolves the authenticated caller from the request context. The
// MFA endpoints never accept a user id from the request itself.
func (a *API) loadUser(w http.ResponseWriter, r *http.Request) (*userdomain.User, bool) {
	userID, ok := interceptors.GetUserID(r.Context())
	if !ok || userID == "" {
		respondError(w, http.StatusUnauthorized, "session required")
		return nil, false
	}
	user, err := a.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return user, true
}

// GenerateTOTPSecret handles POST /v1/mfa/totp/secret: mints a fresh shared
// secret and provisioning URI for authenticator enrollment.
func (a *API) GenerateTOTPSecret(w http.ResponseWriter, r *http.Request) {
	user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	secret, err := a.mfa.GenerateTOTPSecret(user.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"secret": secret.Secret,
		"uri":    secret.URI,
	})
}

// TOTPQRCode handles GET /v1/mfa/totp/qr?uri=...: renders the provisioning URI
// as a PNG QR code.
func (a *API) TOTPQRCode(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		respondError(w, http.StatusBadRequest, "uri is required")
		return
	}
	png, err := a.mfa.QRCode(uri)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not encode uri")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// SendChallenge handles POST /v1/mfa/challenge: dispatches a verification
// challenge over the user's configured method.
func (a *API) SendChallenge(w http.ResponseWriter, r *http.Request) {
	user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	v, err := a.mfa.SendChallenge(r.Context(), user)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     v.ID,
		"status": v.Status,
	})
}

// AvailableMethods handles GET /v1/mfa/methods: lists the MFA methods the
// authenticated caller can actually complete.
func (a *API) AvailableMethods(w http.ResponseWriter, r *http.Request) {
	user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	methods := a.mfa.AvailableMethods(user)
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": out})
}
