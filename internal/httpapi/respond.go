package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authservice "tenant-admin-console/internal/auth/service"
	"tenant-admin-console/internal/mfa/verify"
	"tenant-admin-console/internal/rbac/engine"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// respondCoreError maps the core's sentinel errors to HTTP codes. Unknown
// errors become 500 with a generic message so internals never leak.
func respondCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authservice.ErrInvalidCredentials),
		errors.Is(err, authservice.ErrInvalidMFAToken):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authservice.ErrNotTenantMember):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, authservice.ErrUserNotFound),
		errors.Is(err, authservice.ErrTenantNotFound),
		errors.Is(err, engine.ErrRoleNotFound),
		errors.Is(err, engine.ErrAssignmentNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrRoleExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrSystemRole),
		errors.Is(err, engine.ErrRoleCycle),
		errors.Is(err, engine.ErrInvalidPermission):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, verify.ErrProviderUnavailable):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, verify.ErrUnsupportedMethod):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authservice.ErrNoDefaultTenant),
		errors.Is(err, authservice.ErrOrganizationNotConfigured):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondStatusError maps the platform guards' gRPC status errors to HTTP.
func respondStatusError(w http.ResponseWriter, err error) {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		respondError(w, http.StatusUnauthorized, st.Message())
	case codes.PermissionDenied:
		respondError(w, http.StatusForbidden, st.Message())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
