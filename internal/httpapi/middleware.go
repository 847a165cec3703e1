package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"tenant-admin-console/internal/server/interceptors"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = map[string]bool{
	"/healthz":             true,
	"/readyz":              true,
	"/v1/auth/login":       true,
	"/v1/auth/oauth":       true,
	"/v1/rbac/permissions": true,
}

// pendingPaths finish a halted login. They accept the short-lived pending
// token minted on a halt outcome as well as a full session token, so an MFA
// or tenant-selection step can never be driven with a bare user id.
var pendingPaths = map[string]bool{
	"/v1/auth/tenant":     true,
	"/v1/auth/mfa/verify": true,
	"/v1/mfa/totp/secret": true,
	"/v1/mfa/totp/qr":     true,
	"/v1/mfa/challenge":   true,
	"/v1/mfa/methods":     true,
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Logging: method, path, status, duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, sw.code, time.Since(start))
	})
}

// withAuth validates the Bearer token on protected paths and stores the
// caller identity in the request context. Login and health paths stay
// public; paths that resume a halted login also accept a pending token.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractBearerToken(r.Header.Get(authHeader))
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.tokens.Validate(token)
		if err != nil && pendingPaths[r.URL.Path] {
			claims, err = a.tokens.ValidatePending(token)
		}
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := interceptors.WithIdentity(r.Context(), claims.Subject, claims.TenantID, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	return strings.TrimSpace(header[len(bearer):]), true
}
