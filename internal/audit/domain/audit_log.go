package domain

import "time"

// AuditLog is one recorded security-relevant event (login, MFA, role change),
// scoped to a tenant where one applies.
type AuditLog struct {
	ID        string
	TenantID  string
	UserID    string
	Action    string // e.g. login_success, mfa_required, role_assigned
	Resource  string // e.g. auth, rbac
	Metadata  string // free-form JSON, may be empty
	CreatedAt time.Time
}
