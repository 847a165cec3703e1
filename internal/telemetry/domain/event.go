package domain

import "time"

// Event is one console telemetry event (tenant-scoped, optional user).
type Event struct {
	TenantID  string
	UserID    string
	EventType string // e.g. login_success, mfa_verified, tenant_selected
	Source    string // emitting component, e.g. "auth"
	Metadata  []byte // JSON payload, may be nil
	CreatedAt time.Time
}
