package domain

import "time"

// Membership links a user to a tenant. It never implies a role; roles are a
// separate relation managed by the RBAC engine.
type Membership struct {
	ID        string
	UserID    string
	TenantID  string
	CreatedAt time.Time
}
