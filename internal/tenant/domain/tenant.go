package domain

import (
	"errors"
	"time"

	"tenant-admin-console/internal/mfa"
)

// DefaultTenantID is the fallback tenant every zero-membership login is
// attached to. The row is seeded by migrations and must always exist.
const DefaultTenantID = "default"

// Tenant is a scoped environment a user can belong to.
type Tenant struct {
	ID        string // unique slug, e.g. "acme-prod"
	Name      string
	MFA       mfa.Policy
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("tenant id is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
