package domain

import (
	"time"

	"tenant-admin-console/internal/mfa"
)

// DefaultOrganizationID identifies the singleton organization row.
const DefaultOrganizationID = "default"

// Organization is the single global configuration scope sitting above all
// tenants. Its MFA policy is evaluated before any tenant-level policy and,
// when triggering, short-circuits tenant MFA evaluation for that login.
type Organization struct {
	ID        string
	Name      string
	MFA       mfa.Policy
	CreatedAt time.Time
	UpdatedAt time.Time
}
