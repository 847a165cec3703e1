package repository

import (
	"context"

	"tenant-admin-console/internal/organization/domain"
)

// Repository defines persistence for the organization singleton.
type Repository interface {
	// Get returns the singleton organization row, or nil if it has never been
	// provisioned. Callers decide whether a missing row is fatal.
	Get(ctx context.Context) (*domain.Organization, error)
	Update(ctx context.Context, o *domain.Organization) error
}
