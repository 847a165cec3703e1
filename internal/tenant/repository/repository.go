package repository

import (
	"context"

	"tenant-admin-console/internal/tenant/domain"
)

// Repository defines persistence for tenants.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
	Update(ctx context.Context, t *domain.Tenant) error
}
