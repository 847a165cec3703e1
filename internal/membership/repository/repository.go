package repository

import (
	"context"

	"tenant-admin-console/internal/membership/domain"
)

// Repository defines persistence for user-tenant memberships.
type Repository interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	// FindOrCreate atomically ensures a membership row exists for the pair and
	// returns it. Concurrent first logins by the same user must not produce
	// duplicates; the (user, tenant) pair is unique.
	FindOrCreate(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	Delete(ctx context.Context, userID, tenantID string) error
}
