package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tenant-admin-console/internal/membership/domain"
	"tenant-admin-console/internal/server/interceptors"
)

// TenantMembershipGetter returns a user's membership in a tenant. Used by the
// guards to resolve the caller.
type TenantMembershipGetter interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
}

// RequireTenantMember ensures the caller is authenticated and is a member of the context tenant.
// Returns (tenantID, userID, nil) on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireTenantMember(ctx context.Context, getter TenantMembershipGetter) (tenantID, userID string, err error) {
	tenantID, okTenant := interceptors.GetTenantID(ctx)
	userID, okUser := interceptors.GetUserID(ctx)
	if !okTenant || tenantID == "" || !okUser || userID == "" {
		return "", "", status.Error(codes.Unauthenticated, "tenant and user context required")
	}
	m, err := getter.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		return "", "", status.Error(codes.Internal, "failed to resolve membership")
	}
	if m == nil {
		return "", "", status.Error(codes.PermissionDenied, "not a member of this tenant")
	}
	return tenantID, userID, nil
}
