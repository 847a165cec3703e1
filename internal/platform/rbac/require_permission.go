package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tenant-admin-console/internal/server/interceptors"
)

// PermissionChecker answers permission checks for a user in a tenant.
// Implemented by the RBAC engine; checks fail closed.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, tenantID, permission string) bool
}

// RequirePermission ensures the caller is authenticated and holds the given permission in the context tenant.
// Returns (tenantID, userID, nil) on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequirePermission(ctx context.Context, checker PermissionChecker, permission string) (tenantID, userID string, err error) {
	tenantID, okTenant := interceptors.GetTenantID(ctx)
	userID, okUser := interceptors.GetUserID(ctx)
	if !okTenant || tenantID == "" || !okUser || userID == "" {
		return "", "", status.Error(codes.Unauthenticated, "tenant and user context required")
	}
	if !checker.HasPermission(ctx, userID, tenantID, permission) {
		return "", "", status.Error(codes.PermissionDenied, "permission "+permission+" required")
	}
	return tenantID, userID, nil
}
