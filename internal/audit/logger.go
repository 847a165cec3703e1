// Package audit records security-relevant events. Recording is best-effort:
// a failed audit write never fails the operation being audited.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tenant-admin-console/internal/audit/domain"
	auditrepo "tenant-admin-console/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for events that precede tenant
// resolution (e.g. a failed credential check).
const SentinelTenantID = "_system"

// Logger writes a single audit event with explicit action/resource. Used by
// the auth orchestrator and the RBAC call sites.
type Logger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string)
}

// StoreLogger implements Logger on top of the audit repository.
type StoreLogger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *StoreLogger {
	return &StoreLogger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *StoreLogger) LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s/%s: %v", resource, action, err)
	}
}
