// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"tenant-admin-console/internal/config"
	"tenant-admin-console/internal/db"
	membershipdomain "tenant-admin-console/internal/membership/domain"
	membershiprepo "tenant-admin-console/internal/membership/repository"
	"tenant-admin-console/internal/rbac/engine"
	rbacrepo "tenant-admin-console/internal/rbac/repository"
	"tenant-admin-console/internal/security"
	tenantdomain "tenant-admin-console/internal/tenant/domain"
	userdomain "tenant-admin-console/internal/user/domain"
	userrepo "tenant-admin-console/internal/user/repository"

	"github.com/google/uuid"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "password123"
	adminRoleName = "Super Admin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	roles := rbacrepo.NewPostgresRoleRepository(conn)
	assignments := rbacrepo.NewPostgresAssignmentRepository(conn)
	rbacEngine := engine.New(roles, assignments, users)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", adminEmail)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(adminPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Provider:     userdomain.ProviderLocal,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create admin user: %v", err)
	}

	if _, err := memberships.FindOrCreate(ctx, &membershipdomain.Membership{
		ID:        uuid.New().String(),
		UserID:    admin.ID,
		TenantID:  tenantdomain.DefaultTenantID,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create admin membership: %v", err)
	}

	created, err := rbacEngine.InitializeTenantRoles(ctx, tenantdomain.DefaultTenantID)
	if err != nil {
		log.Fatalf("initialize tenant roles: %v", err)
	}

	superAdmin, err := roles.GetByTenantAndName(ctx, tenantdomain.DefaultTenantID, adminRoleName)
	if err != nil {
		log.Fatalf("load %s role: %v", adminRoleName, err)
	}
	if superAdmin == nil {
		log.Fatalf("%s role missing after initialization", adminRoleName)
	}
	if _, err := rbacEngine.AssignRole(ctx, admin.ID, tenantdomain.DefaultTenantID, superAdmin.ID, ""); err != nil {
		log.Fatalf("assign %s: %v", adminRoleName, err)
	}

	log.Printf("Seeded admin %s (%d roles initialized). Login with %s / %s", admin.ID, len(created), adminEmail, adminPassword)
}
