// server wires the console core and serves it over gRPC.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tenant-admin-console/internal/audit"
	auditrepo "tenant-admin-console/internal/audit/repository"
	authservice "tenant-admin-console/internal/auth/service"
	"tenant-admin-console/internal/config"
	"tenant-admin-console/internal/db"
	"tenant-admin-console/internal/httpapi"
	membershiprepo "tenant-admin-console/internal/membership/repository"
	"tenant-admin-console/internal/mfa/verify"
	orgrepo "tenant-admin-console/internal/organization/repository"
	"tenant-admin-console/internal/rbac/engine"
	rbacrepo "tenant-admin-console/internal/rbac/repository"
	"tenant-admin-console/internal/security"
	"tenant-admin-console/internal/server/interceptors"
	"tenant-admin-console/internal/telemetry"
	"tenant-admin-console/internal/telemetry/otel"
	"tenant-admin-console/internal/telemetry/producer"
	tenantrepo "tenant-admin-console/internal/tenant/repository"
	userrepo "tenant-admin-console/internal/user/repository"
)

const version = "0.1.0"

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

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTL())

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "tenant-admin-console", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
	}
	var kafkaEmitter telemetry.EventEmitter
	if kafkaProducer != nil {
		kafkaEmitter = kafkaProducer
	}
	emitter := telemetry.NewMultiEmitter(otel.NewEventEmitter(providers.LoggerProvider), kafkaEmitter)

	users := userrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	roles := rbacrepo.NewPostgresRoleRepository(conn)
	assignments := rbacrepo.NewPostgresAssignmentRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	rbacEngine := engine.New(roles, assignments, users)
	auditLogger := audit.NewLogger(audits)

	var provider verify.Provider
	if cfg.TwilioConfigured() {
		provider = verify.NewTwilioVerifyClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioVerifyServiceSID, cfg.TwilioBaseURL)
	} else if cfg.Env == "development" {
		log.Println("twilio not configured; using in-memory dev verification provider")
		provider = verify.NewDevProvider()
	}
	verifier := verify.NewService(provider)

	hasher := security.NewHasher(cfg.BcryptCost)
	authSvc := authservice.NewAuthService(users, tenants, memberships, orgs, rbacEngine, verifier, hasher, tokens, auditLogger, emitter)

	api := httpapi.New(authSvc, rbacEngine, verifier, users, memberships, tokens, conn, version)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Handler(),
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	s := grpc.NewServer(grpc.UnaryInterceptor(interceptors.AuthUnary(tokens, publicMethods())))
	healthpb.RegisterHealthServer(s, health.NewServer())

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	s.GracefulStop()
	log.Println("servers stopped")
}

// publicMethods lists full method names reachable without a Bearer token.
func publicMethods() map[string]bool {
	return map[string]bool{
		"/grpc.health.v1.Health/Check": true,
		"/grpc.health.v1.Health/Watch": true,
	}
}
