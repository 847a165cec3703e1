package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "console-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "console-auth")
	}
	if cfg.JWTAudience != "console-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "console-api")
	}
	if cfg.JWTSessionTTL != "1h" {
		t.Errorf("JWTSessionTTL = %q, want %q", cfg.JWTSessionTTL, "1h")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.TelemetryKafkaTopic != "console-audit" {
		t.Errorf("TelemetryKafkaTopic = %q, want %q", cfg.TelemetryKafkaTopic, "console-audit")
	}
	if cfg.TwilioConfigured() {
		t.Error("TwilioConfigured should be false by default")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to 12
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("GRPC_ADDR", ":8080")
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_PartialTwilioConfigRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("TWILIO_ACCOUNT_SID", "AC123")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should reject partial Twilio config")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_FullTwilioConfig(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	os.Setenv("TWILIO_AUTH_TOKEN", "secret")
	os.Setenv("TWILIO_VERIFY_SERVICE_SID", "VA456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.TwilioConfigured() {
		t.Error("TwilioConfigured should be true")
	}
}

func TestSessionTTL_ValidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("JWT_SESSION_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.SessionTTL(); ttl != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want %v", ttl, 30*time.Minute)
	}
}

func TestSessionTTL_InvalidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("JWT_SESSION_TTL", "invalid")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.SessionTTL(); ttl != time.Hour {
		t.Errorf("SessionTTL = %v, want %v (default)", ttl, time.Hour)
	}
}

func TestSessionTTL_NegativeDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("JWT_SESSION_TTL", "-5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.SessionTTL(); ttl != time.Hour {
		t.Errorf("SessionTTL = %v, want %v (default)", ttl, time.Hour)
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	cfg := &Config{TelemetryKafkaBrokers: "localhost:9092, broker2:9092 ,"}
	got := cfg.TelemetryKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("TelemetryKafkaBrokersList = %v", got)
	}

	empty := &Config{}
	if got := empty.TelemetryKafkaBrokersList(); got != nil {
		t.Errorf("expected nil for empty brokers, got %v", got)
	}
}
