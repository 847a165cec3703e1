package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"
)

func ecdsaProvider(t *testing.T, issuer, audience string, ttl time.Duration) *TokenProvider {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewTokenProvider(key, &key.PublicKey, issuer, audience, ttl)
}

func TestTokenProvider_IssueAndValidate_ECDSA(t *testing.T) {
	p := ecdsaProvider(t, "console-auth", "console-api", time.Hour)

	token, expiresAt, err := p.Issue("u1", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if until := time.Until(expiresAt); until < 55*time.Minute || until > time.Hour {
		t.Fatalf("expiry %v not within the configured ttl", until)
	}

	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" || claims.TenantID != "t1" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti")
	}
}

func TestTokenProvider_IssueAndValidate_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	p := NewTokenProvider(key, &key.PublicKey, "console-auth", "console-api", time.Hour)

	token, _, err := p.Issue("u1", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("Subject = %q, want u1", claims.Subject)
	}
}

func TestTokenProvider_RejectsWrongKey(t *testing.T) {
	issuing := ecdsaProvider(t, "console-auth", "console-api", time.Hour)
	other := ecdsaProvider(t, "console-auth", "console-api", time.Hour)

	token, _, err := issuing.Issue("u1", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsIssuerAndAudienceMismatch(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issuing := NewTokenProvider(key, &key.PublicKey, "console-auth", "console-api", time.Hour)
	token, _, err := issuing.Issue("u1", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wrongIssuer := NewTokenProvider(key, &key.PublicKey, "someone-else", "console-api", time.Hour)
	if _, err := wrongIssuer.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("issuer mismatch: got %v, want ErrInvalidToken", err)
	}
	wrongAudience := NewTokenProvider(key, &key.PublicKey, "console-auth", "other-api", time.Hour)
	if _, err := wrongAudience.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("audience mismatch: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsExpiredToken(t *testing.T) {
	p := ecdsaProvider(t, "console-auth", "console-api", -time.Minute)

	token, _, err := p.Issue("u1", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsGarbage(t *testing.T) {
	p := ecdsaProvider(t, "console-auth", "console-api", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := p.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: got %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestTokenProvider_IssuePendingAndValidatePending(t *testing.T) {
	p := ecdsaProvider(t, "console-auth", "console-api", time.Hour)

	token, expiresAt, err := p.IssuePending("u1")
	if err != nil {
		t.Fatalf("IssuePending: %v", err)
	}
	claims, err := p.ValidatePending(token)
	if err != nil {
		t.Fatalf("ValidatePending: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q, want u1", claims.Subject)
	}
	if claims.TenantID != "" {
		t.Errorf("tenant must not be set before selection, got %q", claims.TenantID)
	}
	if !expiresAt.After(time.Now()) || expiresAt.After(time.Now().Add(11*time.Minute)) {
		t.Errorf("unexpected pending expiry %v", expiresAt)
	}
}

func TestTokenProvider_PendingTokenIsNotASession(t *testing.T) {
	p := ecdsaProvider(t, "console-auth", "console-api", time.Hour)

	pending, _, err := p.IssuePending("u1")
	if err != nil {
		t.Fatalf("IssuePending: %v", err)
	}
	if _, err := p.Validate(pending); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(pending): got %v, want ErrInvalidToken", err)
	}

	session, _, err := p.Issue("u1", "t1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.ValidatePending(session); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ValidatePending(session): got %v, want ErrInvalidToken", err)
	}
}
