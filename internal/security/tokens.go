package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or signed
// with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// Token scopes. A session token grants API access; a pending token only
// proves that credentials were verified and lets the holder finish the
// remaining login steps (tenant selection, MFA setup and verification).
const (
	ScopeSession = "session"
	ScopePending = "pending"
)

// pendingTTL bounds how long a halted login can be resumed.
const pendingTTL = 10 * time.Minute

// SessionClaims holds the JWT claims of a console session token. Subject is
// the user id; TenantID is the active tenant the session is scoped to.
type SessionClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Scope    string `json:"scope"`
}

// TokenProvider issues and validates console session tokens using RS256 or
// ES256 depending on the configured key pair.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private
// key. issuer and audience are set on claims and validated on parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// Issue signs a session token for the user scoped to the given tenant.
// Returns the token string and its expiry.
func (p *TokenProvider) Issue(userID, tenantID string) (string, time.Time, error) {
	return p.sign(userID, tenantID, ScopeSession, p.ttl)
}

// IssuePending signs a short-lived pending token for a user whose
// credentials were verified but whose login halted (MFA gate or tenant
// selection). The token carries no tenant and is rejected by Validate.
func (p *TokenProvider) IssuePending(userID string) (string, time.Time, error) {
	return p.sign(userID, "", ScopePending, pendingTTL)
}

func (p *TokenProvider) sign(userID, tenantID, scope string, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: tenantID,
		Scope:    scope,
	}
	method, err := p.signingMethod()
	if err != nil {
		return "", time.Time{}, err
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses a session token and returns its claims. Returns
// ErrInvalidToken for signature, issuer, audience, expiry, or scope
// failures; a pending token never validates as a session.
func (p *TokenProvider) Validate(token string) (*SessionClaims, error) {
	return p.parse(token, ScopeSession)
}

// ValidatePending parses a pending token and returns its claims. Session
// tokens are rejected: a full session must not stand in for a halted login.
func (p *TokenProvider) ValidatePending(token string) (*SessionClaims, error) {
	return p.parse(token, ScopePending)
}

func (p *TokenProvider) parse(token, scope string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		default:
			return nil, ErrInvalidToken
		}
	}, jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Scope != scope {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) signingMethod() (jwt.SigningMethod, error) {
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		return jwt.SigningMethodES256, nil
	default:
		return nil, ErrInvalidKey
	}
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
