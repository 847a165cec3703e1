package domain

import (
	"errors"
	"time"
)

// User is the core identity record for the admin console.
type User struct {
	ID           string
	Email        string // stored lowercase
	PasswordHash string // empty for OAuth-only users
	Provider     Provider
	// ProviderSubject is the subject id reported by the OAuth provider; empty for local users.
	ProviderSubject string
	Status          UserStatus

	// MFA enrollment state. Method selects which proof verification dispatches to.
	MFAMethod         MFAMethod
	Phone             string
	CountryCode       string
	TOTPSecret        string // base32, empty until TOTP setup
	MFASetupCompleted bool

	LastLoginAt *time.Time
	CreatedAt   time.Time // anchors the MFA grace-period window
	UpdatedAt   time.Time
}

type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderOAuth2 Provider = "oauth2"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

type MFAMethod string

const (
	MFAMethodTOTP  MFAMethod = "totp"
	MFAMethodSMS   MFAMethod = "sms"
	MFAMethodVoice MFAMethod = "voice"
	MFAMethodEmail MFAMethod = "email"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Provider == "" {
		u.Provider = ProviderLocal
	}
	if u.Provider != ProviderLocal && u.Provider != ProviderOAuth2 {
		return errors.New("unsupported provider")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// IsOAuth reports whether the user authenticates through an OAuth2 provider.
// OAuth users never pass through the MFA gates.
func (u *User) IsOAuth() bool {
	return u.Provider == ProviderOAuth2
}
