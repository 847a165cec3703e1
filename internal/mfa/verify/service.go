// Package verify validates submitted MFA proofs. TOTP is checked locally
// against the user's shared secret; sms, voice, and email challenges are
// delegated to an external verification provider.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tenant-admin-console/internal/mfa"
	userdomain "tenant-admin-console/internal/user/domain"
)

// Sentinel errors for the verification service.
var (
	// ErrProviderUnavailable means the external verification capability is not
	// configured. Callers surface it as a client-facing configuration error;
	// it must never crash the process.
	ErrProviderUnavailable = errors.New("verification provider not configured")
	ErrUnsupportedMethod   = errors.New("unsupported mfa method")
)

// Service validates MFA proofs and generates TOTP enrollment material.
// provider may be nil when no external channel is configured; TOTP keeps
// working without it.
type Service struct {
	provider Provider
}

// NewService returns a Service using the given provider. Pass nil when no
// external verification provider is configured.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// ProviderConfigured reports whether the external verification capability is
// available, without attempting any call.
func (s *Service) ProviderConfigured() bool {
	return s.provider != nil
}

// GenerateTOTPSecret returns a fresh shared secret and provisioning URI for
// the account label (typically the user email).
func (s *Service) GenerateTOTPSecret(account string) (*mfa.TOTPSecret, error) {
	return mfa.GenerateTOTPSecret(account)
}

// QRCode renders the provisioning URI as a PNG.
func (s *Service) QRCode(uri string) ([]byte, error) {
	return mfa.QRCode(uri)
}

// SendSMSVerification starts an SMS challenge to the phone number.
func (s *Service) SendSMSVerification(ctx context.Context, phone, countryCode string) (*Verification, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	return s.provider.SendVerification(ctx, formatDestination(phone, countryCode), "sms")
}

// SendVoiceVerification starts a voice-call challenge to the phone number.
func (s *Service) SendVoiceVerification(ctx context.Context, phone, countryCode string) (*Verification, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	return s.provider.SendVerification(ctx, formatDestination(phone, countryCode), "call")
}

// SendEmailVerification starts an email challenge.
func (s *Service) SendEmailVerification(ctx context.Context, email string) (*Verification, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	return s.provider.SendVerification(ctx, email, "email")
}

// SendChallenge dispatches the send for the user's configured method. TOTP
// needs no challenge and reports success immediately.
func (s *Service) SendChallenge(ctx context.Context, u *userdomain.User) (*Verification, error) {
	switch u.MFAMethod {
	case userdomain.MFAMethodTOTP:
		return &Verification{Status: "pending"}, nil
	case userdomain.MFAMethodSMS:
		return s.SendSMSVerification(ctx, u.Phone, u.CountryCode)
	case userdomain.MFAMethodVoice:
		return s.SendVoiceVerification(ctx, u.Phone, u.CountryCode)
	case userdomain.MFAMethodEmail:
		return s.SendEmailVerification(ctx, u.Email)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, u.MFAMethod)
	}
}

// VerifyToken checks the submitted code for the given method. A wrong code is
// a false result, not an error; errors mean the check itself could not run.
func (s *Service) VerifyToken(ctx context.Context, u *userdomain.User, code string, method userdomain.MFAMethod) (bool, error) {
	switch method {
	case userdomain.MFAMethodTOTP:
		return mfa.VerifyTOTP(u.TOTPSecret, code)
	case userdomain.MFAMethodSMS, userdomain.MFAMethodVoice:
		if s.provider == nil {
			return false, ErrProviderUnavailable
		}
		return s.provider.CheckVerification(ctx, formatDestination(u.Phone, u.CountryCode), code)
	case userdomain.MFAMethodEmail:
		if s.provider == nil {
			return false, ErrProviderUnavailable
		}
		return s.provider.CheckVerification(ctx, u.Email, code)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
}

// AvailableMethods lists the MFA methods the user can currently enroll or
// verify with. TOTP is always available; phone channels need a phone number
// and a configured provider; email needs an address and a configured provider.
func (s *Service) AvailableMethods(u *userdomain.User) []userdomain.MFAMethod {
	methods := []userdomain.MFAMethod{userdomain.MFAMethodTOTP}
	if s.provider == nil {
		return methods
	}
	if u.Phone != "" {
		methods = append(methods, userdomain.MFAMethodSMS, userdomain.MFAMethodVoice)
	}
	if u.Email != "" {
		methods = append(methods, userdomain.MFAMethodEmail)
	}
	return methods
}

func formatDestination(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	countryCode = strings.TrimSpace(countryCode)
	if countryCode == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + strings.TrimPrefix(countryCode, "+") + phone
}
