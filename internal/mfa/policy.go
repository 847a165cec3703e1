// Package mfa holds the multi-factor authentication decision policy and the
// TOTP shared-secret algorithm. Decisions are pure functions over the user
// record and a policy snapshot; no store access happens here.
package mfa

import (
	"time"

	userdomain "tenant-admin-console/internal/user/domain"
)

// Policy is an MFA enforcement policy. The organization carries one globally;
// each tenant carries its own, evaluated after a tenant has been selected.
type Policy struct {
	Enabled               bool
	RequiredForLocalUsers bool
	Methods               []userdomain.MFAMethod
	// GracePeriodDays is the window after account creation during which MFA
	// is not enforced. Zero disables the grace window.
	GracePeriodDays int
}

// IsRequired reports whether the user must present MFA under the given policy.
// OAuth2 users always bypass MFA regardless of policy.
func IsRequired(u *userdomain.User, p Policy) bool {
	if u == nil || u.IsOAuth() {
		return false
	}
	if !p.Enabled || !p.RequiredForLocalUsers {
		return false
	}
	if p.GracePeriodDays > 0 {
		graceEnd := u.CreatedAt.Add(time.Duration(p.GracePeriodDays) * 24 * time.Hour)
		if graceEnd.After(time.Now().UTC()) {
			return false
		}
	}
	return true
}

// IsConfigured reports whether the user has completed setup for their chosen
// MFA method. An unset or unknown method counts as not configured.
func IsConfigured(u *userdomain.User) bool {
	if u == nil || !u.MFASetupCompleted {
		return false
	}
	switch u.MFAMethod {
	case userdomain.MFAMethodTOTP:
		return u.TOTPSecret != ""
	case userdomain.MFAMethodSMS, userdomain.MFAMethodVoice:
		return u.Phone != ""
	case userdomain.MFAMethodEmail:
		return u.Email != ""
	default:
		return false
	}
}
