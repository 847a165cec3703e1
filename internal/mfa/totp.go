package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// RFC 6238 defaults: SHA-1, 6 digits, 30-second steps. Skew of 2 accepts
// codes from +-60 seconds of clock drift.
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30
	totpSkew        = 2
	totpIssuer      = "Admin Console"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPSecret holds a freshly generated shared secret and its provisioning URI.
type TOTPSecret struct {
	Secret string // base32, no padding
	URI    string // otpauth:// provisioning URI for authenticator apps
}

// GenerateTOTPSecret returns a new random shared secret and the otpauth
// provisioning URI labeled with the given account (typically the user email).
func GenerateTOTPSecret(account string) (*TOTPSecret, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	secret := b32.EncodeToString(raw)
	return &TOTPSecret{Secret: secret, URI: provisionURI(secret, account)}, nil
}

func provisionURI(secret, account string) string {
	label := url.PathEscape(totpIssuer + ":" + account)
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", totpIssuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("algorithm", "SHA1")
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyTOTP reports whether code is valid for the base32 secret at the
// current time, accepting the configured skew window. Malformed codes and
// malformed secrets report false; only an empty secret is an error.
func VerifyTOTP(secret, code string) (bool, error) {
	return verifyTOTPAt(secret, code, time.Now())
}

func verifyTOTPAt(secret, code string, now time.Time) (bool, error) {
	if secret == "" {
		return false, errors.New("empty totp secret")
	}
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isDigits(trimmed) {
		return false, nil
	}
	raw, err := b32.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return false, nil
	}
	baseCounter := now.Unix() / totpPeriod
	for step := -totpSkew; step <= totpSkew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(raw, counter)), []byte(trimmed)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

func hotpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// QRCode renders the otpauth provisioning URI as a PNG for enrollment UIs.
func QRCode(uri string) ([]byte, error) {
	return qrcode.Encode(uri, qrcode.Medium, 256)
}
