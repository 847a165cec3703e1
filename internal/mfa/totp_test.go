package mfa

import (
	"strings"
	"testing"
	"time"
)

// rfcSecret is the RFC 6238 appendix B shared secret ("12345678901234567890")
// in unpadded base32.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestVerifyTOTP_RFC6238Vectors(t *testing.T) {
	// Appendix B values truncated to six digits.
	vectors := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}
	for _, v := range vectors {
		ok, err := verifyTOTPAt(rfcSecret, v.code, time.Unix(v.unix, 0))
		if err != nil {
			t.Fatalf("verify at %d: %v", v.unix, err)
		}
		if !ok {
			t.Errorf("code %s not accepted at unix=%d", v.code, v.unix)
		}
	}
}

func TestVerifyTOTP_SkewWindow(t *testing.T) {
	now := time.Unix(1111111109, 0)
	raw, err := b32.DecodeString(rfcSecret)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	base := now.Unix() / totpPeriod

	for step := -totpSkew; step <= totpSkew; step++ {
		code := hotpCode(raw, base+int64(step))
		ok, err := verifyTOTPAt(rfcSecret, code, now)
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if !ok {
			t.Errorf("code for step %d rejected, skew window should accept it", step)
		}
	}
	for _, step := range []int64{-(totpSkew + 1), totpSkew + 1} {
		code := hotpCode(raw, base+step)
		ok, _ := verifyTOTPAt(rfcSecret, code, now)
		if ok {
			t.Errorf("code for step %d accepted outside skew window", step)
		}
	}
}

func TestVerifyTOTP_RejectsMalformedCodes(t *testing.T) {
	now := time.Unix(1111111109, 0)
	for _, code := range []string{"", "12345", "1234567", "12a456", "abcdef"} {
		ok, err := verifyTOTPAt(rfcSecret, code, now)
		if err != nil {
			t.Fatalf("code %q: %v", code, err)
		}
		if ok {
			t.Errorf("malformed code %q accepted", code)
		}
	}
}

func TestVerifyTOTP_MalformedSecretIsFalseNotError(t *testing.T) {
	ok, err := verifyTOTPAt("not-base32!!", "123456", time.Now())
	if err != nil {
		t.Fatalf("malformed secret must not error: %v", err)
	}
	if ok {
		t.Fatal("malformed secret must not verify")
	}
}

func TestVerifyTOTP_EmptySecretIsError(t *testing.T) {
	if _, err := VerifyTOTP("", "123456"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerifyTOTP_TrimsAndAcceptsLowercaseSecret(t *testing.T) {
	ok, err := verifyTOTPAt(strings.ToLower(rfcSecret), " 287082 ", time.Unix(59, 0))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("lowercase secret with padded code should verify")
	}
}

func TestGenerateTOTPSecret(t *testing.T) {
	s, err := GenerateTOTPSecret("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	if s.Secret == "" {
		t.Fatal("empty secret")
	}
	if strings.Contains(s.Secret, "=") {
		t.Fatalf("secret %q carries base32 padding", s.Secret)
	}
	if !strings.HasPrefix(s.URI, "otpauth://totp/") {
		t.Fatalf("URI %q missing otpauth scheme", s.URI)
	}
	for _, part := range []string{"secret=" + s.Secret, "issuer=Admin+Console", "digits=6", "period=30", "algorithm=SHA1"} {
		if !strings.Contains(s.URI, part) {
			t.Errorf("URI %q missing %q", s.URI, part)
		}
	}

	other, err := GenerateTOTPSecret("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	if other.Secret == s.Secret {
		t.Fatal("secrets must be random per call")
	}
}

func TestGenerateThenVerifyRoundTrip(t *testing.T) {
	s, err := GenerateTOTPSecret("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	raw, err := b32.DecodeString(s.Secret)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	now := time.Now()
	code := hotpCode(raw, now.Unix()/totpPeriod)

	ok, err := verifyTOTPAt(s.Secret, code, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("current code for a fresh secret must verify")
	}
}

func TestQRCode(t *testing.T) {
	s, err := GenerateTOTPSecret("alice@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret: %v", err)
	}
	png, err := QRCode(s.URI)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatal("output is not a PNG")
	}
}
