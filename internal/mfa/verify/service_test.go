package verify

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	userdomain "tenant-admin-console/internal/user/domain"
)

type sentChallenge struct {
	destination string
	channel     string
}

type fakeProvider struct {
	mu      sync.Mutex
	sent    []sentChallenge
	checked []string
	approve bool
	err     error
}

func (p *fakeProvider) SendVerification(_ context.Context, destination, channel string) (*Verification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.sent = append(p.sent, sentChallenge{destination: destination, channel: channel})
	return &Verification{ID: "VE123", Status: "pending"}, nil
}

func (p *fakeProvider) CheckVerification(_ context.Context, destination, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	p.checked = append(p.checked, destination+":"+code)
	return p.approve, nil
}

func TestSendChallenge_DispatchesByMethod(t *testing.T) {
	provider := &fakeProvider{}
	svc := NewService(provider)
	ctx := context.Background()

	tests := []struct {
		name        string
		user        *userdomain.User
		destination string
		channel     string
	}{
		{
			"sms",
			&userdomain.User{MFAMethod: userdomain.MFAMethodSMS, Phone: "5551234", CountryCode: "1"},
			"+15551234", "sms",
		},
		{
			"voice",
			&userdomain.User{MFAMethod: userdomain.MFAMethodVoice, Phone: "+15551234"},
			"+15551234", "call",
		},
		{
			"email",
			&userdomain.User{MFAMethod: userdomain.MFAMethodEmail, Email: "u@example.com"},
			"u@example.com", "email",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider.sent = nil
			v, err := svc.SendChallenge(ctx, tc.user)
			if err != nil {
				t.Fatalf("SendChallenge: %v", err)
			}
			if v.Status != "pending" {
				t.Fatalf("Status = %q, want pending", v.Status)
			}
			want := []sentChallenge{{destination: tc.destination, channel: tc.channel}}
			if !reflect.DeepEqual(provider.sent, want) {
				t.Fatalf("sent = %+v, want %+v", provider.sent, want)
			}
		})
	}
}

func TestSendChallenge_TOTPNeedsNoProvider(t *testing.T) {
	svc := NewService(nil)

	v, err := svc.SendChallenge(context.Background(), &userdomain.User{MFAMethod: userdomain.MFAMethodTOTP})
	if err != nil {
		t.Fatalf("SendChallenge: %v", err)
	}
	if v.Status != "pending" {
		t.Fatalf("Status = %q, want pending", v.Status)
	}
}

func TestSendChallenge_UnknownMethod(t *testing.T) {
	svc := NewService(&fakeProvider{})

	_, err := svc.SendChallenge(context.Background(), &userdomain.User{MFAMethod: "carrier-pigeon"})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("got %v, want ErrUnsupportedMethod", err)
	}
}

func TestSendChallenge_NoProviderForExternalChannels(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	users := []*userdomain.User{
		{MFAMethod: userdomain.MFAMethodSMS, Phone: "5551234"},
		{MFAMethod: userdomain.MFAMethodVoice, Phone: "5551234"},
		{MFAMethod: userdomain.MFAMethodEmail, Email: "u@example.com"},
	}
	for _, u := range users {
		if _, err := svc.SendChallenge(ctx, u); !errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("method %s: got %v, want ErrProviderUnavailable", u.MFAMethod, err)
		}
	}
}

func TestVerifyToken_TOTPCheckedLocally(t *testing.T) {
	// nil provider: TOTP must still work without an external channel.
	svc := NewService(nil)
	u := &userdomain.User{TOTPSecret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"}

	ok, err := svc.VerifyToken(context.Background(), u, "000000", userdomain.MFAMethodTOTP)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if ok {
		t.Fatal("arbitrary code must not verify")
	}
}

func TestVerifyToken_DelegatesToProvider(t *testing.T) {
	provider := &fakeProvider{approve: true}
	svc := NewService(provider)
	u := &userdomain.User{Phone: "5551234", CountryCode: "44", Email: "u@example.com"}
	ctx := context.Background()

	ok, err := svc.VerifyToken(ctx, u, "123456", userdomain.MFAMethodSMS)
	if err != nil || !ok {
		t.Fatalf("sms check: ok=%v err=%v", ok, err)
	}
	ok, err = svc.VerifyToken(ctx, u, "654321", userdomain.MFAMethodEmail)
	if err != nil || !ok {
		t.Fatalf("email check: ok=%v err=%v", ok, err)
	}
	want := []string{"+445551234:123456", "u@example.com:654321"}
	if !reflect.DeepEqual(provider.checked, want) {
		t.Fatalf("checked = %v, want %v", provider.checked, want)
	}
}

func TestVerifyToken_ProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: errors.New("twilio down")}
	svc := NewService(provider)

	_, err := svc.VerifyToken(context.Background(), &userdomain.User{Phone: "5551234"}, "123456", userdomain.MFAMethodSMS)
	if err == nil || err.Error() != "twilio down" {
		t.Fatalf("got %v, want provider error", err)
	}
}

func TestVerifyToken_NoProvider(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()
	u := &userdomain.User{Phone: "5551234", Email: "u@example.com"}

	for _, m := range []userdomain.MFAMethod{userdomain.MFAMethodSMS, userdomain.MFAMethodVoice, userdomain.MFAMethodEmail} {
		if _, err := svc.VerifyToken(ctx, u, "123456", m); !errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("method %s: got %v, want ErrProviderUnavailable", m, err)
		}
	}
	if _, err := svc.VerifyToken(ctx, u, "123456", "carrier-pigeon"); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("got %v, want ErrUnsupportedMethod", err)
	}
}

func TestAvailableMethods(t *testing.T) {
	full := &userdomain.User{Phone: "5551234", Email: "u@example.com"}

	tests := []struct {
		name string
		svc  *Service
		user *userdomain.User
		want []userdomain.MFAMethod
	}{
		{
			"no provider",
			NewService(nil),
			full,
			[]userdomain.MFAMethod{userdomain.MFAMethodTOTP},
		},
		{
			"provider, phone and email",
			NewService(&fakeProvider{}),
			full,
			[]userdomain.MFAMethod{userdomain.MFAMethodTOTP, userdomain.MFAMethodSMS, userdomain.MFAMethodVoice, userdomain.MFAMethodEmail},
		},
		{
			"provider, email only",
			NewService(&fakeProvider{}),
			&userdomain.User{Email: "u@example.com"},
			[]userdomain.MFAMethod{userdomain.MFAMethodTOTP, userdomain.MFAMethodEmail},
		},
		{
			"provider, nothing enrolled",
			NewService(&fakeProvider{}),
			&userdomain.User{},
			[]userdomain.MFAMethod{userdomain.MFAMethodTOTP},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.svc.AvailableMethods(tc.user); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFormatDestination(t *testing.T) {
	tests := []struct {
		phone, country, want string
	}{
		{"5551234", "1", "+15551234"},
		{"5551234", "+44", "+445551234"},
		{"+15551234", "1", "+15551234"},
		{"5551234", "", "5551234"},
		{" 5551234 ", " 1 ", "+15551234"},
	}
	for _, tc := range tests {
		if got := formatDestination(tc.phone, tc.country); got != tc.want {
			t.Errorf("formatDestination(%q, %q) = %q, want %q", tc.phone, tc.country, got, tc.want)
		}
	}
}
