package verify

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"
)

const devChallengeTTL = 5 * time.Minute

type devChallenge struct {
	code      string
	expiresAt time.Time
}

// DevProvider is an in-process Provider for development environments without
// external verification credentials. Challenge codes are generated locally,
// held in memory with a short TTL, and written to the process log so they can
// be read during manual testing. Never use in production.
type DevProvider struct {
	mu         sync.Mutex
	challenges map[string]devChallenge
	nowF       func() time.Time
}

// NewDevProvider returns an empty in-memory provider.
func NewDevProvider() *DevProvider {
	return &DevProvider{
		challenges: make(map[string]devChallenge),
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// SendVerification generates a six-digit code for the destination and logs it.
// A repeated send replaces any pending code for the same destination.
func (p *DevProvider) SendVerification(_ context.Context, destination, channel string) (*Verification, error) {
	code, err := randomCode()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.challenges[destination] = devChallenge{code: code, expiresAt: p.nowF().Add(devChallengeTTL)}
	p.mu.Unlock()
	log.Printf("verify(dev): challenge for %s via %s: %s", destination, channel, code)
	return &Verification{ID: "dev-" + destination, Status: "pending"}, nil
}

// CheckVerification reports whether code matches the pending challenge for
// destination. A successful check consumes the challenge.
func (p *DevProvider) CheckVerification(_ context.Context, destination, code string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.challenges[destination]
	if !ok {
		return false, nil
	}
	if !c.expiresAt.After(p.nowF()) {
		delete(p.challenges, destination)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(c.code), []byte(code)) != 1 {
		return false, nil
	}
	delete(p.challenges, destination)
	return true, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
