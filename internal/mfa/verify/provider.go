package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Verification is the provider's record of a sent challenge.
type Verification struct {
	ID     string
	Status string
}

// Provider is the external verification capability used for the sms, voice,
// and email channels. Implementations must be safe for concurrent use.
type Provider interface {
	SendVerification(ctx context.Context, destination, channel string) (*Verification, error)
	CheckVerification(ctx context.Context, destination, code string) (bool, error)
}

// TwilioVerifyClient sends and checks verification challenges via the Twilio
// Verify API. Codes are generated and checked provider-side; they are never
// seen or logged here.
type TwilioVerifyClient struct {
	AccountSID string
	AuthToken  string
	ServiceSID string
	BaseURL    string
	HTTPClient *http.Client
}

// NewTwilioVerifyClient returns a client for the given Verify service.
// baseURL is overridable for tests; empty selects the public API.
func NewTwilioVerifyClient(accountSID, authToken, serviceSID, baseURL string) *TwilioVerifyClient {
	if baseURL == "" {
		baseURL = "https://verify.twilio.com/v2"
	}
	return &TwilioVerifyClient{
		AccountSID: accountSID,
		AuthToken:  authToken,
		ServiceSID: serviceSID,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type verifyResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// SendVerification starts a challenge to destination over the given channel
// ("sms", "call", or "email").
func (c *TwilioVerifyClient) SendVerification(ctx context.Context, destination, channel string) (*Verification, error) {
	form := url.Values{}
	form.Set("To", destination)
	form.Set("Channel", channel)
	out, err := c.post(ctx, "/Services/"+c.ServiceSID+"/Verifications", form)
	if err != nil {
		return nil, err
	}
	return &Verification{ID: out.SID, Status: out.Status}, nil
}

// CheckVerification reports whether code matches the pending challenge for destination.
func (c *TwilioVerifyClient) CheckVerification(ctx context.Context, destination, code string) (bool, error) {
	form := url.Values{}
	form.Set("To", destination)
	form.Set("Code", code)
	out, err := c.post(ctx, "/Services/"+c.ServiceSID+"/VerificationCheck", form)
	if err != nil {
		return false, err
	}
	return out.Status == "approved", nil
}

func (c *TwilioVerifyClient) post(ctx context.Context, path string, form url.Values) (*verifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.AccountSID, c.AuthToken)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("verify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("verify: decode response: %w", err)
	}
	return &out, nil
}
