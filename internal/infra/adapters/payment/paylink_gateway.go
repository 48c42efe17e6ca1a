// File: internal/infra/adapters/payment/paylink_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"storefront-automation/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*PaylinkGateway)(nil)

// PaylinkGateway implements adapter.CheckoutGateway against the Paylink
// hosted-checkout REST API: create a session, redirect the user, verify the
// session on callback.
type PaylinkGateway struct {
	apiKey   string
	callback string
	baseURL  string
	client   *http.Client
}

func NewPaylinkGateway(apiKey, callbackURL, baseURL string, sandbox bool) (*PaylinkGateway, error) {
	if apiKey == "" {
		return nil, errors.New("api key empty")
	}
	if _, err := url.Parse(callbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	if baseURL == "" {
		baseURL = "https://api.paylink.example/v1"
		if sandbox {
			baseURL = "https://sandbox.paylink.example/v1"
		}
	}
	return &PaylinkGateway{
		apiKey:   apiKey,
		callback: callbackURL,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PaylinkGateway) Name() string { return "paylink" }

// CreateSession calls POST /sessions and returns (sessionID, payURL).
func (g *PaylinkGateway) CreateSession(ctx context.Context, amountCents int64, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	if callbackURL == "" {
		callbackURL = g.callback
	}
	payload := map[string]interface{}{
		"amount_cents": amountCents,
		"currency":     "USD",
		"description":  description,
		"callback_url": callbackURL,
	}
	if meta != nil {
		payload["metadata"] = meta
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/sessions", bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("paylink session http %d", resp.StatusCode)
	}
	var out struct {
		ID     string `json:"id"`
		PayURL string `json:"pay_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if out.ID == "" || out.PayURL == "" {
		return "", "", errors.New("paylink session create failed")
	}
	return out.ID, out.PayURL, nil
}

// VerifySession calls POST /sessions/{id}/verify and returns the provider
// reference on success. An amount mismatch fails verification.
func (g *PaylinkGateway) VerifySession(ctx context.Context, sessionID string, expectedAmountCents int64) (string, error) {
	payload := map[string]interface{}{"amount_cents": expectedAmountCents}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/sessions/"+url.PathEscape(sessionID)+"/verify", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("paylink verify http %d", resp.StatusCode)
	}
	var out struct {
		Status string `json:"status"`
		RefID  string `json:"ref_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	// "verified" means settled now; "already_verified" means a repeat call.
	if (out.Status != "verified" && out.Status != "already_verified") || out.RefID == "" {
		return "", errors.New("paylink verify failed")
	}
	return out.RefID, nil
}
