// File: internal/infra/adapters/payout/http_provider.go
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/ports/adapter"
	"creator-monetization/internal/infra/metrics"
)

var _ adapter.PayoutProvider = (*HTTPProvider)(nil)

// HTTPProvider talks to the payout provider's JSON REST API.
type HTTPProvider struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	client        *http.Client
}

func NewHTTPProvider(baseURL, apiKey, webhookSecret string, timeout time.Duration) (*HTTPProvider, error) {
	if apiKey == "" {
		return nil, errors.New("payout api key empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid payout base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) GenerateRegistrationLink(ctx context.Context, payeeID, redirectURL string) (adapter.RegistrationLink, error) {
	var out struct {
		Link      string    `json:"link"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	body := map[string]any{"redirect_url": redirectURL}
	path := "/v1/payees/" + url.PathEscape(payeeID) + "/registration-links"
	if err := p.do(ctx, "registration_link", http.MethodPost, path, body, nil, &out); err != nil {
		return adapter.RegistrationLink{}, err
	}
	if out.Link == "" {
		return adapter.RegistrationLink{}, &domain.ProviderError{Op: "registration_link", Err: errors.New("empty link in response")}
	}
	return adapter.RegistrationLink{Link: out.Link, ExpiresAt: out.ExpiresAt}, nil
}

func (p *HTTPProvider) GetPayeeStatus(ctx context.Context, payeeID string) (adapter.PayeeStatusResult, error) {
	var out struct {
		Status        string   `json:"status"`
		PayoutMethods []string `json:"payout_methods"`
	}
	if err := p.do(ctx, "payee_status", http.MethodGet, "/v1/payees/"+url.PathEscape(payeeID), nil, nil, &out); err != nil {
		return adapter.PayeeStatusResult{}, err
	}
	return adapter.PayeeStatusResult{Status: out.Status, PayoutMethods: out.PayoutMethods}, nil
}

func (p *HTTPProvider) SubmitPayout(ctx context.Context, req adapter.SubmitPayoutRequest) (adapter.SubmitPayoutResult, error) {
	body := map[string]any{
		"payee_id":            req.PayeeID,
		"amount":              req.AmountMinor,
		"currency":            req.Currency,
		"client_reference_id": req.ClientReferenceID,
		"method":              req.Method,
	}
	headers := map[string]string{"Idempotency-Key": req.ClientReferenceID}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := p.do(ctx, "submit_payout", http.MethodPost, "/v1/payments", body, headers, &out); err != nil {
		return adapter.SubmitPayoutResult{}, err
	}
	if out.ID == "" {
		return adapter.SubmitPayoutResult{}, &domain.ProviderError{Op: "submit_payout", Err: errors.New("empty payment id in response")}
	}
	return adapter.SubmitPayoutResult{PaymentID: out.ID, Status: out.Status}, nil
}

func (p *HTTPProvider) GetPaymentStatus(ctx context.Context, paymentID string) (adapter.PaymentStatusResult, error) {
	var out struct {
		Status        string `json:"status"`
		FailureReason string `json:"failure_reason"`
	}
	if err := p.do(ctx, "payment_status", http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, nil, &out); err != nil {
		return adapter.PaymentStatusResult{}, err
	}
	return adapter.PaymentStatusResult{Status: out.Status, FailureReason: out.FailureReason}, nil
}

func (p *HTTPProvider) VerifyWebhookSignature(payload []byte, signature string) bool {
	return VerifySignature(p.webhookSecret, payload, signature)
}

func (p *HTTPProvider) do(ctx context.Context, op, method, path string, in any, headers map[string]string, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveProviderCall(p.Name(), op, time.Since(start).Seconds(), err == nil)
	}()

	var body io.Reader
	if in != nil {
		b, mErr := json.Marshal(in)
		if mErr != nil {
			return &domain.ProviderError{Op: op, Err: mErr}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return &domain.ProviderError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// timeout or dropped connection: the request may have reached the provider
		return &domain.ProviderError{Op: op, Err: err, Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return &domain.ProviderError{
			Op:        op,
			Err:       fmt.Errorf("http %d: %s %s", resp.StatusCode, apiErr.Code, apiErr.Message),
			Transient: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
