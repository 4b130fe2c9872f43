package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/ports/adapter"
)

var _ adapter.PayoutProvider = (*MemoryProvider)(nil)

var errMockInProduction = errors.New("mock payout provider is disabled in production")

// MemoryProvider is an in-memory payout provider for development, demos and tests.
// Every call is refused while the environment reports production; the
// environment func is evaluated on each call.
type MemoryProvider struct {
	mu            sync.Mutex
	seq           int64
	environment   func() string
	webhookSecret string

	payees   map[string]adapter.PayeeStatusResult
	payments map[string]*memPayment // payment id -> payment
	byRef    map[string]string      // client reference -> payment id

	// failNext makes the next SubmitPayout fail with the given error.
	failNext error
}

type memPayment struct {
	req    adapter.SubmitPayoutRequest
	status string
	reason string
}

func NewMemoryProvider(environment func() string, webhookSecret string) *MemoryProvider {
	if environment == nil {
		environment = func() string { return "" }
	}
	return &MemoryProvider{
		environment:   environment,
		webhookSecret: webhookSecret,
		payees:        make(map[string]adapter.PayeeStatusResult),
		payments:      make(map[string]*memPayment),
		byRef:         make(map[string]string),
	}
}

func (m *MemoryProvider) Name() string { return "mock" }

func (m *MemoryProvider) inProduction() bool {
	return strings.EqualFold(strings.TrimSpace(m.environment()), "production")
}

func (m *MemoryProvider) guard(op string) error {
	if m.inProduction() {
		return &domain.ProviderError{Op: op, Err: errMockInProduction}
	}
	return nil
}

func (m *MemoryProvider) GenerateRegistrationLink(ctx context.Context, payeeID, redirectURL string) (adapter.RegistrationLink, error) {
	if err := m.guard("registration_link"); err != nil {
		return adapter.RegistrationLink{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payees[payeeID]; !ok {
		m.payees[payeeID] = adapter.PayeeStatusResult{Status: "pending"}
	}
	return adapter.RegistrationLink{
		Link:      fmt.Sprintf("https://payouts.example.test/register/%s?redirect=%s", payeeID, redirectURL),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (m *MemoryProvider) GetPayeeStatus(ctx context.Context, payeeID string) (adapter.PayeeStatusResult, error) {
	if err := m.guard("payee_status"); err != nil {
		return adapter.PayeeStatusResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.payees[payeeID]
	if !ok {
		return adapter.PayeeStatusResult{Status: "not_registered"}, nil
	}
	return st, nil
}

func (m *MemoryProvider) SubmitPayout(ctx context.Context, req adapter.SubmitPayoutRequest) (adapter.SubmitPayoutResult, error) {
	if err := m.guard("submit_payout"); err != nil {
		return adapter.SubmitPayoutResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return adapter.SubmitPayoutResult{}, err
	}
	if id, ok := m.byRef[req.ClientReferenceID]; ok {
		return adapter.SubmitPayoutResult{PaymentID: id, Status: m.payments[id].status}, nil
	}
	st, ok := m.payees[req.PayeeID]
	if !ok || (st.Status != "active" && st.Status != "payable") {
		return adapter.SubmitPayoutResult{}, &domain.ProviderError{Op: "submit_payout", Err: fmt.Errorf("payee %s is not payable", req.PayeeID)}
	}
	if req.AmountMinor <= 0 {
		return adapter.SubmitPayoutResult{}, &domain.ProviderError{Op: "submit_payout", Err: errors.New("amount must be positive")}
	}
	m.seq++
	id := fmt.Sprintf("mock-pay-%d", m.seq)
	m.payments[id] = &memPayment{req: req, status: "processing"}
	if req.ClientReferenceID != "" {
		m.byRef[req.ClientReferenceID] = id
	}
	return adapter.SubmitPayoutResult{PaymentID: id, Status: "processing"}, nil
}

func (m *MemoryProvider) GetPaymentStatus(ctx context.Context, paymentID string) (adapter.PaymentStatusResult, error) {
	if err := m.guard("payment_status"); err != nil {
		return adapter.PaymentStatusResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return adapter.PaymentStatusResult{}, &domain.ProviderError{Op: "payment_status", Err: fmt.Errorf("payment %s not found", paymentID)}
	}
	return adapter.PaymentStatusResult{Status: p.status, FailureReason: p.reason}, nil
}

func (m *MemoryProvider) VerifyWebhookSignature(payload []byte, signature string) bool {
	if m.inProduction() {
		return false
	}
	return VerifySignature(m.webhookSecret, payload, signature)
}

// SetPayeeStatus simulates the payee finishing (or failing) onboarding.
func (m *MemoryProvider) SetPayeeStatus(payeeID, status string, methods ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payees[payeeID] = adapter.PayeeStatusResult{Status: status, PayoutMethods: methods}
}

// SetPaymentStatus simulates the provider settling a payment.
func (m *MemoryProvider) SetPaymentStatus(paymentID, status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment %s not found", paymentID)
	}
	p.status, p.reason = status, reason
	return nil
}

// FailNextSubmit makes the next SubmitPayout return err.
func (m *MemoryProvider) FailNextSubmit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Payments returns the number of distinct payments accepted.
func (m *MemoryProvider) Payments() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}
