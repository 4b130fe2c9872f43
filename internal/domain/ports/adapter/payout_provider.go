package adapter

import (
	"context"
	"time"
)

type RegistrationLink struct {
	Link      string
	ExpiresAt time.Time
}

type PayeeStatusResult struct {
	Status        string // provider vocabulary, see model.ParseProviderPayeeStatus
	PayoutMethods []string
}

type SubmitPayoutRequest struct {
	PayeeID           string
	AmountMinor       int64 // settlement currency minor units
	Currency          string
	ClientReferenceID string // stable across retries; providers dedupe on it
	Method            string
}

type SubmitPayoutResult struct {
	PaymentID string
	Status    string
}

type PaymentStatusResult struct {
	Status        string // provider vocabulary, see model.ParseProviderPaymentStatus
	FailureReason string
}

// PayoutProvider is the hex port for the external payout provider.
// Implementations own request timeouts and must report them as a transient
// *domain.ProviderError.
type PayoutProvider interface {
	Name() string

	GenerateRegistrationLink(ctx context.Context, payeeID, redirectURL string) (RegistrationLink, error)
	GetPayeeStatus(ctx context.Context, payeeID string) (PayeeStatusResult, error)
	SubmitPayout(ctx context.Context, req SubmitPayoutRequest) (SubmitPayoutResult, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (PaymentStatusResult, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// Webhook event types sent by the provider.
const (
	WebhookEventPaymentStatus = "payment.status_changed"
	WebhookEventPayeeStatus   = "payee.status_changed"
)

// WebhookEvent is the provider -> service notification body.
type WebhookEvent struct {
	EventType         string `json:"event_type"`
	PayeeID           string `json:"payee_id,omitempty"`
	PaymentID         string `json:"payment_id,omitempty"`
	Status            string `json:"status"`
	PreviousStatus    string `json:"previous_status,omitempty"`
	ClientReferenceID string `json:"client_reference_id,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
	Amount            *int64 `json:"amount,omitempty"`
	Currency          string `json:"currency,omitempty"`
}
