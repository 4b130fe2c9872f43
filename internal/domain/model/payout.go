package model

import (
	"fmt"
	"strings"
	"time"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"    // hold placed, not yet sent to the provider
	PayoutStatusProcessing PayoutStatus = "processing" // submitted; awaiting webhook or poll
	PayoutStatusCompleted  PayoutStatus = "completed"  // hold settled, coins left the wallet
	PayoutStatusFailed     PayoutStatus = "failed"     // hold released
	PayoutStatusCancelled  PayoutStatus = "cancelled"  // hold released
)

func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}

// PayoutMetadata links a payout to the hold reserving its coins and records
// the conversion used at submission time.
type PayoutMetadata struct {
	HoldID           string `json:"hold_id"`
	Currency         string `json:"currency,omitempty"`
	FiatAmountMinor  int64  `json:"fiat_amount_minor,omitempty"`
	MinorUnitPerCoin int64  `json:"minor_unit_per_coin,omitempty"`
}

// PayoutRequest is a creator's request to cash out coins through the provider.
type PayoutRequest struct {
	ID                string
	CreatorID         string
	Amount            int64
	Status            PayoutStatus
	PayoutMethod      string
	ExternalReference *string
	ProviderPaymentID *string
	ProviderStatus    *string
	Meta              PayoutMetadata
	FailureReason     *string
	TransactionID     *string
	SubmittedAt       *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PaymentOutcome is the local interpretation of a provider payment status.
type PaymentOutcome string

const (
	PaymentOutcomeInFlight  PaymentOutcome = "in_flight"
	PaymentOutcomeCompleted PaymentOutcome = "completed"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
	PaymentOutcomeCancelled PaymentOutcome = "cancelled"
)

// ParseProviderPaymentStatus maps a provider payment status onto an outcome.
// Unrecognized statuses are an error, never a silent default.
func ParseProviderPaymentStatus(raw string) (PaymentOutcome, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "submitted", "pending", "processing", "in_progress", "scheduled":
		return PaymentOutcomeInFlight, nil
	case "completed", "paid", "succeeded":
		return PaymentOutcomeCompleted, nil
	case "failed", "rejected", "returned", "error":
		return PaymentOutcomeFailed, nil
	case "cancelled", "canceled", "voided":
		return PaymentOutcomeCancelled, nil
	default:
		return "", fmt.Errorf("unrecognized provider payment status %q", raw)
	}
}

// PayoutStatusFor returns the payout state an outcome leads to.
func PayoutStatusFor(o PaymentOutcome) PayoutStatus {
	switch o {
	case PaymentOutcomeCompleted:
		return PayoutStatusCompleted
	case PaymentOutcomeFailed:
		return PayoutStatusFailed
	case PaymentOutcomeCancelled:
		return PayoutStatusCancelled
	default:
		return PayoutStatusProcessing
	}
}
