package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionTypePurchase             TransactionType = "purchase"
	TransactionTypeSubscriptionPayment  TransactionType = "subscription_payment"
	TransactionTypeSubscriptionEarnings TransactionType = "subscription_earnings"
	TransactionTypeGift                 TransactionType = "gift"
	TransactionTypeGiftEarnings         TransactionType = "gift_earnings"
	TransactionTypeTip                  TransactionType = "tip"
	TransactionTypeTipEarnings          TransactionType = "tip_earnings"
	TransactionTypeCallCharge           TransactionType = "call_charge"
	TransactionTypeCallEarnings         TransactionType = "call_earnings"
	TransactionTypeCreatorPayout        TransactionType = "creator_payout"
	TransactionTypeRefund               TransactionType = "refund"
	TransactionTypeAdjustment           TransactionType = "adjustment"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one signed leg applied to a wallet. A transfer between two
// wallets is two transactions whose amounts sum to zero and which point at
// each other through RelatedTransactionID.
type Transaction struct {
	ID                   string
	UserID               string
	Amount               int64
	Type                 TransactionType
	Status               TransactionStatus
	IdempotencyKey       *string
	RelatedTransactionID *string
	Description          string
	Metadata             TransactionMetadata
	BalanceAfter         int64
	CreatedAt            time.Time
}

// -----------------------------
// Typed metadata
// -----------------------------

type MetadataKind string

const (
	MetadataKindSubscription MetadataKind = "subscription"
	MetadataKindGift         MetadataKind = "gift"
	MetadataKindTip          MetadataKind = "tip"
	MetadataKindPayout       MetadataKind = "payout"
	MetadataKindExternal     MetadataKind = "external"
)

// TransactionMetadata is a closed set of payloads; each transaction kind
// carries its own struct instead of a free-form map.
type TransactionMetadata interface {
	Kind() MetadataKind
}

type SubscriptionMeta struct {
	SubscriptionID string    `json:"subscription_id"`
	TierID         string    `json:"tier_id"`
	CreatorID      string    `json:"creator_id"`
	SubscriberID   string    `json:"subscriber_id"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

type GiftMeta struct {
	SessionID   string `json:"session_id"`
	GiftID      string `json:"gift_id"`
	Quantity    int    `json:"quantity"`
	UnitCost    int64  `json:"unit_cost"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
}

type TipShare string

const (
	TipShareFull  TipShare = "full"
	TipShareHost  TipShare = "host"
	TipShareGuest TipShare = "guest"
)

type TipMeta struct {
	SessionID         string   `json:"session_id"`
	SenderID          string   `json:"sender_id"`
	RecipientID       string   `json:"recipient_id"`
	TotalAmount       int64    `json:"total_amount"`
	CommissionPercent *int     `json:"commission_percent,omitempty"`
	Share             TipShare `json:"share"`
}

type PayoutMeta struct {
	PayoutRequestID   string `json:"payout_request_id"`
	HoldID            string `json:"hold_id"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
}

// ExternalMeta is used by ledger consumers outside this module (call billing,
// coin purchases) that only need a source and a reference.
type ExternalMeta struct {
	Source    string `json:"source"`
	Reference string `json:"reference"`
}

func (SubscriptionMeta) Kind() MetadataKind { return MetadataKindSubscription }
func (GiftMeta) Kind() MetadataKind         { return MetadataKindGift }
func (TipMeta) Kind() MetadataKind          { return MetadataKindTip }
func (PayoutMeta) Kind() MetadataKind       { return MetadataKindPayout }
func (ExternalMeta) Kind() MetadataKind     { return MetadataKindExternal }

type metadataEnvelope struct {
	Kind MetadataKind    `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeMetadata serializes metadata for a JSONB column. A nil value encodes to nil.
func EncodeMetadata(m TransactionMetadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(metadataEnvelope{Kind: m.Kind(), Data: data})
}

// DecodeMetadata is the inverse of EncodeMetadata. Unknown kinds are an error.
func DecodeMetadata(b []byte) (TransactionMetadata, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode metadata envelope: %w", err)
	}
	var (
		out TransactionMetadata
		err error
	)
	switch env.Kind {
	case MetadataKindSubscription:
		var m SubscriptionMeta
		err = json.Unmarshal(env.Data, &m)
		out = m
	case MetadataKindGift:
		var m GiftMeta
		err = json.Unmarshal(env.Data, &m)
		out = m
	case MetadataKindTip:
		var m TipMeta
		err = json.Unmarshal(env.Data, &m)
		out = m
	case MetadataKindPayout:
		var m PayoutMeta
		err = json.Unmarshal(env.Data, &m)
		out = m
	case MetadataKindExternal:
		var m ExternalMeta
		err = json.Unmarshal(env.Data, &m)
		out = m
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", env.Kind, err)
	}
	return out, nil
}
