package model

import "time"

type HoldStatus string

const (
	HoldStatusPending  HoldStatus = "pending"
	HoldStatusSettled  HoldStatus = "settled"
	HoldStatusReleased HoldStatus = "released"
)

type HoldPurpose string

const (
	HoldPurposePayout HoldPurpose = "payout"
	HoldPurposeCall   HoldPurpose = "call"
)

// SpendHold reserves coins out of a wallet's held balance while an external
// process is in flight. It ends either settled (coins leave the wallet) or
// released (coins become spendable again).
type SpendHold struct {
	ID          string
	UserID      string
	Amount      int64
	Status      HoldStatus
	Purpose     HoldPurpose
	ReferenceID string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

func (h *SpendHold) IsPending() bool { return h != nil && h.Status == HoldStatusPending }
