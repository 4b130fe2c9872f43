package model

import (
	"fmt"
	"strings"
	"time"
)

type PayeeStatus string

const (
	PayeeStatusNotRegistered PayeeStatus = "not_registered"
	PayeeStatusPending       PayeeStatus = "pending"
	PayeeStatusActive        PayeeStatus = "active"
	PayeeStatusInactive      PayeeStatus = "inactive"
	PayeeStatusDeclined      PayeeStatus = "declined"
)

// PayeeAccount is a creator's registration with the payout provider.
type PayeeAccount struct {
	CreatorID         string
	PayeeID           string
	PayeeStatus       PayeeStatus
	PreferredCurrency string
	PayoutMethods     []string
	RegistrationLink  *string
	LinkExpiresAt     *time.Time
	LastSyncedAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (p *PayeeAccount) IsActive() bool { return p != nil && p.PayeeStatus == PayeeStatusActive }

// SyncDue reports whether the cached status is old enough to ask the provider again.
// Active payees are never re-synced implicitly.
func (p *PayeeAccount) SyncDue(now time.Time, staleAfter time.Duration) bool {
	if p.IsActive() {
		return false
	}
	if p.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*p.LastSyncedAt) > staleAfter
}

// ParseProviderPayeeStatus maps a provider payee status onto the local enum.
// Unrecognized statuses are an error, never a silent default.
func ParseProviderPayeeStatus(raw string) (PayeeStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "not_registered", "unknown_payee", "not_found":
		return PayeeStatusNotRegistered, nil
	case "pending", "pending_review", "in_review", "invited":
		return PayeeStatusPending, nil
	case "active", "payable", "approved":
		return PayeeStatusActive, nil
	case "inactive", "suspended", "blocked", "closed":
		return PayeeStatusInactive, nil
	case "declined", "rejected":
		return PayeeStatusDeclined, nil
	default:
		return "", fmt.Errorf("unrecognized provider payee status %q", raw)
	}
}
