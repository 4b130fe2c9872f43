package model

import (
	"time"

	"creator-monetization/internal/domain"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription is a user's recurring subscription to one creator tier.
type Subscription struct {
	ID                 string
	UserID             string
	CreatorID          string
	TierID             string
	Status             SubscriptionStatus
	StartedAt          time.Time
	ExpiresAt          time.Time
	NextBillingAt      time.Time
	LastPaymentAt      *time.Time
	AutoRenew          bool
	FailedPaymentCount int
	TotalPaid          int64
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewSubscription starts a paid period of the given length at now.
func NewSubscription(userID string, tier *SubscriptionTier, now time.Time, period time.Duration) (*Subscription, error) {
	if userID == "" || tier == nil {
		return nil, domain.ErrInvalidArgument
	}
	expires := now.Add(period)
	return &Subscription{
		ID:            uuid.NewString(),
		UserID:        userID,
		CreatorID:     tier.CreatorID,
		TierID:        tier.ID,
		Status:        SubscriptionStatusActive,
		StartedAt:     now,
		ExpiresAt:     expires,
		NextBillingAt: expires,
		LastPaymentAt: &now,
		AutoRenew:     true,
		TotalPaid:     tier.PricePerMonth,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Subscription) IsActive() bool { return s != nil && s.Status == SubscriptionStatusActive }

// NextPeriod returns the bounds of the next billing cycle. It is chained from
// the scheduled expiry, never from wall-clock time, so a late run does not
// shorten the cycle.
func (s *Subscription) NextPeriod(period time.Duration) (start, end time.Time) {
	return s.ExpiresAt, s.ExpiresAt.Add(period)
}

// SubscriptionPayment is the immutable record of one successful billing cycle.
type SubscriptionPayment struct {
	ID             string
	SubscriptionID string
	UserID         string
	CreatorID      string
	TransactionID  string
	Amount         int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	CreatedAt      time.Time
}
