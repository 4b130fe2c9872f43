package model

import (
	"time"

	"creator-monetization/internal/domain"

	"github.com/google/uuid"
)

// TierLevel is the ordinal of a tier inside one creator's catalog.
type TierLevel int

const (
	TierLevelBasic   TierLevel = 1
	TierLevelPremium TierLevel = 2
	TierLevelVIP     TierLevel = 3
)

func (l TierLevel) Valid() bool { return l >= TierLevelBasic && l <= TierLevelVIP }

// SubscriptionTier is a purchasable monthly tier offered by a creator.
type SubscriptionTier struct {
	ID              string
	CreatorID       string
	Tier            TierLevel
	Name            string
	PricePerMonth   int64
	Benefits        []string
	IsActive        bool
	SubscriberCount int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSubscriptionTier validates and constructs a tier.
func NewSubscriptionTier(creatorID string, level TierLevel, name string, price int64, benefits []string) (*SubscriptionTier, error) {
	if creatorID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !level.Valid() {
		return nil, domain.NewValidationError("tier", "must be between 1 and 3")
	}
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be empty")
	}
	if price <= 0 {
		return nil, domain.NewValidationError("price_per_month", "must be positive")
	}
	if benefits == nil {
		benefits = []string{}
	}
	now := time.Now()
	return &SubscriptionTier{
		ID:            uuid.NewString(),
		CreatorID:     creatorID,
		Tier:          level,
		Name:          name,
		PricePerMonth: price,
		Benefits:      benefits,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewDefaultTier is created the first time a creator's catalog is read and found empty.
func NewDefaultTier(creatorID string, price int64) *SubscriptionTier {
	t, _ := NewSubscriptionTier(creatorID, TierLevelBasic, "Supporter", price, []string{
		"Subscriber badge",
		"Access to subscriber-only posts",
	})
	return t
}
