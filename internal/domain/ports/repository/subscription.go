package repository

import (
	"context"
	"time"

	"creator-monetization/internal/domain/model"
)

// -----------------------------
// Tiers
// -----------------------------

type TierRepository interface {
	Save(ctx context.Context, tx Tx, t *model.SubscriptionTier) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionTier, error)
	ListByCreator(ctx context.Context, tx Tx, creatorID string) ([]*model.SubscriptionTier, error)
	// AdjustSubscriberCount adds delta to the derived counter, never going below zero.
	AdjustSubscriberCount(ctx context.Context, tx Tx, tierID string, delta int) error
}

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	// Save upserts; a second active subscription for the same user and
	// creator yields domain.ErrAlreadySubscribed.
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindActiveByUserAndCreator(ctx context.Context, tx Tx, userID, creatorID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	// ListDueForRenewal returns active, auto-renewing subscriptions with next_billing_at <= now.
	ListDueForRenewal(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	// ListLapsed returns active subscriptions without auto-renew whose expires_at <= now.
	ListLapsed(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)

	SavePayment(ctx context.Context, tx Tx, p *model.SubscriptionPayment) error
	ListPayments(ctx context.Context, tx Tx, subscriptionID string) ([]*model.SubscriptionPayment, error)
}
