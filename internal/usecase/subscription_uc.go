package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/adapter"
	"creator-monetization/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// errNotDue is returned by a batch renewal that found the row already
// advanced by a concurrent run.
var errNotDue = errors.New("subscription is not due for renewal")

const renewalScanLimit = 1000

type SubscriptionConfig struct {
	Period            time.Duration
	BatchSize         int
	MaxFailedPayments int
	RetryInterval     time.Duration
	DefaultTierPrice  int64
	ConflictRetries   int
}

func (c SubscriptionConfig) withDefaults() SubscriptionConfig {
	if c.Period <= 0 {
		c.Period = 30 * 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxFailedPayments <= 0 {
		c.MaxFailedPayments = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 24 * time.Hour
	}
	if c.DefaultTierPrice <= 0 {
		c.DefaultTierPrice = 50
	}
	return c
}

// TierInput creates or updates the tier at the given level in a creator's catalog.
type TierInput struct {
	Tier          model.TierLevel
	Name          string
	PricePerMonth int64
	Benefits      []string
	IsActive      *bool
}

type RenewalError struct {
	SubscriptionID string `json:"subscription_id"`
	Message        string `json:"message"`
}

// RenewalSummary is the result of one ProcessRenewals run.
type RenewalSummary struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Cancelled int            `json:"cancelled"`
	Errors    []RenewalError `json:"errors,omitempty"`
}

type SubscriptionUseCase interface {
	// GetCreatorTiers lists a creator's tiers, creating the default tier for an empty catalog.
	GetCreatorTiers(ctx context.Context, creatorID string) ([]*model.SubscriptionTier, error)
	UpsertTier(ctx context.Context, creatorID string, in TierInput) (*model.SubscriptionTier, error)

	Subscribe(ctx context.Context, userID, creatorID, tierID string) (*model.Subscription, error)
	RenewSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error)
	ProcessRenewals(ctx context.Context) (*RenewalSummary, error)
	ExpireLapsed(ctx context.Context) (int, error)

	CancelSubscription(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	ToggleAutoRenew(ctx context.Context, userID, subscriptionID string, autoRenew bool) (*model.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error)
}

type subscriptionUC struct {
	tm       repository.TransactionManager
	ledger   LedgerUseCase
	tiers    repository.TierRepository
	subs     repository.SubscriptionRepository
	notifier adapter.Notifier
	cfg      SubscriptionConfig
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	tm repository.TransactionManager,
	ledger LedgerUseCase,
	tiers repository.TierRepository,
	subs repository.SubscriptionRepository,
	notifier adapter.Notifier,
	cfg SubscriptionConfig,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "subscription").Logger()
	return &subscriptionUC{
		tm:       tm,
		ledger:   ledger,
		tiers:    tiers,
		subs:     subs,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		log:      &l,
	}
}

// -----------------------------
// Tier catalog
// -----------------------------

func (u *subscriptionUC) GetCreatorTiers(ctx context.Context, creatorID string) ([]*model.SubscriptionTier, error) {
	if creatorID == "" {
		return nil, domain.ErrInvalidArgument
	}
	list, err := u.tiers.ListByCreator(ctx, nil, creatorID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}

	t := model.NewDefaultTier(creatorID, u.cfg.DefaultTierPrice)
	if err := u.tiers.Save(ctx, nil, t); err != nil {
		// a concurrent reader created it first
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.tiers.ListByCreator(ctx, nil, creatorID)
		}
		return nil, err
	}
	u.log.Info().Str("creator_id", creatorID).Str("tier_id", t.ID).Msg("default tier created")
	return []*model.SubscriptionTier{t}, nil
}

func (u *subscriptionUC) UpsertTier(ctx context.Context, creatorID string, in TierInput) (*model.SubscriptionTier, error) {
	t, err := model.NewSubscriptionTier(creatorID, in.Tier, in.Name, in.PricePerMonth, in.Benefits)
	if err != nil {
		return nil, err
	}
	existing, err := u.tiers.ListByCreator(ctx, nil, creatorID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Tier == in.Tier {
			e.Name = t.Name
			e.PricePerMonth = t.PricePerMonth
			e.Benefits = t.Benefits
			e.UpdatedAt = t.UpdatedAt
			t = e
			break
		}
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	if err := u.tiers.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

// -----------------------------
// Subscribe
// -----------------------------

func (u *subscriptionUC) Subscribe(ctx context.Context, userID, creatorID, tierID string) (*model.Subscription, error) {
	if userID == "" || creatorID == "" || tierID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if userID == creatorID {
		return nil, domain.NewValidationError("creator_id", "cannot subscribe to yourself")
	}

	if _, err := u.subs.FindActiveByUserAndCreator(ctx, nil, userID, creatorID); err == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrAlreadySubscribed)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	tier, err := u.tiers.FindByID(ctx, nil, tierID)
	if err != nil {
		return nil, err
	}
	if !tier.IsActive {
		return nil, domain.NewValidationError("tier_id", "tier is not active")
	}
	if tier.CreatorID != creatorID {
		return nil, domain.NewValidationError("tier_id", "tier does not belong to this creator")
	}

	var sub *model.Subscription
	err = runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "subscribe", func(ctx context.Context, tx repository.Tx) error {
		w, err := u.ledger.LockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Available() < tier.PricePerMonth {
			return &domain.InsufficientBalanceError{
				Required:  tier.PricePerMonth,
				Available: w.Available(),
				Balance:   w.Balance,
				Held:      w.HeldBalance,
			}
		}

		s, err := model.NewSubscription(userID, tier, time.Now(), u.cfg.Period)
		if err != nil {
			return err
		}
		meta := model.SubscriptionMeta{
			SubscriptionID: s.ID,
			TierID:         tier.ID,
			CreatorID:      creatorID,
			SubscriberID:   userID,
			PeriodStart:    s.StartedAt,
			PeriodEnd:      s.ExpiresAt,
		}
		res, err := u.ledger.Transfer(ctx, tx, TransferInput{
			FromUserID:     userID,
			ToUserID:       creatorID,
			Amount:         tier.PricePerMonth,
			DebitType:      model.TransactionTypeSubscriptionPayment,
			CreditType:     model.TransactionTypeSubscriptionEarnings,
			Description:    "subscription: " + tier.Name,
			DebitMetadata:  meta,
			CreditMetadata: meta,
		})
		if err != nil {
			return err
		}

		if err := u.subs.Save(ctx, tx, s); err != nil {
			if errors.Is(err, domain.ErrAlreadySubscribed) {
				return fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			return err
		}
		if err := u.subs.SavePayment(ctx, tx, newPayment(s, res.Debit.ID, tier.PricePerMonth, s.StartedAt, s.ExpiresAt)); err != nil {
			return err
		}
		if err := u.tiers.AdjustSubscriberCount(ctx, tx, tier.ID, 1); err != nil {
			return err
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().Str("user_id", userID).Str("creator_id", creatorID).Str("subscription_id", sub.ID).
		Int64("price", tier.PricePerMonth).Msg("subscribed")
	notifyAsync(u.notifier, u.log, adapter.Notification{
		RecipientID: creatorID,
		Kind:        adapter.NotificationNewSubscriber,
		Title:       "New subscriber",
		Body:        fmt.Sprintf("Someone subscribed to %s.", tier.Name),
		Data:        map[string]string{"subscription_id": sub.ID, "tier_id": tier.ID, "subscriber_id": userID},
	})
	return sub, nil
}

// -----------------------------
// Renewal
// -----------------------------

func (u *subscriptionUC) RenewSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	return u.renew(ctx, subscriptionID, time.Time{})
}

// renew charges the next cycle. A non-zero dueBy makes it a batch renewal
// that skips rows whose next billing date moved past dueBy meanwhile.
func (u *subscriptionUC) renew(ctx context.Context, subscriptionID string, dueBy time.Time) (*model.Subscription, error) {
	s, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := renewable(s); err != nil {
		return nil, err
	}
	tier, err := u.tiers.FindByID(ctx, nil, s.TierID)
	if err != nil {
		return nil, fmt.Errorf("tier %s: %w", s.TierID, err)
	}

	var out *model.Subscription
	err = runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "renew_subscription", func(ctx context.Context, tx repository.Tx) error {
		s, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if err := renewable(s); err != nil {
			return err
		}
		if !dueBy.IsZero() && s.NextBillingAt.After(dueBy) {
			return errNotDue
		}

		start, end := s.NextPeriod(u.cfg.Period)
		meta := model.SubscriptionMeta{
			SubscriptionID: s.ID,
			TierID:         tier.ID,
			CreatorID:      s.CreatorID,
			SubscriberID:   s.UserID,
			PeriodStart:    start,
			PeriodEnd:      end,
		}
		res, err := u.ledger.Transfer(ctx, tx, TransferInput{
			FromUserID:     s.UserID,
			ToUserID:       s.CreatorID,
			Amount:         tier.PricePerMonth,
			DebitType:      model.TransactionTypeSubscriptionPayment,
			CreditType:     model.TransactionTypeSubscriptionEarnings,
			IdempotencyKey: fmt.Sprintf("renewal:%s:%d", s.ID, end.Unix()),
			Description:    "subscription renewal: " + tier.Name,
			DebitMetadata:  meta,
			CreditMetadata: meta,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		s.ExpiresAt = end
		s.NextBillingAt = end
		s.LastPaymentAt = &now
		s.TotalPaid += tier.PricePerMonth
		s.FailedPaymentCount = 0
		s.UpdatedAt = now
		if err := u.subs.Save(ctx, tx, s); err != nil {
			return err
		}
		if err := u.subs.SavePayment(ctx, tx, newPayment(s, res.Debit.ID, tier.PricePerMonth, start, end)); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("subscription_id", out.ID).Time("expires_at", out.ExpiresAt).Msg("subscription renewed")
	return out, nil
}

func renewable(s *model.Subscription) error {
	if !s.IsActive() {
		return domain.NewValidationError("status", "subscription is not active")
	}
	if !s.AutoRenew {
		return domain.NewValidationError("auto_renew", "auto-renew is disabled")
	}
	return nil
}

func (u *subscriptionUC) ProcessRenewals(ctx context.Context) (*RenewalSummary, error) {
	now := time.Now()
	due, err := u.subs.ListDueForRenewal(ctx, nil, now, renewalScanLimit)
	if err != nil {
		return nil, err
	}

	type result struct {
		id        string
		err       error
		cancelled bool
	}
	results := make([]result, len(due))

	for start := 0; start < len(due); start += u.cfg.BatchSize {
		end := start + u.cfg.BatchSize
		if end > len(due) {
			end = len(due)
		}
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				id := due[i].ID
				results[i].id = id
				_, err := u.renew(ctx, id, now)
				results[i].err = err
				if err == nil || errors.Is(err, errNotDue) || ctx.Err() != nil {
					return nil
				}
				if !isPaymentStrike(err) {
					u.log.Warn().Err(err).Str("subscription_id", id).Msg("renewal not attempted, no strike recorded")
					return nil
				}
				cancelled, ferr := u.recordRenewalFailure(ctx, id, now)
				if ferr != nil {
					u.log.Error().Err(ferr).Str("subscription_id", id).Msg("record renewal failure")
				}
				results[i].cancelled = cancelled
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			break
		}
	}

	sum := &RenewalSummary{}
	for _, r := range results {
		if r.id == "" {
			continue
		}
		sum.Processed++
		switch {
		case r.err == nil:
			sum.Succeeded++
		case errors.Is(r.err, errNotDue):
			sum.Skipped++
		default:
			sum.Failed++
			sum.Errors = append(sum.Errors, RenewalError{SubscriptionID: r.id, Message: r.err.Error()})
		}
		if r.cancelled {
			sum.Cancelled++
		}
	}

	u.log.Info().Int("processed", sum.Processed).Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).
		Int("cancelled", sum.Cancelled).Msg("renewal run finished")
	return sum, ctx.Err()
}

// isPaymentStrike reports whether a renewal error is the subscriber's to bear.
// Store outages and state races leave failedPaymentCount alone.
func isPaymentStrike(err error) bool {
	return errors.Is(err, domain.ErrInsufficientBalance) || errors.Is(err, domain.ErrNotFound)
}

// recordRenewalFailure counts a strike and cancels the subscription once the
// threshold is reached. The next attempt is pushed out by RetryInterval.
func (u *subscriptionUC) recordRenewalFailure(ctx context.Context, subscriptionID string, now time.Time) (bool, error) {
	var cancelled *model.Subscription
	err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "record_renewal_failure", func(ctx context.Context, tx repository.Tx) error {
		cancelled = nil
		s, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if !s.IsActive() {
			return nil
		}
		s.FailedPaymentCount++
		s.NextBillingAt = now.Add(u.cfg.RetryInterval)
		s.UpdatedAt = now
		if s.FailedPaymentCount >= u.cfg.MaxFailedPayments {
			s.Status = model.SubscriptionStatusCancelled
			s.AutoRenew = false
			s.CancelledAt = &now
			if err := u.tiers.AdjustSubscriberCount(ctx, tx, s.TierID, -1); err != nil {
				return err
			}
			cancelled = s
		}
		return u.subs.Save(ctx, tx, s)
	})
	if err != nil || cancelled == nil {
		return false, err
	}

	u.log.Warn().Str("subscription_id", cancelled.ID).Int("failed_payments", cancelled.FailedPaymentCount).
		Msg("subscription cancelled after repeated renewal failures")
	notifyAsync(u.notifier, u.log, adapter.Notification{
		RecipientID: cancelled.UserID,
		Kind:        adapter.NotificationSubscriptionCanceled,
		Title:       "Subscription cancelled",
		Body:        "Your subscription was cancelled because renewal payments failed.",
		Data:        map[string]string{"subscription_id": cancelled.ID, "creator_id": cancelled.CreatorID},
	})
	return true, nil
}

func (u *subscriptionUC) ExpireLapsed(ctx context.Context) (int, error) {
	now := time.Now()
	lapsed, err := u.subs.ListLapsed(ctx, nil, now, renewalScanLimit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range lapsed {
		expired := false
		err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, "expire_subscription", func(ctx context.Context, tx repository.Tx) error {
			expired = false
			s, err := u.subs.FindByID(ctx, tx, l.ID)
			if err != nil {
				return err
			}
			if !s.IsActive() || s.AutoRenew || s.ExpiresAt.After(now) {
				return nil
			}
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = now
			if err := u.tiers.AdjustSubscriberCount(ctx, tx, s.TierID, -1); err != nil {
				return err
			}
			expired = true
			return u.subs.Save(ctx, tx, s)
		})
		if err != nil {
			u.log.Error().Err(err).Str("subscription_id", l.ID).Msg("expire subscription")
			continue
		}
		if expired {
			n++
		}
	}
	return n, nil
}

// -----------------------------
// Owner actions
// -----------------------------

func (u *subscriptionUC) CancelSubscription(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	return u.ownerUpdate(ctx, userID, subscriptionID, "cancel_subscription", func(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
		now := time.Now()
		s.Status = model.SubscriptionStatusCancelled
		s.AutoRenew = false
		s.CancelledAt = &now
		s.UpdatedAt = now
		return u.tiers.AdjustSubscriberCount(ctx, tx, s.TierID, -1)
	})
}

func (u *subscriptionUC) ToggleAutoRenew(ctx context.Context, userID, subscriptionID string, autoRenew bool) (*model.Subscription, error) {
	return u.ownerUpdate(ctx, userID, subscriptionID, "toggle_auto_renew", func(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
		s.AutoRenew = autoRenew
		s.UpdatedAt = time.Now()
		return nil
	})
}

func (u *subscriptionUC) ownerUpdate(ctx context.Context, userID, subscriptionID, op string, mutate func(context.Context, repository.Tx, *model.Subscription) error) (*model.Subscription, error) {
	var out *model.Subscription
	err := runInTx(ctx, u.tm, u.cfg.ConflictRetries+1, u.log, op, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if s.UserID != userID {
			return domain.ErrForbidden
		}
		if !s.IsActive() {
			return domain.NewValidationError("status", "subscription is not active")
		}
		if err := mutate(ctx, tx, s); err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("subscription_id", out.ID).Str("op", op).Bool("auto_renew", out.AutoRenew).
		Str("status", string(out.Status)).Msg("subscription updated")
	return out, nil
}

func (u *subscriptionUC) ListUserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return u.subs.ListByUser(ctx, nil, userID)
}

func newPayment(s *model.Subscription, txID string, amount int64, start, end time.Time) *model.SubscriptionPayment {
	return &model.SubscriptionPayment{
		ID:             uuid.NewString(),
		SubscriptionID: s.ID,
		UserID:         s.UserID,
		CreatorID:      s.CreatorID,
		TransactionID:  txID,
		Amount:         amount,
		PeriodStart:    start,
		PeriodEnd:      end,
		CreatedAt:      time.Now(),
	}
}
