package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/infra/metrics"
	red "creator-monetization/internal/infra/redis"
	"creator-monetization/internal/usecase"
)

const payoutLockKey = "lock:payout-reconcile"

// PayoutReconciler polls the provider for payouts stuck in processing. It covers
// lost webhooks and submissions whose outcome was unknown.
type PayoutReconciler struct {
	uc        usecase.PayoutUseCase
	interval  time.Duration
	olderThan time.Duration
	batch     int
	locker    red.Locker
	log       *zerolog.Logger
}

func NewPayoutReconciler(uc usecase.PayoutUseCase, interval, olderThan time.Duration, locker red.Locker, logger *zerolog.Logger) *PayoutReconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if olderThan <= 0 {
		olderThan = 15 * time.Minute
	}
	if locker == nil {
		locker = red.NoopLocker{}
	}
	l := logger.With().Str("component", "PayoutReconciler").Logger()
	return &PayoutReconciler{uc: uc, interval: interval, olderThan: olderThan, batch: 200, locker: locker, log: &l}
}

func (w *PayoutReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting payout reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payout reconciler")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PayoutReconciler) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, payoutLockKey, w.interval)
	if err != nil {
		if !errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Warn().Err(err).Msg("reconcile lock failed")
		}
		return
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = w.locker.Unlock(unlockCtx, payoutLockKey, token)
	}()

	sum, err := w.uc.ReconcileStale(ctx, w.olderThan, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("reconcile stale payouts failed")
		return
	}
	metrics.ObserveReconcile(sum.Checked, sum.Finalized, sum.Errors)
	if sum.Checked > 0 {
		w.log.Info().Int("checked", sum.Checked).Int("finalized", sum.Finalized).Int("errors", sum.Errors).
			Msg("stale payouts reconciled")
	}
}
