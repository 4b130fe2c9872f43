package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/ports/repository"
	"creator-monetization/internal/infra/metrics"
	red "creator-monetization/internal/infra/redis"
	"creator-monetization/internal/usecase"
)

const renewalLockKey = "lock:subscription-renewals"

// RenewalWorker bills due subscriptions and expires lapsed ones on a ticker.
// A cluster-wide lock keeps two instances from running the same batch.
type RenewalWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	subUC    usecase.SubscriptionUseCase
	subs     repository.SubscriptionRepository
	locker   red.Locker
	log      *zerolog.Logger
}

func NewRenewalWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, subs repository.SubscriptionRepository, locker red.Locker, logger *zerolog.Logger) *RenewalWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if locker == nil {
		locker = red.NoopLocker{}
	}
	l := logger.With().Str("component", "RenewalWorker").Logger()
	return &RenewalWorker{
		interval: interval,
		lockTTL:  interval,
		subUC:    subUC,
		subs:     subs,
		locker:   locker,
		log:      &l,
	}
}

func (w *RenewalWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting renewal worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping renewal worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one locked renewal and expiry pass.
func (w *RenewalWorker) RunOnce(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, renewalLockKey, w.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			w.log.Debug().Msg("renewal run skipped, another instance holds the lock")
		} else {
			w.log.Warn().Err(err).Msg("renewal lock failed")
		}
		return
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.locker.Unlock(unlockCtx, renewalLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("renewal unlock failed")
		}
	}()

	start := time.Now()
	summary, err := w.subUC.ProcessRenewals(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("renewal run failed")
	}
	if summary != nil {
		metrics.ObserveRenewalRun(summary.Succeeded, summary.Failed, summary.Skipped, summary.Cancelled, time.Since(start).Seconds())
		ev := w.log.Info()
		if len(summary.Errors) > 0 {
			ev = w.log.Warn().Interface("errors", summary.Errors)
		}
		ev.Int("processed", summary.Processed).
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Int("skipped", summary.Skipped).
			Int("cancelled", summary.Cancelled).
			Dur("duration", time.Since(start)).
			Msg("renewal run finished")
	}

	n, err := w.subUC.ExpireLapsed(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry pass failed")
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		w.log.Info().Int("count", n).Msg("lapsed subscriptions expired")
	}

	if w.subs != nil {
		counts, err := w.subs.CountByStatus(ctx, nil)
		if err != nil {
			w.log.Warn().Err(err).Msg("subscription count failed")
			return
		}
		metrics.SetSubscriptionsTotal(counts)
	}
}
