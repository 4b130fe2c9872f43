//go:build !integration

package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
	"creator-monetization/internal/usecase"
)

type MockSubscriptionUseCase struct {
	usecase.SubscriptionUseCase
	ProcessRenewalsFunc func(ctx context.Context) (*usecase.RenewalSummary, error)
	ExpireLapsedFunc    func(ctx context.Context) (int, error)
}

func (m *MockSubscriptionUseCase) ProcessRenewals(ctx context.Context) (*usecase.RenewalSummary, error) {
	return m.ProcessRenewalsFunc(ctx)
}

func (m *MockSubscriptionUseCase) ExpireLapsed(ctx context.Context) (int, error) {
	return m.ExpireLapsedFunc(ctx)
}

type MockSubscriptionRepository struct {
	repository.SubscriptionRepository
	CountByStatusFunc func(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error)
}

func (m *MockSubscriptionRepository) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	return m.CountByStatusFunc(ctx, tx)
}

type MockPayoutUseCase struct {
	usecase.PayoutUseCase
	ReconcileStaleFunc func(ctx context.Context, olderThan time.Duration, limit int) (*usecase.ReconcileSummary, error)
}

func (m *MockPayoutUseCase) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (*usecase.ReconcileSummary, error) {
	return m.ReconcileStaleFunc(ctx, olderThan, limit)
}

type MockLocker struct {
	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
	unlocked    []string
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.TryLockFunc(ctx, key, ttl)
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.unlocked = append(m.unlocked, key+"="+token)
	return nil
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestRenewalWorker_RunOnce(t *testing.T) {
	var renewals, expiries, counts int
	uc := &MockSubscriptionUseCase{
		ProcessRenewalsFunc: func(ctx context.Context) (*usecase.RenewalSummary, error) {
			renewals++
			return &usecase.RenewalSummary{Processed: 3, Succeeded: 2, Failed: 1}, nil
		},
		ExpireLapsedFunc: func(ctx context.Context) (int, error) {
			expiries++
			return 4, nil
		},
	}
	repo := &MockSubscriptionRepository{CountByStatusFunc: func(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
		counts++
		return map[model.SubscriptionStatus]int{model.SubscriptionStatusActive: 7}, nil
	}}
	locker := &MockLocker{TryLockFunc: func(ctx context.Context, key string, ttl time.Duration) (string, error) {
		if key != renewalLockKey || ttl != time.Hour {
			t.Errorf("lock key=%s ttl=%v", key, ttl)
		}
		return "tok", nil
	}}

	NewRenewalWorker(time.Hour, uc, repo, locker, nopLogger()).RunOnce(context.Background())

	if renewals != 1 || expiries != 1 || counts != 1 {
		t.Errorf("renewals=%d expiries=%d counts=%d", renewals, expiries, counts)
	}
	if len(locker.unlocked) != 1 || locker.unlocked[0] != renewalLockKey+"=tok" {
		t.Errorf("unlock calls = %v", locker.unlocked)
	}
}

func TestRenewalWorker_SkipsWhenLocked(t *testing.T) {
	called := false
	uc := &MockSubscriptionUseCase{
		ProcessRenewalsFunc: func(ctx context.Context) (*usecase.RenewalSummary, error) {
			called = true
			return &usecase.RenewalSummary{}, nil
		},
		ExpireLapsedFunc: func(ctx context.Context) (int, error) { called = true; return 0, nil },
	}
	locker := &MockLocker{TryLockFunc: func(context.Context, string, time.Duration) (string, error) {
		return "", domain.ErrLockNotAcquired
	}}
	NewRenewalWorker(time.Minute, uc, nil, locker, nopLogger()).RunOnce(context.Background())
	if called {
		t.Error("renewals ran without the lock")
	}
	if len(locker.unlocked) != 0 {
		t.Error("unlocked a lock it never held")
	}
}

func TestRenewalWorker_ExpiresEvenWhenRenewalFails(t *testing.T) {
	expired := false
	uc := &MockSubscriptionUseCase{
		ProcessRenewalsFunc: func(ctx context.Context) (*usecase.RenewalSummary, error) {
			return nil, errors.New("db down")
		},
		ExpireLapsedFunc: func(ctx context.Context) (int, error) { expired = true; return 0, nil },
	}
	NewRenewalWorker(time.Minute, uc, nil, nil, nopLogger()).RunOnce(context.Background())
	if !expired {
		t.Error("expiry pass skipped")
	}
}

func TestRenewalWorker_RunStopsOnCancel(t *testing.T) {
	uc := &MockSubscriptionUseCase{
		ProcessRenewalsFunc: func(ctx context.Context) (*usecase.RenewalSummary, error) { return &usecase.RenewalSummary{}, nil },
		ExpireLapsedFunc:    func(ctx context.Context) (int, error) { return 0, nil },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRenewalWorker(time.Hour, uc, nil, nil, nopLogger()).Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPayoutReconciler_Tick(t *testing.T) {
	var gotOlder time.Duration
	var gotLimit int
	uc := &MockPayoutUseCase{ReconcileStaleFunc: func(ctx context.Context, olderThan time.Duration, limit int) (*usecase.ReconcileSummary, error) {
		gotOlder, gotLimit = olderThan, limit
		return &usecase.ReconcileSummary{Checked: 2, Finalized: 1}, nil
	}}
	w := NewPayoutReconciler(uc, time.Minute, 20*time.Minute, nil, nopLogger())
	w.tick(context.Background())
	if gotOlder != 20*time.Minute || gotLimit != 200 {
		t.Errorf("olderThan=%v limit=%d", gotOlder, gotLimit)
	}

	calls := 0
	uc.ReconcileStaleFunc = func(context.Context, time.Duration, int) (*usecase.ReconcileSummary, error) {
		calls++
		return nil, errors.New("boom")
	}
	locked := &MockLocker{TryLockFunc: func(context.Context, string, time.Duration) (string, error) {
		return "", domain.ErrLockNotAcquired
	}}
	NewPayoutReconciler(uc, time.Minute, 0, locked, nopLogger()).tick(context.Background())
	if calls != 0 {
		t.Error("reconciled without the lock")
	}
	w.tick(context.Background())
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}
