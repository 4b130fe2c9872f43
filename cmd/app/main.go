// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"creator-monetization/internal/config"
	"creator-monetization/internal/domain/ports/adapter"
	notifyAdapters "creator-monetization/internal/infra/adapters/notify"
	payoutAdapters "creator-monetization/internal/infra/adapters/payout"
	"creator-monetization/internal/infra/api"
	pg "creator-monetization/internal/infra/db/postgres"
	"creator-monetization/internal/infra/logging"
	"creator-monetization/internal/infra/metrics"
	red "creator-monetization/internal/infra/redis"
	"creator-monetization/internal/infra/sched"
	"creator-monetization/internal/usecase"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted secrets)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(cfg.App.Version, cfg.App.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("service stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis (optional) ----
	var (
		locker  red.Locker = red.NoopLocker{}
		limiter red.Limiter
	)
	if cfg.RedisEnabled() {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis not configured: renewal lock and rate limiting disabled")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	walletRepo := pg.NewWalletRepo(pool)
	txRepo := pg.NewTransactionRepo(pool)
	holdRepo := pg.NewHoldRepo(pool)
	tierRepo := pg.NewTierRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payoutRepo := pg.NewPayoutRepo(pool)
	payeeRepo := pg.NewPayeeRepo(pool)
	sessionRepo := pg.NewLiveSessionRepo(pool)
	giftRepo, err := pg.NewGiftRepoCacheDecorator(pg.NewGiftRepo(pool), cfg.GiftCache.Size, cfg.GiftCache.TTL)
	if err != nil {
		return fmt.Errorf("gift cache: %w", err)
	}

	// ---- Adapters ----
	provider, err := newPayoutProvider(cfg, logger)
	if err != nil {
		return err
	}
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	// ---- Use cases ----
	retries := cfg.Ledger.ConflictRetries
	ledgerUC := usecase.NewLedgerUseCase(tm, walletRepo, txRepo, holdRepo, retries, logger)
	revenueUC := usecase.NewRevenueUseCase(tm, ledgerUC, sessionRepo, giftRepo, retries, logger)
	subUC := usecase.NewSubscriptionUseCase(tm, ledgerUC, tierRepo, subRepo, notifier, usecase.SubscriptionConfig{
		Period:            time.Duration(cfg.Subscription.PeriodDays) * 24 * time.Hour,
		BatchSize:         cfg.Subscription.RenewalBatchSize,
		MaxFailedPayments: cfg.Subscription.MaxFailedPayments,
		RetryInterval:     cfg.Subscription.RetryInterval,
		DefaultTierPrice:  cfg.Subscription.DefaultTierPrice,
		ConflictRetries:   retries,
	}, logger)
	payoutUC := usecase.NewPayoutUseCase(tm, ledgerUC, payoutRepo, payeeRepo, provider, notifier, usecase.PayoutConfig{
		Currency:         cfg.Payout.SettlementCurrency,
		MinorUnitPerCoin: cfg.Payout.CoinToMinorRate,
		MinPayoutCoins:   cfg.Payout.MinPayoutCoins,
		DefaultMethod:    cfg.Payout.DefaultMethod,
		SyncStaleAfter:   cfg.Payout.SyncStaleAfter,
		RedirectURL:      cfg.Payout.RedirectURL,
		ConflictRetries:  retries,
	}, logger)

	// ---- HTTP ----
	auth := api.NewAuthenticator(cfg.HTTP.JWTSecret, "")
	srv := api.NewServer(ledgerUC, revenueUC, subUC, payoutUC, auth, limiter, api.Config{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimit:      cfg.HTTP.RateLimit,
		RateWindow:     cfg.HTTP.RateWindow,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("environment", cfg.App.Environment).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// ---- Workers ----
	g.Go(func() error {
		return sched.NewRenewalWorker(cfg.Subscription.RenewalInterval, subUC, subRepo, locker, logger).Run(gctx)
	})
	g.Go(func() error {
		return sched.NewPayoutReconciler(payoutUC, cfg.Payout.ReconcileInterval, cfg.Payout.ReconcileOlderThan, locker, logger).Run(gctx)
	})
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second, logger)
		return nil
	})

	return g.Wait()
}

func newPayoutProvider(cfg *config.Config, logger *zerolog.Logger) (adapter.PayoutProvider, error) {
	if cfg.Payout.Provider == "mock" || cfg.Payout.MockMode {
		if cfg.IsProduction() {
			logger.Error().Msg("mock payout provider configured in production: all payout calls will be refused")
		} else {
			logger.Warn().Msg("using in-memory mock payout provider")
		}
		return payoutAdapters.NewMemoryProvider(cfg.CurrentEnvironment, cfg.Payout.WebhookSecret), nil
	}
	p, err := payoutAdapters.NewHTTPProvider(cfg.Payout.BaseURL, cfg.Payout.APIKey, cfg.Payout.WebhookSecret, cfg.Payout.Timeout)
	if err != nil {
		return nil, fmt.Errorf("payout provider: %w", err)
	}
	logger.Info().Str("base_url", cfg.Payout.BaseURL).Str("api_key", logging.Redact(cfg.Payout.APIKey, cfg.Runtime.Dev)).
		Msg("payout provider configured")
	return p, nil
}

func newNotifier(cfg *config.Config, logger *zerolog.Logger) (adapter.Notifier, error) {
	targets := []adapter.Notifier{notifyAdapters.NewLogNotifier(logger)}
	if tg := cfg.Notify.Telegram; tg.Token != "" {
		ops, err := notifyAdapters.NewTelegramNotifier(tg.Token, tg.OpsChatID, logger,
			adapter.NotificationPayoutFailed, adapter.NotificationSubscriptionCanceled)
		if err != nil {
			return nil, err
		}
		targets = append(targets, ops)
	}
	return notifyAdapters.NewFanout(targets...), nil
}
