package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	"creator-monetization/internal/config"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
	"creator-monetization/internal/infra/api"
	pg "creator-monetization/internal/infra/db/postgres"
	"creator-monetization/internal/infra/logging"
	"creator-monetization/internal/usecase"
)

// Seeds a demo catalog, one live session and funded wallets, then prints bearer
// tokens for the demo users. Safe to run repeatedly.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Gift catalog ----
	gifts := pg.NewGiftRepo(pool)
	for _, g := range []*model.Gift{
		{ID: "rose", Name: "Rose", CoinCost: 1, IsActive: true},
		{ID: "heart", Name: "Heart", CoinCost: 5, IsActive: true},
		{ID: "rocket", Name: "Rocket", CoinCost: 100, IsActive: true},
	} {
		if err := gifts.Seed(ctx, g); err != nil {
			log.Fatalf("seed gift %s: %v", g.ID, err)
		}
		fmt.Printf("gift: %-8s %4d coins\n", g.Name, g.CoinCost)
	}

	// ---- Live session hosted by the demo creator ----
	const (
		host  = "demo-creator"
		guest = "demo-guest"
		fan   = "demo-fan"
	)
	commission := 20
	now := time.Now()
	if err := pg.NewLiveSessionRepo(pool).Seed(ctx, &model.LiveSession{
		ID: "demo-session", HostID: host, Status: model.LiveSessionStatusLive,
		CommissionPercent: &commission, StartedAt: now, UpdatedAt: now,
	}); err != nil {
		log.Fatalf("seed session: %v", err)
	}
	fmt.Printf("session: demo-session host=%s commission=%d%%\n", host, commission)

	// ---- Wallets and tiers go through the use cases so invariants hold ----
	tm := pg.NewTxManager(pool)
	ledger := usecase.NewLedgerUseCase(tm, pg.NewWalletRepo(pool), pg.NewTransactionRepo(pool), pg.NewHoldRepo(pool),
		cfg.Ledger.ConflictRetries, logger)
	subs := usecase.NewSubscriptionUseCase(tm, ledger, pg.NewTierRepo(pool), pg.NewSubscriptionRepo(pool), nil,
		usecase.SubscriptionConfig{DefaultTierPrice: cfg.Subscription.DefaultTierPrice}, logger)

	for user, coins := range map[string]int64{fan: 1000, host: 0, guest: 0} {
		if coins == 0 {
			if err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
				_, err := ledger.EnsureWallet(ctx, tx, user)
				return err
			}); err != nil {
				log.Fatalf("wallet %s: %v", user, err)
			}
			continue
		}
		t, err := ledger.CreateTransaction(ctx, usecase.TransactionInput{
			UserID: user, Amount: coins, Type: model.TransactionTypePurchase,
			IdempotencyKey: "seed:" + user, Description: "demo top-up",
			Metadata: model.ExternalMeta{Source: "seed", Reference: user},
		})
		if err != nil {
			log.Fatalf("fund %s: %v", user, err)
		}
		fmt.Printf("wallet: %s balance=%d\n", user, t.BalanceAfter)
	}

	tiers, err := subs.GetCreatorTiers(ctx, host)
	if err != nil {
		log.Fatalf("tiers: %v", err)
	}
	for _, t := range tiers {
		fmt.Printf("tier: %s level=%d price=%d/month id=%s\n", t.Name, t.Tier, t.PricePerMonth, t.ID)
	}

	// ---- Tokens ----
	auth := api.NewAuthenticator(cfg.HTTP.JWTSecret, "")
	for _, user := range []string{fan, host, guest} {
		tok, err := auth.Mint(user, 24*time.Hour)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Printf("token %s: %s\n", user, tok)
	}
	fmt.Println("Seeding complete.")
}
