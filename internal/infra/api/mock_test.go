//go:build !integration

package api

import (
	"context"
	"sync"
	"time"

	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/usecase"
)

type MockLedgerUseCase struct {
	usecase.LedgerUseCase
	GetWalletFunc        func(ctx context.Context, userID string) (*model.Wallet, error)
	ListTransactionsFunc func(ctx context.Context, userID string, limit, offset int) ([]*model.Transaction, error)
}

func (m *MockLedgerUseCase) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return m.GetWalletFunc(ctx, userID)
}

func (m *MockLedgerUseCase) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*model.Transaction, error) {
	return m.ListTransactionsFunc(ctx, userID, limit, offset)
}

type MockRevenueUseCase struct {
	SendGiftFunc             func(ctx context.Context, in usecase.GiftInput) (*usecase.GiftResult, error)
	SendTipFunc              func(ctx context.Context, in usecase.TipInput) (*usecase.TipResult, error)
	SetSessionCommissionFunc func(ctx context.Context, hostID, sessionID string, percent *int) error
	ListGiftsFunc            func(ctx context.Context) ([]*model.Gift, error)
}

func (m *MockRevenueUseCase) SendGift(ctx context.Context, in usecase.GiftInput) (*usecase.GiftResult, error) {
	return m.SendGiftFunc(ctx, in)
}

func (m *MockRevenueUseCase) SendTip(ctx context.Context, in usecase.TipInput) (*usecase.TipResult, error) {
	return m.SendTipFunc(ctx, in)
}

func (m *MockRevenueUseCase) SetSessionCommission(ctx context.Context, hostID, sessionID string, percent *int) error {
	return m.SetSessionCommissionFunc(ctx, hostID, sessionID, percent)
}

func (m *MockRevenueUseCase) ListGifts(ctx context.Context) ([]*model.Gift, error) {
	return m.ListGiftsFunc(ctx)
}

type MockSubscriptionUseCase struct {
	usecase.SubscriptionUseCase
	GetCreatorTiersFunc    func(ctx context.Context, creatorID string) ([]*model.SubscriptionTier, error)
	UpsertTierFunc         func(ctx context.Context, creatorID string, in usecase.TierInput) (*model.SubscriptionTier, error)
	SubscribeFunc          func(ctx context.Context, userID, creatorID, tierID string) (*model.Subscription, error)
	CancelSubscriptionFunc func(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	ToggleAutoRenewFunc    func(ctx context.Context, userID, subscriptionID string, autoRenew bool) (*model.Subscription, error)
	ListUserSubsFunc       func(ctx context.Context, userID string) ([]*model.Subscription, error)
}

func (m *MockSubscriptionUseCase) GetCreatorTiers(ctx context.Context, creatorID string) ([]*model.SubscriptionTier, error) {
	return m.GetCreatorTiersFunc(ctx, creatorID)
}

func (m *MockSubscriptionUseCase) UpsertTier(ctx context.Context, creatorID string, in usecase.TierInput) (*model.SubscriptionTier, error) {
	return m.UpsertTierFunc(ctx, creatorID, in)
}

func (m *MockSubscriptionUseCase) Subscribe(ctx context.Context, userID, creatorID, tierID string) (*model.Subscription, error) {
	return m.SubscribeFunc(ctx, userID, creatorID, tierID)
}

func (m *MockSubscriptionUseCase) CancelSubscription(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	return m.CancelSubscriptionFunc(ctx, userID, subscriptionID)
}

func (m *MockSubscriptionUseCase) ToggleAutoRenew(ctx context.Context, userID, subscriptionID string, autoRenew bool) (*model.Subscription, error) {
	return m.ToggleAutoRenewFunc(ctx, userID, subscriptionID, autoRenew)
}

func (m *MockSubscriptionUseCase) ListUserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return m.ListUserSubsFunc(ctx, userID)
}

type MockPayoutUseCase struct {
	usecase.PayoutUseCase
	GetRegistrationLinkFunc func(ctx context.Context, creatorID string) (*model.PayeeAccount, error)
	SyncPayeeStatusFunc     func(ctx context.Context, creatorID string, force bool) (*model.PayeeAccount, error)
	RequestPayoutFunc       func(ctx context.Context, creatorID string, amount int64, method string) (*model.PayoutRequest, error)
	SubmitPayoutFunc        func(ctx context.Context, payoutID string) (*model.PayoutRequest, error)
	CancelPayoutFunc        func(ctx context.Context, creatorID, payoutID string) (*model.PayoutRequest, error)
	ListPayoutsFunc         func(ctx context.Context, creatorID string, limit int) ([]*model.PayoutRequest, error)
	HandleWebhookFunc       func(ctx context.Context, body []byte, signature string) error
}

func (m *MockPayoutUseCase) GetRegistrationLink(ctx context.Context, creatorID string) (*model.PayeeAccount, error) {
	return m.GetRegistrationLinkFunc(ctx, creatorID)
}

func (m *MockPayoutUseCase) SyncPayeeStatus(ctx context.Context, creatorID string, force bool) (*model.PayeeAccount, error) {
	return m.SyncPayeeStatusFunc(ctx, creatorID, force)
}

func (m *MockPayoutUseCase) RequestPayout(ctx context.Context, creatorID string, amount int64, method string) (*model.PayoutRequest, error) {
	return m.RequestPayoutFunc(ctx, creatorID, amount, method)
}

func (m *MockPayoutUseCase) SubmitPayout(ctx context.Context, payoutID string) (*model.PayoutRequest, error) {
	return m.SubmitPayoutFunc(ctx, payoutID)
}

func (m *MockPayoutUseCase) CancelPayout(ctx context.Context, creatorID, payoutID string) (*model.PayoutRequest, error) {
	return m.CancelPayoutFunc(ctx, creatorID, payoutID)
}

func (m *MockPayoutUseCase) ListPayouts(ctx context.Context, creatorID string, limit int) ([]*model.PayoutRequest, error) {
	return m.ListPayoutsFunc(ctx, creatorID, limit)
}

func (m *MockPayoutUseCase) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.HandleWebhookFunc(ctx, body, signature)
}

// MockLimiter allows the first Budget calls per key.
type MockLimiter struct {
	mu     sync.Mutex
	Budget int
	Err    error
	seen   map[string]int
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]int{}
	}
	m.seen[key]++
	return m.seen[key] <= m.Budget, nil
}
