//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/adapter"
	"creator-monetization/internal/domain/ports/repository"
)

// =============================
// In-memory store
// =============================

// memStore backs every repository mock. MockTxManager snapshots it before a
// transaction and restores the snapshot when the transaction fails, so use
// cases see the same all-or-nothing behavior they get from Postgres.
type memStore struct {
	mu sync.Mutex

	wallets  map[string]model.Wallet
	txs      map[string]model.Transaction
	txOrder  []string
	holds    map[string]model.SpendHold
	tiers    map[string]model.SubscriptionTier
	subs     map[string]model.Subscription
	payments []model.SubscriptionPayment
	payouts  map[string]model.PayoutRequest
	payees   map[string]model.PayeeAccount
	sessions map[string]model.LiveSession
	gifts    map[string]model.Gift
}

func newMemStore() *memStore {
	return &memStore{
		wallets:  map[string]model.Wallet{},
		txs:      map[string]model.Transaction{},
		holds:    map[string]model.SpendHold{},
		tiers:    map[string]model.SubscriptionTier{},
		subs:     map[string]model.Subscription{},
		payouts:  map[string]model.PayoutRequest{},
		payees:   map[string]model.PayeeAccount{},
		sessions: map[string]model.LiveSession{},
		gifts:    map[string]model.Gift{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memStore{
		wallets:  copyMap(s.wallets),
		txs:      copyMap(s.txs),
		txOrder:  append([]string(nil), s.txOrder...),
		holds:    copyMap(s.holds),
		tiers:    copyMap(s.tiers),
		subs:     copyMap(s.subs),
		payments: append([]model.SubscriptionPayment(nil), s.payments...),
		payouts:  copyMap(s.payouts),
		payees:   copyMap(s.payees),
		sessions: copyMap(s.sessions),
		gifts:    copyMap(s.gifts),
	}
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets, s.txs, s.txOrder = snap.wallets, snap.txs, snap.txOrder
	s.holds, s.tiers, s.subs, s.payments = snap.holds, snap.tiers, snap.subs, snap.payments
	s.payouts, s.payees, s.sessions, s.gifts = snap.payouts, snap.payees, snap.sessions, snap.gifts
}

// ---- seeding helpers ----

func (s *memStore) putWallet(userID string, balance, held int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = model.Wallet{UserID: userID, Balance: balance, HeldBalance: held, CreatedAt: time.Now()}
}

func (s *memStore) wallet(userID string) model.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID]
}

func (s *memStore) transactionsOf(userID string) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, id := range s.txOrder {
		if t := s.txs[id]; t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) transactionsByType(tt model.TransactionType) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, id := range s.txOrder {
		if t := s.txs[id]; t.Type == tt {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) hold(id string) model.SpendHold {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holds[id]
}

func (s *memStore) putSession(ls model.LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ls.ID] = ls
}

func (s *memStore) putGift(g model.Gift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gifts[g.ID] = g
}

func (s *memStore) putTier(t model.SubscriptionTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[t.ID] = t
}

func (s *memStore) tier(id string) model.SubscriptionTier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tiers[id]
}

func (s *memStore) subscription(id string) model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id]
}

func (s *memStore) updateSubscription(id string, fn func(*model.Subscription)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subs[id]
	fn(&sub)
	s.subs[id] = sub
}

func (s *memStore) paymentsOf(subscriptionID string) []model.SubscriptionPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SubscriptionPayment
	for _, p := range s.payments {
		if p.SubscriptionID == subscriptionID {
			out = append(out, p)
		}
	}
	return out
}

func (s *memStore) putPayee(p model.PayeeAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payees[p.CreatorID] = p
}

func (s *memStore) payee(creatorID string) (model.PayeeAccount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payees[creatorID]
	return p, ok
}

func (s *memStore) payout(id string) model.PayoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payouts[id]
}

func (s *memStore) putPayout(p model.PayoutRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payouts[p.ID] = p
}

// =============================
// Transaction manager
// =============================

// MockTxManager serializes transactions, standing in for the row locks the
// Postgres repositories take, and rolls the store back on error.
type MockTxManager struct {
	store *memStore
	txMu  sync.Mutex

	mu        sync.Mutex
	Commits   int
	Rollbacks int

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager(store *memStore) *MockTxManager {
	return &MockTxManager{store: store}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

type memTx struct{}

var txOpts = pgx.TxOptions{}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.store.snapshot()
	err := fn(ctx, memTx{})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.store.restore(snap)
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

// =============================
// Repositories
// =============================

// ---- Wallets ----

type MockWalletRepo struct {
	s *memStore

	UpdateBalancesFunc func(ctx context.Context, tx repository.Tx, userID string, balance, held int64) error
}

var _ repository.WalletRepository = (*MockWalletRepo)(nil)

func (r *MockWalletRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return &w, nil
}

func (r *MockWalletRepo) Create(ctx context.Context, tx repository.Tx, w *model.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[w.UserID]; !ok {
		r.s.wallets[w.UserID] = *w
	}
	return nil
}

func (r *MockWalletRepo) UpdateBalances(ctx context.Context, tx repository.Tx, userID string, balance, held int64) error {
	if r.UpdateBalancesFunc != nil {
		if err := r.UpdateBalancesFunc(ctx, tx, userID, balance, held); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	w.Balance, w.HeldBalance, w.UpdatedAt = balance, held, time.Now()
	r.s.wallets[userID] = w
	return nil
}

// ---- Transactions ----

type MockTransactionRepo struct {
	s *memStore

	InsertFunc func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func (r *MockTransactionRepo) Insert(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if r.InsertFunc != nil {
		if err := r.InsertFunc(ctx, tx, t); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.IdempotencyKey != nil {
		for _, e := range r.s.txs {
			if e.IdempotencyKey != nil && *e.IdempotencyKey == *t.IdempotencyKey {
				return domain.ErrDuplicateKey
			}
		}
	}
	r.s.txs[t.ID] = *t
	r.s.txOrder = append(r.s.txOrder, t.ID)
	return nil
}

func (r *MockTransactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.txs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *MockTransactionRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, key string) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.txs {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockTransactionRepo) LinkRelated(ctx context.Context, tx repository.Tx, firstID, secondID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, okA := r.s.txs[firstID]
	b, okB := r.s.txs[secondID]
	if !okA || !okB {
		return domain.ErrNotFound
	}
	a.RelatedTransactionID, b.RelatedTransactionID = &secondID, &firstID
	r.s.txs[firstID], r.s.txs[secondID] = a, b
	return nil
}

func (r *MockTransactionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Transaction
	for i := len(r.s.txOrder) - 1; i >= 0; i-- {
		t := r.s.txs[r.s.txOrder[i]]
		if t.UserID == userID {
			out = append(out, &t)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Holds ----

type MockHoldRepo struct{ s *memStore }

var _ repository.HoldRepository = (*MockHoldRepo)(nil)

func (r *MockHoldRepo) Insert(ctx context.Context, tx repository.Tx, h *model.SpendHold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.holds[h.ID] = *h
	return nil
}

func (r *MockHoldRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SpendHold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.holds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

func (r *MockHoldRepo) Save(ctx context.Context, tx repository.Tx, h *model.SpendHold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.holds[h.ID] = *h
	return nil
}

// ---- Tiers ----

type MockTierRepo struct{ s *memStore }

var _ repository.TierRepository = (*MockTierRepo)(nil)

func (r *MockTierRepo) Save(ctx context.Context, tx repository.Tx, t *model.SubscriptionTier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.tiers {
		if e.ID != t.ID && e.CreatorID == t.CreatorID && e.Tier == t.Tier {
			return domain.ErrAlreadyExists
		}
	}
	r.s.tiers[t.ID] = *t
	return nil
}

func (r *MockTierRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tiers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *MockTierRepo) ListByCreator(ctx context.Context, tx repository.Tx, creatorID string) ([]*model.SubscriptionTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.SubscriptionTier
	for _, t := range r.s.tiers {
		if t.CreatorID == creatorID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (r *MockTierRepo) AdjustSubscriberCount(ctx context.Context, tx repository.Tx, tierID string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tiers[tierID]
	if !ok {
		return domain.ErrNotFound
	}
	t.SubscriberCount += delta
	if t.SubscriberCount < 0 {
		t.SubscriberCount = 0
	}
	r.s.tiers[tierID] = t
	return nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct{ s *memStore }

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sub.Status == model.SubscriptionStatusActive {
		for _, e := range r.s.subs {
			if e.ID != sub.ID && e.Status == model.SubscriptionStatusActive &&
				e.UserID == sub.UserID && e.CreatorID == sub.CreatorID {
				return domain.ErrAlreadySubscribed
			}
		}
	}
	r.s.subs[sub.ID] = *sub
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (r *MockSubscriptionRepo) FindActiveByUserAndCreator(ctx context.Context, tx repository.Tx, userID, creatorID string) (*model.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.subs {
		if sub.UserID == userID && sub.CreatorID == creatorID && sub.Status == model.SubscriptionStatusActive {
			return &sub, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	return r.filter(func(s model.Subscription) bool { return s.UserID == userID }, 0), nil
}

func (r *MockSubscriptionRepo) ListDueForRenewal(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	return r.filter(func(s model.Subscription) bool {
		return s.Status == model.SubscriptionStatusActive && s.AutoRenew && !s.NextBillingAt.After(now)
	}, limit), nil
}

func (r *MockSubscriptionRepo) ListLapsed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	return r.filter(func(s model.Subscription) bool {
		return s.Status == model.SubscriptionStatusActive && !s.AutoRenew && !s.ExpiresAt.After(now)
	}, limit), nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, sub := range r.s.subs {
		out[sub.Status]++
	}
	return out, nil
}

func (r *MockSubscriptionRepo) SavePayment(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payments = append(r.s.payments, *p)
	return nil
}

func (r *MockSubscriptionRepo) ListPayments(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionPayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.SubscriptionPayment
	for _, p := range r.s.payments {
		if p.SubscriptionID == subscriptionID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) filter(keep func(model.Subscription) bool, limit int) []*model.Subscription {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range r.s.subs {
		if keep(sub) {
			sub := sub
			out = append(out, &sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextBillingAt.Before(out[j].NextBillingAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ---- Payouts ----

type MockPayoutRepo struct{ s *memStore }

var _ repository.PayoutRepository = (*MockPayoutRepo)(nil)

func (r *MockPayoutRepo) Save(ctx context.Context, tx repository.Tx, p *model.PayoutRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payouts[p.ID] = *p
	return nil
}

func (r *MockPayoutRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PayoutRequest, error) {
	return r.find(func(p model.PayoutRequest) bool { return p.ID == id })
}

func (r *MockPayoutRepo) FindByProviderPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.PayoutRequest, error) {
	return r.find(func(p model.PayoutRequest) bool {
		return p.ProviderPaymentID != nil && *p.ProviderPaymentID == paymentID
	})
}

func (r *MockPayoutRepo) FindByExternalReference(ctx context.Context, tx repository.Tx, ref string) (*model.PayoutRequest, error) {
	return r.find(func(p model.PayoutRequest) bool {
		return p.ExternalReference != nil && *p.ExternalReference == ref
	})
}

func (r *MockPayoutRepo) ListByCreator(ctx context.Context, tx repository.Tx, creatorID string, limit int) ([]*model.PayoutRequest, error) {
	return r.list(func(p model.PayoutRequest) bool { return p.CreatorID == creatorID }, limit), nil
}

func (r *MockPayoutRepo) ListUnsettledOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PayoutRequest, error) {
	return r.list(func(p model.PayoutRequest) bool {
		unsettled := p.Status == model.PayoutStatusProcessing ||
			(p.Status == model.PayoutStatusPending && p.ExternalReference != nil)
		return unsettled && !p.UpdatedAt.After(olderThan)
	}, limit), nil
}

func (r *MockPayoutRepo) find(match func(model.PayoutRequest) bool) (*model.PayoutRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payouts {
		if match(p) {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPayoutRepo) list(keep func(model.PayoutRequest) bool, limit int) []*model.PayoutRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.PayoutRequest
	for _, p := range r.s.payouts {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ---- Payees ----

type MockPayeeRepo struct{ s *memStore }

var _ repository.PayeeRepository = (*MockPayeeRepo)(nil)

func (r *MockPayeeRepo) Save(ctx context.Context, tx repository.Tx, p *model.PayeeAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payees[p.CreatorID] = *p
	return nil
}

func (r *MockPayeeRepo) FindByCreatorID(ctx context.Context, tx repository.Tx, creatorID string) (*model.PayeeAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payees[creatorID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MockPayeeRepo) FindByPayeeID(ctx context.Context, tx repository.Tx, payeeID string) (*model.PayeeAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payees {
		if p.PayeeID == payeeID {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Sessions & gifts ----

type MockLiveSessionRepo struct{ s *memStore }

var _ repository.LiveSessionRepository = (*MockLiveSessionRepo)(nil)

func (r *MockLiveSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LiveSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ls, ok := r.s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ls, nil
}

func (r *MockLiveSessionRepo) UpdateCommission(ctx context.Context, tx repository.Tx, id string, percent *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ls, ok := r.s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	ls.CommissionPercent = percent
	r.s.sessions[id] = ls
	return nil
}

type MockGiftRepo struct{ s *memStore }

var _ repository.GiftRepository = (*MockGiftRepo)(nil)

func (r *MockGiftRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Gift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.gifts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &g, nil
}

func (r *MockGiftRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Gift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Gift
	for _, g := range r.s.gifts {
		if g.IsActive {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CoinCost < out[j].CoinCost })
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PayoutProvider ----

type MockPayoutProvider struct {
	mu        sync.Mutex
	Submitted []adapter.SubmitPayoutRequest

	GenerateRegistrationLinkFunc func(ctx context.Context, payeeID, redirectURL string) (adapter.RegistrationLink, error)
	GetPayeeStatusFunc           func(ctx context.Context, payeeID string) (adapter.PayeeStatusResult, error)
	SubmitPayoutFunc             func(ctx context.Context, req adapter.SubmitPayoutRequest) (adapter.SubmitPayoutResult, error)
	GetPaymentStatusFunc         func(ctx context.Context, paymentID string) (adapter.PaymentStatusResult, error)
	VerifyWebhookSignatureFunc   func(payload []byte, signature string) bool
}

var _ adapter.PayoutProvider = (*MockPayoutProvider)(nil)

func (m *MockPayoutProvider) Name() string { return "mock" }

func (m *MockPayoutProvider) GenerateRegistrationLink(ctx context.Context, payeeID, redirectURL string) (adapter.RegistrationLink, error) {
	if m.GenerateRegistrationLinkFunc != nil {
		return m.GenerateRegistrationLinkFunc(ctx, payeeID, redirectURL)
	}
	return adapter.RegistrationLink{
		Link:      "https://payouts.example.test/onboard/" + payeeID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (m *MockPayoutProvider) GetPayeeStatus(ctx context.Context, payeeID string) (adapter.PayeeStatusResult, error) {
	if m.GetPayeeStatusFunc != nil {
		return m.GetPayeeStatusFunc(ctx, payeeID)
	}
	return adapter.PayeeStatusResult{Status: "pending"}, nil
}

func (m *MockPayoutProvider) SubmitPayout(ctx context.Context, req adapter.SubmitPayoutRequest) (adapter.SubmitPayoutResult, error) {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, req)
	m.mu.Unlock()
	if m.SubmitPayoutFunc != nil {
		return m.SubmitPayoutFunc(ctx, req)
	}
	return adapter.SubmitPayoutResult{PaymentID: "pay_" + req.ClientReferenceID, Status: "submitted"}, nil
}

func (m *MockPayoutProvider) GetPaymentStatus(ctx context.Context, paymentID string) (adapter.PaymentStatusResult, error) {
	if m.GetPaymentStatusFunc != nil {
		return m.GetPaymentStatusFunc(ctx, paymentID)
	}
	return adapter.PaymentStatusResult{Status: "processing"}, nil
}

func (m *MockPayoutProvider) VerifyWebhookSignature(payload []byte, signature string) bool {
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return signature == "valid"
}

func (m *MockPayoutProvider) submissions() []adapter.SubmitPayoutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.SubmitPayoutRequest(nil), m.Submitted...)
}

// ---- Mock Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.Notification
	done chan struct{}

	NotifyFunc func(ctx context.Context, n adapter.Notification) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{done: make(chan struct{}, 64)}
}

func (m *MockNotifier) Notify(ctx context.Context, n adapter.Notification) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, n)
	m.mu.Unlock()
	defer func() { m.done <- struct{}{} }()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

// wait blocks until n notifications were delivered or the timeout passes.
func (m *MockNotifier) wait(n int, timeout time.Duration) []adapter.Notification {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-m.done:
		case <-deadline:
			i = n
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.Notification(nil), m.Sent...)
}

// =============================
// Wiring
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// testDeps wires every use case over one in-memory store.
type testDeps struct {
	store    *memStore
	tm       *MockTxManager
	wallets  *MockWalletRepo
	txs      *MockTransactionRepo
	holds    *MockHoldRepo
	tiers    *MockTierRepo
	subs     *MockSubscriptionRepo
	payouts  *MockPayoutRepo
	payees   *MockPayeeRepo
	sessions *MockLiveSessionRepo
	gifts    *MockGiftRepo
	provider *MockPayoutProvider
	notifier *MockNotifier
}

func newTestDeps() *testDeps {
	s := newMemStore()
	return &testDeps{
		store:    s,
		tm:       NewMockTxManager(s),
		wallets:  &MockWalletRepo{s: s},
		txs:      &MockTransactionRepo{s: s},
		holds:    &MockHoldRepo{s: s},
		tiers:    &MockTierRepo{s: s},
		subs:     &MockSubscriptionRepo{s: s},
		payouts:  &MockPayoutRepo{s: s},
		payees:   &MockPayeeRepo{s: s},
		sessions: &MockLiveSessionRepo{s: s},
		gifts:    &MockGiftRepo{s: s},
		provider: &MockPayoutProvider{},
		notifier: NewMockNotifier(),
	}
}
