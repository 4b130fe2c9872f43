package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// TransactionInput describes one signed balance change.
type TransactionInput struct {
	UserID         string
	Amount         int64
	Type           model.TransactionType
	IdempotencyKey string
	Description    string
	Metadata       model.TransactionMetadata
}

// TransferInput moves Amount coins from one wallet to another as two linked
// transactions. IdempotencyKey, when set, is suffixed per leg.
type TransferInput struct {
	FromUserID     string
	ToUserID       string
	Amount         int64
	DebitType      model.TransactionType
	CreditType     model.TransactionType
	IdempotencyKey string
	Description    string
	DebitMetadata  model.TransactionMetadata
	CreditMetadata model.TransactionMetadata
}

type TransferResult struct {
	Debit  *model.Transaction
	Credit *model.Transaction
}

// SettleInput names the transaction recorded when a hold is settled.
type SettleInput struct {
	Type           model.TransactionType
	IdempotencyKey string
	Description    string
	Metadata       model.TransactionMetadata
}

type LedgerUseCase interface {
	// CreateTransaction applies one change in its own transaction.
	CreateTransaction(ctx context.Context, in TransactionInput) (*model.Transaction, error)
	// Apply applies one change inside the caller's transaction.
	Apply(ctx context.Context, tx repository.Tx, in TransactionInput) (*model.Transaction, error)
	Transfer(ctx context.Context, tx repository.Tx, in TransferInput) (*TransferResult, error)
	// FindTransfer looks up a transfer by the key it was created with.
	FindTransfer(ctx context.Context, tx repository.Tx, key string) (*TransferResult, bool, error)

	PlaceHold(ctx context.Context, tx repository.Tx, userID string, amount int64, purpose model.HoldPurpose, referenceID string) (*model.SpendHold, error)
	SettleHold(ctx context.Context, tx repository.Tx, holdID string, in SettleInput) (*model.Transaction, error)
	ReleaseHold(ctx context.Context, tx repository.Tx, holdID string) (*model.SpendHold, error)

	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
	// LockWallet reads a wallet under the transaction's row lock.
	LockWallet(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error)
	EnsureWallet(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*model.Transaction, error)
}

type ledgerUC struct {
	tm       repository.TransactionManager
	wallets  repository.WalletRepository
	txs      repository.TransactionRepository
	holds    repository.HoldRepository
	attempts int
	log      *zerolog.Logger
}

func NewLedgerUseCase(
	tm repository.TransactionManager,
	wallets repository.WalletRepository,
	txs repository.TransactionRepository,
	holds repository.HoldRepository,
	conflictRetries int,
	logger *zerolog.Logger,
) *ledgerUC {
	l := logger.With().Str("component", "ledger").Logger()
	return &ledgerUC{
		tm:       tm,
		wallets:  wallets,
		txs:      txs,
		holds:    holds,
		attempts: conflictRetries + 1,
		log:      &l,
	}
}

func (u *ledgerUC) CreateTransaction(ctx context.Context, in TransactionInput) (*model.Transaction, error) {
	var out *model.Transaction
	err := runInTx(ctx, u.tm, u.attempts, u.log, "create_transaction", func(ctx context.Context, tx repository.Tx) error {
		t, err := u.Apply(ctx, tx, in)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *ledgerUC) Apply(ctx context.Context, tx repository.Tx, in TransactionInput) (*model.Transaction, error) {
	if in.UserID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}
	if in.Amount == 0 {
		return nil, domain.NewValidationError("amount", "must not be zero")
	}
	if in.Type == "" {
		return nil, domain.NewValidationError("type", "must not be empty")
	}

	if in.IdempotencyKey != "" {
		existing, err := u.txs.FindByIdempotencyKey(ctx, tx, in.IdempotencyKey)
		if err == nil {
			u.log.Debug().Str("idempotency_key", in.IdempotencyKey).Str("transaction_id", existing.ID).
				Msg("idempotent replay, returning existing transaction")
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	w, err := u.lockWallet(ctx, tx, in.UserID, in.Amount > 0)
	if err != nil {
		return nil, err
	}
	if !w.CanApply(in.Amount) {
		return nil, &domain.InsufficientBalanceError{
			Required:  -in.Amount,
			Available: w.Available(),
			Balance:   w.Balance,
			Held:      w.HeldBalance,
		}
	}

	newBalance := w.Balance + in.Amount
	if err := u.wallets.UpdateBalances(ctx, tx, w.UserID, newBalance, w.HeldBalance); err != nil {
		return nil, err
	}

	t := &model.Transaction{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Amount:       in.Amount,
		Type:         in.Type,
		Status:       model.TransactionStatusCompleted,
		Description:  in.Description,
		Metadata:     in.Metadata,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now(),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		t.IdempotencyKey = &key
	}
	if err := u.txs.Insert(ctx, tx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			// a concurrent writer committed the same key after our lookup;
			// retrying the transaction will take the replay path.
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return t, nil
}

func (u *ledgerUC) Transfer(ctx context.Context, tx repository.Tx, in TransferInput) (*TransferResult, error) {
	if in.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if in.FromUserID == "" || in.ToUserID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}
	if in.FromUserID == in.ToUserID {
		return nil, domain.NewValidationError("recipient", "cannot transfer to self")
	}

	var debitKey, creditKey string
	if in.IdempotencyKey != "" {
		debitKey = in.IdempotencyKey + ":debit"
		creditKey = in.IdempotencyKey + ":credit"
		if res, ok, err := u.findTransfer(ctx, tx, debitKey); err != nil {
			return nil, err
		} else if ok {
			return res, nil
		}
	}

	// lock both rows in a fixed order so opposite transfers cannot deadlock
	ids := []string{in.FromUserID, in.ToUserID}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := u.lockWallet(ctx, tx, id, id == in.ToUserID); err != nil {
			return nil, err
		}
	}

	debit, err := u.Apply(ctx, tx, TransactionInput{
		UserID:         in.FromUserID,
		Amount:         -in.Amount,
		Type:           in.DebitType,
		IdempotencyKey: debitKey,
		Description:    in.Description,
		Metadata:       in.DebitMetadata,
	})
	if err != nil {
		return nil, err
	}
	credit, err := u.Apply(ctx, tx, TransactionInput{
		UserID:         in.ToUserID,
		Amount:         in.Amount,
		Type:           in.CreditType,
		IdempotencyKey: creditKey,
		Description:    in.Description,
		Metadata:       in.CreditMetadata,
	})
	if err != nil {
		return nil, err
	}
	if err := u.txs.LinkRelated(ctx, tx, debit.ID, credit.ID); err != nil {
		return nil, err
	}
	debit.RelatedTransactionID = &credit.ID
	credit.RelatedTransactionID = &debit.ID

	return &TransferResult{Debit: debit, Credit: credit}, nil
}

func (u *ledgerUC) FindTransfer(ctx context.Context, tx repository.Tx, key string) (*TransferResult, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	return u.findTransfer(ctx, tx, key+":debit")
}

func (u *ledgerUC) findTransfer(ctx context.Context, tx repository.Tx, debitKey string) (*TransferResult, bool, error) {
	debit, err := u.txs.FindByIdempotencyKey(ctx, tx, debitKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	res := &TransferResult{Debit: debit}
	if debit.RelatedTransactionID != nil {
		credit, err := u.txs.FindByID(ctx, tx, *debit.RelatedTransactionID)
		if err != nil {
			return nil, false, err
		}
		res.Credit = credit
	}
	return res, true, nil
}

func (u *ledgerUC) PlaceHold(ctx context.Context, tx repository.Tx, userID string, amount int64, purpose model.HoldPurpose, referenceID string) (*model.SpendHold, error) {
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	w, err := u.lockWallet(ctx, tx, userID, false)
	if err != nil {
		return nil, err
	}
	if w.Available() < amount {
		return nil, &domain.InsufficientBalanceError{
			Required:  amount,
			Available: w.Available(),
			Balance:   w.Balance,
			Held:      w.HeldBalance,
		}
	}
	if err := u.wallets.UpdateBalances(ctx, tx, userID, w.Balance, w.HeldBalance+amount); err != nil {
		return nil, err
	}
	h := &model.SpendHold{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Status:      model.HoldStatusPending,
		Purpose:     purpose,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}
	if err := u.holds.Insert(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (u *ledgerUC) SettleHold(ctx context.Context, tx repository.Tx, holdID string, in SettleInput) (*model.Transaction, error) {
	h, err := u.holds.FindByID(ctx, tx, holdID)
	if err != nil {
		return nil, err
	}
	if !h.IsPending() {
		return nil, domain.ErrHoldNotPending
	}
	w, err := u.lockWallet(ctx, tx, h.UserID, false)
	if err != nil {
		return nil, err
	}
	if w.HeldBalance < h.Amount || w.Balance < h.Amount {
		u.log.Error().Str("user_id", h.UserID).Str("hold_id", h.ID).
			Int64("held", w.HeldBalance).Int64("balance", w.Balance).Int64("amount", h.Amount).
			Msg("wallet does not cover pending hold")
		return nil, domain.ErrOperationFailed
	}

	newBalance := w.Balance - h.Amount
	if err := u.wallets.UpdateBalances(ctx, tx, h.UserID, newBalance, w.HeldBalance-h.Amount); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &model.Transaction{
		ID:           uuid.NewString(),
		UserID:       h.UserID,
		Amount:       -h.Amount,
		Type:         in.Type,
		Status:       model.TransactionStatusCompleted,
		Description:  in.Description,
		Metadata:     in.Metadata,
		BalanceAfter: newBalance,
		CreatedAt:    now,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		t.IdempotencyKey = &key
	}
	if err := u.txs.Insert(ctx, tx, t); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	h.Status = model.HoldStatusSettled
	h.ResolvedAt = &now
	if err := u.holds.Save(ctx, tx, h); err != nil {
		return nil, err
	}
	return t, nil
}

func (u *ledgerUC) ReleaseHold(ctx context.Context, tx repository.Tx, holdID string) (*model.SpendHold, error) {
	h, err := u.holds.FindByID(ctx, tx, holdID)
	if err != nil {
		return nil, err
	}
	if !h.IsPending() {
		return nil, domain.ErrHoldNotPending
	}
	w, err := u.lockWallet(ctx, tx, h.UserID, false)
	if err != nil {
		return nil, err
	}
	held := w.HeldBalance - h.Amount
	if held < 0 {
		u.log.Error().Str("user_id", h.UserID).Str("hold_id", h.ID).Int64("held", w.HeldBalance).
			Msg("held balance below pending hold, clamping to zero")
		held = 0
	}
	if err := u.wallets.UpdateBalances(ctx, tx, h.UserID, w.Balance, held); err != nil {
		return nil, err
	}
	now := time.Now()
	h.Status = model.HoldStatusReleased
	h.ResolvedAt = &now
	if err := u.holds.Save(ctx, tx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (u *ledgerUC) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	return u.wallets.FindByUserID(ctx, nil, userID)
}

func (u *ledgerUC) LockWallet(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	return u.lockWallet(ctx, tx, userID, false)
}

func (u *ledgerUC) EnsureWallet(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	return u.lockWallet(ctx, tx, userID, true)
}

func (u *ledgerUC) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*model.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.txs.ListByUser(ctx, nil, userID, limit, offset)
}

// lockWallet reads the wallet row under the transaction's lock. Wallets are
// created lazily only for credits: a missing wallet on a debit means the
// user was never provisioned and is reported loudly.
func (u *ledgerUC) lockWallet(ctx context.Context, tx repository.Tx, userID string, create bool) (*model.Wallet, error) {
	w, err := u.wallets.FindByUserID(ctx, tx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}
	if !create {
		u.log.Error().Str("user_id", userID).Msg("debit against missing wallet")
		return nil, err
	}
	if err := u.wallets.Create(ctx, tx, model.NewWallet(userID)); err != nil {
		return nil, err
	}
	return u.wallets.FindByUserID(ctx, tx, userID)
}
