package repository

import (
	"context"

	"creator-monetization/internal/domain/model"
)

// -----------------------------
// Wallets
// -----------------------------

type WalletRepository interface {
	// FindByUserID returns domain.ErrWalletNotFound when the user has no wallet.
	// Inside a transaction the row stays locked until commit.
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	// Create inserts a wallet; an existing row for the user is left untouched.
	Create(ctx context.Context, tx Tx, w *model.Wallet) error
	UpdateBalances(ctx context.Context, tx Tx, userID string, balance, held int64) error
}

// -----------------------------
// Transactions
// -----------------------------

type TransactionRepository interface {
	// Insert returns domain.ErrDuplicateKey when the idempotency key is taken.
	Insert(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, tx Tx, key string) (*model.Transaction, error)
	// LinkRelated points both legs of a transfer at each other.
	LinkRelated(ctx context.Context, tx Tx, firstID, secondID string) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Transaction, error)
}

// -----------------------------
// Holds
// -----------------------------

type HoldRepository interface {
	Insert(ctx context.Context, tx Tx, h *model.SpendHold) error
	// FindByID locks the hold row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.SpendHold, error)
	Save(ctx context.Context, tx Tx, h *model.SpendHold) error
}
