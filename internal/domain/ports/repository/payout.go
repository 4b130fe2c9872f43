package repository

import (
	"context"
	"time"

	"creator-monetization/internal/domain/model"
)

// -----------------------------
// Payouts
// -----------------------------

type PayoutRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PayoutRequest) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.PayoutRequest, error)
	FindByProviderPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.PayoutRequest, error)
	FindByExternalReference(ctx context.Context, tx Tx, ref string) (*model.PayoutRequest, error)
	ListByCreator(ctx context.Context, tx Tx, creatorID string, limit int) ([]*model.PayoutRequest, error)
	// ListUnsettledOlderThan returns processing payouts and pending payouts that
	// already carry an external reference, untouched since olderThan.
	ListUnsettledOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PayoutRequest, error)
}

// -----------------------------
// Payee accounts
// -----------------------------

type PayeeRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PayeeAccount) error
	FindByCreatorID(ctx context.Context, tx Tx, creatorID string) (*model.PayeeAccount, error)
	FindByPayeeID(ctx context.Context, tx Tx, payeeID string) (*model.PayeeAccount, error)
}
