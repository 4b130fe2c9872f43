package repository

import (
	"context"

	"creator-monetization/internal/domain/model"
)

// LiveSessionRepository exposes the slice of session state the revenue split
// reads. Sessions themselves are started and ended by the streaming service.
type LiveSessionRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.LiveSession, error)
	UpdateCommission(ctx context.Context, tx Tx, id string, percent *int) error
}

type GiftRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Gift, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Gift, error)
}
