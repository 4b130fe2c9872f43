//go:build !integration

package postgres

import (
	"context"

	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerGiftRepo mocks the database repository that the gift decorator wraps.
type mockInnerGiftRepo struct {
	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.Gift, error)
	ListActiveFunc func(ctx context.Context, tx repository.Tx) ([]*model.Gift, error)

	findCalls int
	listCalls int
}

func (m *mockInnerGiftRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Gift, error) {
	m.findCalls++
	return m.FindByIDFunc(ctx, tx, id)
}

func (m *mockInnerGiftRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Gift, error) {
	m.listCalls++
	return m.ListActiveFunc(ctx, tx)
}
