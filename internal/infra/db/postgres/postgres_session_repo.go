package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

var _ repository.LiveSessionRepository = (*liveSessionRepo)(nil)

type liveSessionRepo struct{ pool *pgxpool.Pool }

func NewLiveSessionRepo(pool *pgxpool.Pool) *liveSessionRepo {
	return &liveSessionRepo{pool: pool}
}

func (r *liveSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LiveSession, error) {
	q := `SELECT id, host_id, status, commission_percent, started_at, ended_at, updated_at FROM live_sessions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	s := &model.LiveSession{}
	if err := row.Scan(&s.ID, &s.HostID, &s.Status, &s.CommissionPercent, &s.StartedAt, &s.EndedAt, &s.UpdatedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	return s, nil
}

func (r *liveSessionRepo) UpdateCommission(ctx context.Context, tx repository.Tx, id string, percent *int) error {
	const q = `UPDATE live_sessions SET commission_percent=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, percent)
	if err != nil {
		return writeErr(err, nil)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Seed inserts or replaces a session. Sessions are owned by the streaming
// service; this is used by local seeding and integration tests.
func (r *liveSessionRepo) Seed(ctx context.Context, s *model.LiveSession) error {
	const q = `
INSERT INTO live_sessions (id, host_id, status, commission_percent, started_at, ended_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (id) DO UPDATE SET host_id=$2, status=$3, commission_percent=$4, started_at=$5, ended_at=$6, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, nil, q, s.ID, s.HostID, s.Status, s.CommissionPercent, s.StartedAt, s.EndedAt)
	return writeErr(err, nil)
}

// -----------------------------
// Gift catalog
// -----------------------------

var _ repository.GiftRepository = (*giftRepo)(nil)

type giftRepo struct{ pool *pgxpool.Pool }

func NewGiftRepo(pool *pgxpool.Pool) *giftRepo {
	return &giftRepo{pool: pool}
}

func (r *giftRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Gift, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT id, name, coin_cost, is_active FROM gifts WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	g := &model.Gift{}
	if err := row.Scan(&g.ID, &g.Name, &g.CoinCost, &g.IsActive); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	return g, nil
}

func (r *giftRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Gift, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT id, name, coin_cost, is_active FROM gifts WHERE is_active ORDER BY coin_cost ASC;`)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.Gift
	for rows.Next() {
		g := new(model.Gift)
		if err := rows.Scan(&g.ID, &g.Name, &g.CoinCost, &g.IsActive); err != nil {
			return nil, readErr(err, domain.ErrNotFound)
		}
		out = append(out, g)
	}
	return out, readErrIfAny(rows.Err())
}

// Seed inserts or replaces a catalog entry.
func (r *giftRepo) Seed(ctx context.Context, g *model.Gift) error {
	const q = `
INSERT INTO gifts (id, name, coin_cost, is_active) VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET name=$2, coin_cost=$3, is_active=$4;`
	_, err := execSQL(ctx, r.pool, nil, q, g.ID, g.Name, g.CoinCost, g.IsActive)
	return writeErr(err, nil)
}
