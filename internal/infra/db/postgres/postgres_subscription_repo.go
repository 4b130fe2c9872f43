package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

var _ repository.TierRepository = (*tierRepo)(nil)

type tierRepo struct{ pool *pgxpool.Pool }

func NewTierRepo(pool *pgxpool.Pool) *tierRepo {
	return &tierRepo{pool: pool}
}

const tierColumns = `id, creator_id, tier, name, price_per_month, benefits, is_active, subscriber_count, created_at, updated_at`

func (r *tierRepo) Save(ctx context.Context, tx repository.Tx, t *model.SubscriptionTier) error {
	const q = `
INSERT INTO subscription_tiers (` + tierColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=$4, price_per_month=$5, benefits=$6, is_active=$7, updated_at=$10;`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.CreatorID, int(t.Tier), t.Name, t.PricePerMonth, t.Benefits,
		t.IsActive, t.SubscriberCount, t.CreatedAt, t.UpdatedAt)
	return writeErr(err, domain.ErrAlreadyExists)
}

func (r *tierRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionTier, error) {
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT `+tierColumns+` FROM subscription_tiers WHERE id=$1`, tx), id)
	if err != nil {
		return nil, err
	}
	return scanTier(row)
}

func (r *tierRepo) ListByCreator(ctx context.Context, tx repository.Tx, creatorID string) ([]*model.SubscriptionTier, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+tierColumns+` FROM subscription_tiers WHERE creator_id=$1 ORDER BY tier ASC;`, creatorID)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.SubscriptionTier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, readErrIfAny(rows.Err())
}

func (r *tierRepo) AdjustSubscriberCount(ctx context.Context, tx repository.Tx, tierID string, delta int) error {
	const q = `UPDATE subscription_tiers SET subscriber_count=GREATEST(subscriber_count + $2, 0), updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, tierID, delta)
	if err != nil {
		return writeErr(err, nil)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTier(row scanner) (*model.SubscriptionTier, error) {
	t := &model.SubscriptionTier{}
	var level int
	if err := row.Scan(&t.ID, &t.CreatorID, &level, &t.Name, &t.PricePerMonth, &t.Benefits, &t.IsActive,
		&t.SubscriberCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	t.Tier = model.TierLevel(level)
	if t.Benefits == nil {
		t.Benefits = []string{}
	}
	return t, nil
}

func readErrIfAny(err error) error {
	if err == nil {
		return nil
	}
	return readErr(err, domain.ErrNotFound)
}

// -----------------------------
// Subscriptions
// -----------------------------

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, creator_id, tier_id, status, started_at, expires_at, next_billing_at, last_payment_at, auto_renew, failed_payment_count, total_paid, cancelled_at, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  status=$5, expires_at=$7, next_billing_at=$8, last_payment_at=$9, auto_renew=$10,
  failed_payment_count=$11, total_paid=$12, cancelled_at=$13, updated_at=$15;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.CreatorID, s.TierID, s.Status, s.StartedAt, s.ExpiresAt,
		s.NextBillingAt, s.LastPaymentAt, s.AutoRenew, s.FailedPaymentCount, s.TotalPaid, s.CancelledAt, s.CreatedAt, s.UpdatedAt)
	return writeErr(err, domain.ErrAlreadySubscribed)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id=$1`, tx), id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindActiveByUserAndCreator(ctx context.Context, tx repository.Tx, userID, creatorID string) (*model.Subscription, error) {
	q := forUpdate(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id=$1 AND creator_id=$2 AND status='active'`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, userID, creatorID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	return r.list(ctx, tx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
}

func (r *subscriptionRepo) ListDueForRenewal(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE status='active' AND auto_renew AND next_billing_at <= $1
ORDER BY next_billing_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *subscriptionRepo) ListLapsed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE status='active' AND NOT auto_renew AND expires_at <= $1
ORDER BY expires_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var (
			st string
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, readErr(err, domain.ErrNotFound)
		}
		out[model.SubscriptionStatus(st)] = n
	}
	return out, readErrIfAny(rows.Err())
}

func (r *subscriptionRepo) SavePayment(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayment) error {
	const q = `
INSERT INTO subscription_payments (id, subscription_id, user_id, creator_id, transaction_id, amount, period_start, period_end, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.SubscriptionID, p.UserID, p.CreatorID, p.TransactionID, p.Amount,
		p.PeriodStart, p.PeriodEnd, p.CreatedAt)
	return writeErr(err, domain.ErrAlreadyExists)
}

func (r *subscriptionRepo) ListPayments(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionPayment, error) {
	const q = `SELECT id, subscription_id, user_id, creator_id, transaction_id, amount, period_start, period_end, created_at
FROM subscription_payments WHERE subscription_id=$1 ORDER BY period_start ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.SubscriptionPayment
	for rows.Next() {
		p := new(model.SubscriptionPayment)
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.UserID, &p.CreatorID, &p.TransactionID, &p.Amount,
			&p.PeriodStart, &p.PeriodEnd, &p.CreatedAt); err != nil {
			return nil, readErr(err, domain.ErrNotFound)
		}
		out = append(out, p)
	}
	return out, readErrIfAny(rows.Err())
}

func (r *subscriptionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, readErrIfAny(rows.Err())
}

func scanSubscription(row scanner) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatorID, &s.TierID, &s.Status, &s.StartedAt, &s.ExpiresAt,
		&s.NextBillingAt, &s.LastPaymentAt, &s.AutoRenew, &s.FailedPaymentCount, &s.TotalPaid, &s.CancelledAt,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	return s, nil
}
