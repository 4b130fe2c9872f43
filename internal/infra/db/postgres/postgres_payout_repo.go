package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

var _ repository.PayoutRepository = (*payoutRepo)(nil)

type payoutRepo struct{ pool *pgxpool.Pool }

func NewPayoutRepo(pool *pgxpool.Pool) *payoutRepo {
	return &payoutRepo{pool: pool}
}

const payoutColumns = `id, creator_id, amount, status, payout_method, external_reference, provider_payment_id, provider_status, meta, failure_reason, transaction_id, submitted_at, completed_at, created_at, updated_at`

func (r *payoutRepo) Save(ctx context.Context, tx repository.Tx, p *model.PayoutRequest) error {
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("%w: encode payout meta: %v", domain.ErrInvalidArgument, err)
	}
	const q = `
INSERT INTO payout_requests (` + payoutColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  status=$4, payout_method=$5, external_reference=$6, provider_payment_id=$7, provider_status=$8, meta=$9,
  failure_reason=$10, transaction_id=$11, submitted_at=$12, completed_at=$13, updated_at=$15;`
	_, err = execSQL(ctx, r.pool, tx, q, p.ID, p.CreatorID, p.Amount, p.Status, p.PayoutMethod, p.ExternalReference,
		p.ProviderPaymentID, p.ProviderStatus, meta, p.FailureReason, p.TransactionID, p.SubmittedAt, p.CompletedAt,
		p.CreatedAt, p.UpdatedAt)
	return writeErr(err, domain.ErrAlreadyExists)
}

func (r *payoutRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PayoutRequest, error) {
	return r.findOne(ctx, tx, forUpdate(`SELECT `+payoutColumns+` FROM payout_requests WHERE id=$1`, tx), id)
}

func (r *payoutRepo) FindByProviderPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.PayoutRequest, error) {
	return r.findOne(ctx, tx, `SELECT `+payoutColumns+` FROM payout_requests WHERE provider_payment_id=$1`, paymentID)
}

func (r *payoutRepo) FindByExternalReference(ctx context.Context, tx repository.Tx, ref string) (*model.PayoutRequest, error) {
	return r.findOne(ctx, tx, `SELECT `+payoutColumns+` FROM payout_requests WHERE external_reference=$1`, ref)
}

func (r *payoutRepo) ListByCreator(ctx context.Context, tx repository.Tx, creatorID string, limit int) ([]*model.PayoutRequest, error) {
	const q = `SELECT ` + payoutColumns + ` FROM payout_requests WHERE creator_id=$1 ORDER BY created_at DESC LIMIT $2;`
	return r.list(ctx, tx, q, creatorID, limit)
}

func (r *payoutRepo) ListUnsettledOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PayoutRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + payoutColumns + ` FROM payout_requests
WHERE (status='processing' OR (status='pending' AND external_reference IS NOT NULL))
  AND updated_at <= $1 ORDER BY updated_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *payoutRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.PayoutRequest, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanPayout(row)
}

func (r *payoutRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PayoutRequest, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.PayoutRequest
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, readErrIfAny(rows.Err())
}

func scanPayout(row scanner) (*model.PayoutRequest, error) {
	p := &model.PayoutRequest{}
	var meta []byte
	if err := row.Scan(&p.ID, &p.CreatorID, &p.Amount, &p.Status, &p.PayoutMethod, &p.ExternalReference,
		&p.ProviderPaymentID, &p.ProviderStatus, &meta, &p.FailureReason, &p.TransactionID, &p.SubmittedAt,
		&p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Meta); err != nil {
			return nil, fmt.Errorf("%w: payout %s meta: %v", domain.ErrReadDatabaseRow, p.ID, err)
		}
	}
	return p, nil
}

// -----------------------------
// Payee accounts
// -----------------------------

var _ repository.PayeeRepository = (*payeeRepo)(nil)

type payeeRepo struct{ pool *pgxpool.Pool }

func NewPayeeRepo(pool *pgxpool.Pool) *payeeRepo {
	return &payeeRepo{pool: pool}
}

const payeeColumns = `creator_id, payee_id, payee_status, preferred_currency, payout_methods, registration_link, link_expires_at, last_synced_at, created_at, updated_at`

func (r *payeeRepo) Save(ctx context.Context, tx repository.Tx, p *model.PayeeAccount) error {
	methods := p.PayoutMethods
	if methods == nil {
		methods = []string{}
	}
	const q = `
INSERT INTO payee_accounts (` + payeeColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (creator_id) DO UPDATE SET
  payee_status=$3, preferred_currency=$4, payout_methods=$5, registration_link=$6, link_expires_at=$7,
  last_synced_at=$8, updated_at=$10;`
	_, err := execSQL(ctx, r.pool, tx, q, p.CreatorID, p.PayeeID, p.PayeeStatus, p.PreferredCurrency, methods,
		p.RegistrationLink, p.LinkExpiresAt, p.LastSyncedAt, p.CreatedAt, p.UpdatedAt)
	return writeErr(err, domain.ErrAlreadyExists)
}

func (r *payeeRepo) FindByCreatorID(ctx context.Context, tx repository.Tx, creatorID string) (*model.PayeeAccount, error) {
	return r.findOne(ctx, tx, forUpdate(`SELECT `+payeeColumns+` FROM payee_accounts WHERE creator_id=$1`, tx), creatorID)
}

func (r *payeeRepo) FindByPayeeID(ctx context.Context, tx repository.Tx, payeeID string) (*model.PayeeAccount, error) {
	return r.findOne(ctx, tx, forUpdate(`SELECT `+payeeColumns+` FROM payee_accounts WHERE payee_id=$1`, tx), payeeID)
}

func (r *payeeRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.PayeeAccount, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p := &model.PayeeAccount{}
	if err := row.Scan(&p.CreatorID, &p.PayeeID, &p.PayeeStatus, &p.PreferredCurrency, &p.PayoutMethods,
		&p.RegistrationLink, &p.LinkExpiresAt, &p.LastSyncedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	return p, nil
}
