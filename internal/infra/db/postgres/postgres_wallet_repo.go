package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/model"
	"creator-monetization/internal/domain/ports/repository"
)

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	q := forUpdate(`SELECT user_id, balance, held_balance, created_at, updated_at FROM wallets WHERE user_id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	w := &model.Wallet{}
	if err := row.Scan(&w.UserID, &w.Balance, &w.HeldBalance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, readErr(err, domain.ErrWalletNotFound)
	}
	return w, nil
}

func (r *walletRepo) Create(ctx context.Context, tx repository.Tx, w *model.Wallet) error {
	const q = `
INSERT INTO wallets (user_id, balance, held_balance, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, w.UserID, w.Balance, w.HeldBalance, w.CreatedAt, w.UpdatedAt)
	return writeErr(err, nil)
}

func (r *walletRepo) UpdateBalances(ctx context.Context, tx repository.Tx, userID string, balance, held int64) error {
	const q = `UPDATE wallets SET balance=$2, held_balance=$3, updated_at=NOW() WHERE user_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, balance, held)
	if err != nil {
		return writeErr(err, nil)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}

// -----------------------------
// Transactions
// -----------------------------

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, amount, type, status, idempotency_key, related_transaction_id, description, metadata, balance_after, created_at`

func (r *transactionRepo) Insert(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	meta, err := model.EncodeMetadata(t.Metadata)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", domain.ErrInvalidArgument, err)
	}
	q := `INSERT INTO transactions (` + transactionColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.Amount, t.Type, t.Status, t.IdempotencyKey, t.RelatedTransactionID,
		t.Description, meta, t.BalanceAfter, t.CreatedAt)
	return writeErr(err, domain.ErrDuplicateKey)
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) FindByIdempotencyKey(ctx context.Context, tx repository.Tx, key string) (*model.Transaction, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key=$1;`, key)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) LinkRelated(ctx context.Context, tx repository.Tx, firstID, secondID string) error {
	const q = `
UPDATE transactions
   SET related_transaction_id = CASE WHEN id=$1 THEN $2 ELSE $1 END
 WHERE id IN ($1, $2);`
	cmd, err := execSQL(ctx, r.pool, tx, q, firstID, secondID)
	if err != nil {
		return writeErr(err, nil)
	}
	if cmd.RowsAffected() != 2 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit, offset)
	if err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var meta []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.IdempotencyKey, &t.RelatedTransactionID,
		&t.Description, &meta, &t.BalanceAfter, &t.CreatedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	m, err := model.DecodeMetadata(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %v", domain.ErrReadDatabaseRow, t.ID, err)
	}
	t.Metadata = m
	return t, nil
}

// -----------------------------
// Holds
// -----------------------------

var _ repository.HoldRepository = (*holdRepo)(nil)

type holdRepo struct{ pool *pgxpool.Pool }

func NewHoldRepo(pool *pgxpool.Pool) *holdRepo {
	return &holdRepo{pool: pool}
}

func (r *holdRepo) Insert(ctx context.Context, tx repository.Tx, h *model.SpendHold) error {
	const q = `
INSERT INTO spend_holds (id, user_id, amount, status, purpose, reference_id, created_at, resolved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, h.ID, h.UserID, h.Amount, h.Status, h.Purpose, h.ReferenceID, h.CreatedAt, h.ResolvedAt)
	return writeErr(err, domain.ErrAlreadyExists)
}

func (r *holdRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SpendHold, error) {
	q := forUpdate(`SELECT id, user_id, amount, status, purpose, reference_id, created_at, resolved_at FROM spend_holds WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	h := &model.SpendHold{}
	if err := row.Scan(&h.ID, &h.UserID, &h.Amount, &h.Status, &h.Purpose, &h.ReferenceID, &h.CreatedAt, &h.ResolvedAt); err != nil {
		return nil, readErr(err, domain.ErrNotFound)
	}
	return h, nil
}

func (r *holdRepo) Save(ctx context.Context, tx repository.Tx, h *model.SpendHold) error {
	const q = `UPDATE spend_holds SET status=$2, resolved_at=$3 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, h.ID, h.Status, h.ResolvedAt)
	if err != nil {
		return writeErr(err, nil)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
