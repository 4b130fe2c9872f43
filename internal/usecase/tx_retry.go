package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"creator-monetization/internal/domain"
	"creator-monetization/internal/domain/ports/repository"
)

const conflictBackoff = 25 * time.Millisecond

// runInTx runs fn in a transaction and retries it when the store reports a
// serialization failure or deadlock. Any other error is returned as is.
func runInTx(ctx context.Context, tm repository.TransactionManager, attempts int, log *zerolog.Logger, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := tm.WithTx(ctx, pgx.TxOptions{}, fn)
		if err == nil || !errors.Is(err, domain.ErrConflict) || attempt >= attempts {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("transaction conflict, retrying")

		t := time.NewTimer(conflictBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
