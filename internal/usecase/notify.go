package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"creator-monetization/internal/domain/ports/adapter"
)

const notifyTimeout = 10 * time.Second

// notifyAsync fires a notification after commit. Failures are logged and
// never retried; the caller has already returned its result.
func notifyAsync(n adapter.Notifier, log *zerolog.Logger, msg adapter.Notification) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.Notify(ctx, msg); err != nil {
			log.Warn().Err(err).Str("recipient_id", msg.RecipientID).Str("kind", string(msg.Kind)).
				Msg("notification failed")
		}
	}()
}
