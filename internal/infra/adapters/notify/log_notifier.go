package notify

import (
	"context"

	"github.com/rs/zerolog"

	"creator-monetization/internal/domain/ports/adapter"
	"creator-monetization/internal/infra/metrics"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the structured log. It is the delivery
// of record in development and the fallback when no channel is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: logger.With().Str("component", "notifier").Str("channel", "log").Logger()}
}

func (n *LogNotifier) Notify(ctx context.Context, msg adapter.Notification) error {
	ev := n.log.Info().
		Str("recipient_id", msg.RecipientID).
		Str("kind", string(msg.Kind)).
		Str("title", msg.Title)
	for k, v := range msg.Data {
		ev = ev.Str("data_"+k, v)
	}
	ev.Msg(msg.Body)
	metrics.IncNotification("log", "sent")
	return nil
}
