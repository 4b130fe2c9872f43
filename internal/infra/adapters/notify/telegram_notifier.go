package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"creator-monetization/internal/domain/ports/adapter"
	"creator-monetization/internal/infra/metrics"
)

var _ adapter.Notifier = (*TelegramNotifier)(nil)

// chatSender is the subset of *tgbotapi.BotAPI the notifier needs.
type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier mirrors notifications into an operations chat.
type TelegramNotifier struct {
	bot    chatSender
	chatID int64
	kinds  map[adapter.NotificationKind]struct{}
	log    zerolog.Logger
}

// NewTelegramNotifier connects to the Bot API. kinds limits which notifications are
// forwarded; empty forwards all of them.
func NewTelegramNotifier(token string, chatID int64, logger *zerolog.Logger, kinds ...adapter.NotificationKind) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and ops chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, logger, kinds...), nil
}

func newTelegramNotifier(bot chatSender, chatID int64, logger *zerolog.Logger, kinds ...adapter.NotificationKind) *TelegramNotifier {
	set := make(map[adapter.NotificationKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		kinds:  set,
		log:    logger.With().Str("component", "notifier").Str("channel", "telegram").Logger(),
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg adapter.Notification) error {
	if len(n.kinds) > 0 {
		if _, ok := n.kinds[msg.Kind]; !ok {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	out := tgbotapi.NewMessage(n.chatID, formatMessage(msg))
	out.DisableWebPagePreview = true
	if _, err := n.bot.Send(out); err != nil {
		metrics.IncNotification("telegram", "error")
		return fmt.Errorf("telegram send: %w", err)
	}
	metrics.IncNotification("telegram", "sent")
	return nil
}

func formatMessage(msg adapter.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", msg.Kind, msg.Title)
	if msg.Body != "" {
		b.WriteString(msg.Body)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "recipient: %s", msg.RecipientID)
	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, msg.Data[k])
	}
	return b.String()
}
