package adapter

import "context"

type NotificationKind string

const (
	NotificationNewSubscriber        NotificationKind = "new_subscriber"
	NotificationSubscriptionCanceled NotificationKind = "subscription_auto_cancelled"
	NotificationPayoutCompleted      NotificationKind = "payout_completed"
	NotificationPayoutFailed         NotificationKind = "payout_failed"
)

type Notification struct {
	RecipientID string
	Kind        NotificationKind
	Title       string
	Body        string
	Data        map[string]string
}

// Notifier triggers a notification. Delivery (push, in-app, chat) is the
// implementation's concern; callers never block on it or retry it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
