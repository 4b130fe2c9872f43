package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		revenueEventsTotal,
		revenueCoinsTotal,
		notificationsTotal,
	)
}

var (
	// kind: tip|gift|subscription ; result: ok|rejected|error
	revenueEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revenue_events_total",
			Help: "Tips, gifts and new subscriptions by result.",
		},
		[]string{"kind", "result"},
	)

	revenueCoinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revenue_coins_total",
			Help: "Coins spent by senders, labeled by kind.",
		},
		[]string{"kind"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and status.",
		},
		[]string{"channel", "status"}, // status: sent|error
	)
)

func IncRevenueEvent(kind, result string, coins int64) {
	revenueEventsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
	if coins > 0 {
		revenueCoinsTotal.WithLabelValues(norm(kind)).Add(float64(coins))
	}
}

func IncNotification(channel, status string) {
	notificationsTotal.WithLabelValues(norm(channel), norm(status)).Inc()
}
