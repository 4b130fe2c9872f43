package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		payoutsTotal,
		payoutCoinsTotal,
		payoutWebhooksTotal,
		providerRequestsTotal,
		providerRequestDuration,
		payoutReconcileTotal,
	)
}

var (
	payoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Payout requests by status transition (requested/processing/completed/failed/cancelled).",
		},
		[]string{"status"},
	)

	payoutCoinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_coins_total",
			Help: "Coins moved through payouts, labeled by status.",
		},
		[]string{"status"},
	)

	// result: ok|invalid_signature|bad_request|error
	payoutWebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_webhooks_total",
			Help: "Payout provider webhook deliveries by result.",
		},
		[]string{"result"},
	)

	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_provider_requests_total",
			Help: "Calls to the payout provider by operation and success.",
		},
		[]string{"provider", "op", "success"},
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payout_provider_request_duration_seconds",
			Help:    "Latency of payout provider calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "op"},
	)

	payoutReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_reconcile_total",
			Help: "Stale payouts checked by the reconciler, labeled by outcome.",
		},
		[]string{"result"}, // 'checked', 'finalized', 'error'
	)
)

func IncPayout(status string, coins int64) {
	payoutsTotal.WithLabelValues(norm(status)).Inc()
	payoutCoinsTotal.WithLabelValues(norm(status)).Add(float64(coins))
}

func IncPayoutWebhook(result string) {
	payoutWebhooksTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveProviderCall(provider, op string, seconds float64, success bool) {
	providerRequestsTotal.WithLabelValues(norm(provider), norm(op), strconv.FormatBool(success)).Inc()
	providerRequestDuration.WithLabelValues(norm(provider), norm(op)).Observe(seconds)
}

func ObserveReconcile(checked, finalized, errors int) {
	payoutReconcileTotal.WithLabelValues("checked").Add(float64(checked))
	payoutReconcileTotal.WithLabelValues("finalized").Add(float64(finalized))
	payoutReconcileTotal.WithLabelValues("error").Add(float64(errors))
}
