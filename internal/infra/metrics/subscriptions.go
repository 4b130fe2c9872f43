package metrics

import (
	"creator-monetization/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionsTotal,
		renewalsTotal,
		renewalRunDuration,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of non-renewing subscriptions expired by the renewal worker.",
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'cancelled', 'expired'
	)

	renewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_renewals_total",
			Help: "Renewal attempts by outcome.",
		},
		[]string{"result"}, // 'succeeded', 'failed', 'skipped', 'cancelled'
	)

	renewalRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subscription_renewal_run_duration_seconds",
			Help:    "Wall time of one renewal batch run.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func ObserveRenewalRun(succeeded, failed, skipped, cancelled int, seconds float64) {
	renewalsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	renewalsTotal.WithLabelValues("failed").Add(float64(failed))
	renewalsTotal.WithLabelValues("skipped").Add(float64(skipped))
	renewalsTotal.WithLabelValues("cancelled").Add(float64(cancelled))
	renewalRunDuration.Observe(seconds)
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusCancelled,
		model.SubscriptionStatusExpired,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
