package metrics

import (
	"vpn-subscription/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionTransitionsTotal,
		subscribersTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "State machine transitions applied, labeled by target and trigger.",
		},
		[]string{"to", "trigger"}, // trigger: 'read', 'sweep', 'payment', 'trial', 'cancel'
	)

	subscribersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscribers_total",
			Help: "Current number of subscribers by payment status.",
		},
		[]string{"status"},
	)
)

func IncTransition(to, trigger string) {
	subscriptionTransitionsTotal.WithLabelValues(norm(to), norm(trigger)).Inc()
}

func SetSubscribersTotal(counts map[model.PaymentStatus]int) {
	statuses := []model.PaymentStatus{
		model.PaymentStatusNone,
		model.PaymentStatusTestPeriod,
		model.PaymentStatusPaid,
		model.PaymentStatusUnpaid,
	}
	for _, status := range statuses {
		subscribersTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
