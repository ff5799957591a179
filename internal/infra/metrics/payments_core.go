package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		ordersRevenueTotal,
		ordersSupersededTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Orders by status (pending/completed/failed).",
		},
		[]string{"status"},
	)

	ordersRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_revenue_total",
			Help: "The total monetary value of completed orders, labeled by currency.",
		},
		[]string{"currency"},
	)

	ordersSupersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_superseded_total",
			Help: "New orders created while a pending order younger than 24h existed.",
		},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func AddOrderRevenue(currency string, amount int64) {
	ordersRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncOrderSuperseded() {
	ordersSupersededTotal.Inc()
}
