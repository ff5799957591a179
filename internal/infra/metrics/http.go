package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		httpRequestsTotal,
		paymentCallbacksTotal,
		notificationsTotal,
	)
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status class.",
		},
		[]string{"route", "code"},
	)

	// result: ok|fail; reason (fail only) is a bounded enum:
	// missing_ref|not_ok_status|confirm_error|unknown
	paymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Payment gateway callbacks by result and reason.",
		},
		[]string{"result", "reason"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Side-channel notifications by sink and delivery result.",
		},
		[]string{"sink", "result"},
	)
)

func IncHTTPRequest(route, code string) {
	httpRequestsTotal.WithLabelValues(route, code).Inc()
}

func IncPaymentCallback(result, reason string) {
	paymentCallbacksTotal.WithLabelValues(norm(result), norm(reason)).Inc()
}

func IncNotification(sink string, err error) {
	notificationsTotal.WithLabelValues(norm(sink), boolLabel(err == nil)).Inc()
}
