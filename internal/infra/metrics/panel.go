package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		panelCallsLatency,
		panelLoginsTotal,
	)
}

var (
	panelCallsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panel_call_duration_seconds",
			Help:    "Latency of VPN panel API calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"call", "result"},
	)

	panelLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_logins_total",
			Help: "Panel logins performed by the session cache.",
		},
		[]string{"server", "result"},
	)
)

func ObservePanelCall(call string, started time.Time, err error) {
	panelCallsLatency.WithLabelValues(norm(call), boolLabel(err == nil)).Observe(time.Since(started).Seconds())
}

func IncPanelLogin(server string, err error) {
	panelLoginsTotal.WithLabelValues(norm(server), boolLabel(err == nil)).Inc()
}
