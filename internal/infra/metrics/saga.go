package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sagaOutcomesTotal,
		rollbackLedgerEntriesTotal,
		degradedSelectionsTotal,
	)
}

var (
	sagaOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_saga_outcomes_total",
			Help: "Provisioning saga terminal states by operation.",
		},
		[]string{"operation", "state"}, // state: 'committed', 'rolled_back', 'failed'
	)

	rollbackLedgerEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollback_ledger_entries_total",
			Help: "Failed compensations written to the rollback ledger.",
		},
		[]string{"operation"},
	)

	degradedSelectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "server_selection_degraded_total",
			Help: "Server selections that ignored tariff binding because no bound server existed.",
		},
	)
)

func ObserveSaga(operation, state string) {
	sagaOutcomesTotal.WithLabelValues(norm(operation), norm(state)).Inc()
}

func IncRollbackLedgerEntry(operation string) {
	rollbackLedgerEntriesTotal.WithLabelValues(norm(operation)).Inc()
}

func IncDegradedSelection() {
	degradedSelectionsTotal.Inc()
}
