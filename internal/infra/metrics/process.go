package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo, dbPool, sessionCacheLookups) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpnsub_build_info",
			Help: "Always 1, labelled with the running version and commit.",
		},
		[]string{"version", "commit"},
	)

	dbPool = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vpnsub_db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"},
	)

	sessionCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpnsub_session_cache_lookups_total",
			Help: "Session cache lookups split by cache and outcome.",
		},
		[]string{"cache", "result"},
	)
)

func SetBuildInfo(version, commit string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// SetDBPoolStats publishes a pgxpool snapshot; acquired counts as in_use.
func SetDBPoolStats(total, idle, acquired int32) {
	dbPool.WithLabelValues("total").Set(float64(total))
	dbPool.WithLabelValues("idle").Set(float64(idle))
	dbPool.WithLabelValues("in_use").Set(float64(acquired))
}

// IncCacheRequest counts one lookup; result is "hit" or "miss".
func IncCacheRequest(cache, result string) {
	sessionCacheLookups.WithLabelValues(norm(cache), norm(result)).Inc()
}
