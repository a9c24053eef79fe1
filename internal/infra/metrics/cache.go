package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal, cacheLocalSize) }

var cacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "session_cache_requests_total",
		Help: "Session cache hits and misses per tier.",
	},
	[]string{"tier", "result"}, // tier='local'|'remote', result='hit'|'miss'|'error'
)

var cacheLocalSize = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "session_cache_local_entries",
		Help: "Number of live entries in the local cache tier.",
	},
)

func IncCacheRequest(tier, result string) {
	cacheRequestsTotal.WithLabelValues(norm(tier), norm(result)).Inc()
}

func SetCacheLocalSize(n int) {
	cacheLocalSize.Set(float64(n))
}
