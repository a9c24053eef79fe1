package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobStageLatency, queueDepth) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_jobs_processed_total",
		Help: "Total number of analysis jobs processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var jobStageLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "analysis_job_stage_seconds",
		Help:    "Latency distribution of job pipeline stages.",
		Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
	},
	[]string{"stage"}, // 'fetch', 'analyze', 'report', 'deliver'
)

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "analysis_queue_depth",
		Help: "Current queue occupancy by job state.",
	},
	[]string{"state"}, // 'queued', 'active'
)

func IncJob(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobStage(stage string, seconds float64) {
	jobStageLatency.WithLabelValues(norm(stage)).Observe(seconds)
}

func SetQueueDepth(queued, active int) {
	queueDepth.WithLabelValues("queued").Set(float64(queued))
	queueDepth.WithLabelValues("active").Set(float64(active))
}
