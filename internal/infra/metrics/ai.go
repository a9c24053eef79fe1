package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(synthesizerLatencyMs, routerDecisionsTotal, toolCallsTotal) }

var synthesizerLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "synthesizer_calls_latency_ms",
		Help:    "Answer synthesizer call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"provider", "success"},
)

var routerDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "router_decisions_total",
		Help: "Router decision outcomes per question.",
	},
	[]string{"decision"}, // 'enough', 'need_analysis', 'need_filtering', 'need_both'
)

var toolCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tool_calls_total",
		Help: "Tool provider invocations, labeled by tool and outcome.",
	},
	[]string{"tool", "result"}, // tool='analyze'|'filter', result='ok'|'error'
)

func ObserveSynthesizerCall(provider string, latencyMs int, success bool) {
	synthesizerLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).Observe(float64(latencyMs))
}

func IncRouterDecision(decision string) {
	routerDecisionsTotal.WithLabelValues(norm(decision)).Inc()
}

func IncToolCall(tool string, err bool) {
	result := "ok"
	if err {
		result = "error"
	}
	toolCallsTotal.WithLabelValues(norm(tool), result).Inc()
}
