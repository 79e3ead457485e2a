// Package metrics exposes the gateway's counters/histograms via
// github.com/prometheus/client_golang, a dependency the teacher's go.mod
// already requires directly (SPEC_FULL.md DOMAIN STACK).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StatementsAudited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goinception_gateway",
		Name:      "statements_audited_total",
		Help:      "Statements that went through the audit engine, by err_level.",
	}, []string{"err_level"})

	StatementsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goinception_gateway",
		Name:      "statements_executed_total",
		Help:      "Statements dispatched to the remote execution engine, by stage.",
	}, []string{"stage"})

	ExecuteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "goinception_gateway",
		Name:      "statement_execute_seconds",
		Help:      "Wall time spent executing a single statement against the remote target.",
		Buckets:   prometheus.DefBuckets,
	})

	WaitForReadyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "goinception_gateway",
		Name:      "wait_for_ready_seconds",
		Help:      "Time spent in the execution engine's throttle loop before a statement runs.",
		Buckets:   prometheus.DefBuckets,
	})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "goinception_gateway",
		Name:      "sessions_active",
		Help:      "Session contexts currently in the active state.",
	})
)

func init() {
	prometheus.MustRegister(
		StatementsAudited,
		StatementsExecuted,
		ExecuteDuration,
		WaitForReadyDuration,
		SessionsActive,
	)
}
