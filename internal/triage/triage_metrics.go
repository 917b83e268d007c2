package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	OracleCalls      *prometheus.CounterVec
	OracleDuration   *prometheus.HistogramVec
	RedFlagsTotal    *prometheus.CounterVec
	ValidationRejects prometheus.Counter
	StoreFailures    prometheus.Counter
	AuditFailures    prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edtriage_decisions_total",
			Help: "Total triage decisions by assigned level.",
		}, []string{"level"}),
		DecisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edtriage_decision_duration_seconds",
			Help:    "End-to-end duration of triage decisions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		}),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edtriage_oracle_calls_total",
			Help: "Model oracle calls by oracle and status.",
		}, []string{"oracle", "status"}),
		OracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edtriage_oracle_duration_seconds",
			Help:    "Duration of individual model oracle calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		}, []string{"oracle"}),
		RedFlagsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edtriage_red_flags_total",
			Help: "Triggered vital-sign red flags by flag.",
		}, []string{"flag"}),
		ValidationRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edtriage_validation_rejects_total",
			Help: "Patient records rejected by input validation.",
		}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edtriage_store_failures_total",
			Help: "Non-fatal decision store write failures.",
		}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edtriage_audit_failures_total",
			Help: "Non-fatal audit log append failures.",
		}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.DecisionDuration,
		m.OracleCalls,
		m.OracleDuration,
		m.RedFlagsTotal,
		m.ValidationRejects,
		m.StoreFailures,
		m.AuditFailures,
	)

	return m
}
