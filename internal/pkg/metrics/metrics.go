// internal/pkg/metrics/metrics.go
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// --- Inbound (server) metrics ---
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "code"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_server_requests_in_flight",
			Help: "HTTP requests currently being served.",
		},
	)
	HTTPRequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_errors_total",
			Help: "Total number of HTTP requests resulting in client or server errors.",
		},
		[]string{"method", "route", "code"},
	)

	// --- Outbound (client) metrics ---
	HTTPClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of outbound HTTP requests.",
		},
		[]string{"method", "code"},
	)
	HTTPClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Latency of outbound HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)

	// --- Pipeline metrics ---
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage", "status"},
	)
	StageDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_stage_degraded_total",
			Help: "Number of times a stage fell back to its degraded path.",
		},
		[]string{"stage"},
	)
	CrawledPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_crawled_pages_total",
			Help: "Pages visited by the crawler, by outcome.",
		},
		[]string{"outcome"},
	)
	AnalyzerScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_analyzer_score",
			Help:    "Scores produced by analyzer modules.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"module"},
	)
	JudgmentCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_judgment_calls_total",
			Help: "AI judgment calls by task and outcome.",
		},
		[]string{"task", "outcome"},
	)
	PersistenceAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_persistence_attempts_total",
			Help: "Persistence operation attempts by outcome.",
		},
		[]string{"outcome"},
	)
	PersistenceInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_persistence_in_flight",
			Help: "Persistence operations currently holding a queue slot.",
		},
	)
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_analyses_total",
			Help: "Completed pipeline runs by result.",
		},
		[]string{"result"},
	)

	// --- Runtime metrics ---
	CPUCount = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "process_cpu_count",
			Help: "Number of CPU cores available.",
		},
		func() float64 { return float64(runtime.NumCPU()) },
	)
)

func MetricsRegister() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		HTTPRequestErrorsTotal,
		HTTPClientRequestsTotal,
		HTTPClientRequestDuration,
		StageDuration,
		StageDegradedTotal,
		CrawledPagesTotal,
		AnalyzerScore,
		JudgmentCallsTotal,
		PersistenceAttemptsTotal,
		PersistenceInFlight,
		AnalysesTotal,
		CPUCount,
	)

	return reg
}
