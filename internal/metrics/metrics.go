// Package metrics exposes Prometheus collectors for the extraction service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsTotal               *prometheus.CounterVec
	stageDurationSeconds    *prometheus.HistogramVec
	stageFailuresTotal      *prometheus.CounterVec
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec
	webhookDeliveriesTotal  *prometheus.CounterVec
	activeWorkers           prometheus.Gauge
	complianceVerdictsTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors. It is safe to call
// multiple times; the observation helpers call it themselves, so callers
// only need an explicit Init when they want collectors registered before
// the first observation.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyscraper_jobs_total",
				Help: "Total number of jobs reaching a terminal state, labeled by status.",
			},
			[]string{"status"},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skyscraper_stage_duration_seconds",
				Help:    "Histogram of pipeline stage latencies, labeled by stage.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
			},
			[]string{"stage"},
		)

		stageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyscraper_stage_failures_total",
				Help: "Total number of pipeline stage failures, labeled by stage.",
			},
			[]string{"stage"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		webhookDeliveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyscraper_webhook_deliveries_total",
				Help: "Total webhook delivery attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "skyscraper_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)

		complianceVerdictsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyscraper_compliance_verdicts_total",
				Help: "Total compliance checks, labeled by verdict.",
			},
			[]string{"verdict"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the terminal-status counter for a job.
func ObserveJob(status string) {
	Init()
	jobsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records a stage's duration and, when failed is true, its
// failure.
func ObserveStage(stage string, duration time.Duration, failed bool) {
	Init()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
	if failed {
		stageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveWebhookDelivery records a delivery attempt outcome
// ("delivered"/"rejected"/"error").
func ObserveWebhookDelivery(outcome string) {
	Init()
	webhookDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveComplianceVerdict records an allow/deny verdict.
func ObserveComplianceVerdict(allowed bool) {
	Init()
	verdict := "allowed"
	if !allowed {
		verdict = "denied"
	}
	complianceVerdictsTotal.WithLabelValues(verdict).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}
