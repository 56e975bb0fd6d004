// ABOUTME: Prometheus metrics for lead workflow transitions, feed builds, and the API
// ABOUTME: Registers on a private registry so tests and multiple servers never collide
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	// Workflow metrics
	Transitions     *prometheus.CounterVec
	Reconciliations *prometheus.CounterVec
	AuditFailures   *prometheus.CounterVec

	// Feed metrics
	FeedBuilds    prometheus.Counter
	FeedItems     prometheus.Gauge
	FeedBuildTime prometheus.Histogram

	// Cache metrics
	CacheRefreshes *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_lead_transitions_total",
				Help: "Lead workflow transitions by kind and result",
			},
			[]string{"transition", "result"}, // qualify|convert|lost, success|failed
		),
		Reconciliations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_lead_reconciliations_total",
				Help: "Workflow runs left partially applied",
			},
			[]string{"transition"},
		),
		AuditFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_audit_failures_total",
				Help: "Audit activities that could not be written",
			},
			[]string{"transition"},
		),

		FeedBuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_feed_builds_total",
			Help: "Total number of activity feed recomputations",
		}),
		FeedItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crm_feed_items",
			Help: "Items in the most recently built feed",
		}),
		FeedBuildTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "crm_feed_build_duration_seconds",
			Help:    "Time spent building the activity feed",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		CacheRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_refreshes_total",
				Help: "Scheduled cache refreshes by result",
			},
			[]string{"result"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

// RecordTransition counts one workflow run.
func (m *Metrics) RecordTransition(transition string, ok bool) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(transition, result(ok)).Inc()
}

// RecordReconciliation counts a run left needing manual repair.
func (m *Metrics) RecordReconciliation(transition string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(transition).Inc()
}

// RecordAuditFailure counts a lost audit activity.
func (m *Metrics) RecordAuditFailure(transition string) {
	if m == nil {
		return
	}
	m.AuditFailures.WithLabelValues(transition).Inc()
}

// RecordFeedBuild records one feed recomputation.
func (m *Metrics) RecordFeedBuild(items int, duration time.Duration) {
	if m == nil {
		return
	}
	m.FeedBuilds.Inc()
	m.FeedItems.Set(float64(items))
	m.FeedBuildTime.Observe(duration.Seconds())
}

// RecordCacheRefresh counts a scheduled refresh.
func (m *Metrics) RecordCacheRefresh(ok bool) {
	if m == nil {
		return
	}
	m.CacheRefreshes.WithLabelValues(result(ok)).Inc()
}

// Handler exposes the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. route names the pattern, not the raw path.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
