package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Lifecycle metrics
	TransitionsTotal  *prometheus.CounterVec
	TokensIssuedTotal *prometheus.CounterVec
	SignedTotal       prometheus.Counter

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Abuse metrics
	RateLimitedTotal *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments on a
// fresh registry.
func InitMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "esign_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_lifecycle_transitions_total",
			Help: "Total contract lifecycle transitions by resulting event.",
		}, []string{"event"}),
		TokensIssuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_tokens_issued_total",
			Help: "Total bearer tokens issued by role.",
		}, []string{"role"}),
		SignedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "esign_contracts_signed_total",
			Help: "Total contracts signed.",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_notifications_total",
			Help: "Total outbound notifications by template and result.",
		}, []string{"template", "result"}),

		RateLimitedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esign_rate_limited_total",
			Help: "Total requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TransitionsTotal,
		m.TokensIssuedTotal,
		m.SignedTotal,
		m.NotificationsTotal,
		m.RateLimitedTotal,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTransition records a lifecycle transition by its audit event type.
func (m *Metrics) RecordTransition(event string) {
	m.TransitionsTotal.WithLabelValues(event).Inc()
	if event == "signed" {
		m.SignedTotal.Inc()
	}
}

// RecordTokenIssued records a bearer token issuance.
func (m *Metrics) RecordTokenIssued(role string) {
	m.TokensIssuedTotal.WithLabelValues(role).Inc()
}

// RecordNotification records an outbound notification outcome.
func (m *Metrics) RecordNotification(template, result string) {
	m.NotificationsTotal.WithLabelValues(template, result).Inc()
}

// RecordRateLimited records a rate limiter rejection.
func (m *Metrics) RecordRateLimited(scope string) {
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// HTTPMiddleware records request count and duration labelled with the chi
// route pattern, never the raw path, so bearer tokens stay out of label
// values.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &metricsWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

type metricsWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
