// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
// for the web frontend
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection. Each collector
// owns its registry so several can coexist in one process.
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Upstream API metrics
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec
	apiUnauthorized    prometheus.Counter

	// Frontend metrics
	cacheOperations   *prometheus.CounterVec
	backendUp         prometheus.Gauge
	shareLinksTotal   *prometheus.CounterVec
	recipesGenerated  *prometheus.CounterVec
	cookbookToggles   *prometheus.CounterVec
	sessionsActive    prometheus.Gauge
	rateLimitedTotal  prometheus.Counter
	renderErrorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector with its own registry
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger,
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		apiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of recipe API requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		apiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_request_duration_seconds",
				Help:    "Recipe API request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"method", "endpoint"},
		),
		apiUnauthorized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "api_unauthorized_total",
				Help: "Total number of 401 responses from the recipe API",
			},
		),

		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "query_cache_operations_total",
				Help: "Total number of query cache operations",
			},
			[]string{"operation", "status"},
		),
		backendUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_up",
				Help: "Whether the recipe API answered its last liveness probe",
			},
		),
		shareLinksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share_links_total",
				Help: "Share link requests by outcome",
			},
			[]string{"status"},
		),
		recipesGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipes_generated_total",
				Help: "Recipe generation requests by outcome",
			},
			[]string{"status", "cached"},
		),
		cookbookToggles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cookbook_toggles_total",
				Help: "Cookbook save and unsave operations",
			},
			[]string{"action"},
		),
		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessions_active",
				Help: "Sessions held by the in-memory session backend",
			},
		),
		rateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		renderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "render_errors_total",
				Help: "Template render failures and recovered panics",
			},
			[]string{"kind"},
		),
	}
}

// HTTPMiddleware records request count, latency and response size per route
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		m.httpRequestsTotal.WithLabelValues(r.Method, path, code).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
		m.httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(ww.BytesWritten()))
	})
}

// APIRequest records one call to the recipe API. status is 0 for transport
// failures.
func (m *MetricsCollector) APIRequest(method, endpoint string, status int, duration time.Duration) {
	m.apiRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.apiRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	if status == http.StatusUnauthorized {
		m.apiUnauthorized.Inc()
	}
}

// CacheOperation records a query cache lookup or invalidation
func (m *MetricsCollector) CacheOperation(operation, status string) {
	m.cacheOperations.WithLabelValues(operation, status).Inc()
}

// SetBackendUp records the latest liveness probe result
func (m *MetricsCollector) SetBackendUp(up bool) {
	if up {
		m.backendUp.Set(1)
		return
	}
	m.backendUp.Set(0)
}

// ShareLink records a share link request outcome
func (m *MetricsCollector) ShareLink(status string) {
	m.shareLinksTotal.WithLabelValues(status).Inc()
}

// RecipesGenerated records a generation request outcome
func (m *MetricsCollector) RecipesGenerated(status string, cached bool) {
	m.recipesGenerated.WithLabelValues(status, strconv.FormatBool(cached)).Inc()
}

// CookbookToggle records a save or unsave
func (m *MetricsCollector) CookbookToggle(action string) {
	m.cookbookToggles.WithLabelValues(action).Inc()
}

// SetActiveSessions records the in-memory session count
func (m *MetricsCollector) SetActiveSessions(n int) {
	m.sessionsActive.Set(float64(n))
}

// RateLimited records a rejected request
func (m *MetricsCollector) RateLimited() {
	m.rateLimitedTotal.Inc()
}

// RenderError records a template failure or recovered panic
func (m *MetricsCollector) RenderError(kind string) {
	m.renderErrorsTotal.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
