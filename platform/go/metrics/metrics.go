package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Each instance owns its registry so
// tests and multiple servers in one process do not collide.
type Metrics struct {
	ServiceName string
	registry    *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	statusCategory *prometheus.CounterVec
	featureDenials *prometheus.CounterVec
	tenants        *prometheus.CounterVec
}

// New creates and registers the collectors for serviceName.
func New(serviceName string) *Metrics {
	m := &Metrics{
		ServiceName: serviceName,
		registry:    prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path", "status"},
		),
		statusCategory: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_status_category_total",
				Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
			},
			[]string{"service", "category", "method", "path"},
		),
		featureDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feature_gate_denials_total",
				Help: "Requests rejected because the tenant tier lacks a feature",
			},
			[]string{"service", "feature", "tier"},
		),
		tenants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenants_provisioned_total",
				Help: "Tenants created, split by demo and regular accounts",
			},
			[]string{"service", "kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.statusCategory,
		m.featureDenials,
		m.tenants,
	)
	return m
}

// Middleware records request count, duration and status category per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		statusStr := strconv.Itoa(status)

		m.requests.WithLabelValues(m.ServiceName, r.Method, path, statusStr).Inc()
		m.duration.WithLabelValues(m.ServiceName, r.Method, path, statusStr).Observe(time.Since(start).Seconds())
		if category := statusCategory(status); category != "" {
			m.statusCategory.WithLabelValues(m.ServiceName, category, r.Method, path).Inc()
		}
	})
}

// FeatureDenied counts a gated request rejected for feature at tier.
func (m *Metrics) FeatureDenied(feature, tier string) {
	if m == nil {
		return
	}
	m.featureDenials.WithLabelValues(m.ServiceName, feature, tier).Inc()
}

// TenantProvisioned counts a newly created tenant.
func (m *Metrics) TenantProvisioned(demo bool) {
	if m == nil {
		return
	}
	kind := "regular"
	if demo {
		kind = "demo"
	}
	m.tenants.WithLabelValues(m.ServiceName, kind).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// routePattern keeps label cardinality bounded by using the matched chi pattern
// instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return ""
	}
}
