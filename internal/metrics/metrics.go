// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and the instruments the service updates.
type Metrics struct {
	registry *prometheus.Registry

	Operations     *prometheus.CounterVec
	ParseFailures  prometheus.Counter
	CatalogReloads prometheus.Counter

	httpInFlight prometheus.Gauge
	httpDuration *prometheus.HistogramVec
}

// New creates a private registry with all instruments registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idftab_operations_total",
			Help: "Conversion pipeline operations by kind and status.",
		}, []string{"kind", "status"}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "idftab_parse_failures_total",
			Help: "Documents rejected by the IDF parser.",
		}),
		CatalogReloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "idftab_catalog_reloads_total",
			Help: "Schema catalog hot-reload swaps.",
		}),
		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idftab_http_in_flight_requests",
			Help: "HTTP requests currently being served.",
		}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idftab_http_request_duration_seconds",
			Help:    "HTTP request duration by method and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments HTTP handlers with in-flight and duration metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.httpDuration.WithLabelValues(r.Method, statusClass(sw.status)).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working behind the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
