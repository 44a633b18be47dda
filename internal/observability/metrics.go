package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup results recorded by ObserveLookup.
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	lookupsTotal    *prometheus.CounterVec
	quotesTotal     *prometheus.CounterVec
	quoteLines      prometheus.Histogram
}

// NewMetrics menginisialisasi registry, metrik HTTP, dan metrik billing.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_lookup_requests_total",
		Help: "Master data lookups by kind and result.",
	}, []string{"kind", "result"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_billing_quotes_total",
		Help: "Bill quotes computed, partitioned by outcome.",
	}, []string{"outcome"})
	lines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "odyssey_billing_quote_lines",
		Help:    "Number of line items per computed quote.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
	registry.MustRegister(requests, duration, lookups, quotes, lines)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		lookupsTotal:    lookups,
		quotesTotal:     quotes,
		quoteLines:      lines,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLookup counts one master data lookup.
func (m *Metrics) ObserveLookup(kind, result string) {
	if m == nil {
		return
	}
	m.lookupsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveQuote counts one computed quote. outcome is "ok", "violations" or
// "invalid".
func (m *Metrics) ObserveQuote(outcome string, lines int) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(outcome).Inc()
	m.quoteLines.Observe(float64(lines))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
