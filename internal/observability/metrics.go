package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	billsTotal      *prometheus.CounterVec
	billFailures    *prometheus.CounterVec
	stockMovements  *prometheus.CounterVec
}

// NewMetrics builds a registry with the HTTP and pharmacy collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmacy_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	bills := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_bills_total",
		Help: "Committed bill operations by outcome.",
	}, []string{"outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_bill_failures_total",
		Help: "Rolled back bill operations by operation and reason.",
	}, []string{"operation", "reason"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_stock_movements_total",
		Help: "Units moved through the stock ledger by transaction type.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, bills, failures, movements)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		billsTotal:      bills,
		billFailures:    failures,
		stockMovements:  movements,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records a counter and a latency sample per request.
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

// BillCommitted counts a committed bill operation (created, cancelled, refunded, payment).
func (m *Metrics) BillCommitted(outcome string) {
	if m == nil {
		return
	}
	m.billsTotal.WithLabelValues(outcome).Inc()
}

// BillFailed counts a rolled back bill operation.
func (m *Metrics) BillFailed(operation, reason string) {
	if m == nil {
		return
	}
	m.billFailures.WithLabelValues(operation, reason).Inc()
}

// StockMoved adds qty units to the movement counter of kind.
func (m *Metrics) StockMoved(kind string, qty int) {
	if m == nil || qty <= 0 {
		return
	}
	m.stockMovements.WithLabelValues(kind).Add(float64(qty))
}

// Registerer exposes the registry for additional collectors.
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
