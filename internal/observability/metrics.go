package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP server and invoicing.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	invoicesGenerated *prometheus.CounterVec
	remoteSaveFailed  prometheus.Counter
	pdfRenders        *prometheus.CounterVec
}

// NewMetrics builds a private registry with the HTTP and invoice collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techfix_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techfix_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techfix_invoices_generated_total",
		Help: "Invoices generated, by source (form or legacy).",
	}, []string{"source"})
	remoteFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "techfix_invoice_remote_save_failures_total",
		Help: "Remote invoice saves that fell back to the local store.",
	})
	renders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "techfix_invoice_pdf_renders_total",
		Help: "Invoice PDF requests by cache outcome (hit or miss).",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, generated, remoteFailed, renders)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		invoicesGenerated: generated,
		remoteSaveFailed:  remoteFailed,
		pdfRenders:        renders,
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

// Middleware records count and latency for every request.
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

// InvoiceGenerated counts a saved invoice.
func (m *Metrics) InvoiceGenerated(source string) {
	if m == nil {
		return
	}
	m.invoicesGenerated.WithLabelValues(source).Inc()
}

// RemoteSaveFailed counts a remote save that was superseded by the local store.
func (m *Metrics) RemoteSaveFailed() {
	if m == nil {
		return
	}
	m.remoteSaveFailed.Inc()
}

// PDFServed counts a PDF download served from cache (hit=true) or rendered on demand.
func (m *Metrics) PDFServed(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.pdfRenders.WithLabelValues(outcome).Inc()
}

// Registerer exposes the registry for extra collectors such as job metrics.
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
