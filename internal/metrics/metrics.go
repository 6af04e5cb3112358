package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors exposed by the simulator.
type Metrics struct {
	ReqTotal       *prometheus.CounterVec
	ReqDur         *prometheus.HistogramVec
	InFlight       prometheus.Gauge
	Calculations   *prometheus.CounterVec
	MarginPercent  prometheus.Histogram
	ProductLookups *prometheus.CounterVec
}

// New creates and registers the collectors on reg, reusing collectors that
// are already registered under the same name.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Reimbursement calculations by scenario and surface.",
		}, []string{"scenario", "surface"}),
		MarginPercent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "margin_percent",
			Help:      "Distribution of calculated margin percentages.",
			Buckets:   []float64{-20, -10, -5, 0, 5, 10, 20, 40},
		}),
		ProductLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_lookups_total",
			Help:      "Product code lookups by outcome.",
		}, []string{"result"}),
	}

	m.ReqTotal = register(reg, m.ReqTotal)
	m.ReqDur = register(reg, m.ReqDur)
	m.InFlight = register(reg, m.InFlight)
	m.Calculations = register(reg, m.Calculations)
	m.MarginPercent = register(reg, m.MarginPercent)
	m.ProductLookups = register(reg, m.ProductLookups)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveCalculation records one calculation and its margin.
func (m *Metrics) ObserveCalculation(scenario, surface string, marginPercent float64) {
	if m == nil {
		return
	}
	m.Calculations.WithLabelValues(scenario, surface).Inc()
	m.MarginPercent.Observe(marginPercent)
}

// ObserveLookup records a product lookup outcome ("found", "not_found", "error").
func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.ProductLookups.WithLabelValues(result).Inc()
}

// Middleware instruments requests with counters and latency histograms.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		m.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(ww, r)
		m.InFlight.Dec()

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.ReqTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.ReqDur.WithLabelValues(r.Method, route).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	})
}
