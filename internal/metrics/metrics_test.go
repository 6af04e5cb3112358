package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := New("test", reg)
	second := New("test", reg)

	require.Same(t, first.Calculations, second.Calculations)
	first.ObserveCalculation("ASC", "web", 6.7)
	require.Equal(t, 1.0, testutil.ToFloat64(second.Calculations.WithLabelValues("ASC", "web")))
}

func TestObserveLookup(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	m.ObserveLookup("found")
	m.ObserveLookup("found")
	m.ObserveLookup("not_found")

	require.Equal(t, 2.0, testutil.ToFloat64(m.ProductLookups.WithLabelValues("found")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProductLookups.WithLabelValues("not_found")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveCalculation("ASC", "cli", 1)
	m.ObserveLookup("found")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/regions/{zip}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, zip := range []string{"11111", "22222"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/regions/"+zip, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.ReqTotal.WithLabelValues(http.MethodGet, "/api/regions/{zip}", "404")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}
