package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/db"
	"github.com/Simplici0/ncrsim/internal/metrics"
	"github.com/Simplici0/ncrsim/internal/migrations"
	"github.com/Simplici0/ncrsim/internal/scenario"
	"github.com/Simplici0/ncrsim/internal/seed"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	srv, err := newServer(
		zerolog.Nop(),
		nil,
		scenario.DefaultBook(),
		catalog.NewStaticResolver(catalog.DefaultProducts()),
		scenario.NewStaticRegions(scenario.DefaultRegions()),
		metrics.New("test", prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return srv
}

func postForm(t *testing.T, h http.Handler, form url.Values) (*httptest.ResponseRecorder, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, rec.Body.String()
}

func TestHomeRendersDefaultScenario(t *testing.T) {
	srv := newTestServer(t)
	h := newRouter(srv, routerOptions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	require.Contains(t, body, `<option value="Physician Office" selected>`)
	require.Contains(t, body, "Standard ASP")
	require.Contains(t, body, "$5,000")
	require.Contains(t, body, "$5,336")
	require.Contains(t, body, "$336")
	require.Contains(t, body, "6.7%")
	require.Contains(t, body, "Weighted Avg: $5,336.08")
	require.NotContains(t, body, "Total Mix is")

	require.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.Calculations.WithLabelValues("Physician Office", surfaceWeb)))
}

func TestSimulateRecalculatesSubmittedForm(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("wac", "10000")
	form.Set("action", "calculate")
	rec, body := postForm(t, h, form)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, `value="10000.00"`)
	require.Contains(t, body, "$10,672")
}

func TestSimulateSearchLoadsProductWAC(t *testing.T) {
	srv := newTestServer(t)
	h := newRouter(srv, routerOptions{})

	form := physicianOfficeForm()
	form.Set("action", "search")
	form.Set("product_code", " j9355 ")
	rec, body := postForm(t, h, form)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "Loaded: HERCEPTIN")
	require.Contains(t, body, "Trastuzumab")
	require.Contains(t, body, `name="wac" step="0.01" value="1500.00"`)
	require.Contains(t, body, `value="J9355"`)
	require.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.ProductLookups.WithLabelValues("found")))
}

func TestSimulateSearchUnknownCodeKeepsWAC(t *testing.T) {
	srv := newTestServer(t)
	h := newRouter(srv, routerOptions{})

	form := physicianOfficeForm()
	form.Set("action", "search")
	form.Set("product_code", "X0000")
	_, body := postForm(t, h, form)

	require.Contains(t, body, "Code not found. Using current WAC.")
	require.Contains(t, body, `name="wac" step="0.01" value="5000.00"`)
	require.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.ProductLookups.WithLabelValues("not_found")))
}

func TestSimulateRegionLoadsMix(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("action", "region")
	_, body := postForm(t, h, form)

	require.Contains(t, body, "Loaded data for Philadelphia, PA (19103)")
	require.Contains(t, body, `name="medicare_mix" min="0" max="100" step="1" value="65"`)
	require.Contains(t, body, `name="commercial_mix" min="0" max="100" step="1" value="25"`)
}

func TestSimulateScenarioSwitchAppliesPreset(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("scenario", "ASC")
	form.Set("prompt_pay_percent", "2")
	_, body := postForm(t, h, form)

	require.Contains(t, body, "Applied settings for ASC")
	require.Contains(t, body, `<option value="ASC" selected>`)
	require.Contains(t, body, `name="markup_percent" min="0" max="100" step="1" value="20"`)
	require.Contains(t, body, `name="prompt_pay_percent" min="0" max="5" step="0.1" value="2"`)
	require.Contains(t, body, `name="last_scenario" value="ASC"`)
}

func TestSimulateInvalidSubmitKeepsPendingScenarioSwitch(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("scenario", "ASC")
	form.Set("wac", "abc")
	rec, body := postForm(t, h, form)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body, `name="last_scenario" value="Physician Office"`)

	form.Set("wac", "5000")
	_, body = postForm(t, h, form)
	require.Contains(t, body, "Applied settings for ASC")
	require.Contains(t, body, `name="markup_percent" min="0" max="100" step="1" value="20"`)
	require.Contains(t, body, `name="last_scenario" value="ASC"`)
}

func TestSimulateSaveAcknowledges(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("action", "save")
	rec, body := postForm(t, h, form)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "Scenario saved.")
}

func TestSimulateResetRedirects(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := url.Values{"action": {"reset"}}
	rec, _ := postForm(t, h, form)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSimulateInvalidInputRerendersForm(t *testing.T) {
	srv := newTestServer(t)
	h := newRouter(srv, routerOptions{})

	form := physicianOfficeForm()
	form.Set("bad_debt_percent", "25")
	rec, body := postForm(t, h, form)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body, "bad_debt_percent must be at most 20")
	require.NotContains(t, body, "Avg Reimbursement")
	require.Equal(t, 0.0, testutil.ToFloat64(srv.metrics.Calculations.WithLabelValues("Physician Office", surfaceWeb)))

	form = physicianOfficeForm()
	form.Set("wac", "")
	rec, body = postForm(t, h, form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body, "wac must be numeric")
}

func TestSimulateWarnsOnMixTotal(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("medicaid_mix", "30")
	_, body := postForm(t, h, form)

	require.Contains(t, body, "Total Mix is 120%. Ideally should be 100%.")
}

func TestSimulateNegativeMarginIsRed(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	form := physicianOfficeForm()
	form.Set("markup_percent", "0")
	form.Set("bad_debt_percent", "20")
	form.Set("medicare_mix", "0")
	form.Set("medicaid_mix", "0")
	_, body := postForm(t, h, form)

	require.Contains(t, body, "-$1,000")
	require.Contains(t, body, "-20.0%")
	require.Contains(t, body, `style="color: #D00000;"`)
}

func TestHealthAndStatic(t *testing.T) {
	h := newRouter(newTestServer(t), routerOptions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), ".metric-container")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(t)
	srv.metrics = metrics.New("ncrsim", reg)
	h := newRouter(srv, routerOptions{metricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `ncrsim_calculations_total{scenario="Physician Office",surface="web"} 1`)
	require.Contains(t, string(body), `ncrsim_http_requests_total{method="GET",route="/",status="200"} 1`)
}

func TestSQLiteCatalogAndReadiness(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "ncr.db"))
	require.NoError(t, err)
	require.NoError(t, migrations.Up(ctx, database))
	_, err = seed.Run(ctx, database, catalog.DefaultProducts())
	require.NoError(t, err)

	srv := newTestServer(t)
	srv.db = database
	srv.products = catalog.NewStore(database)
	h := newRouter(srv, routerOptions{})

	form := physicianOfficeForm()
	form.Set("action", "search")
	form.Set("product_code", "J0897")
	_, body := postForm(t, h, form)
	require.Contains(t, body, "Loaded: XGEVA")
	require.Contains(t, body, `name="wac" step="0.01" value="2500.00"`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, database.Close())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"UNAVAILABLE"`)
}
