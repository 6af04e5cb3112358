package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/charts"
	"github.com/Simplici0/ncrsim/internal/format"
	"github.com/Simplici0/ncrsim/internal/reimbursement"
	"github.com/Simplici0/ncrsim/internal/scenario"
)

const (
	actionCalculate = "calculate"
	actionSearch    = "search"
	actionRegion    = "region"
	actionSave      = "save"
	actionReset     = "reset"

	surfaceWeb = "web"
	surfaceAPI = "api"
)

type baseViewData struct {
	ErrorMessage   string
	WarningMessage string
	SuccessMessage string
}

type scenarioOption struct {
	Name     string
	Selected bool
}

type metricCard struct {
	Label     string
	Value     string
	Color     string
	Emphasize bool
}

type simulatorViewData struct {
	baseViewData
	LastScenario string
	Scenarios    []scenarioOption
	Description  string
	Form         formView
	Product      *catalog.Product
	ProductWAC   string
	RegionZip    string
	MixWarning   string

	HasResult bool
	Cards     []metricCard
	Bar       charts.BarChart
	Gauge     charts.Gauge
	Details   []string
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	form := scenario.Defaults(s.book)
	s.renderSimulator(w, http.StatusOK, form, form.Scenario, baseViewData{}, nil, true)
}

func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	action := r.FormValue("action")
	if action == actionReset {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	req, validationErr := parseSimulatorForm(r)
	message := ""
	if validationErr != nil {
		message = validationErr.Error()
	} else if err := s.validate.Struct(req); err != nil {
		validationErr = err
		message = scenario.ValidationMessage(err, nil)
	}
	form := req.Form()
	if validationErr != nil {
		// The preset switch has not run yet, so the inputs still belong to
		// the previous scenario.
		s.renderSimulator(w, http.StatusBadRequest, form, r.FormValue("last_scenario"), baseViewData{ErrorMessage: message}, nil, false)
		return
	}

	var msgs baseViewData
	if switched, applied := s.book.SwitchScenario(form, r.FormValue("last_scenario")); applied {
		form = switched
		msgs.SuccessMessage = "Applied settings for " + form.Scenario
	}

	var product *catalog.Product
	switch action {
	case actionSearch:
		p, err := s.lookupProduct(r.Context(), form.ProductCode)
		switch {
		case err == nil:
			form.WAC = p.WAC
			product = &p
			msgs.SuccessMessage = "Loaded: " + p.Brand
		case errors.Is(err, catalog.ErrNotFound):
			msgs.WarningMessage = "Code not found. Using current WAC."
		default:
			s.logger.Error().Err(err).Str("code", form.ProductCode).Msg("product lookup failed")
			msgs.WarningMessage = "Product lookup is unavailable. Using current WAC."
		}
	case actionRegion:
		region, err := s.regions.ResolveByZip(r.Context(), scenario.DefaultZip)
		if err != nil {
			s.logger.Warn().Err(err).Str("zip", scenario.DefaultZip).Msg("regional data lookup failed")
			msgs.WarningMessage = fmt.Sprintf("No regional data for %s.", scenario.DefaultZip)
			break
		}
		form = form.ApplyRegion(region)
		msgs.SuccessMessage = fmt.Sprintf("Loaded data for %s (%s)", region.Label, region.Zip)
	case actionSave:
		msgs.SuccessMessage = "Scenario saved."
	}

	if product == nil && form.ProductCode != "" && action != actionSearch {
		if p, err := s.products.ResolveByCode(r.Context(), form.ProductCode); err == nil {
			product = &p
		}
	}

	s.renderSimulator(w, http.StatusOK, form, form.Scenario, msgs, product, true)
}

func (s *server) renderSimulator(w http.ResponseWriter, status int, form scenario.Form, lastScenario string, msgs baseViewData, product *catalog.Product, calculate bool) {
	data := simulatorViewData{
		baseViewData: msgs,
		LastScenario: lastScenario,
		Form:         newFormView(form),
		Product:      product,
		RegionZip:    scenario.DefaultZip,
		MixWarning:   form.MixWarning(),
	}
	for _, name := range s.book.Names() {
		data.Scenarios = append(data.Scenarios, scenarioOption{Name: name, Selected: name == form.Scenario})
	}
	if p, err := s.book.Get(form.Scenario); err == nil {
		data.Description = p.Description
	}
	if product != nil {
		data.ProductWAC = format.MoneyCents(product.WAC)
	}

	if calculate {
		result := reimbursement.Calculate(form.Input())
		s.metrics.ObserveCalculation(s.scenarioLabel(form.Scenario), surfaceWeb, result.MarginPercent.InexactFloat64())

		data.HasResult = true
		data.Cards = metricCards(result)
		data.Bar = charts.NewBarChart(result.CostBasis, result.WeightedReimbursement)
		data.Gauge = charts.NewGauge(result.MarginPercent)
		data.Details = scenario.Explain(form, result)
	}

	s.renderTemplate(w, status, simulatorPage, data)
}

func metricCards(result reimbursement.Result) []metricCard {
	outcome := charts.ColorReimbursement
	if result.NetRecovery.IsNegative() {
		outcome = charts.ColorNegative
	}
	return []metricCard{
		{Label: "Cost Basis", Value: format.Money(result.CostBasis), Color: charts.ColorCost},
		{Label: "Avg Reimbursement", Value: format.Money(result.WeightedReimbursement), Color: charts.ColorReimbursement},
		{Label: "Net Recovery", Value: format.Money(result.NetRecovery), Color: outcome, Emphasize: true},
		{Label: "Margin %", Value: format.Percent(result.MarginPercent), Color: outcome, Emphasize: true},
	}
}

// scenarioLabel bounds metric label values to the preset names.
func (s *server) scenarioLabel(name string) string {
	if _, err := s.book.Get(name); err != nil {
		return "custom"
	}
	return name
}

func (s *server) lookupProduct(ctx context.Context, code string) (catalog.Product, error) {
	p, err := s.products.ResolveByCode(ctx, code)
	switch {
	case err == nil:
		s.metrics.ObserveLookup("found")
	case errors.Is(err, catalog.ErrNotFound):
		s.metrics.ObserveLookup("not_found")
	default:
		s.metrics.ObserveLookup("error")
	}
	return p, err
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error().Err(err).Str("page", page).Msg("render template")
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "catalog database unreachable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
