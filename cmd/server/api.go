package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/reimbursement"
	"github.com/Simplici0/ncrsim/internal/scenario"
)

const maxRequestBody = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type mixResponse struct {
	Medicare   decimal.Decimal `json:"medicare"`
	Commercial decimal.Decimal `json:"commercial"`
	Medicaid   decimal.Decimal `json:"medicaid"`
}

type presetResponse struct {
	Name            string          `json:"name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	MarkupPercent   decimal.Decimal `json:"commercial_markup_percent"`
	Mix             mixResponse     `json:"mix"`
	Description     string          `json:"description"`
}

type regionResponse struct {
	Zip   string      `json:"zip"`
	Label string      `json:"label"`
	Mix   mixResponse `json:"mix"`
}

type reimbursementResponse struct {
	Medicare   decimal.Decimal `json:"medicare"`
	Commercial decimal.Decimal `json:"commercial"`
	Medicaid   decimal.Decimal `json:"medicaid"`
	Weighted   decimal.Decimal `json:"weighted"`
}

type calculationResponse struct {
	Scenario      string                `json:"scenario,omitempty"`
	Product       *catalog.Product      `json:"product,omitempty"`
	BillableUnits int64                 `json:"billable_units"`
	CostBasis     decimal.Decimal       `json:"cost_basis"`
	Reimbursement reimbursementResponse `json:"reimbursement"`
	NetRecovery   decimal.Decimal       `json:"net_recovery"`
	MarginPercent decimal.Decimal       `json:"margin_percent"`
	MixWarning    string                `json:"mix_warning,omitempty"`
	Details       []string              `json:"details"`
}

func newMixResponse(m reimbursement.PayerMix) mixResponse {
	return mixResponse{Medicare: m.Medicare, Commercial: m.Commercial, Medicaid: m.Medicaid}
}

func (s *server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	p, err := s.lookupProduct(r.Context(), code)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"data": p})
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "product not found", map[string]string{"code": catalog.NormalizeCode(code)})
	default:
		s.logger.Error().Err(err).Str("code", code).Msg("product lookup failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func (s *server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	presets := s.book.All()
	out := make([]presetResponse, 0, len(presets))
	for _, p := range presets {
		out = append(out, presetResponse{
			Name:            p.Name,
			DiscountPercent: p.DiscountPercent,
			MarkupPercent:   p.MarkupPercent,
			Mix:             newMixResponse(p.Mix),
			Description:     p.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	zip := chi.URLParam(r, "zip")
	region, err := s.regions.ResolveByZip(r.Context(), zip)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"data": regionResponse{
			Zip:   region.Zip,
			Label: region.Label,
			Mix:   newMixResponse(region.Mix),
		}})
	case errors.Is(err, scenario.ErrRegionNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no regional data for zip code", map[string]string{"zip": zip})
	default:
		s.logger.Error().Err(err).Str("zip", zip).Msg("region lookup failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

// handleCalculate runs one calculation from a JSON body. A named scenario
// seeds every field from its preset; fields in the body override it. When
// product_code is set and wac is absent or zero, the catalog price is used.
func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "request body too large", nil)
		return
	}

	// Syntax errors are reported by the strict decode below.
	var head struct {
		Scenario string   `json:"scenario"`
		WAC      *float64 `json:"wac"`
	}
	_ = json.Unmarshal(body, &head)

	var req scenario.Request
	if name := strings.TrimSpace(head.Scenario); name != "" {
		p, err := s.book.Get(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "UNKNOWN_SCENARIO", "unknown scenario", map[string]any{"known": s.book.Names()})
			return
		}
		req = scenario.NewRequest(scenario.Defaults(s.book).ApplyPreset(p))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		details := map[string]any{}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			details["offset"] = syntaxErr.Offset
		}
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", details)
		return
	}
	req.Scenario = strings.TrimSpace(req.Scenario)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", scenario.ValidationMessage(err, nil), scenario.ValidationDetails(err))
		return
	}

	form := req.Form()
	var product *catalog.Product
	if form.ProductCode != "" {
		p, err := s.lookupProduct(r.Context(), form.ProductCode)
		switch {
		case err == nil:
			product = &p
			if head.WAC == nil || *head.WAC == 0 {
				form.WAC = p.WAC
			}
		case errors.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "product not found", map[string]string{"code": form.ProductCode})
			return
		default:
			s.logger.Error().Err(err).Str("code", form.ProductCode).Msg("product lookup failed")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
			return
		}
	}

	result := reimbursement.Calculate(form.Input())
	s.metrics.ObserveCalculation(s.scenarioLabel(form.Scenario), surfaceAPI, result.MarginPercent.InexactFloat64())

	writeJSON(w, http.StatusOK, map[string]any{"data": calculationResponse{
		Scenario:      form.Scenario,
		Product:       product,
		BillableUnits: result.BillableUnits,
		CostBasis:     result.CostBasis,
		Reimbursement: reimbursementResponse{
			Medicare:   result.ReimbursementMedicare,
			Commercial: result.ReimbursementCommercial,
			Medicaid:   result.ReimbursementMedicaid,
			Weighted:   result.WeightedReimbursement,
		},
		NetRecovery:   result.NetRecovery,
		MarginPercent: result.MarginPercent,
		MixWarning:    form.MixWarning(),
		Details:       scenario.Explain(form, result),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the canonical {"error": {...}} shape.
func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, map[string]any{
		"error": errorBody{Code: code, Message: message, Details: details},
	})
}
