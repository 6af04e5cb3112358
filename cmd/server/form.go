package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/format"
	"github.com/Simplici0/ncrsim/internal/reimbursement"
	"github.com/Simplici0/ncrsim/internal/scenario"
)

// parseSimulatorForm reads the posted form. On error the request holds every
// field parsed so far so the form can be re-rendered.
func parseSimulatorForm(r *http.Request) (scenario.Request, error) {
	seq := r.FormValue("sequestration") == "1"
	req := scenario.Request{
		Scenario:      strings.TrimSpace(r.FormValue("scenario")),
		ProductCode:   catalog.NormalizeCode(r.FormValue("product_code")),
		Basis:         strings.TrimSpace(r.FormValue("commercial_basis")),
		Sequestration: &seq,
		Wastage: scenario.WastageRequest{
			Enabled:                r.FormValue("wastage") == "1",
			CommercialPaysForWaste: r.FormValue("commercial_pays_waste") == "1",
		},
	}

	var err error
	if req.WAC, err = parseNonNegativeFloat(r.FormValue("wac"), "wac"); err != nil {
		return req, err
	}
	if raw := strings.TrimSpace(r.FormValue("asp")); raw != "" {
		asp, err := parseNonNegativeFloat(raw, "asp")
		if err != nil {
			return req, err
		}
		req.ASP = &asp
	}
	if req.Mix.Medicare, err = parsePercent(r.FormValue("medicare_mix"), "medicare_mix"); err != nil {
		return req, err
	}
	if req.Mix.Commercial, err = parsePercent(r.FormValue("commercial_mix"), "commercial_mix"); err != nil {
		return req, err
	}
	if req.Mix.Medicaid, err = parsePercent(r.FormValue("medicaid_mix"), "medicaid_mix"); err != nil {
		return req, err
	}
	if req.DiscountPercent, err = parsePercent(r.FormValue("discount_percent"), "discount_percent"); err != nil {
		return req, err
	}
	if req.PromptPayPercent, err = parsePercent(r.FormValue("prompt_pay_percent"), "prompt_pay_percent"); err != nil {
		return req, err
	}
	if req.MarkupPercent, err = parsePercent(r.FormValue("markup_percent"), "markup_percent"); err != nil {
		return req, err
	}
	if req.BadDebtPercent, err = parsePercent(r.FormValue("bad_debt_percent"), "bad_debt_percent"); err != nil {
		return req, err
	}
	if req.Wastage.VialSizeMg, err = parseNonNegativeFloat(r.FormValue("vial_size_mg"), "vial_size_mg"); err != nil {
		return req, err
	}
	if req.Wastage.AvgDoseMg, err = parseNonNegativeFloat(r.FormValue("avg_dose_mg"), "avg_dose_mg"); err != nil {
		return req, err
	}

	return req, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be greater than or equal to 0", field)
	}
	return value, nil
}

func parsePercent(raw, field string) (float64, error) {
	value, err := parseNonNegativeFloat(raw, field)
	if err != nil {
		return 0, err
	}
	if value > 100 {
		return 0, fmt.Errorf("%s must be between 0 and 100", field)
	}
	return value, nil
}

// formView holds the string values the template writes back into inputs.
type formView struct {
	Scenario            string
	ProductCode         string
	WAC                 string
	ASP                 string
	ASPPlaceholder      string
	Medicare            string
	Commercial          string
	Medicaid            string
	Discount            string
	PromptPay           string
	Markup              string
	BadDebt             string
	BasisASP            bool
	Sequestration       bool
	Wastage             bool
	VialSize            string
	AvgDose             string
	CommercialPaysWaste bool
}

func newFormView(f scenario.Form) formView {
	v := formView{
		Scenario:            f.Scenario,
		ProductCode:         f.ProductCode,
		WAC:                 f.WAC.StringFixed(2),
		ASPPlaceholder:      f.EffectiveASP().StringFixed(2),
		Medicare:            format.Number(f.Mix.Medicare),
		Commercial:          format.Number(f.Mix.Commercial),
		Medicaid:            format.Number(f.Mix.Medicaid),
		Discount:            format.Number(f.DiscountPercent),
		PromptPay:           format.Number(f.PromptPayPercent),
		Markup:              format.Number(f.MarkupPercent),
		BadDebt:             format.Number(f.BadDebtPercent),
		BasisASP:            f.Basis == reimbursement.BasisASPPlusPercent,
		Sequestration:       f.Sequestration,
		Wastage:             f.WastageEnabled,
		VialSize:            format.Number(f.VialSizeMg),
		AvgDose:             format.Number(f.AvgDoseMg),
		CommercialPaysWaste: f.CommercialPaysForWaste,
	}
	if f.ASP.Valid {
		v.ASP = f.ASP.Decimal.StringFixed(2)
	}
	return v
}
