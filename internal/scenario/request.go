package scenario

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/reimbursement"
)

const basisASP = "asp"

// Request is the boundary shape shared by the HTML form, the JSON API and the
// CLI. Range tags mirror the form's slider bounds.
type Request struct {
	Scenario         string         `json:"scenario"`
	ProductCode      string         `json:"product_code" validate:"max=16"`
	WAC              float64        `json:"wac" validate:"gte=0"`
	ASP              *float64       `json:"asp,omitempty" validate:"omitempty,gte=0"`
	DiscountPercent  float64        `json:"discount_percent" validate:"gte=0,lte=30"`
	PromptPayPercent float64        `json:"prompt_pay_percent" validate:"gte=0,lte=5"`
	BadDebtPercent   float64        `json:"bad_debt_percent" validate:"gte=0,lte=20"`
	Sequestration    *bool          `json:"sequestration,omitempty"`
	Basis            string         `json:"commercial_basis" validate:"omitempty,oneof=wac asp"`
	MarkupPercent    float64        `json:"commercial_markup_percent" validate:"gte=0,lte=100"`
	Mix              MixRequest     `json:"mix"`
	Wastage          WastageRequest `json:"wastage"`
}

type MixRequest struct {
	Medicare   float64 `json:"medicare" validate:"gte=0,lte=100"`
	Commercial float64 `json:"commercial" validate:"gte=0,lte=100"`
	Medicaid   float64 `json:"medicaid" validate:"gte=0,lte=100"`
}

type WastageRequest struct {
	Enabled                bool    `json:"enabled"`
	VialSizeMg             float64 `json:"vial_size_mg" validate:"required_if=Enabled true,gte=0"`
	AvgDoseMg              float64 `json:"avg_dose_mg" validate:"gte=0"`
	CommercialPaysForWaste bool    `json:"commercial_pays_for_waste"`
}

// NewValidator reports field errors by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldName(fe validator.FieldError) string {
	return strings.TrimPrefix(fe.Namespace(), "Request.")
}

// ValidationDetails flattens validator errors into field -> rule pairs.
func ValidationDetails(err error) map[string]string {
	details := map[string]string{}
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			details[fieldName(fe)] = rule
		}
	}
	return details
}

// ValidationMessage renders the first validator error as a sentence. rename,
// when set, maps the JSON field name to the name the caller shows users.
func ValidationMessage(err error, rename func(field string) string) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}
	fe := errs[0]
	field := fieldName(fe)
	if rename != nil {
		field = rename(field)
	}
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// NewRequest expresses f as a request, e.g. to seed a decode with a preset
// or to validate state assembled outside a form.
func NewRequest(f Form) Request {
	seq := f.Sequestration
	req := Request{
		Scenario:         f.Scenario,
		ProductCode:      f.ProductCode,
		WAC:              f.WAC.InexactFloat64(),
		DiscountPercent:  f.DiscountPercent.InexactFloat64(),
		PromptPayPercent: f.PromptPayPercent.InexactFloat64(),
		BadDebtPercent:   f.BadDebtPercent.InexactFloat64(),
		Sequestration:    &seq,
		Basis:            "wac",
		MarkupPercent:    f.MarkupPercent.InexactFloat64(),
		Mix: MixRequest{
			Medicare:   f.Mix.Medicare.InexactFloat64(),
			Commercial: f.Mix.Commercial.InexactFloat64(),
			Medicaid:   f.Mix.Medicaid.InexactFloat64(),
		},
		Wastage: WastageRequest{
			Enabled:                f.WastageEnabled,
			VialSizeMg:             f.VialSizeMg.InexactFloat64(),
			AvgDoseMg:              f.AvgDoseMg.InexactFloat64(),
			CommercialPaysForWaste: f.CommercialPaysForWaste,
		},
	}
	if f.ASP.Valid {
		asp := f.ASP.Decimal.InexactFloat64()
		req.ASP = &asp
	}
	if f.Basis == reimbursement.BasisASPPlusPercent {
		req.Basis = basisASP
	}
	return req
}

// Form converts a validated request into simulator state.
func (req Request) Form() Form {
	f := Form{
		Scenario:    req.Scenario,
		ProductCode: catalog.NormalizeCode(req.ProductCode),
		WAC:         decimal.NewFromFloat(req.WAC),
		Mix: reimbursement.PayerMix{
			Medicare:   decimal.NewFromFloat(req.Mix.Medicare),
			Commercial: decimal.NewFromFloat(req.Mix.Commercial),
			Medicaid:   decimal.NewFromFloat(req.Mix.Medicaid),
		},
		DiscountPercent:        decimal.NewFromFloat(req.DiscountPercent),
		PromptPayPercent:       decimal.NewFromFloat(req.PromptPayPercent),
		MarkupPercent:          decimal.NewFromFloat(req.MarkupPercent),
		BadDebtPercent:         decimal.NewFromFloat(req.BadDebtPercent),
		Basis:                  reimbursement.BasisWACPlusPercent,
		Sequestration:          true,
		WastageEnabled:         req.Wastage.Enabled,
		VialSizeMg:             decimal.NewFromFloat(req.Wastage.VialSizeMg),
		AvgDoseMg:              decimal.NewFromFloat(req.Wastage.AvgDoseMg),
		CommercialPaysForWaste: req.Wastage.CommercialPaysForWaste,
	}
	if req.ASP != nil {
		f.ASP = decimal.NewNullDecimal(decimal.NewFromFloat(*req.ASP))
	}
	if req.Sequestration != nil {
		f.Sequestration = *req.Sequestration
	}
	if req.Basis == basisASP {
		f.Basis = reimbursement.BasisASPPlusPercent
	}
	return f
}
