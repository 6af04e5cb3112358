package scenario

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/ncrsim/internal/reimbursement"
)

// Form is the complete state of the simulator inputs for one render cycle.
// It is a value: every change produces a new Form.
type Form struct {
	Scenario    string
	ProductCode string

	WAC decimal.Decimal
	// ASP left invalid means "same as WAC".
	ASP decimal.NullDecimal

	Mix reimbursement.PayerMix

	DiscountPercent  decimal.Decimal
	PromptPayPercent decimal.Decimal
	MarkupPercent    decimal.Decimal
	BadDebtPercent   decimal.Decimal
	Basis            reimbursement.Basis
	Sequestration    bool

	WastageEnabled         bool
	VialSizeMg             decimal.Decimal
	AvgDoseMg              decimal.Decimal
	CommercialPaysForWaste bool
}

// Defaults returns the initial form, seeded from the book's first preset.
func Defaults(book *Book) Form {
	f := Form{
		WAC:           decimal.NewFromInt(5000),
		Sequestration: true,
		Basis:         reimbursement.BasisWACPlusPercent,
		VialSizeMg:    decimal.NewFromInt(100),
		AvgDoseMg:     decimal.NewFromInt(450),
	}
	return f.ApplyPreset(book.Default())
}

// ApplyPreset returns a copy of f with the preset's scenario, discount,
// markup and payer mix.
func (f Form) ApplyPreset(p Preset) Form {
	f.Scenario = p.Name
	f.DiscountPercent = p.DiscountPercent
	f.MarkupPercent = p.MarkupPercent
	f.Mix = p.Mix
	return f
}

// ApplyRegion returns a copy of f with the region's payer mix.
func (f Form) ApplyRegion(r Region) Form {
	f.Mix = r.Mix
	return f
}

// SwitchScenario applies the preset named in f.Scenario when it differs from
// previous. It reports whether a preset was applied.
func (b *Book) SwitchScenario(f Form, previous string) (Form, bool) {
	if f.Scenario == previous {
		return f, false
	}
	p, err := b.Get(f.Scenario)
	if err != nil {
		return f, false
	}
	return f.ApplyPreset(p), true
}

// Input builds the calculator parameters from the form.
func (f Form) Input() reimbursement.Input {
	in := reimbursement.Input{
		WACPrice:                 f.WAC,
		ASPPrice:                 f.ASP,
		DiscountPercent:          f.DiscountPercent,
		PromptPayDiscountPercent: f.PromptPayPercent,
		BadDebtPercent:           f.BadDebtPercent,
		SequestrationApplied:     f.Sequestration,
		CommercialBasis:          f.Basis,
		CommercialMarkupPercent:  f.MarkupPercent,
		Mix:                      f.Mix,
	}
	if f.WastageEnabled {
		in.Wastage = &reimbursement.Wastage{
			VialSizeMg:             f.VialSizeMg,
			AvgDoseMg:              f.AvgDoseMg,
			CommercialPaysForWaste: f.CommercialPaysForWaste,
		}
	}
	return in
}

// EffectiveASP returns the ASP used by the calculator.
func (f Form) EffectiveASP() decimal.Decimal {
	if f.ASP.Valid {
		return f.ASP.Decimal
	}
	return f.WAC
}

// MixWarning returns a warning when the payer mix does not total 100%,
// or an empty string otherwise.
func (f Form) MixWarning() string {
	total := f.Mix.Total()
	if total.Equal(decimal.NewFromInt(100)) {
		return ""
	}
	return fmt.Sprintf("Total Mix is %s%%. Ideally should be 100%%.", total.String())
}
