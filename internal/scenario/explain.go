package scenario

import (
	"fmt"

	"github.com/Simplici0/ncrsim/internal/format"
	"github.com/Simplici0/ncrsim/internal/reimbursement"
)

// Explain returns the calculation details lines for a form and its result,
// in display order.
func Explain(f Form, r reimbursement.Result) []string {
	d := r.Details
	lines := []string{"WAC: " + format.MoneyCents(f.WAC)}

	if d.WastageApplied {
		lines = append(lines,
			fmt.Sprintf("Wastage Analysis: Vial %smg | Dose %smg -> %d Billable Units",
				format.Number(f.VialSizeMg), format.Number(f.AvgDoseMg), r.BillableUnits),
			fmt.Sprintf("Total Cost Basis: %s (Includes %s%% discounts)",
				format.MoneyCents(r.CostBasis), format.Number(d.TotalDiscountPercent)),
		)
	} else {
		lines = append(lines, fmt.Sprintf("Discount: %s%% -> Cost Basis: %s",
			format.Number(d.TotalDiscountPercent), format.MoneyCents(r.CostBasis)))
	}

	medicare := "Medicare (ASP+6%)"
	if f.Sequestration {
		medicare = "Medicare (ASP+6% - 2% Seq)"
	}
	lines = append(lines,
		fmt.Sprintf("%s: %s", medicare, format.MoneyCents(r.ReimbursementMedicare)),
		fmt.Sprintf("Commercial (%s + %s%%): %s", f.Basis.String(), format.Number(f.MarkupPercent), format.MoneyCents(r.ReimbursementCommercial)),
		"Medicaid (Flat): "+format.MoneyCents(r.ReimbursementMedicaid),
		"Weighted Avg: "+format.MoneyCents(r.WeightedReimbursement),
	)
	return lines
}
