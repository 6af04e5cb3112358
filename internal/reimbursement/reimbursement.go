package reimbursement

import "github.com/shopspring/decimal"

// Basis selects the base price used for commercial reimbursement.
type Basis int

const (
	BasisWACPlusPercent Basis = iota
	BasisASPPlusPercent
)

// String returns the label shown next to the commercial contract selector.
func (b Basis) String() string {
	if b == BasisASPPlusPercent {
		return "ASP + %"
	}
	return "WAC + %"
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	medicareASPFactor    = decimal.RequireFromString("1.06")
	medicareGovShare     = decimal.RequireFromString("0.80")
	medicarePatientShare = decimal.RequireFromString("0.20")
	sequestrationFactor  = decimal.RequireFromString("0.98")
	medicaidFactor       = decimal.RequireFromString("1.00")
)

// PayerMix is the percentage distribution of patient volume across payers.
// The three values are normalized by their own sum and need not total 100.
type PayerMix struct {
	Medicare   decimal.Decimal
	Commercial decimal.Decimal
	Medicaid   decimal.Decimal
}

// Total returns the sum of the three percentages.
func (m PayerMix) Total() decimal.Decimal {
	return m.Medicare.Add(m.Commercial).Add(m.Medicaid)
}

// Wastage describes vial wastage modeling. A nil *Wastage disables it.
type Wastage struct {
	VialSizeMg             decimal.Decimal
	AvgDoseMg              decimal.Decimal
	CommercialPaysForWaste bool
}

// Input is the full parameter set for one calculation.
type Input struct {
	WACPrice decimal.Decimal
	// ASPPrice falls back to WACPrice when not valid.
	ASPPrice decimal.NullDecimal

	DiscountPercent          decimal.Decimal
	PromptPayDiscountPercent decimal.Decimal
	BadDebtPercent           decimal.Decimal
	SequestrationApplied     bool

	CommercialBasis         Basis
	CommercialMarkupPercent decimal.Decimal

	Mix     PayerMix
	Wastage *Wastage
}

// ASP returns the effective Average Sales Price.
func (in Input) ASP() decimal.Decimal {
	if in.ASPPrice.Valid {
		return in.ASPPrice.Decimal
	}
	return in.WACPrice
}

// Details holds the intermediate values behind each reimbursement figure.
type Details struct {
	WastageApplied           bool
	CostMultiplier           decimal.Decimal
	MedicareMultiplier       decimal.Decimal
	CommercialMultiplier     decimal.Decimal
	TotalDiscountPercent     decimal.Decimal
	MedicareAllowableTotal   decimal.Decimal
	MedicareGovPortion       decimal.Decimal
	MedicarePatientPortion   decimal.Decimal
	MedicarePatientCollected decimal.Decimal
	CommercialBasePrice      decimal.Decimal
	CommercialAllowableTotal decimal.Decimal
	TotalMix                 decimal.Decimal
	WeightMedicare           decimal.Decimal
	WeightCommercial         decimal.Decimal
	WeightMedicaid           decimal.Decimal
}

// Result groups the calculated cost, reimbursement and margin figures.
type Result struct {
	// BillableUnits is zero unless wastage modeling was applied.
	BillableUnits int64

	CostBasis               decimal.Decimal
	ReimbursementMedicare   decimal.Decimal
	ReimbursementCommercial decimal.Decimal
	ReimbursementMedicaid   decimal.Decimal
	WeightedReimbursement   decimal.Decimal
	NetRecovery             decimal.Decimal
	MarginPercent           decimal.Decimal

	Details Details
}

// Calculate computes cost basis, per-payer reimbursement, the mix-weighted
// reimbursement and the resulting net recovery and margin.
func Calculate(in Input) Result {
	var d Details
	var billableUnits int64

	d.CostMultiplier, d.MedicareMultiplier, d.CommercialMultiplier = one, one, one
	if w := in.Wastage; w != nil && w.VialSizeMg.IsPositive() {
		units := ceilDiv(w.AvgDoseMg, w.VialSizeMg)
		billableUnits = units.IntPart()
		d.WastageApplied = true
		d.CostMultiplier = units
		d.MedicareMultiplier = units
		d.CommercialMultiplier = units
		if !w.CommercialPaysForWaste {
			d.CommercialMultiplier = w.AvgDoseMg.Div(w.VialSizeMg)
		}
	}

	d.TotalDiscountPercent = in.DiscountPercent.Add(in.PromptPayDiscountPercent)
	discountFraction := d.TotalDiscountPercent.Div(hundred)
	costBasis := in.WACPrice.Mul(d.CostMultiplier).Mul(one.Sub(discountFraction))

	collectedFraction := one.Sub(in.BadDebtPercent.Div(hundred))

	asp := in.ASP()
	d.MedicareAllowableTotal = asp.Mul(medicareASPFactor).Mul(d.MedicareMultiplier)
	d.MedicareGovPortion = d.MedicareAllowableTotal.Mul(medicareGovShare)
	if in.SequestrationApplied {
		d.MedicareGovPortion = d.MedicareGovPortion.Mul(sequestrationFactor)
	}
	d.MedicarePatientPortion = d.MedicareAllowableTotal.Mul(medicarePatientShare)
	d.MedicarePatientCollected = d.MedicarePatientPortion.Mul(collectedFraction)
	medicare := d.MedicareGovPortion.Add(d.MedicarePatientCollected)

	d.CommercialBasePrice = in.WACPrice
	if in.CommercialBasis == BasisASPPlusPercent {
		d.CommercialBasePrice = asp
	}
	markup := one.Add(in.CommercialMarkupPercent.Div(hundred))
	d.CommercialAllowableTotal = d.CommercialBasePrice.Mul(markup).Mul(d.CommercialMultiplier)
	// Bad debt applies to the whole commercial allowable; there is no
	// government/patient split for commercial payers.
	commercial := d.CommercialAllowableTotal.Mul(collectedFraction)

	medicaid := in.WACPrice.Mul(d.CostMultiplier).Mul(medicaidFactor)

	d.TotalMix = in.Mix.Total()
	d.WeightMedicare, d.WeightCommercial, d.WeightMedicaid = decimal.Zero, decimal.Zero, decimal.Zero
	if d.TotalMix.IsPositive() {
		d.WeightMedicare = in.Mix.Medicare.Div(d.TotalMix)
		d.WeightCommercial = in.Mix.Commercial.Div(d.TotalMix)
		d.WeightMedicaid = in.Mix.Medicaid.Div(d.TotalMix)
	}
	weighted := medicare.Mul(d.WeightMedicare).
		Add(commercial.Mul(d.WeightCommercial)).
		Add(medicaid.Mul(d.WeightMedicaid))

	netRecovery := weighted.Sub(costBasis)
	margin := decimal.Zero
	if costBasis.IsPositive() {
		margin = netRecovery.Div(costBasis).Mul(hundred)
	}

	return Result{
		BillableUnits:           billableUnits,
		CostBasis:               costBasis,
		ReimbursementMedicare:   medicare,
		ReimbursementCommercial: commercial,
		ReimbursementMedicaid:   medicaid,
		WeightedReimbursement:   weighted,
		NetRecovery:             netRecovery,
		MarginPercent:           margin,
		Details:                 d,
	}
}

// ceilDiv returns ceil(a / b) for b > 0 without rounding the quotient first.
func ceilDiv(a, b decimal.Decimal) decimal.Decimal {
	q, r := a.QuoRem(b, 0)
	if r.IsPositive() {
		q = q.Add(one)
	}
	return q
}
