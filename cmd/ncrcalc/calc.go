package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/format"
	"github.com/Simplici0/ncrsim/internal/reimbursement"
	"github.com/Simplici0/ncrsim/internal/scenario"
)

type calcOptions struct {
	scenario string
	code     string
	zip      string
	basis    string
	asJSON   bool

	wac, asp                         float64
	discount, promptPay, markup, bad float64
	medicare, commercial, medicaid   float64
	sequestration                    bool
	wastage, commercialPaysWaste     bool
	vialSize, dose                   float64
}

func newCalcCmd(g *globalOptions) *cobra.Command {
	o := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate net cost recovery for one scenario",
		Long:  "Starts from the selected scenario preset and overrides any field given as a flag. A product code sets WAC from the catalog unless --wac is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.scenario, "scenario", "", "Site-of-care preset (default: first preset)")
	f.StringVar(&o.code, "code", "", "HCPCS code to look up in the catalog")
	f.StringVar(&o.zip, "zip", "", "Apply the regional payer mix for this zip code")
	f.StringVar(&o.basis, "basis", "wac", "Commercial contract basis: wac or asp")
	f.BoolVar(&o.asJSON, "json", false, "Print the result as JSON")
	f.Float64Var(&o.wac, "wac", 5000, "Drug acquisition cost (WAC)")
	f.Float64Var(&o.asp, "asp", 0, "Average sales price (defaults to WAC)")
	f.Float64Var(&o.discount, "discount", 0, "Contract discount/rebate %")
	f.Float64Var(&o.promptPay, "prompt-pay", 0, "Prompt pay discount %")
	f.Float64Var(&o.markup, "markup", 0, "Commercial mark-up %")
	f.Float64Var(&o.bad, "bad-debt", 0, "Uncollected copay/bad debt %")
	f.Float64Var(&o.medicare, "medicare", 0, "Medicare volume %")
	f.Float64Var(&o.commercial, "commercial", 0, "Commercial volume %")
	f.Float64Var(&o.medicaid, "medicaid", 0, "Medicaid/other volume %")
	f.BoolVar(&o.sequestration, "sequestration", true, "Apply the 2% sequestration cut")
	f.BoolVar(&o.wastage, "wastage", false, "Model vial wastage")
	f.Float64Var(&o.vialSize, "vial-size", 100, "Vial size in mg")
	f.Float64Var(&o.dose, "dose", 450, "Average patient dose in mg")
	f.BoolVar(&o.commercialPaysWaste, "commercial-pays-waste", false, "Commercial payers reimburse discarded drug")
	return cmd
}

func runCalc(cmd *cobra.Command, g *globalOptions, o *calcOptions) error {
	ctx := cmd.Context()
	log := g.logger(cmd)

	book, err := g.book()
	if err != nil {
		return err
	}
	form, err := o.buildForm(cmd.Flags(), book)
	if err != nil {
		return err
	}

	var product *catalog.Product
	if o.code != "" {
		products, closeFn, err := g.openCatalog(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		p, err := products.ResolveByCode(ctx, o.code)
		switch {
		case err == nil:
			product = &p
			form.ProductCode = p.Code
			if !cmd.Flags().Changed("wac") {
				form.WAC = p.WAC
			}
			log.Info().Str("code", p.Code).Str("brand", p.Brand).Msg("product loaded")
		case errors.Is(err, catalog.ErrNotFound):
			log.Warn().Str("code", o.code).Msg("code not found, using current WAC")
		default:
			return err
		}
	}

	if o.zip != "" {
		region, err := scenario.NewStaticRegions(scenario.DefaultRegions()).ResolveByZip(ctx, o.zip)
		if err != nil {
			return err
		}
		form = form.ApplyRegion(region)
		log.Info().Str("zip", region.Zip).Str("region", region.Label).Msg("regional payer mix applied")
	}

	result := reimbursement.Calculate(form.Input())
	if o.asJSON {
		return writeResultJSON(cmd.OutOrStdout(), form, product, result)
	}
	return writeResultText(cmd.OutOrStdout(), form, product, result)
}

// buildForm starts from the preset and overlays flags the user set.
func (o *calcOptions) buildForm(flags *pflag.FlagSet, book *scenario.Book) (scenario.Form, error) {
	form := scenario.Defaults(book)
	if o.scenario != "" {
		p, err := book.Get(o.scenario)
		if err != nil {
			return scenario.Form{}, fmt.Errorf("%w (known: %s)", err, strings.Join(book.Names(), ", "))
		}
		form = form.ApplyPreset(p)
	}

	set := func(name string, dst *decimal.Decimal, v float64) {
		if flags.Changed(name) {
			*dst = decimal.NewFromFloat(v)
		}
	}
	set("wac", &form.WAC, o.wac)
	set("discount", &form.DiscountPercent, o.discount)
	set("prompt-pay", &form.PromptPayPercent, o.promptPay)
	set("markup", &form.MarkupPercent, o.markup)
	set("bad-debt", &form.BadDebtPercent, o.bad)
	set("medicare", &form.Mix.Medicare, o.medicare)
	set("commercial", &form.Mix.Commercial, o.commercial)
	set("medicaid", &form.Mix.Medicaid, o.medicaid)
	set("vial-size", &form.VialSizeMg, o.vialSize)
	set("dose", &form.AvgDoseMg, o.dose)
	if flags.Changed("asp") {
		form.ASP = decimal.NewNullDecimal(decimal.NewFromFloat(o.asp))
	}

	switch strings.ToLower(o.basis) {
	case "wac":
		form.Basis = reimbursement.BasisWACPlusPercent
	case "asp":
		form.Basis = reimbursement.BasisASPPlusPercent
	default:
		return scenario.Form{}, fmt.Errorf("--basis must be wac or asp, got %q", o.basis)
	}
	form.Sequestration = o.sequestration
	form.WastageEnabled = o.wastage
	form.CommercialPaysForWaste = o.commercialPaysWaste

	if err := scenario.NewValidator().Struct(scenario.NewRequest(form)); err != nil {
		return scenario.Form{}, errors.New(scenario.ValidationMessage(err, flagFor))
	}
	return form, nil
}

var requestFlags = map[string]string{
	"wac":                       "wac",
	"asp":                       "asp",
	"discount_percent":          "discount",
	"prompt_pay_percent":        "prompt-pay",
	"bad_debt_percent":          "bad-debt",
	"commercial_markup_percent": "markup",
	"mix.medicare":              "medicare",
	"mix.commercial":            "commercial",
	"mix.medicaid":              "medicaid",
	"wastage.vial_size_mg":      "vial-size",
	"wastage.avg_dose_mg":       "dose",
}

// flagFor names a request field by the flag that sets it.
func flagFor(field string) string {
	if name, ok := requestFlags[field]; ok {
		return "--" + name
	}
	return field
}

func writeResultText(w io.Writer, form scenario.Form, product *catalog.Product, r reimbursement.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scenario\t%s\n", form.Scenario)
	if product != nil {
		fmt.Fprintf(tw, "Product\t%s (%s) %s\n", product.Brand, product.Generic, product.Dosage)
	}
	fmt.Fprintf(tw, "Cost Basis\t%s\n", format.Money(r.CostBasis))
	fmt.Fprintf(tw, "Avg Reimbursement\t%s\n", format.Money(r.WeightedReimbursement))
	fmt.Fprintf(tw, "Net Recovery\t%s\n", format.Money(r.NetRecovery))
	fmt.Fprintf(tw, "Margin %%\t%s\n", format.Percent(r.MarginPercent))
	if err := tw.Flush(); err != nil {
		return err
	}

	if warning := form.MixWarning(); warning != "" {
		fmt.Fprintf(w, "\nwarning: %s\n", warning)
	}
	fmt.Fprintln(w, "\nCalculation details:")
	for _, line := range scenario.Explain(form, r) {
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

type jsonResult struct {
	Scenario      string           `json:"scenario"`
	Product       *catalog.Product `json:"product,omitempty"`
	BillableUnits int64            `json:"billable_units"`
	CostBasis     decimal.Decimal  `json:"cost_basis"`
	Medicare      decimal.Decimal  `json:"reimbursement_medicare"`
	Commercial    decimal.Decimal  `json:"reimbursement_commercial"`
	Medicaid      decimal.Decimal  `json:"reimbursement_medicaid"`
	Weighted      decimal.Decimal  `json:"weighted_reimbursement"`
	NetRecovery   decimal.Decimal  `json:"net_recovery"`
	MarginPercent decimal.Decimal  `json:"margin_percent"`
	MixWarning    string           `json:"mix_warning,omitempty"`
	Details       []string         `json:"details"`
}

func writeResultJSON(w io.Writer, form scenario.Form, product *catalog.Product, r reimbursement.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{
		Scenario:      form.Scenario,
		Product:       product,
		BillableUnits: r.BillableUnits,
		CostBasis:     r.CostBasis,
		Medicare:      r.ReimbursementMedicare,
		Commercial:    r.ReimbursementCommercial,
		Medicaid:      r.ReimbursementMedicaid,
		Weighted:      r.WeightedReimbursement,
		NetRecovery:   r.NetRecovery,
		MarginPercent: r.MarginPercent,
		MixWarning:    form.MixWarning(),
		Details:       scenario.Explain(form, r),
	})
}
