package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/db"
	"github.com/Simplici0/ncrsim/internal/format"
	"github.com/Simplici0/ncrsim/internal/migrations"
	"github.com/Simplici0/ncrsim/internal/seed"
)

func newScenariosCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List site-of-care presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := g.book()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDISCOUNT\tMARKUP\tMIX (MCR/COM/MCD)\tDESCRIPTION")
			for _, p := range book.All() {
				fmt.Fprintf(tw, "%s\t%s%%\t%s%%\t%s/%s/%s\t%s\n",
					p.Name,
					format.Number(p.DiscountPercent),
					format.Number(p.MarkupPercent),
					format.Number(p.Mix.Medicare), format.Number(p.Mix.Commercial), format.Number(p.Mix.Medicaid),
					p.Description,
				)
			}
			return tw.Flush()
		},
	}
}

func newProductsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, closeFn, err := g.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := products.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tBRAND\tGENERIC\tDOSAGE\tWAC")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Code, p.Brand, p.Generic, p.Dosage, format.MoneyCents(p.WAC))
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(newProductsSetCmd(g))
	return cmd
}

func newProductsSetCmd(g *globalOptions) *cobra.Command {
	var brand, generic, dosage string
	var wac float64
	cmd := &cobra.Command{
		Use:   "set CODE",
		Short: "Insert or update a product in the SQLite catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if g.dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			database, err := db.Open(ctx, g.dbPath)
			if err != nil {
				return err
			}
			defer database.Close()
			store := catalog.NewStore(database)

			p, err := store.ResolveByCode(ctx, args[0])
			switch {
			case err == nil:
			case errors.Is(err, catalog.ErrNotFound):
				p = catalog.Product{Code: catalog.NormalizeCode(args[0])}
				if !cmd.Flags().Changed("wac") || !cmd.Flags().Changed("brand") {
					return fmt.Errorf("new product %s needs --brand and --wac", p.Code)
				}
			default:
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("brand") {
				p.Brand = brand
			}
			if flags.Changed("generic") {
				p.Generic = generic
			}
			if flags.Changed("dosage") {
				p.Dosage = dosage
			}
			if flags.Changed("wac") {
				if wac < 0 {
					return fmt.Errorf("--wac must be greater than or equal to 0")
				}
				p.WAC = decimal.NewFromFloat(wac)
			}

			inserted, err := store.Upsert(ctx, p)
			if err != nil {
				return err
			}
			verb := "updated"
			if inserted {
				verb = "inserted"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", verb, p.Code, p.Brand, format.MoneyCents(p.WAC))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&brand, "brand", "", "Brand name")
	f.StringVar(&generic, "generic", "", "Generic name")
	f.StringVar(&dosage, "dosage", "", "Dosage description")
	f.Float64Var(&wac, "wac", 0, "Wholesale acquisition cost")
	return cmd
}

func newMigrateCmd(g *globalOptions) *cobra.Command {
	var withSeed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := g.logger(cmd)
			ctx := cmd.Context()
			if g.dbPath == "" {
				return fmt.Errorf("--db is required")
			}

			database, err := db.Open(ctx, g.dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := migrations.Up(ctx, database); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			log.Info().Str("db", g.dbPath).Msg("all migrations applied successfully")

			if !withSeed {
				return nil
			}
			stats, err := seed.Run(ctx, database, catalog.DefaultProducts())
			if err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			log.Info().Int("inserts", stats.Inserts).Int("skipped", stats.Skipped).Msg("catalog seed complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSeed, "seed", false, "Insert the built-in products after migrating")
	return cmd
}
