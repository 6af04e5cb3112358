package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/db"
	"github.com/Simplici0/ncrsim/internal/logging"
	"github.com/Simplici0/ncrsim/internal/scenario"
)

type globalOptions struct {
	logFormat   string
	logLevel    string
	presetsFile string
	dbPath      string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "ncrcalc",
		Short:        "Net cost recovery calculator",
		Long:         "Computes drug acquisition cost, payer-weighted reimbursement and margin for a site-of-care scenario.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	pf.StringVar(&opts.presetsFile, "presets", "", "YAML preset book replacing the built-in scenarios")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite catalog path (built-in product table when empty)")

	root.AddCommand(
		newCalcCmd(opts),
		newScenariosCmd(opts),
		newProductsCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func (o *globalOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), o.logFormat, o.logLevel)
}

func (o *globalOptions) book() (*scenario.Book, error) {
	if o.presetsFile == "" {
		return scenario.DefaultBook(), nil
	}
	return scenario.LoadFile(o.presetsFile)
}

// productLister is satisfied by both catalog backends.
type productLister interface {
	catalog.Resolver
	List(ctx context.Context) ([]catalog.Product, error)
}

// openCatalog opens the configured product catalog. The returned close func
// is never nil.
func (o *globalOptions) openCatalog(ctx context.Context) (productLister, func(), error) {
	if o.dbPath == "" {
		return catalog.NewStaticResolver(catalog.DefaultProducts()), func() {}, nil
	}
	database, err := db.Open(ctx, o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	return catalog.NewStore(database), func() { _ = database.Close() }, nil
}
