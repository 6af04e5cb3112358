package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Simplici0/ncrsim/internal/catalog"
	"github.com/Simplici0/ncrsim/internal/config"
	"github.com/Simplici0/ncrsim/internal/db"
	"github.com/Simplici0/ncrsim/internal/logging"
	"github.com/Simplici0/ncrsim/internal/metrics"
	"github.com/Simplici0/ncrsim/internal/migrations"
	"github.com/Simplici0/ncrsim/internal/scenario"
	"github.com/Simplici0/ncrsim/internal/seed"
	"github.com/Simplici0/ncrsim/web"
)

const simulatorPage = "simulator.html"

type server struct {
	logger    zerolog.Logger
	db        *sql.DB
	book      *scenario.Book
	products  catalog.Resolver
	regions   scenario.RegionResolver
	metrics   *metrics.Metrics
	validate  *validator.Validate
	templates map[string]*template.Template
}

type routerOptions struct {
	corsOrigins    []string
	metricsHandler http.Handler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New("json", "info")
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server exited unexpectedly")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	book := scenario.DefaultBook()
	if cfg.PresetsFile != "" {
		loaded, err := scenario.LoadFile(cfg.PresetsFile)
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		book = loaded
		logger.Info().Str("file", cfg.PresetsFile).Strs("presets", book.Names()).Msg("loaded scenario presets")
	}

	var (
		database *sql.DB
		products catalog.Resolver
	)
	switch cfg.CatalogSource {
	case config.CatalogStatic:
		products = catalog.NewStaticResolver(catalog.DefaultProducts())
	default:
		var err error
		database, err = db.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()

		if cfg.IsDev() {
			if err := migrations.Up(ctx, database); err != nil {
				return fmt.Errorf("run database migrations: %w", err)
			}
			stats, err := seed.Run(ctx, database, catalog.DefaultProducts())
			if err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			logger.Info().Int("inserts", stats.Inserts).Int("skipped", stats.Skipped).Msg("catalog seed complete")
		}
		products = catalog.NewStore(database)
	}

	opts := routerOptions{corsOrigins: cfg.CORSAllowedOrigins}
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(cfg.MetricsNamespace, reg)
		opts.metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	srv, err := newServer(logger, database, book, products, scenario.NewStaticRegions(scenario.DefaultRegions()), m)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(srv, opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Str("catalog", cfg.CatalogSource).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newServer(
	logger zerolog.Logger,
	database *sql.DB,
	book *scenario.Book,
	products catalog.Resolver,
	regions scenario.RegionResolver,
	m *metrics.Metrics,
) (*server, error) {
	templates, err := parseTemplates(simulatorPage)
	if err != nil {
		return nil, err
	}
	return &server{
		logger:    logger,
		db:        database,
		book:      book,
		products:  products,
		regions:   regions,
		metrics:   m,
		validate:  scenario.NewValidator(),
		templates: templates,
	}, nil
}

func parseTemplates(pages ...string) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(web.Templates, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

func newRouter(s *server, opts routerOptions) http.Handler {
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metrics.Middleware)
	r.Use(logging.RequestLogger{Logger: s.logger}.Middleware)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/", s.handleHome)
	r.Post("/", s.handleSimulate)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if opts.metricsHandler != nil {
		r.Handle("/metrics", opts.metricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if len(opts.corsOrigins) > 0 {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins: opts.corsOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				ExposedHeaders: []string{"X-Request-Id"},
				MaxAge:         300,
			}))
		}
		api.Get("/products/{code}", s.handleGetProduct)
		api.Get("/scenarios", s.handleListScenarios)
		api.Get("/regions/{zip}", s.handleGetRegion)
		api.Post("/calculate", s.handleCalculate)
	})

	return r
}
