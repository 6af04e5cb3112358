package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	defaultAppEnv           = "development"
	defaultDBPath           = "./ncr.db"
	defaultPort             = "8080"
	defaultLogFormat        = "json"
	defaultLogLevel         = "info"
	defaultMetricsNamespace = "ncrsim"

	CatalogSQLite = "sqlite"
	CatalogStatic = "static"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DBPath             string
	LogFormat          string
	LogLevel           string
	CatalogSource      string
	PresetsFile        string
	MetricsEnabled     bool
	MetricsNamespace   string
	CORSAllowedOrigins []string
}

// Load reads environment variables, after a best-effort .env load, and
// returns a populated Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (Config, error) {
	cfg := Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), defaultAppEnv),
		Port:               valueOrDefault(k.String("PORT"), defaultPort),
		DBPath:             valueOrDefault(k.String("DB_PATH"), defaultDBPath),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), defaultLogFormat),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), defaultLogLevel),
		CatalogSource:      strings.ToLower(valueOrDefault(k.String("CATALOG_SOURCE"), CatalogSQLite)),
		PresetsFile:        strings.TrimSpace(k.String("PRESETS_FILE")),
		MetricsEnabled:     parseBool(k.String("METRICS_ENABLED"), true),
		MetricsNamespace:   valueOrDefault(k.String("METRICS_NAMESPACE"), defaultMetricsNamespace),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.CatalogSource {
	case CatalogSQLite, CatalogStatic:
	default:
		return Config{}, fmt.Errorf("CATALOG_SOURCE must be %q or %q, got %q", CatalogSQLite, CatalogStatic, cfg.CatalogSource)
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where
// migrations and the catalog seed run on startup.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "development", "dev", "local":
		return true
	default:
		return false
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func valueOrDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
