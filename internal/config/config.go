package config

import (
	"errors"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from environment variables (optionally from a .env
// file), with sensible defaults where appropriate.
type Config struct {
	DatabaseURL string `env:"APP_DATABASE_URL"`
	ListenAddr  string `env:"APP_LISTEN_ADDR" envDefault:":8080"`

	// FallbackTenantSlug names the tenant new keys are issued under when the
	// acting user has no tenant-role binding.
	FallbackTenantSlug string `env:"APP_FALLBACK_TENANT_SLUG" envDefault:"noro"`
	FallbackTenantName string `env:"APP_FALLBACK_TENANT_NAME" envDefault:"Noro"`

	// DefaultScope is applied to keys created without an explicit scope.
	DefaultScope []string `env:"APP_DEFAULT_SCOPE" envSeparator:"," envDefault:"visa:read"`

	// UsageWindowDays is the trailing window folded into daily usage.
	UsageWindowDays int `env:"APP_USAGE_WINDOW_DAYS" envDefault:"30"`

	// LogRetentionDays bounds how long raw api_key_logs rows are kept.
	// Zero disables pruning.
	LogRetentionDays int `env:"APP_LOG_RETENTION_DAYS" envDefault:"90"`

	// MetricsToken guards the full /metrics exposition. Empty disables the route.
	MetricsToken string `env:"APP_METRICS_TOKEN"`

	LogLevel  string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"APP_LOG_FORMAT" envDefault:"console"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	scope := make([]string, 0, len(c.DefaultScope))
	for _, s := range c.DefaultScope {
		if s = strings.TrimSpace(s); s != "" {
			scope = append(scope, s)
		}
	}
	c.DefaultScope = scope
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.FallbackTenantSlug = strings.TrimSpace(c.FallbackTenantSlug)
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}
	if c.UsageWindowDays <= 0 {
		return errors.New("APP_USAGE_WINDOW_DAYS must be positive")
	}
	if c.LogRetentionDays < 0 {
		return errors.New("APP_LOG_RETENTION_DAYS must not be negative")
	}
	if c.LogRetentionDays > 0 && c.LogRetentionDays < c.UsageWindowDays {
		return errors.New("APP_LOG_RETENTION_DAYS must cover APP_USAGE_WINDOW_DAYS")
	}
	if len(c.DefaultScope) == 0 {
		return errors.New("APP_DEFAULT_SCOPE must name at least one scope")
	}
	return nil
}
