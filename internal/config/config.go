package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	CORSAllowedOrigins []string

	// PunchOut integration settings.
	PunchoutSharedSecret   string
	PunchoutStartPageURL   string
	PunchoutIdentity       string
	PunchoutPayloadDomain  string
	PunchoutSessionTTL     time.Duration
	PunchoutRelayEnabled   bool
	PunchoutSetupRateMax   int
	PunchoutSetupRateWindow time.Duration

	// Pricing settings.
	PricingMode             string
	SlidingMarginLowPrice   float64
	SlidingMarginHighPrice  float64
	SlidingMarginHighPct    float64
	SlidingMarginLowPct     float64
	DiscountCacheTTL        time.Duration

	// Catalog read API.
	CatalogCacheTTL     time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int
	CurrencyCode        string

	// Admin API auth (token validation only; issuance is external).
	AdminJWTSecret   string
	AdminJWTIssuer   string
	AdminJWTAudience string

	IdempotencyTTL  time.Duration
	LockTTL         time.Duration
	LockRetryBackoff time.Duration
	QueueConcurrency int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		PunchoutSharedSecret:    k.String("PUNCHOUT_SHARED_SECRET"),
		PunchoutStartPageURL:    valueOrDefault(k.String("PUNCHOUT_START_PAGE_URL"), "https://shop.omnisupply.io/punchout/start"),
		PunchoutIdentity:        valueOrDefault(k.String("PUNCHOUT_IDENTITY"), "omnisupply.io"),
		PunchoutPayloadDomain:   valueOrDefault(k.String("PUNCHOUT_PAYLOAD_DOMAIN"), "omnisupply.io"),
		PunchoutSessionTTL:      parseDuration(k.String("PUNCHOUT_SESSION_TTL"), "2h"),
		PunchoutRelayEnabled:    parseBool(k.String("PUNCHOUT_RELAY_ENABLED")),
		PunchoutSetupRateMax:    parseInt(k.String("PUNCHOUT_SETUP_RATE_MAX"), 30),
		PunchoutSetupRateWindow: parseDuration(k.String("PUNCHOUT_SETUP_RATE_WINDOW"), "1m"),

		PricingMode:            valueOrDefault(k.String("PRICING_MODE"), "fixed-split"),
		SlidingMarginLowPrice:  parseFloat(k.String("PRICING_SLIDING_LOW_PRICE"), 100),
		SlidingMarginHighPrice: parseFloat(k.String("PRICING_SLIDING_HIGH_PRICE"), 10000),
		SlidingMarginHighPct:   parseFloat(k.String("PRICING_SLIDING_HIGH_PCT"), 9.2),
		SlidingMarginLowPct:    parseFloat(k.String("PRICING_SLIDING_LOW_PCT"), 5.92),
		DiscountCacheTTL:       parseDuration(k.String("PRICING_DISCOUNT_CACHE_TTL"), "5m"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 100),
		CurrencyCode:        valueOrDefault(k.String("CURRENCY_CODE"), "USD"),

		AdminJWTSecret:   k.String("ADMIN_JWT_SECRET"),
		AdminJWTIssuer:   valueOrDefault(k.String("ADMIN_JWT_ISSUER"), "omnisupply"),
		AdminJWTAudience: valueOrDefault(k.String("ADMIN_JWT_AUDIENCE"), "procurement-api"),

		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		LockTTL:          parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 4),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.PunchoutSharedSecret == "" {
		return nil, errors.New("PUNCHOUT_SHARED_SECRET is required")
	}
	if cfg.AdminJWTSecret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(trimmed, "%g", &parsed); err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
