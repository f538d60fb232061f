package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":           "postgres://localhost/procurement_test",
		"REDIS_URL":              "redis://localhost:6379/1",
		"PUNCHOUT_SHARED_SECRET": "s3cret",
		"ADMIN_JWT_SECRET":       "admin-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "https://shop.omnisupply.io/punchout/start", cfg.PunchoutStartPageURL)
	require.Equal(t, "omnisupply.io", cfg.PunchoutPayloadDomain)
	require.Equal(t, 2*time.Hour, cfg.PunchoutSessionTTL)
	require.False(t, cfg.PunchoutRelayEnabled)
	require.Equal(t, 30, cfg.PunchoutSetupRateMax)
	require.Equal(t, time.Minute, cfg.PunchoutSetupRateWindow)

	require.Equal(t, "fixed-split", cfg.PricingMode)
	require.Equal(t, 100.0, cfg.SlidingMarginLowPrice)
	require.Equal(t, 10000.0, cfg.SlidingMarginHighPrice)
	require.Equal(t, 9.2, cfg.SlidingMarginHighPct)
	require.Equal(t, 5.92, cfg.SlidingMarginLowPct)

	require.Equal(t, 20, cfg.CatalogDefaultLimit)
	require.Equal(t, 100, cfg.CatalogMaxLimit)
	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, "omnisupply", cfg.AdminJWTIssuer)
	require.Equal(t, "procurement-api", cfg.AdminJWTAudience)
}

func TestLoadRequiredVars(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "PUNCHOUT_SHARED_SECRET", "ADMIN_JWT_SECRET"} {
		t.Run(missing, func(t *testing.T) {
			env := baseEnv()
			env[missing] = ""
			_, err := LoadForTests(env)
			require.Error(t, err)
			require.Contains(t, err.Error(), missing)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9191"
	env["PUNCHOUT_SESSION_TTL"] = "45m"
	env["PRICING_MODE"] = "sliding-margin"
	env["PUNCHOUT_RELAY_ENABLED"] = "true"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example.com, https://b.example.com"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9191", cfg.HTTPAddr())
	require.Equal(t, 45*time.Minute, cfg.PunchoutSessionTTL)
	require.Equal(t, "sliding-margin", cfg.PricingMode)
	require.True(t, cfg.PunchoutRelayEnabled)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}
