package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/checkout",
		"REDIS_URL":    "redis://localhost:6379/0",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 1100, cfg.PricingTaxRateBPS)
	require.Equal(t, "IDR", cfg.CurrencyCode)
	require.Equal(t, 30*time.Second, cfg.VoucherCacheTTL)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, "30-M", cfg.VoucherValidateRate)
	require.Equal(t, "checkout", cfg.Obs.MetricsNamespace)
	require.True(t, cfg.Obs.MetricsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9090"
	env["PRICING_TAX_RATE_BPS"] = "1000"
	env["CURRENCY_CODE"] = "usd"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example, https://admin.example ,"
	env["CHECKOUT_LOCK_TTL"] = "45s"
	env["RANKING_CACHE_TTL"] = "not-a-duration"
	env["MIGRATIONS_AUTO"] = "yes"
	env["OBS_ENABLE_PROMETHEUS"] = "off"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 1000, cfg.PricingTaxRateBPS)
	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 45*time.Second, cfg.CheckoutLockTTL)
	require.Equal(t, 5*time.Minute, cfg.RankingCacheTTL)
	require.True(t, cfg.MigrationsAuto)
	require.False(t, cfg.Obs.MetricsEnabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {"DATABASE_URL": "", "REDIS_URL": "redis://x"},
		"missing redis":    {"DATABASE_URL": "postgres://x", "REDIS_URL": ""},
		"negative tax":     {"DATABASE_URL": "postgres://x", "REDIS_URL": "redis://x", "PRICING_TAX_RATE_BPS": "-1"},
		"bad rate":         {"DATABASE_URL": "postgres://x", "REDIS_URL": "redis://x", "VOUCHER_VALIDATE_RATE": "lots"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadForTests(env)
			require.Error(t, err)
		})
	}
}
