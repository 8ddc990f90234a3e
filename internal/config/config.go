package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	limiter "github.com/ulule/limiter/v3"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	PricingTaxRateBPS int
	CurrencyCode      string

	VoucherCacheTTL     time.Duration
	RankingCacheTTL     time.Duration
	IdempotencyTTL      time.Duration
	CheckoutLockTTL     time.Duration
	VoucherValidateRate string
	BodyLimitBytes      int64

	AdminUser     string
	AdminPassword string

	MigrationsAuto    bool
	WorkerConcurrency int
	WorkerQueue       string

	BackendBaseURL string
	BackendTimeout time.Duration

	Obs Obs
}

// Obs groups logging, metrics and tracing switches.
type Obs struct {
	LogFormat         string
	LogLevel          string
	MetricsNamespace  string
	MetricsEnabled    bool
	MetricsBucketsMS  string
	TracingEnabled    bool
	TracingExporter   string
	OTLPEndpoint      string
	SamplingRatio     float64
	ReadyDBTimeout    time.Duration
	ReadyRedisTimeout time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		PricingTaxRateBPS: parseInt(k.String("PRICING_TAX_RATE_BPS"), 1100),
		CurrencyCode:      strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "IDR")),

		VoucherCacheTTL:     parseDuration(k.String("VOUCHER_CACHE_TTL"), "30s"),
		RankingCacheTTL:     parseDuration(k.String("RANKING_CACHE_TTL"), "5m"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutLockTTL:     parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),
		VoucherValidateRate: valueOrDefault(k.String("VOUCHER_VALIDATE_RATE"), "30-M"),
		BodyLimitBytes:      int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		AdminUser:     strings.TrimSpace(k.String("ADMIN_BASIC_AUTH_USER")),
		AdminPassword: k.String("ADMIN_BASIC_AUTH_PASS"),

		MigrationsAuto:    parseBool(k.String("MIGRATIONS_AUTO"), false),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 10),
		WorkerQueue:       valueOrDefault(k.String("WORKER_QUEUE"), "checkout"),

		BackendBaseURL: valueOrDefault(k.String("BACKEND_BASE_URL"), "http://localhost:8080"),
		BackendTimeout: parseDuration(k.String("BACKEND_TIMEOUT"), "5s"),

		Obs: Obs{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsBucketsMS: k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     k.String("OBS_OTLP_ENDPOINT"),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
			ReadyDBTimeout:   parseDuration(k.String("HEALTH_READY_DB_TIMEOUT"), "500ms"),
			ReadyRedisTimeout: parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.PricingTaxRateBPS < 0 || cfg.PricingTaxRateBPS > 10_000 {
		return nil, fmt.Errorf("PRICING_TAX_RATE_BPS must be between 0 and 10000, got %d", cfg.PricingTaxRateBPS)
	}
	if _, err := limiter.NewRateFromFormatted(cfg.VoucherValidateRate); err != nil {
		return nil, fmt.Errorf("VOUCHER_VALIDATE_RATE: %w", err)
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
		return strings.TrimSpace(value)
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

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
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
