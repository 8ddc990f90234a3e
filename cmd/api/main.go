package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/app"
	"github.com/noah-isme/storefront-checkout/internal/checkout"
	"github.com/noah-isme/storefront-checkout/internal/common"
	"github.com/noah-isme/storefront-checkout/internal/config"
	"github.com/noah-isme/storefront-checkout/internal/db"
	"github.com/noah-isme/storefront-checkout/internal/events"
	"github.com/noah-isme/storefront-checkout/internal/health"
	"github.com/noah-isme/storefront-checkout/internal/lock"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/ratelimit"
	"github.com/noah-isme/storefront-checkout/internal/security"
	"github.com/noah-isme/storefront-checkout/internal/tasks"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(bootCtx, cfg, "api")
	cancel()
	if err != nil {
		logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close(context.Background())
	logger := deps.Logger

	if cfg.MigrationsAuto {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	taskRedis, err := app.TaskRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure task queue")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	bus := &events.Bus{
		Notifiers: []events.Notifier{tasks.Notifier{
			Client:   taskClient,
			Queue:    cfg.WorkerQueue,
			MaxRetry: 5,
			Timeout:  30 * time.Second,
		}},
	}

	checkoutSvc := &checkout.Service{
		Q:        deps.Queries,
		Tx:       deps.Tx,
		Ranking:  deps.Ranking,
		Vouchers: deps.Vouchers,
		Events:   bus,
		Locker:   lock.Locker{R: deps.Redis},
		LockTTL:  cfg.CheckoutLockTTL,
		TaxBps:   cfg.PricingTaxRateBPS,
		Currency: cfg.CurrencyCode,
	}

	validateLimiter, err := ratelimit.New(deps.Redis, cfg.VoucherValidateRate, "ratelimit:voucher-validate")
	if err != nil {
		logger.Fatal().Err(err).Msg("configure voucher rate limit")
	}

	r := newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		tracing:  deps.TracingEnabled,
		idem:     common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL},
		limiter:  validateLimiter,
		vouchers: &voucher.Handler{Svc: deps.Vouchers},
		ranks:    &ranking.Handler{Svc: deps.Ranking},
		checkout: &checkout.Handler{Svc: checkoutSvc},
		probes: []health.Probe{
			{Name: "postgres", Timeout: cfg.Obs.ReadyDBTimeout, Check: deps.DB.Ping},
			{Name: "redis", Timeout: cfg.Obs.ReadyRedisTimeout, Check: func(ctx context.Context) error {
				return deps.Redis.Ping(ctx).Err()
			}},
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}
}

type routerDeps struct {
	cfg      *config.Config
	logger   zerolog.Logger
	tracing  bool
	idem     common.Idem
	limiter  ratelimit.Limiter
	vouchers *voucher.Handler
	ranks    *ranking.Handler
	checkout *checkout.Handler
	probes   []health.Probe
}

func newRouter(d routerDeps) chi.Router {
	cfg := d.cfg
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBucketsMS), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production", HSTSMaxAge: 31536000}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	admin := security.BasicAuth("storefront-admin", cfg.AdminUser, cfg.AdminPassword)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Route("/debug/pprof", func(p chi.Router) {
		p.Use(admin)
		p.Handle("/*", newPprofMux())
	})

	healthHandler := health.Handler{Probes: d.probes}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	validateLimit := ratelimit.Handler{
		Limiter: d.limiter,
		Key:     ratelimit.ByClientIP("voucher-validate"),
		OnError: func(err error) { d.logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.With(validateLimit.Middleware).Get("/vouchers/validate", d.vouchers.Validate)
		v.Get("/customers/{id}/ranking", d.ranks.Customer)
		v.Get("/ranks", d.ranks.List)

		v.Post("/checkout/quote", d.checkout.Quote)
		v.With(d.idem.Middleware).Post("/orders/checkout", d.checkout.Checkout)
		v.Get("/orders/{odID}", d.checkout.Get)

		v.Route("/admin", func(a chi.Router) {
			a.Use(admin)
			a.Get("/vouchers", d.vouchers.List)
			a.Post("/vouchers", d.vouchers.Create)
			a.Get("/vouchers/{code}", d.vouchers.Get)
			a.Put("/vouchers/{code}", d.vouchers.Update)
			a.Delete("/vouchers/{code}", d.vouchers.Deactivate)
			a.Get("/ranks", d.ranks.List)
			a.Put("/ranks", d.ranks.Replace)
		})
	})
	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
