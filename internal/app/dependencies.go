// Package app wires the infrastructure shared by the API and the worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/cache"
	"github.com/noah-isme/storefront-checkout/internal/config"
	"github.com/noah-isme/storefront-checkout/internal/db"
	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/ranking"
	"github.com/noah-isme/storefront-checkout/internal/voucher"
)

// Dependencies enumerates the connections and core services shared across commands.
type Dependencies struct {
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Queries *dbgen.Queries
	Redis   *redis.Client
	Tx      db.TxRunner

	Ranking  *ranking.Service
	Vouchers *voucher.Service

	TracingEnabled bool
	closers        []func(context.Context) error
}

// Open connects to Postgres and Redis, configures tracing and builds the pricing services.
// component tags every log line and the Postgres application_name.
func Open(ctx context.Context, cfg *config.Config, component string) (*Dependencies, error) {
	d := &Dependencies{
		Logger: obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Str("component", component).Logger(),
	}

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "storefront-checkout-" + component,
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			d.Logger.Error().Err(err).Msg("initialise tracing")
		} else {
			d.TracingEnabled = true
			d.closers = append(d.closers, shutdown)
		}
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, ApplicationName: "storefront-checkout-" + component, Tracer: obs.PGXTracer{}})
	if err != nil {
		d.Close(ctx)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		d.Close(ctx)
		return nil, fmt.Errorf("ping database: %w", err)
	}
	d.DB = pool
	d.Queries = dbgen.New(pool)
	d.Tx = db.PoolTx{Pool: pool}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		d.Close(ctx)
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	d.Redis = redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(d.Redis); err != nil {
		d.Logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(d.Redis); err != nil {
			d.Logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := d.Redis.Ping(ctx).Err(); err != nil {
		d.Close(ctx)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	d.Ranking = &ranking.Service{Q: d.Queries, Tx: d.Tx, Cache: cache.NewJSON(d.Redis, cfg.RankingCacheTTL)}
	d.Vouchers = &voucher.Service{Q: d.Queries, Ranks: d.Ranking, Cache: cache.NewJSON(d.Redis, cfg.VoucherCacheTTL)}
	return d, nil
}

// TaskRedis returns asynq connection options for the configured Redis.
func TaskRedis(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url for tasks: %w", err)
	}
	return opt, nil
}

// Close releases every connection in reverse order of acquisition.
func (d *Dependencies) Close(ctx context.Context) {
	if d == nil {
		return
	}
	var errs error
	if d.Redis != nil {
		errs = errors.Join(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, d.closers[i](ctx))
	}
	if errs != nil {
		d.Logger.Error().Err(errs).Msg("close dependencies")
	}
}
