package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-checkout/internal/app"
	"github.com/noah-isme/storefront-checkout/internal/config"
	"github.com/noah-isme/storefront-checkout/internal/obs"
	"github.com/noah-isme/storefront-checkout/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(bootCtx, cfg, "worker")
	cancel()
	if err != nil {
		logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel)
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close(context.Background())
	logger := deps.Logger

	taskRedis, err := app.TaskRedis(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure task queue")
	}

	srv := asynq.NewServer(taskRedis, serverConfig(cfg, logger))
	mux := asynq.NewServeMux()
	tasks.Processor{Ranking: deps.Ranking, Vouchers: deps.Vouchers, Logger: logger}.Register(mux)

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Str("queue", queueName(cfg)).Msg("worker starting")

	<-ctx.Done()
	logger.Info().Msg("worker draining")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func serverConfig(cfg *config.Config, logger zerolog.Logger) asynq.Config {
	return asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{queueName(cfg): 1},
		ShutdownTimeout: 20 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().Err(err).Str("task", task.Type()).Int("retry", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
		Logger:   taskLogger{logger: logger},
		LogLevel: asynq.InfoLevel,
	}
}

func queueName(cfg *config.Config) string {
	if cfg.WorkerQueue == "" {
		return tasks.DefaultQueue
	}
	return cfg.WorkerQueue
}

// taskLogger routes asynq's internal logging through zerolog.
type taskLogger struct {
	logger zerolog.Logger
}

func (l taskLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l taskLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l taskLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l taskLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l taskLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
