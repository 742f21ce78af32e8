package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/kardex-pos/internal/analytics/router"
	"github.com/angelmondragon/kardex-pos/internal/analytics/worker"
	"github.com/angelmondragon/kardex-pos/internal/analytics/writer"
	"github.com/angelmondragon/kardex-pos/pkg/bigquery"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/instance"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/idempotency"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/registry"
	"github.com/angelmondragon/kardex-pos/pkg/pubsub"
	"github.com/angelmondragon/kardex-pos/pkg/redis"
)

const serviceName = "analytics-worker"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "analytics worker stopped")
}

// run wires the worker and blocks on the subscription. Every client opened
// here is closed before it returns.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	if !cfg.Redis.Enabled() {
		return errors.New("redis is required for consumer idempotency")
	}

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logg.Error(ctx, "shutdown", cerr)
			}
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	closers = append(closers, redisClient.Close)

	ps, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.ModeSubscriber, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	closers = append(closers, ps.Close)

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bigquery: %w", err)
	}
	closers = append(closers, bq.Close)

	dedupe, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	facts, err := writer.New(bq, writer.Config{
		SaleFactsTable:     cfg.BigQuery.SaleFactsTable,
		MovementFactsTable: cfg.BigQuery.MovementFactsTable,
	})
	if err != nil {
		return fmt.Errorf("fact writer: %w", err)
	}
	routes, err := router.NewRouter(registry.NewPayloadDecoders(), facts, logg)
	if err != nil {
		return fmt.Errorf("fact router: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	svc, err := worker.NewService(worker.Params{
		Subscription: ps.AnalyticsSubscription(),
		Handler:      routes,
		Dedupe:       dedupe,
		Metrics:      metrics.NewConsumerMetrics(reg),
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     instance.ID(),
		"subscription": cfg.PubSub.AnalyticsSubscription,
		"dataset":      cfg.BigQuery.Dataset,
	})
	logg.Info(ctx, "analytics worker ready")
	return svc.Run(ctx)
}
