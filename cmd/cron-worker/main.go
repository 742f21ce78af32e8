package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kardex-pos/internal/cron"
	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/internal/products"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/instance"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
	"github.com/angelmondragon/kardex-pos/pkg/migrate"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
	"github.com/angelmondragon/kardex-pos/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid business timezone", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	env := cfg.App.Env
	locker, err := cron.NewRedisLocker(redisClient, func(name string) string {
		return redisClient.LockKey(name, env)
	}, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron locker", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	productRepo := products.NewRepository(conn)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Repository:    outboxRepo,
		RetentionDays: cfg.Outbox.RetentionDays,
		MinAttempts:   cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox retention job", err)
		os.Exit(1)
	}

	sweep, err := cron.NewLowStockSweepJob(cron.LowStockSweepJobParams{
		Logger:   logg,
		DB:       dbClient,
		Products: productRepo,
		Outbox:   outbox.NewService(outboxRepo, logg),
		Location: loc,
	})
	if err != nil {
		logg.Error(ctx, "failed to create low stock sweep job", err)
		os.Exit(1)
	}

	reconcile, err := cron.NewKardexReconcileJob(cron.KardexReconcileJobParams{
		Logger:    logg,
		Products:  productRepo,
		Movements: kardex.NewRepository(conn),
	})
	if err != nil {
		logg.Error(ctx, "failed to create kardex reconcile job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(retention, sweep, reconcile)
	if err != nil {
		logg.Error(ctx, "failed to register cron jobs", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      env,
		"instance": instance.ID(),
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
