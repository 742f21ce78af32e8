package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/kardex-pos/api/controllers"
	"github.com/angelmondragon/kardex-pos/api/routes"
	"github.com/angelmondragon/kardex-pos/internal/customers"
	"github.com/angelmondragon/kardex-pos/internal/dashboard"
	"github.com/angelmondragon/kardex-pos/internal/invoicing"
	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/internal/paymentmethods"
	"github.com/angelmondragon/kardex-pos/internal/products"
	"github.com/angelmondragon/kardex-pos/internal/sales"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/instance"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
	"github.com/angelmondragon/kardex-pos/pkg/migrate"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
	"github.com/angelmondragon/kardex-pos/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.App.IsProd() && !cfg.FeatureFlags.RequireAuth {
		logg.Warn(context.Background(), "authentication is disabled in production; every request acts as admin")
	}

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

	ready := map[string]controllers.Pinger{"db": dbClient}
	params := routes.RouterParams{
		Config:   cfg,
		Logger:   logg,
		Location: loc,
		Ready:    ready,
	}

	if cfg.Redis.Enabled() {
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
		ready["redis"] = redisClient
		params.Idempotency = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, idempotency replay disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	salesMetrics := metrics.NewSalesMetrics(reg)
	params.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	conn := dbClient.DB()
	catalog, err := kardex.LoadCatalog(ctx, conn)
	if err != nil {
		logg.Error(ctx, "failed to load movement catalog", err)
		os.Exit(1)
	}
	params.Catalog = catalog

	productRepo := products.NewRepository(conn)
	gateway := products.NewGateway(productRepo)
	ledger, err := kardex.NewStore(kardex.StoreParams{
		Repository: kardex.NewRepository(conn),
		Catalog:    catalog,
		Stock:      gateway,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create kardex store", err)
		os.Exit(1)
	}
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	params.Products, err = products.NewService(products.ServiceParams{
		Repository: productRepo,
		DB:         dbClient,
		Ledger:     ledger,
		Gateway:    gateway,
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	numberer, err := invoicing.NewService(invoicing.ServiceParams{
		Lookup:      invoicing.NewSaleLookup(),
		MaxAttempts: cfg.Sales.InvoiceMaxAttempts,
		Location:    loc,
		Logger:      logg,
		Metrics:     salesMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create invoice numberer", err)
		os.Exit(1)
	}

	params.Sales, err = sales.NewService(sales.ServiceParams{
		DB:         dbClient,
		Repository: sales.NewRepository(conn),
		Ledger:     ledger,
		Gateway:    gateway,
		Numberer:   numberer,
		Outbox:     outboxService,
		Listener:   sales.LogListener{Logger: logg},
		Metrics:    salesMetrics,
		Logger:     logg,
		Location:   loc,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sales service", err)
		os.Exit(1)
	}

	params.Dashboard, err = dashboard.NewService(dashboard.ServiceParams{
		DB:       conn,
		Products: productRepo,
		Logger:   logg,
		Location: loc,
	})
	if err != nil {
		logg.Error(ctx, "failed to create dashboard service", err)
		os.Exit(1)
	}

	params.Customers, err = customers.NewService(customers.ServiceParams{
		Repository: customers.NewRepository(conn),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create customer service", err)
		os.Exit(1)
	}

	params.PaymentMethods, err = paymentmethods.NewService(paymentmethods.ServiceParams{
		Repository: paymentmethods.NewRepository(conn),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create payment method service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"timezone": loc.String(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(params),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
