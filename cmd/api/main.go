package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/moussakone/librio-backend/api/routes"
	"github.com/moussakone/librio-backend/internal/cart"
	"github.com/moussakone/librio-backend/internal/checkout"
	"github.com/moussakone/librio-backend/internal/fulfillment"
	"github.com/moussakone/librio-backend/internal/library"
	"github.com/moussakone/librio-backend/internal/listings"
	"github.com/moussakone/librio-backend/internal/orders"
	"github.com/moussakone/librio-backend/internal/payments"
	"github.com/moussakone/librio-backend/internal/wallet"
	"github.com/moussakone/librio-backend/internal/webhooks"
	"github.com/moussakone/librio-backend/pkg/config"
	"github.com/moussakone/librio-backend/pkg/db"
	"github.com/moussakone/librio-backend/pkg/gateway"
	"github.com/moussakone/librio-backend/pkg/logger"
	"github.com/moussakone/librio-backend/pkg/metrics"
	"github.com/moussakone/librio-backend/pkg/migrate"
	"github.com/moussakone/librio-backend/pkg/outbox"
	"github.com/moussakone/librio-backend/pkg/redis"
)

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

	dbClient, err := db.New(cfg.DB)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	listingRepo := listings.NewRepository(dbClient.DB)
	cartRepo := cart.NewRepository(dbClient.DB)
	orderRepo := orders.NewRepository(dbClient.DB)
	paymentRepo := payments.NewRepository(dbClient.DB)
	walletRepo := wallet.NewRepository(dbClient.DB)
	libraryRepo := library.NewRepository(dbClient.DB)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB), logg)

	gatewayClient, err := gateway.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, listingRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(cartRepo, listingRepo, orderRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	executor, err := fulfillment.NewExecutor(walletRepo, libraryRepo, listingRepo, orderRepo, cfg.Marketplace.CommissionPercent, logg, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment executor", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		orderRepo,
		paymentRepo,
		cartRepo,
		checkoutService,
		executor,
		gatewayClient,
		dbClient,
		outboxService,
		logg,
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := webhooks.NewService(paymentsService, cfg.Gateway.SiteID, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			cartRepo,
			cartService,
			libraryRepo,
			paymentsService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
