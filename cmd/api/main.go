package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecocart/storefront/internal/api"
	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/cart"
	"github.com/ecocart/storefront/internal/catalog"
	"github.com/ecocart/storefront/internal/config"
	"github.com/ecocart/storefront/internal/messaging"
	"github.com/ecocart/storefront/internal/orders"
	"github.com/ecocart/storefront/internal/payments"
	"github.com/ecocart/storefront/internal/store"
	"github.com/ecocart/storefront/internal/telemetry"
	"github.com/ecocart/storefront/internal/users"
	"github.com/ecocart/storefront/internal/web"
)

const (
	serviceName    = "api"
	serviceVersion = "0.1.0"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("5000")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET not set, using the development default")
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	connectCtx, cancelConnect := context.WithTimeout(ctx, 15*time.Second)
	mongoClient, db, err := store.Connect(connectCtx, cfg.MongoURI, telemetry.MongoMonitor())
	cancelConnect()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	var publisher messaging.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, events are not published")
	}

	if cfg.StripeKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set, card payments use the mock provider")
	}

	userRepo := users.NewUserRepository(db)
	productRepo := catalog.NewProductRepository(db)
	cartRepo := cart.NewCartRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	paymentRepo := payments.NewPaymentRepository(db)

	paymentService, err := payments.NewService(
		payments.Config{Currency: cfg.Currency, PublicOrigin: cfg.PublicOrigin, AllowedOrigins: cfg.AllowedOrigins},
		payments.Deps{
			Provider:  payments.NewProvider(cfg.StripeKey),
			Orders:    orderRepo,
			Payments:  paymentRepo,
			Carts:     cartRepo,
			Users:     userRepo,
			Publisher: publisher,
		},
		logger,
	)
	if err != nil {
		logger.Error("failed to create payment service", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokens(cfg.JWTSecret)

	mux := api.NewRouter(api.Handlers{
		Auth:     auth.NewMiddleware(tokens, userRepo, logger),
		Users:    users.NewHandler(userRepo, tokens, logger),
		Catalog:  catalog.NewHandler(productRepo, logger),
		Cart:     cart.NewHandler(cartRepo, productRepo, logger),
		Orders:   orders.NewHandler(orderRepo, productRepo, publisher, logger),
		Payments: payments.NewHandler(paymentService, logger),
		Metrics:  metricsHandler,
		Logger:   logger,
	})

	serverMetrics, err := telemetry.NewServerMetrics(serviceName, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to register server metrics", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      web.CORS(telemetry.NewHandler(serverMetrics.Middleware(mux), serviceName)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
