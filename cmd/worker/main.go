package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecocart/storefront/internal/config"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/messaging"
	"github.com/ecocart/storefront/internal/telemetry"
	"github.com/ecocart/storefront/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
	if emailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "worker", "0.1.0", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, domain.TopicPaymentCompleted, "receipt-worker", logger)
	defer func() { _ = consumer.Close() }()

	receiptHandler := worker.NewReceiptHandler(emailServiceURL, telemetry.NewHTTPClient(10*time.Second), logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting receipt worker", "brokers", cfg.KafkaBrokers, "topic", domain.TopicPaymentCompleted)

	if err := consumer.Consume(ctx, receiptHandler.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
