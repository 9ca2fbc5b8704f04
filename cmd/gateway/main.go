package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecocart/storefront/internal/config"
	"github.com/ecocart/storefront/internal/gateway"
	"github.com/ecocart/storefront/internal/telemetry"
	"github.com/ecocart/storefront/internal/web"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load("8080")
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	apiServiceURL := os.Getenv("API_SERVICE_URL")
	if apiServiceURL == "" {
		logger.Error("API_SERVICE_URL is required")
		os.Exit(1)
	}

	apiProxy := gateway.NewServiceProxy(apiServiceURL, telemetry.NewHTTPClient(30*time.Second))
	handler := gateway.NewHandler(apiProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/{path...}", telemetry.WithHTTPRoute(handler.HandleAPI))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      web.CORS(telemetry.NewHandler(mux, "gateway")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port, "upstream", apiServiceURL)
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
