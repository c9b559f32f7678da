package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/telemetry"
	"github.com/GriffinCanCode/otel-lab/internal/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	dev := flag.Bool("dev", false, "Development mode with colored debug logs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	providers, err := telemetry.New(ctx, telemetry.Config{
		Resource: telemetry.Resource{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
		},
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		MetricInterval: cfg.Telemetry.MetricInterval,
		Disabled:       cfg.Telemetry.Disabled,
	}, telemetry.WithLogger(logger.Logger))
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	providers.InstallGlobals()
	logger = logger.WithOTel(server.InstrumentationName, providers.LoggerProvider())

	srv, err := server.New(ctx, cfg, logger, providers)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error flushing telemetry", zap.Error(err))
	}
}
