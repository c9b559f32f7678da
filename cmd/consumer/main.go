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

	"github.com/GriffinCanCode/otel-lab/internal/downstream"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/telemetry"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otel-lab/internal/messaging"
	"github.com/GriffinCanCode/otel-lab/internal/shared/id"
)

const instrumentationName = "stream-consumer"

func main() {
	name := flag.String("name", "", "Consumer name within the group (default: generated)")
	dev := flag.Bool("dev", false, "Development mode with colored debug logs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if !cfg.Redis.Enabled() {
		log.Fatal("REDIS_ADDR is required")
	}
	if *name == "" {
		*name = id.Default().GenerateWithPrefix("consumer")
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.New(ctx, telemetry.Config{
		Resource: telemetry.Resource{
			ServiceName:    cfg.Telemetry.ServiceName + "-consumer",
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
	logger = logger.WithOTel(instrumentationName, providers.LoggerProvider())

	spans := tracing.NewSpans(providers.Tracer(instrumentationName))
	propagator := tracing.NewPropagator(providers.Propagator())
	hist, err := monitoring.NewConsumeHistogram(providers.Meter(monitoring.MeterName, monitoring.MeterVersion))
	if err != nil {
		logger.Fatal("Failed to create histogram", zap.Error(err))
	}

	client := downstream.New(downstream.Config{
		BaseURL:        cfg.Downstream.URL,
		Timeout:        cfg.Downstream.Timeout,
		BreakerEnabled: cfg.Downstream.BreakerEnabled,
	}, spans, propagator, logger)

	rdb := messaging.NewClient(messaging.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	consumer := messaging.NewConsumer(rdb, messaging.ConsumerConfig{
		Stream: cfg.Redis.Stream,
		Group:  cfg.Redis.Group,
		Name:   *name,
	}, spans, propagator, hist, providers, logger)

	if err := consumer.Setup(ctx); err != nil {
		logger.Fatal("Failed to set up consumer group", zap.Error(err))
	}
	if err := consumer.Run(ctx, messaging.NewWorker(client, logger).Handle); err != nil {
		logger.Error("Consumer stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error flushing telemetry", zap.Error(err))
	}
}
