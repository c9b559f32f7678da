package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/otel-lab/internal/api/http"
	"github.com/GriffinCanCode/otel-lab/internal/api/middleware"
	"github.com/GriffinCanCode/otel-lab/internal/downstream"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/telemetry"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otel-lab/internal/messaging"
	"github.com/GriffinCanCode/otel-lab/internal/store"
)

// InstrumentationName is the tracer and logger scope used by the service.
const InstrumentationName = "fastapi-app"

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	router *gin.Engine
	http   *http.Server

	db    *sql.DB
	redis *redis.Client
}

// Option overrides a dependency built by New.
type Option func(*options)

type options struct {
	db     *sql.DB
	stream messaging.StreamClient
}

// WithDB uses db for the /db probe instead of opening DB_DSN.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithStream uses client for /publish instead of connecting to REDIS_ADDR.
func WithStream(client messaging.StreamClient) Option {
	return func(o *options) { o.stream = client }
}

// New builds the router and its dependencies. Database and Redis are
// optional; their routes answer 503 when unset.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, providers *telemetry.Providers, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{cfg: cfg, logger: logger}

	spans := tracing.NewSpans(providers.Tracer(InstrumentationName))
	propagator := tracing.NewPropagator(providers.Propagator())
	hist, err := monitoring.NewRequestHistogram(providers.Meter(monitoring.MeterName, monitoring.MeterVersion))
	if err != nil {
		return nil, err
	}

	client := downstream.New(downstream.Config{
		BaseURL:        cfg.Downstream.URL,
		Timeout:        cfg.Downstream.Timeout,
		BreakerEnabled: cfg.Downstream.BreakerEnabled,
	}, spans, propagator, logger)

	s.db = o.db
	if s.db == nil && cfg.Database.Enabled() {
		db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			logger.Warn("database unavailable, /db disabled", zap.Error(err))
		} else {
			s.db = db
		}
	}
	var prober *store.Prober
	if s.db != nil {
		prober = store.NewProber(s.db, cfg.Database.Driver, spans)
	}

	stream := o.stream
	if stream == nil && cfg.Redis.Enabled() {
		s.redis = messaging.NewClient(messaging.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		stream = s.redis
	}
	var publisher *messaging.Publisher
	if stream != nil {
		publisher = messaging.NewPublisher(stream, cfg.Redis.Stream, spans, propagator)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Faults(logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		limit := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
		if cfg.RateLimit.Global {
			router.Use(middleware.GlobalRateLimit(limit))
		} else {
			router.Use(middleware.RateLimit(limit))
		}
	}
	router.Use(tracing.HTTPMiddleware(tracing.MiddlewareConfig{
		Spans:      spans,
		Propagator: propagator,
		Recorder:   hist,
	}))

	handlers.NewHandlers(handlers.Deps{
		Downstream: client,
		PublishURL: cfg.Downstream.PublishURL,
		Prober:     prober,
		Publisher:  publisher,
		Metrics:    providers.MetricsHandler(),
		Logger:     logger,
	}).Register(router)

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("downstream", cfg.Downstream.URL),
		zap.Bool("database", prober.Enabled()),
		zap.Bool("redis", publisher != nil),
	)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests and releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
