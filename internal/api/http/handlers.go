package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otel-lab/internal/downstream"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otel-lab/internal/messaging"
	"github.com/GriffinCanCode/otel-lab/internal/store"
)

// FlowSpanName names the CLIENT span around the /flow publish call.
const FlowSpanName = "HTTP GET publish"

// Deps are the collaborators of the handlers. Prober, Publisher and
// Metrics may be nil; the matching routes then answer 503 or 404.
type Deps struct {
	Downstream *downstream.Client
	PublishURL string
	Prober     *store.Prober
	Publisher  *messaging.Publisher
	Metrics    http.Handler
	Logger     *logging.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	downstream *downstream.Client
	publishURL string
	prober     *store.Prober
	publisher  *messaging.Publisher
	metrics    http.Handler
	logger     *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		downstream: d.Downstream,
		publishURL: d.PublishURL,
		prober:     d.Prober,
		publisher:  d.Publisher,
		metrics:    d.Metrics,
		logger:     logger,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/sleep", h.Sleep)
	r.GET("/chain", h.Chain)
	r.GET("/db", h.DB)
	r.GET("/publish", h.Publish)
	r.GET("/flow", h.Flow)
	if h.metrics != nil {
		r.GET("/metrics", h.Metrics)
	}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Sleep blocks for ms milliseconds.
func (h *Handlers) Sleep(c *gin.Context) {
	ms, ok := h.sleepMs(c)
	if !ok {
		return
	}

	time.Sleep(time.Duration(ms) * time.Millisecond)
	h.logger.For(c.Request.Context()).Info("slept", zap.Int("sleep_ms", ms))

	c.JSON(http.StatusOK, gin.H{"slept_ms": ms})
}

// Chain calls the downstream peer's /sleep, or sleeps locally when no peer
// is configured. A failed peer call is a fault.
func (h *Handlers) Chain(c *gin.Context) {
	ms, ok := h.sleepMs(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result, err := h.downstream.Chain(ctx, ms)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	if result.Downstream == nil {
		h.logger.For(ctx).Info("chain-no-downstream", zap.Int("sleep_ms", ms))
		c.JSON(http.StatusOK, gin.H{"slept_ms": result.SleptMs, "downstream": nil})
		return
	}

	h.logger.For(ctx).Info("chain-downstream",
		zap.String("downstream", result.Downstream.URL),
		zap.Int("sleep_ms", ms),
	)
	c.JSON(http.StatusOK, gin.H{
		"downstream_url":    result.Downstream.URL,
		"downstream_status": result.Downstream.StatusCode,
		"downstream_json":   result.Downstream.Body,
	})
}

// DB runs the database probe.
func (h *Handlers) DB(c *gin.Context) {
	if !h.prober.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": store.ErrNotConfigured.Error()})
		return
	}
	ctx := c.Request.Context()

	one, err := h.prober.Probe(ctx)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	h.logger.For(ctx).Info("db-query", zap.Int("result", one))
	c.JSON(http.StatusOK, gin.H{"db": one})
}

// Publish appends a sleep request to the stream.
func (h *Handlers) Publish(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "redis not configured"})
		return
	}
	ms, ok := h.sleepMs(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	msg, err := h.publisher.Publish(ctx, ms)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	h.logger.For(ctx).Info("published",
		zap.String("queue", h.publisher.Stream()),
		zap.Int("sleep_ms", ms),
		zap.String("message_id", msg.ID.String()),
	)
	c.JSON(http.StatusOK, gin.H{
		"queued":  true,
		"queue":   h.publisher.Stream(),
		"message": msg,
	})
}

// Flow calls the publish endpoint so the whole request, publish and
// consume path shares one trace.
func (h *Handlers) Flow(c *gin.Context) {
	ms, ok := h.sleepMs(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	resp, err := h.downstream.Get(ctx, FlowSpanName, h.publishURL,
		map[string]string{"ms": strconv.Itoa(ms)},
		tracing.Attrs{"sleep_ms": ms},
	)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	h.logger.For(ctx).Info("flow-publish",
		zap.String("publish_url", h.publishURL),
		zap.Int("sleep_ms", ms),
		zap.Int("status", resp.StatusCode),
	)
	c.JSON(http.StatusOK, gin.H{
		"trace_id":       tracing.TraceID(ctx),
		"publish_url":    h.publishURL,
		"publish_status": resp.StatusCode,
		"publish_json":   resp.Body,
	})
}

// Metrics serves the Prometheus exposition.
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

func (h *Handlers) sleepMs(c *gin.Context) (int, bool) {
	ms, err := parseMs(c)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return 0, false
	}
	return ms, true
}

