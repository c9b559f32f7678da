package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
)

// Handler processes one decoded message inside the CONSUMER span.
type Handler func(ctx context.Context, msg Message, span *tracing.ScopedSpan) error

// Flusher pushes buffered telemetry out.
type Flusher interface {
	ForceFlush(ctx context.Context) error
}

// ConsumerConfig configures a stream consumer.
type ConsumerConfig struct {
	Stream   string
	Group    string
	Name     string
	Block    time.Duration
	Count    int64
	FlushFor time.Duration
}

// Consumer reads a stream through a consumer group and continues the
// producer's trace for every entry.
type Consumer struct {
	client     StreamClient
	cfg        ConsumerConfig
	spans      *tracing.Spans
	propagator *tracing.Propagator
	hist       *monitoring.Histogram
	flusher    Flusher
	logger     *logging.Logger
}

// NewConsumer creates a consumer. hist and flusher may be nil.
func NewConsumer(client StreamClient, cfg ConsumerConfig, spans *tracing.Spans, propagator *tracing.Propagator,
	hist *monitoring.Histogram, flusher Flusher, logger *logging.Logger) *Consumer {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.FlushFor <= 0 {
		cfg.FlushFor = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Consumer{
		client:     client,
		cfg:        cfg,
		spans:      spans,
		propagator: propagator,
		hist:       hist,
		flusher:    flusher,
		logger:     logger,
	}
}

// Setup creates the consumer group, and the stream if needed.
func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", c.cfg.Group, c.cfg.Stream, err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("consuming",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.Group),
		zap.String("consumer", c.cfg.Name),
	)
	for {
		if _, err := c.Poll(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("stream read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// Poll reads one batch of new entries and processes each. It returns the
// number of entries acknowledged.
func (c *Consumer) Poll(ctx context.Context, handler Handler) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", c.cfg.Stream, err)
	}

	acked := 0
	for _, s := range streams {
		for _, entry := range s.Messages {
			if c.Process(ctx, entry, handler) == nil {
				acked++
			}
		}
	}
	return acked, nil
}

// Process handles one entry: it continues the trace found in the entry
// fields, runs handler, acknowledges on success and leaves the entry
// pending on failure.
func (c *Consumer) Process(ctx context.Context, entry redis.XMessage, handler Handler) (err error) {
	timer := monitoring.NewTimer(c.hist)

	parent := c.propagator.Extract(ctx, tracing.FieldsCarrier(entry.Values))
	spanCtx, span := c.spans.Start(parent, "process "+c.cfg.Stream, trace.SpanKindConsumer, tracing.Attrs{
		AttrSystem:      SystemRedis,
		AttrDestination: c.cfg.Stream,
		AttrOperation:   "process",
	})
	log := c.logger.For(spanCtx)

	defer func() {
		if r := recover(); r != nil {
			err = tracing.FaultFromPanic(r)
		}
		if err != nil {
			span.RecordFault(err)
			log.Error("consume-error",
				zap.String("queue", c.cfg.Stream),
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
		}
		timer.Stop(spanCtx,
			attribute.String(AttrSystem, SystemRedis),
			attribute.String(AttrDestination, c.cfg.Stream),
		)
		span.End()
		c.flush(ctx)
	}()

	msg, err := Decode(entry.Values)
	if err != nil {
		return err
	}
	if msg.ID != "" {
		span.SetAttribute(AttrMessageID, msg.ID.String())
	}

	if err := handler(spanCtx, msg, span); err != nil {
		return err
	}

	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, entry.ID).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", entry.ID, err)
	}
	log.Info("consumed",
		zap.String("queue", c.cfg.Stream),
		zap.Int("sleep_ms", msg.SleepMs),
		zap.String("message_id", msg.ID.String()),
	)
	return nil
}

func (c *Consumer) flush(ctx context.Context) {
	if c.flusher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FlushFor)
	defer cancel()
	if err := c.flusher.ForceFlush(ctx); err != nil {
		c.logger.Warn("telemetry flush failed", zap.Error(err))
	}
}
