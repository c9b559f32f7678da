package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otel-lab/internal/shared/id"
)

// Publisher appends messages to a stream with the producer's trace context
// embedded in the entry fields.
type Publisher struct {
	client     StreamClient
	stream     string
	spans      *tracing.Spans
	propagator *tracing.Propagator
	ids        *id.Generator
	now        func() time.Time
}

// NewPublisher creates a publisher for stream.
func NewPublisher(client StreamClient, stream string, spans *tracing.Spans, propagator *tracing.Propagator) *Publisher {
	return &Publisher{
		client:     client,
		stream:     stream,
		spans:      spans,
		propagator: propagator,
		ids:        id.Default(),
		now:        time.Now,
	}
}

// Stream returns the destination stream name.
func (p *Publisher) Stream() string {
	return p.stream
}

// Publish sends a message asking the consumer to sleep sleepMs.
func (p *Publisher) Publish(ctx context.Context, sleepMs int) (Message, error) {
	msg := Message{
		ID:      p.ids.MessageID(),
		SleepMs: sleepMs,
		SentAt:  sentAt(p.now()),
	}

	ctx, span := p.spans.Start(ctx, "publish "+p.stream, trace.SpanKindProducer, tracing.Attrs{
		AttrSystem:      SystemRedis,
		AttrDestination: p.stream,
		AttrOperation:   "publish",
		AttrMessageID:   msg.ID.String(),
	})
	defer span.End()

	fields, err := msg.Encode()
	if err != nil {
		span.RecordFault(err)
		return Message{}, err
	}
	p.propagator.Inject(ctx, tracing.FieldsCarrier(fields))

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Result()
	if err != nil {
		err = fmt.Errorf("publish to %s: %w", p.stream, err)
		span.RecordFault(err)
		return Message{}, err
	}
	span.SetAttribute("messaging.redis.entry_id", entryID)
	return msg, nil
}
