package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/GriffinCanCode/otel-lab/internal/downstream"
	"github.com/GriffinCanCode/otel-lab/internal/shared/id"
)

// Stream entry field names. Trace context fields (traceparent, tracestate,
// baggage) sit next to them.
const (
	FieldBody        = "body"
	FieldMessageID   = "message_id"
	FieldContentType = "content_type"

	contentTypeJSON = "application/json"
)

// Messaging span attribute keys and values.
const (
	AttrSystem      = "messaging.system"
	AttrDestination = "messaging.destination.name"
	AttrOperation   = "messaging.operation"
	AttrMessageID   = "messaging.message.id"

	SystemRedis = "redis"
)

// StreamClient is the subset of the Redis API used for streams.
// *redis.Client satisfies it.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a Redis client.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// Message is the payload published to the stream.
type Message struct {
	ID      id.MessageID `json:"id"`
	SleepMs int          `json:"sleep_ms"`
	SentAt  string       `json:"sent_at"`
}

// Encode renders the message as stream fields.
func (m Message) Encode() (map[string]any, error) {
	body, err := sonic.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message %s: %w", m.ID, err)
	}
	return map[string]any{
		FieldBody:        string(body),
		FieldMessageID:   m.ID.String(),
		FieldContentType: contentTypeJSON,
	}, nil
}

// Decode reads a message from stream fields. Negative sleeps are clamped
// to zero.
func Decode(values map[string]any) (Message, error) {
	var raw string
	switch v := values[FieldBody].(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return Message{}, fmt.Errorf("stream entry has no %s field", FieldBody)
	}

	var m Message
	if err := sonic.UnmarshalString(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.SleepMs < 0 {
		m.SleepMs = 0
	}
	if int64(m.SleepMs) > downstream.MaxSleepMs {
		return Message{}, fmt.Errorf("decode message: sleep_ms %d out of range", m.SleepMs)
	}
	return m, nil
}

func sentAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
