package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/otel-lab/internal/downstream"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
)

// Worker is the consumer's message handler: it sleeps for the requested
// time, then calls the downstream /sleep with the same duration.
type Worker struct {
	client *downstream.Client
	logger *logging.Logger
}

// NewWorker creates a worker. A client without a peer only sleeps.
func NewWorker(client *downstream.Client, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{client: client, logger: logger}
}

// Handle implements Handler.
func (w *Worker) Handle(ctx context.Context, msg Message, span *tracing.ScopedSpan) error {
	if msg.SleepMs > 0 {
		time.Sleep(time.Duration(msg.SleepMs) * time.Millisecond)
	}

	if w.client == nil || !w.client.Enabled() {
		return nil
	}

	resp, err := w.client.CallSleep(ctx, msg.SleepMs)
	if resp != nil {
		span.SetAttributes(tracing.Attrs{
			"downstream.url":         resp.URL,
			"downstream.status_code": resp.StatusCode,
		})
	}
	if err != nil {
		return err
	}
	w.logger.For(ctx).Debug("downstream called",
		zap.String("downstream", resp.URL),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
