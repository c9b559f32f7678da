package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Spans opens scoped spans on a tracer.
type Spans struct {
	tracer trace.Tracer
}

// NewSpans creates a span manager backed by tracer.
func NewSpans(tracer trace.Tracer) *Spans {
	return &Spans{tracer: tracer}
}

// Start opens a span of the given kind as a child of whatever span ctx
// carries, or as a new root. The returned context has the new span active.
func (s *Spans) Start(ctx context.Context, name string, kind trace.SpanKind, attrs Attrs) (context.Context, *ScopedSpan) {
	ctx, span := s.tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs.KeyValues()...),
	)
	return ctx, &ScopedSpan{span: span}
}

// ScopedSpan is a span that is closed exactly once and whose ERROR status
// is final.
type ScopedSpan struct {
	span trace.Span

	mu     sync.Mutex
	status codes.Code
	ended  bool
	once   sync.Once
}

// SpanContext returns the identity of the span.
func (s *ScopedSpan) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

// TraceID returns the hex trace id.
func (s *ScopedSpan) TraceID() string {
	return s.span.SpanContext().TraceID().String()
}

// SetAttribute sets one attribute. Ignored after End.
func (s *ScopedSpan) SetAttribute(key string, value any) {
	s.SetAttributes(Attrs{key: value})
}

// SetAttributes sets a bag of attributes. Ignored after End.
func (s *ScopedSpan) SetAttributes(attrs Attrs) {
	if s.Ended() {
		return
	}
	s.span.SetAttributes(attrs.KeyValues()...)
}

// AddEvent records a named event on the span.
func (s *ScopedSpan) AddEvent(name string, attrs Attrs) {
	if s.Ended() {
		return
	}
	s.span.AddEvent(name, trace.WithAttributes(attrs.KeyValues()...))
}

// SetStatus sets the span status. An ERROR status is never replaced.
func (s *ScopedSpan) SetStatus(code codes.Code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.status == codes.Error {
		return
	}
	s.status = code
	s.span.SetStatus(code, description)
}

// RecordFault records err as an exception event and marks the span ERROR.
func (s *ScopedSpan) RecordFault(err error) {
	if err == nil || s.Ended() {
		return
	}
	s.span.RecordError(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.status = codes.Error
	s.span.SetStatus(codes.Error, err.Error())
}

// Status returns the status set so far.
func (s *ScopedSpan) Status() codes.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// End closes the span. Only the first call has an effect.
func (s *ScopedSpan) End() {
	s.once.Do(func() {
		s.mu.Lock()
		s.ended = true
		s.mu.Unlock()
		s.span.End()
	})
}

// Ended reports whether End has been called.
func (s *ScopedSpan) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// PanicError wraps a recovered panic value that is not itself an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// FaultFromPanic converts a recovered value into an error suitable for
// RecordFault, preserving error values as they are.
func FaultFromPanic(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return &PanicError{Value: recovered}
}

// TraceID returns the hex trace id of the span active in ctx, or "" when
// there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
