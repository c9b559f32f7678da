package tracing

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// Propagator moves trace context across process boundaries.
type Propagator struct {
	tmp propagation.TextMapPropagator
}

// NewPropagator wraps a text-map propagator.
func NewPropagator(tmp propagation.TextMapPropagator) *Propagator {
	return &Propagator{tmp: tmp}
}

// Extract returns ctx enriched with the remote span context found in
// carrier. Missing or malformed headers leave ctx unchanged; the carrier is
// only read.
func (p *Propagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	if carrier == nil {
		return ctx
	}
	return p.tmp.Extract(ctx, carrier)
}

// Inject writes the span context active in ctx into carrier.
func (p *Propagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	if carrier == nil {
		return
	}
	p.tmp.Inject(ctx, carrier)
}

// ExtractHeaders extracts from HTTP headers.
func (p *Propagator) ExtractHeaders(ctx context.Context, h http.Header) context.Context {
	return p.Extract(ctx, propagation.HeaderCarrier(h))
}

// InjectHeaders injects into HTTP headers.
func (p *Propagator) InjectHeaders(ctx context.Context, h http.Header) {
	p.Inject(ctx, propagation.HeaderCarrier(h))
}

// MapCarrier is a case-insensitive string map carrier. Set and
// NewMapCarrier store lower-cased keys; Get also matches keys written in
// any case by a map literal.
type MapCarrier map[string]string

// NewMapCarrier copies values into a carrier with lower-cased keys.
func NewMapCarrier(values map[string]string) MapCarrier {
	m := make(MapCarrier, len(values))
	for k, v := range values {
		m.Set(k, v)
	}
	return m
}

// Get returns the value for key, ignoring case.
func (m MapCarrier) Get(key string) string {
	if v, ok := m[strings.ToLower(key)]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Set stores value under the lower-cased key.
func (m MapCarrier) Set(key, value string) {
	m[strings.ToLower(key)] = value
}

// Keys lists the stored keys.
func (m MapCarrier) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// FieldsCarrier carries trace context in stream message fields, where values
// may arrive as strings or byte slices.
type FieldsCarrier map[string]any

// Get returns the value for key as a string.
func (f FieldsCarrier) Get(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Set stores value under key.
func (f FieldsCarrier) Set(key, value string) {
	f[key] = value
}

// Keys lists the stored keys.
func (f FieldsCarrier) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	return keys
}
