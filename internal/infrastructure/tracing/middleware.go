package tracing

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/monitoring"
)

// Server span attribute keys.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrURLPath        = "url.path"
	AttrHTTPStatusCode = "http.status_code"
)

// TraceIDHeader echoes the request's trace id back to the caller.
const TraceIDHeader = "X-Trace-ID"

// MiddlewareConfig wires the request middleware.
type MiddlewareConfig struct {
	Spans      *Spans
	Propagator *Propagator
	Recorder   monitoring.Recorder
}

// HTTPMiddleware traces and measures every request passing through it.
//
// Each request gets a SERVER span parented on the inbound trace context and
// exactly one duration measurement. A handler fault is either a panic or an
// error attached with c.Error while nothing was written. Faults are recorded
// on the span and measured as status 500; a panic is then re-raised with the
// same value and attached errors are left in c.Errors for the outer
// boundary to render and log.
func HTTPMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		route := c.FullPath()
		if route == "" {
			route = path
		}

		ctx := cfg.Propagator.ExtractHeaders(c.Request.Context(), c.Request.Header)
		ctx, span := cfg.Spans.Start(ctx, method+" "+path, trace.SpanKindServer, Attrs{
			AttrHTTPMethod: method,
			AttrHTTPRoute:  route,
			AttrURLPath:    path,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, span.TraceID())

		defer func() {
			recovered := recover()

			var fault error
			switch {
			case recovered != nil:
				fault = FaultFromPanic(recovered)
			case len(c.Errors) > 0 && !c.Writer.Written():
				fault = c.Errors.Last().Err
			}

			responded := fault == nil
			status := monitoring.ResolveStatus(c.Writer.Status(), responded)

			if fault != nil {
				span.RecordFault(fault)
			} else if c.Writer.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
			}

			cfg.Recorder.Record(ctx, monitoring.NewMeasurement(start, method, route, status))

			code, _ := strconv.Atoi(status)
			span.SetAttribute(AttrHTTPStatusCode, code)
			span.End()

			if recovered != nil {
				panic(recovered)
			}
		}()

		c.Next()
	}
}
