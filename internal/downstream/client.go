package downstream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
)

const (
	// SleepPath is the peer endpoint called by Chain.
	SleepPath = "/sleep"
	// SleepSpanName names the CLIENT span around the peer call.
	SleepSpanName = "HTTP GET downstream /sleep"
	// DefaultTimeout bounds every outbound GET.
	DefaultTimeout = 2500 * time.Millisecond
	// MaxSleepMs is the largest sleep representable as a time.Duration.
	MaxSleepMs = math.MaxInt64 / int64(time.Millisecond)

	maxErrorBody = 512
)

// Config configures the client.
type Config struct {
	// BaseURL of the peer service; empty disables Chain's remote call.
	BaseURL string
	Timeout time.Duration
	// BreakerEnabled guards each peer host with a circuit breaker.
	BreakerEnabled bool
	Breaker        resilience.Settings
}

// Response is a decoded peer response.
type Response struct {
	URL        string
	StatusCode int
	Body       any
}

// Result is the outcome of Chain.
type Result struct {
	SleptMs    int
	Downstream *Response
}

// StatusError reports a peer response with status >= 400.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client performs traced GETs with trace context propagation. Calls are
// never retried.
type Client struct {
	resty      *resty.Client
	spans      *tracing.Spans
	propagator *tracing.Propagator
	logger     *logging.Logger
	baseURL    string
	timeout    time.Duration

	breakerOn       bool
	breakerSettings resilience.Settings
	mu              sync.Mutex
	breakers        map[string]*resilience.Breaker
}

// New creates a downstream client.
func New(cfg Config, spans *tracing.Spans, propagator *tracing.Propagator, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := resty.New().
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "otel-lab/0.1")

	settings := cfg.Breaker
	if settings.OnStateChange == nil {
		settings.OnStateChange = resilience.LogStateChanges(logger.Logger)
	}
	if settings.IsFailure == nil {
		settings.IsFailure = IsPeerFailure
	}

	return &Client{
		resty:           r,
		spans:           spans,
		propagator:      propagator,
		logger:          logger,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		timeout:         timeout,
		breakerOn:       cfg.BreakerEnabled,
		breakerSettings: settings,
		breakers:        make(map[string]*resilience.Breaker),
	}
}

// Enabled reports whether a peer is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// BaseURL returns the configured peer.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chain sleeps locally when no peer is configured, otherwise calls the
// peer's /sleep with the same duration.
func (c *Client) Chain(ctx context.Context, ms int) (*Result, error) {
	if !c.Enabled() {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return &Result{SleptMs: ms}, nil
	}

	resp, err := c.CallSleep(ctx, ms)
	if err != nil {
		return nil, err
	}
	return &Result{SleptMs: ms, Downstream: resp}, nil
}

// CallSleep calls GET {base}/sleep?ms={ms} under a CLIENT span.
func (c *Client) CallSleep(ctx context.Context, ms int) (*Response, error) {
	return c.Get(ctx, SleepSpanName, c.baseURL+SleepPath,
		map[string]string{"ms": strconv.Itoa(ms)},
		tracing.Attrs{"sleep_ms": ms},
	)
}

// Get performs a GET under a CLIENT span named spanName. The span context
// is injected into the outbound headers. Status >= 400 yields a
// *StatusError; in every failure case the span is marked ERROR.
func (c *Client) Get(ctx context.Context, spanName, rawURL string, query map[string]string, attrs tracing.Attrs) (*Response, error) {
	spanAttrs := tracing.Attrs{"http.url": rawURL}
	for k, v := range attrs {
		spanAttrs[k] = v
	}
	ctx, span := c.spans.Start(ctx, spanName, trace.SpanKindClient, spanAttrs)
	defer span.End()

	var resp *Response
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.do(ctx, rawURL, query)
		return err
	}

	var err error
	if breaker := c.breakerFor(rawURL); breaker != nil {
		err = breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}

	if resp != nil {
		span.SetAttribute("http.status_code", resp.StatusCode)
	}
	if err != nil {
		span.RecordFault(err)
		return resp, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string, query map[string]string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.resty.R().SetContext(ctx).SetQueryParams(query)
	c.propagator.InjectHeaders(ctx, req.Header)

	raw, err := req.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}

	resp := &Response{URL: rawURL, StatusCode: raw.StatusCode()}
	if raw.StatusCode() >= 400 {
		body := raw.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return resp, &StatusError{URL: rawURL, StatusCode: raw.StatusCode(), Body: body}
	}

	if len(raw.Body()) > 0 {
		var body any
		if err := sonic.Unmarshal(raw.Body(), &body); err != nil {
			return resp, fmt.Errorf("decode %s: %w", rawURL, err)
		}
		resp.Body = body
	}
	return resp, nil
}

// IsPeerFailure reports whether err says the peer is unhealthy. Client
// errors (4xx) and cancellation by the caller do not count.
func IsPeerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return true
}

// breakerFor returns the breaker guarding the URL's host, or nil when
// breakers are disabled.
func (c *Client) breakerFor(rawURL string) *resilience.Breaker {
	if !c.breakerOn {
		return nil
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[host]
	if !ok {
		b = resilience.New("downstream:"+host, c.breakerSettings)
		c.breakers[host] = b
	}
	return b
}
