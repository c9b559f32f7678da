package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/config"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/telemetry/telemetrytest"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/otel-lab/internal/store"
)

type nopStream struct{}

func (nopStream) XAdd(context.Context, *redis.XAddArgs) *redis.StringCmd {
	return redis.NewStringResult("1-0", nil)
}

func (nopStream) XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func (nopStream) XReadGroup(context.Context, *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
}

func (nopStream) XAck(context.Context, string, string, ...string) *redis.IntCmd {
	return redis.NewIntResult(0, nil)
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *telemetrytest.Harness) {
	t.Helper()
	h := telemetrytest.New(t)
	srv, err := New(context.Background(), cfg, nil, h.Providers, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, h
}

func get(srv *Server, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServerRoutesAndTraceHeader(t *testing.T) {
	srv, h := newTestServer(t, config.Default())

	w := get(srv, "/health", http.Header{
		"Traceparent": {"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		"Origin":      {"http://localhost:3000"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Header().Get(tracing.TraceIDHeader))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))

	spans := h.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "GET /health", spans[0].Name())
	assert.True(t, spans[0].Parent().IsRemote())
}

func TestServerOptionalRoutesUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, config.Default())

	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/db", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/publish", nil).Code)
}

func TestServerWithInjectedBackends(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(store.ProbeQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectClose()

	srv, _ := newTestServer(t, config.Default(), WithDB(db), WithStream(nopStream{}))

	w := get(srv, "/db", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"db":1}`, w.Body.String())

	w = get(srv, "/publish?ms=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queue":"observability"`)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServerRateLimitRunsOutsideTracing(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Enabled: true}
	srv, h := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, get(srv, "/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(srv, "/health", nil).Code)

	points := h.Histogram(t, monitoring.RequestDurationName)
	require.Len(t, points, 1)
	assert.Equal(t, uint64(1), points[0].Count)
}

func TestServerGlobalRateLimitSharesBucket(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Enabled: true, Global: true}
	srv, _ := newTestServer(t, cfg)

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)

	second := httptest.NewRequest(http.MethodGet, "/health", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, second)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestServerUnreachableDatabaseDisablesProbe(t *testing.T) {
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"}

	srv, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusServiceUnavailable, get(srv, "/db", nil).Code)
}

func TestShutdownJoinsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose().WillReturnError(errors.New("close failed"))

	srv, err := New(context.Background(), config.Default(), nil, telemetrytest.New(t).Providers, WithDB(db))
	require.NoError(t, err)

	err = srv.Shutdown(context.Background())
	assert.ErrorContains(t, err, "close database")
}

func TestChainReachesPeerOnEveryCall(t *testing.T) {
	var hits atomic.Int32
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("traceparent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(peer.Close)

	cfg := config.Default()
	cfg.Downstream.URL = peer.URL
	srv, _ := newTestServer(t, cfg)

	for i := 0; i < 8; i++ {
		w := get(srv, "/chain?ms=1", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "unexpected status 503")
	}
	assert.Equal(t, int32(8), hits.Load())
}

func TestDownstreamFaultLoggedOnce(t *testing.T) {
	peer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(peer.Close)

	core, logs := observer.New(zap.ErrorLevel)
	cfg := config.Default()
	cfg.Downstream.URL = peer.URL
	h := telemetrytest.New(t)
	srv, err := New(context.Background(), cfg, &logging.Logger{Logger: zap.New(core)}, h.Providers)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	w := get(srv, "/chain?ms=1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "request failed", entries[0].Message)
	assert.Equal(t, w.Header().Get(tracing.TraceIDHeader), entries[0].ContextMap()["trace_id"])
}

func TestTraceContinuesAcrossTwoServices(t *testing.T) {
	peer, peerTelemetry := newTestServer(t, config.Default())
	peerHTTP := httptest.NewServer(peer.Handler())
	t.Cleanup(peerHTTP.Close)

	cfg := config.Default()
	cfg.Downstream.URL = peerHTTP.URL
	front, frontTelemetry := newTestServer(t, cfg)

	w := get(front, "/chain?ms=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"downstream_status":200`)

	var frontServer, frontClient trace.SpanContext
	for _, s := range frontTelemetry.Ended() {
		switch s.SpanKind() {
		case trace.SpanKindServer:
			frontServer = s.SpanContext()
		case trace.SpanKindClient:
			frontClient = s.SpanContext()
		}
	}
	require.True(t, frontServer.IsValid())
	require.True(t, frontClient.IsValid())

	peerSpans := peerTelemetry.SpansNamed("GET /sleep")
	require.Len(t, peerSpans, 1)
	assert.Equal(t, frontServer.TraceID(), peerSpans[0].SpanContext().TraceID())
	assert.Equal(t, frontClient.SpanID(), peerSpans[0].Parent().SpanID())
	assert.Equal(t, frontServer.TraceID().String(), w.Header().Get(tracing.TraceIDHeader))
}
