package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())

	assert.Equal(t, "http://otel-collector:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Telemetry.Protocol)
	assert.Equal(t, "fastapi", cfg.Telemetry.ServiceName)
	assert.Equal(t, "0.1.0", cfg.Telemetry.ServiceVersion)
	assert.Equal(t, "local", cfg.Telemetry.Environment)
	assert.Equal(t, 10*time.Second, cfg.Telemetry.MetricInterval)

	assert.Empty(t, cfg.Downstream.URL)
	assert.Equal(t, 2500*time.Millisecond, cfg.Downstream.Timeout)
	assert.False(t, cfg.Downstream.BreakerEnabled)

	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "observability", cfg.Redis.Stream)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318/")
	t.Setenv("OTEL_SERVICE_NAME", "svc-b")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "2s")
	t.Setenv("DOWNSTREAM_URL", "http://svc-b:8000/")
	t.Setenv("DOWNSTREAM_BREAKER_ENABLED", "true")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://app@db/app?sslmode=disable")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, "svc-b", cfg.Telemetry.ServiceName)
	assert.Equal(t, 2*time.Second, cfg.Telemetry.MetricInterval)
	assert.Equal(t, "http://svc-b:8000", cfg.Downstream.URL)
	assert.True(t, cfg.Downstream.BreakerEnabled)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.Enabled())
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Logging.Development)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "grpc protocol",
			mutate: func(c *Config) { c.Telemetry.Protocol = ProtocolGRPC },
		},
		{
			name:    "unknown protocol",
			mutate:  func(c *Config) { c.Telemetry.Protocol = "http/json" },
			wantErr: "unsupported OTLP protocol",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Telemetry.MetricInterval = 0 },
			wantErr: "metric export interval",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Downstream.Timeout = -time.Second },
			wantErr: "downstream timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOrDefaultFallsBackOnInvalidEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, ProtocolHTTP, cfg.Telemetry.Protocol)
}
