package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ProbeQuery is the statement run by Probe.
const ProbeQuery = "select 1 as one"

// ProbeSpanName names the span wrapping the probe.
const ProbeSpanName = "db.query"

// Database span attribute keys.
const (
	AttrSystem    = "db.system"
	AttrStatement = "db.statement"
	AttrOperation = "db.operation"
)

// ErrNotConfigured is returned when no database DSN is set.
var ErrNotConfigured = errors.New("database not configured")

// Open opens and pings a database. driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Prober runs the liveness query.
type Prober struct {
	db     *sql.DB
	system string
	spans  *tracing.Spans
}

// NewProber creates a prober. A nil db makes every probe fail with
// ErrNotConfigured.
func NewProber(db *sql.DB, driver string, spans *tracing.Spans) *Prober {
	return &Prober{db: db, system: dbSystem(driver), spans: spans}
}

// Enabled reports whether a database is attached.
func (p *Prober) Enabled() bool {
	return p != nil && p.db != nil
}

// Probe runs ProbeQuery and returns its single integer column.
func (p *Prober) Probe(ctx context.Context) (int, error) {
	if !p.Enabled() {
		return 0, ErrNotConfigured
	}

	ctx, span := p.spans.Start(ctx, ProbeSpanName, trace.SpanKindInternal, tracing.Attrs{
		AttrSystem:    p.system,
		AttrStatement: ProbeQuery,
		AttrOperation: "SELECT",
	})
	defer span.End()

	var one int
	if err := p.db.QueryRowContext(ctx, ProbeQuery).Scan(&one); err != nil {
		err = fmt.Errorf("probe %s: %w", p.system, err)
		span.RecordFault(err)
		return 0, err
	}
	span.SetAttribute("db.result", one)
	return one, nil
}

// Close releases the database.
func (p *Prober) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.db.Close()
}

func dbSystem(driver string) string {
	if driver == "postgres" {
		return "postgresql"
	}
	return driver
}
