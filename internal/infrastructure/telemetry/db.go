package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQuery = 200 * time.Millisecond

type queryStartKey struct{}

func markQueryStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

func queryElapsed(ctx context.Context) (time.Duration, bool) {
	if ctx == nil {
		return 0, false
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// statementKind maps a Row or Raw statement to its SQL verb
func statementKind(sql string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch verb = strings.ToUpper(verb); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return verb
	default:
		return "OTHER"
	}
}

// hookStatements registers before and after callbacks around every GORM
// statement kind. afterOp receives the SQL verb, or "" for Row and Raw.
// The after hooks run ahead of otelgorm's so the statement span is still open.
func hookStatements(db *gorm.DB, prefix string, afterOp func(op string) func(*gorm.DB)) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(prefix+":before_create", markQueryStart),
		cb.Query().Before("gorm:query").Register(prefix+":before_query", markQueryStart),
		cb.Update().Before("gorm:update").Register(prefix+":before_update", markQueryStart),
		cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", markQueryStart),
		cb.Row().Before("gorm:row").Register(prefix+":before_row", markQueryStart),
		cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", markQueryStart),

		cb.Create().After("gorm:create").Before("otel:after:create").Register(prefix+":after_create", afterOp("INSERT")),
		cb.Query().After("gorm:query").Before("otel:after:select").Register(prefix+":after_query", afterOp("SELECT")),
		cb.Update().After("gorm:update").Before("otel:after:update").Register(prefix+":after_update", afterOp("UPDATE")),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register(prefix+":after_delete", afterOp("DELETE")),
		cb.Row().After("gorm:row").Before("otel:after:row").Register(prefix+":after_row", afterOp("")),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register(prefix+":after_raw", afterOp("")),
	)
}

// DBTracingConfig configures statement spans.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DBTracingPlugin adds otelgorm statement spans and flags slow statements.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs otelgorm and the annotation hooks. Query
// variables stay out of spans unless LogFullSQL is set.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := hookStatements(db, "storefront_trace", func(string) func(*gorm.DB) { return p.annotate }); err != nil {
		return err
	}
	p.logger.Info("Database tracing enabled",
		zap.Bool("full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query", p.config.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if elapsed, ok := queryElapsed(ctx); ok && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

// DBMetricsConfig configures query metrics.
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
}

// DBMetrics records query counts and latency and reports connection pool
// usage through an observable gauge.
type DBMetrics struct {
	queries     *Counter
	latency     *Histogram
	slowQueries *Counter
	poolConns   metric.Int64ObservableGauge
	poolMax     metric.Int64ObservableGauge

	meter        metric.Meter
	registration metric.Registration
	slow         time.Duration
	logger       *zap.Logger
}

func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaultSlowQuery
	}
	m := &DBMetrics{meter: meter, slow: cfg.SlowQueryThreshold, logger: logger}

	var err error
	if m.queries, err = NewCounter(meter, "db_query_total", "Database statements by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slowQueries, err = NewCounter(meter, "db_slow_query_total", "Statements slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.latency, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.poolConns, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pooled connections by state"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	if m.poolMax, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured connection limit"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	return m, nil
}

// ObservePool reports sqlDB's pool statistics on every collection until Stop.
func (m *DBMetrics) ObservePool(sqlDB *sql.DB) error {
	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(m.poolMax, int64(stats.MaxOpenConnections))
		o.ObserveInt64(m.poolConns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(m.poolConns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(m.poolConns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, m.poolConns, m.poolMax)
	if err != nil {
		return err
	}
	m.registration = reg
	return nil
}

// Stop detaches the pool callback.
func (m *DBMetrics) Stop() {
	if m.registration == nil {
		return
	}
	if err := m.registration.Unregister(); err != nil {
		m.logger.Warn("Pool metrics callback not removed", zap.Error(err))
	}
	m.registration = nil
}

// RecordQuery records one statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration) {
	op := strings.ToUpper(operation)
	if op == "" {
		op = "OTHER"
	}
	m.queries.Inc(ctx, AttrDBOperation.String(op))
	m.latency.RecordDuration(ctx, elapsed, AttrDBOperation.String(op))
	if elapsed > m.slow {
		if table == "" {
			table = "unknown"
		}
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

// DBMetricsPlugin feeds DBMetrics from GORM callbacks.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{metrics: metrics, logger: logger}
}

func (p *DBMetricsPlugin) Name() string { return "storefront:db_metrics" }

func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	return hookStatements(db, "storefront_metrics", func(op string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			kind := op
			if kind == "" {
				kind = statementKind(db.Statement.SQL.String())
			}
			ctx := db.Statement.Context
			if ctx == nil {
				ctx = context.Background()
			}
			elapsed, _ := queryElapsed(ctx)
			p.metrics.RecordQuery(ctx, kind, db.Statement.Table, elapsed)
		}
	})
}

var _ gorm.Plugin = (*DBMetricsPlugin)(nil)
