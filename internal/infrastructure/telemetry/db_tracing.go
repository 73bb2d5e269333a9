package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

const queryStartKey contextKey = "otel_query_start"

// DBTracing registers otelgorm plus callbacks that flag slow queries
type DBTracing struct {
	enabled    bool
	logFullSQL bool
	slowQuery  time.Duration
	dbSystem   string
	logger     *zap.Logger
}

// NewDBTracing builds the plugin from telemetry configuration.
// Database spans need both telemetry and DB tracing enabled.
func NewDBTracing(cfg config.TelemetryConfig, dbSystem string, logger *zap.Logger) *DBTracing {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbSystem == "" {
		dbSystem = "postgresql"
	}
	return &DBTracing{
		enabled:    cfg.Enabled && cfg.DBTraceEnabled,
		logFullSQL: cfg.DBLogFullSQL,
		slowQuery:  cfg.DBSlowQueryThresh,
		dbSystem:   dbSystem,
		logger:     logger,
	}
}

// Register installs the plugin on db. A disabled plugin is a no-op.
func (p *DBTracing) Register(db *gorm.DB) error {
	if !p.enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.dbSystem)}
	if !p.logFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.logFullSQL),
		zap.Duration("slow_query_threshold", p.slowQuery),
	)
	return nil
}

// registerCallbacks brackets every gorm operation; the after hook runs before
// otelgorm ends its span
func (p *DBTracing) registerCallbacks(db *gorm.DB) error {
	type registrar interface {
		Register(name string, fn func(*gorm.DB)) error
	}
	cb := db.Callback()
	hooks := []struct {
		callback registrar
		hook     func(*gorm.DB)
		name     string
	}{
		{cb.Create().Before("gorm:create"), markQueryStart, "before_create"},
		{cb.Create().After("gorm:create").Before("otel:after:create"), p.afterQuery, "after_create"},
		{cb.Query().Before("gorm:query"), markQueryStart, "before_query"},
		{cb.Query().After("gorm:query").Before("otel:after:query"), p.afterQuery, "after_query"},
		{cb.Update().Before("gorm:update"), markQueryStart, "before_update"},
		{cb.Update().After("gorm:update").Before("otel:after:update"), p.afterQuery, "after_update"},
		{cb.Delete().Before("gorm:delete"), markQueryStart, "before_delete"},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), p.afterQuery, "after_delete"},
		{cb.Row().Before("gorm:row"), markQueryStart, "before_row"},
		{cb.Row().After("gorm:row").Before("otel:after:row"), p.afterQuery, "after_row"},
		{cb.Raw().Before("gorm:raw"), markQueryStart, "before_raw"},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), p.afterQuery, "after_raw"},
	}
	for _, h := range hooks {
		if err := h.callback.Register("otel_timing:"+h.name, h.hook); err != nil {
			return err
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey, time.Now())
	}
}

// afterQuery decorates the otelgorm span with table, rows, errors and slowness
func (p *DBTracing) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey).(time.Time)
	if !ok || p.slowQuery <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > p.slowQuery {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.slowQuery.Milliseconds()),
		))
	}
}
