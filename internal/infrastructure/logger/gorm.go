package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogConfig tunes which statements reach the log.
type SQLLogConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold of zero never reports a query as slow.
	SlowThreshold time.Duration
	// FullSQL logs statements with their bound values. Otherwise only the
	// text before the first WHERE, VALUES or SET is kept.
	FullSQL bool
	// LogNotFound also reports gorm.ErrRecordNotFound as an error.
	LogNotFound bool
}

// SQLLogger sends GORM output to zap, tagged with the request and trace
// of the statement's context.
type SQLLogger struct {
	log *zap.Logger
	cfg SQLLogConfig
}

var _ gormlogger.Interface = (*SQLLogger)(nil)

func NewSQLLogger(log *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	return &SQLLogger{log: log.Named("sql"), cfg: cfg}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		WithLogger(ctx, l.log).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		WithLogger(ctx, l.log).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		WithLogger(ctx, l.log).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failures at Error and slow statements at Warn. At level Info
// every other statement is logged at Debug.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	notFound := errors.Is(err, gormlogger.ErrRecordNotFound) && !l.cfg.LogNotFound
	var report func(*ContextLogger)
	switch {
	case err != nil && !notFound && l.cfg.Level >= gormlogger.Error:
		report = func(log *ContextLogger) { log.Error("Query failed", zap.Error(err)) }
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		report = func(log *ContextLogger) { log.Warn("Slow query", zap.Duration("threshold", l.cfg.SlowThreshold)) }
	case err == nil && l.cfg.Level >= gormlogger.Info:
		report = func(log *ContextLogger) { log.Debug("Query") }
	default:
		return
	}

	stmt, rows := fc()
	if !l.cfg.FullSQL {
		stmt = statementHead(stmt)
	}
	report(WithLogger(ctx, l.log).With(
		zap.String("sql", stmt),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	))
}

// ParseSQLLevel maps the application log level onto GORM's. Debug and
// info both trace every statement. Unknown levels fall back to warn.
func ParseSQLLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// statementHead drops everything from the first WHERE, VALUES or SET on,
// so literal values never reach the log.
func statementHead(stmt string) string {
	upper := strings.ToUpper(stmt)
	end := len(stmt)
	for _, kw := range []string{" WHERE ", " VALUES ", " SET "} {
		if i := strings.Index(upper, kw); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(stmt[:end])
}
