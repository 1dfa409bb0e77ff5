package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger sends GORM output to zap. Statement logs carry the request
// logger's fields when the query context has one.
type GormLogger struct {
	base           *zap.Logger
	level          gormlogger.LogLevel
	slowThreshold  time.Duration
	logNotFoundErr bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the latency above which statements log at warn.
// Zero disables slow statement logging.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = d }
}

// WithIgnoreRecordNotFoundError drops ErrRecordNotFound, which lookups
// return routinely.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFoundErr = !ignore }
}

func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		base:          log.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.sugar(ctx).Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.sugar(ctx).Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.sugar(ctx).Errorf(msg, data...)
	}
}

// Trace logs failed statements at error, slow ones at warn and the rest at
// debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && (l.logNotFoundErr || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var (
		msg  string
		emit func(string, ...zap.Field)
		log  = l.withRequest(ctx)
	)
	switch {
	case failed && l.level >= gormlogger.Error:
		msg, emit = "SQL error", log.Error
	case slow && l.level >= gormlogger.Warn:
		msg, emit = "Slow SQL", log.Warn
	case l.level >= gormlogger.Info:
		msg, emit = "SQL", log.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if failed {
		fields = append(fields, zap.Error(err))
	}
	if slow {
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
	}
	emit(msg, fields...)
}

func (l *GormLogger) withRequest(ctx context.Context) *zap.Logger {
	if id := RequestID(ctx); id != "" {
		return l.base.With(zap.String("request_id", id))
	}
	return l.base
}

func (l *GormLogger) sugar(ctx context.Context) *zap.SugaredLogger {
	return l.withRequest(ctx).Sugar()
}

// MapGormLogLevel maps a config string to a GORM level. Unknown values and
// "" map to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
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

var _ gormlogger.Interface = (*GormLogger)(nil)
