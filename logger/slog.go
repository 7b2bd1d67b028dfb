//go:build go1.21

package logger

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/driver/oracle/utils"
)

type slogLogger struct {
	Logger *slog.Logger
	Options
}

func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{Logger: logger, Options: config.options()}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{})  { l.logData(ctx, Info, msg, data) }
func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{})  { l.logData(ctx, Warn, msg, data) }
func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) { l.logData(ctx, Error, msg, data) }

func (l *slogLogger) logData(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if l.enabled(level) {
		l.log(ctx, slogLevel(level), msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	st, ok := l.statement(begin, fc, err)
	if !ok {
		return
	}

	attrs := []slog.Attr{
		slog.String("duration", st.duration()),
		slog.String("sql", st.sql),
	}
	if st.rows != -1 {
		attrs = append(attrs, slog.Int64("rows", st.rows))
	}
	if st.err != nil {
		attrs = append(attrs, slog.String("error", st.err.Error()))
	}
	if st.oraCode != 0 {
		attrs = append(attrs, slog.Int("ora_code", st.oraCode))
	}
	if st.slow != 0 {
		attrs = append(attrs, slog.Duration("slow_threshold", st.slow))
	}
	l.log(ctx, slogLevel(st.level), st.msg, slog.Attr{Key: "trace", Value: slog.GroupValue(attrs...)})
}

// log stamps the record with the caller outside this module.
func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Logger.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, utils.CallerFrame().PC)
	r.Add(args...)
	_ = l.Logger.Handler().Handle(ctx, r)
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case Error:
		return slog.LevelError
	case Warn:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
