package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"gorm.io/driver/oracle/utils"
)

// ZerologLogger writes to a zerolog.Logger.
type ZerologLogger struct {
	Logger zerolog.Logger
	Options
}

func NewZerologLogger(logger zerolog.Logger, config Config) Interface {
	return &ZerologLogger{Logger: logger, Options: config.options()}
}

// NewZerologConsoleLogger writes human readable lines to stderr.
func NewZerologConsoleLogger(config Config) Interface {
	consoleWriter := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.RFC3339
	})
	logger := zerolog.New(consoleWriter).
		Level(ZerologLevel(config.LogLevel)).
		With().
		Timestamp().
		Logger()
	return NewZerologLogger(logger, config)
}

func (l *ZerologLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, data ...interface{})  { l.log(ctx, Info, msg, data) }
func (l *ZerologLogger) Warn(ctx context.Context, msg string, data ...interface{})  { l.log(ctx, Warn, msg, data) }
func (l *ZerologLogger) Error(ctx context.Context, msg string, data ...interface{}) { l.log(ctx, Error, msg, data) }

func (l *ZerologLogger) log(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.event(ctx, level).
		Str("file", utils.FileWithLineNum()).
		Interface("data", data).
		Msg(msg)
}

func (l *ZerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	st, ok := l.statement(begin, fc, err)
	if !ok {
		return
	}

	event := l.event(ctx, st.level).
		Str("file", utils.FileWithLineNum()).
		Str("duration", st.duration()).
		Str("sql", st.sql)
	if st.rows != -1 {
		event = event.Int64("rows", st.rows)
	}
	if st.err != nil {
		event = event.Err(st.err)
	}
	if st.oraCode != 0 {
		event = event.Int("ora_code", st.oraCode)
	}
	if st.slow != 0 {
		event = event.Str("slow_threshold", st.slow.String())
	}
	event.Msg(st.msg)
}

func (l *ZerologLogger) event(ctx context.Context, level LogLevel) *zerolog.Event {
	event := l.Logger.WithLevel(ZerologLevel(level))
	if ctx != nil {
		event = event.Ctx(ctx)
	}
	return event
}

// ZerologLevel maps a LogLevel to the zerolog level that lets it through.
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
