package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gorm.io/driver/oracle/utils"
)

// LogrusLogger writes to a logrus.Logger, one entry with fields per event.
type LogrusLogger struct {
	Logger *logrus.Logger
	Options
}

func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{Logger: logger, Options: config.options()}
}

func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{})  { l.log(ctx, Info, msg, data) }
func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{})  { l.log(ctx, Warn, msg, data) }
func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) { l.log(ctx, Error, msg, data) }

func (l *LogrusLogger) log(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.entry(ctx).WithFields(logrus.Fields{
		"file": utils.FileWithLineNum(),
		"data": data,
	}).Log(logrusLevel(level), msg)
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	st, ok := l.statement(begin, fc, err)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"file":     utils.FileWithLineNum(),
		"duration": st.duration(),
		"sql":      st.sql,
	}
	if st.rows != -1 {
		fields["rows"] = st.rows
	}
	if st.err != nil {
		fields["error"] = st.err.Error()
	}
	if st.oraCode != 0 {
		fields["ora_code"] = st.oraCode
	}
	if st.slow != 0 {
		fields["slow_threshold"] = st.slow.String()
	}
	l.entry(ctx).WithFields(fields).Log(logrusLevel(st.level), st.msg)
}

func (l *LogrusLogger) entry(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(l.Logger)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logrusLevel(level LogLevel) logrus.Level {
	switch level {
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}
