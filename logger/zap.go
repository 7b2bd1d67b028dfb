package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gorm.io/driver/oracle/utils"
)

// ZapLogger writes to a zap.Logger with typed fields.
type ZapLogger struct {
	Logger *zap.Logger
	Options
}

func NewZapLogger(logger *zap.Logger, config Config) Interface {
	return &ZapLogger{Logger: logger, Options: config.options()}
}

// NewZapLoggerWithConfig builds a production zap logger at the level
// matching config.LogLevel, unless a zap.Config is given.
func NewZapLoggerWithConfig(config Config, zapConfig ...zap.Config) Interface {
	var zapCfg zap.Config
	if len(zapConfig) > 0 {
		zapCfg = zapConfig[0]
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(ZapLevel(config.LogLevel))
	}

	logger, err := zapCfg.Build()
	if err != nil {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(ZapLevel(config.LogLevel))
		logger, _ = zapCfg.Build()
	}
	return NewZapLogger(logger, config)
}

func (l *ZapLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZapLogger) Info(ctx context.Context, msg string, data ...interface{})  { l.log(Info, msg, data) }
func (l *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{})  { l.log(Warn, msg, data) }
func (l *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) { l.log(Error, msg, data) }

func (l *ZapLogger) log(level LogLevel, msg string, data []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.Logger.Log(ZapLevel(level), msg,
		zap.String("file", utils.FileWithLineNum()),
		zap.Any("data", data),
	)
}

func (l *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	st, ok := l.statement(begin, fc, err)
	if !ok {
		return
	}

	fields := []zap.Field{
		zap.String("file", utils.FileWithLineNum()),
		zap.String("duration", st.duration()),
		zap.String("sql", st.sql),
	}
	if st.rows != -1 {
		fields = append(fields, zap.Int64("rows", st.rows))
	}
	if st.err != nil {
		fields = append(fields, zap.Error(st.err))
	}
	if st.oraCode != 0 {
		fields = append(fields, zap.Int("ora_code", st.oraCode))
	}
	if st.slow != 0 {
		fields = append(fields, zap.Duration("slow_threshold", st.slow))
	}
	l.Logger.Log(ZapLevel(st.level), st.msg, fields...)
}

// ZapLevel maps a LogLevel to the zap level that lets it through.
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case Silent:
		// nothing below DPanic gets through
		return zapcore.DPanicLevel
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}
