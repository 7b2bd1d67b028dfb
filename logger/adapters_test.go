package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogrus(buf *bytes.Buffer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}

func newZap(buf *bytes.Buffer) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

func TestAdapters(t *testing.T) {
	ctx := context.Background()
	config := Config{LogLevel: Info, SlowThreshold: 100 * time.Millisecond}

	adapters := []struct {
		name string
		make func(buf *bytes.Buffer) Interface
	}{
		{"logrus", func(buf *bytes.Buffer) Interface { return NewLogrusLogger(newLogrus(buf), config) }},
		{"zap", func(buf *bytes.Buffer) Interface { return NewZapLogger(newZap(buf), config) }},
		{"zerolog", func(buf *bytes.Buffer) Interface { return NewZerologLogger(zerolog.New(buf), config) }},
	}

	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := a.make(&buf)

			l.Info(ctx, "connected", "driver", "goora")
			assert.Contains(t, buf.String(), "connected")
			assert.Contains(t, buf.String(), "goora")

			buf.Reset()
			l.Trace(ctx, time.Now(), func() (string, int64) {
				return `SELECT 1 FROM DUAL`, 1
			}, nil)
			assert.Contains(t, buf.String(), "statement executed")
			assert.Contains(t, buf.String(), "SELECT 1 FROM DUAL")
			assert.Contains(t, buf.String(), "rows")

			buf.Reset()
			l.Trace(ctx, time.Now().Add(-150*time.Millisecond), func() (string, int64) {
				return `SELECT * FROM "BIG"`, -1
			}, nil)
			assert.Contains(t, buf.String(), "slow_threshold")

			buf.Reset()
			l.Trace(ctx, time.Now(), func() (string, int64) {
				return `INSERT INTO "T" VALUES (:1)`, 0
			}, codedError{1})
			assert.Contains(t, buf.String(), "statement failed")
			assert.Contains(t, buf.String(), "ora_code")

			buf.Reset()
			quiet := l.LogMode(Silent)
			quiet.Info(ctx, "nothing")
			quiet.Warn(ctx, "nothing")
			quiet.Error(ctx, "nothing")
			quiet.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1 FROM DUAL", 1 }, nil)
			assert.Empty(t, buf.String())

			quiet = l.LogMode(Error)
			quiet.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1 FROM DUAL", 1 }, nil)
			assert.Empty(t, buf.String())
		})
	}
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DPanicLevel, ZapLevel(Silent))
	assert.Equal(t, zapcore.ErrorLevel, ZapLevel(Error))
	assert.Equal(t, zapcore.WarnLevel, ZapLevel(Warn))
	assert.Equal(t, zapcore.InfoLevel, ZapLevel(Info))
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, ZerologLevel(Silent))
	assert.Equal(t, zerolog.ErrorLevel, ZerologLevel(Error))
	assert.Equal(t, zerolog.WarnLevel, ZerologLevel(Warn))
	assert.Equal(t, zerolog.InfoLevel, ZerologLevel(Info))
}
