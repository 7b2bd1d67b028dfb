package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gorm.io/driver/oracle/logger"
)

func TestBindArgs(t *testing.T) {
	assert.Equal(t, []interface{}{"a", "42"}, bindArgs([]string{"a", "42"}))
	assert.Empty(t, bindArgs(nil))
}

func TestLoggerFormats(t *testing.T) {
	for _, format := range []string{"logrus", "zap", "zerolog", "slog"} {
		level, f := "info", format
		g := &globalFlags{logLevel: &level, logFormat: &f}
		l := g.logger()
		assert.NotNil(t, l, format)
		assert.Implements(t, (*logger.Interface)(nil), l)
	}
}
