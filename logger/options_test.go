package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsStatement(t *testing.T) {
	calls := 0
	fc := func() (string, int64) {
		calls++
		return "SELECT 1 FROM DUAL", 1
	}
	old := time.Now().Add(-time.Second)

	tests := []struct {
		name  string
		opts  Options
		begin time.Time
		err   error
		level LogLevel
		ok    bool
	}{
		{"silent", Options{LogLevel: Silent}, time.Now(), codedError{942}, 0, false},
		{"error", Options{LogLevel: Error}, time.Now(), codedError{942}, Error, true},
		{"not found ignored", Options{LogLevel: Error, IgnoreNotFoundError: true, NotFoundError: errNotFound}, time.Now(), errNotFound, 0, false},
		{"no not-found error given", Options{LogLevel: Error, IgnoreNotFoundError: true}, time.Now(), errNotFound, Error, true},
		{"slow", Options{LogLevel: Warn, SlowThreshold: time.Millisecond}, old, nil, Warn, true},
		{"fast at warn", Options{LogLevel: Warn, SlowThreshold: time.Minute}, time.Now(), nil, 0, false},
		{"info", Options{LogLevel: Info}, time.Now(), nil, Info, true},
	}
	for _, tt := range tests {
		calls = 0
		st, ok := tt.opts.statement(tt.begin, fc, tt.err)
		assert.Equal(t, tt.ok, ok, tt.name)
		if !ok {
			assert.Zero(t, calls, "%s: statement text is built only when logged", tt.name)
			continue
		}
		assert.Equal(t, tt.level, st.level, tt.name)
		assert.Equal(t, "SELECT 1 FROM DUAL", st.sql, tt.name)
	}

	st, _ := Options{LogLevel: Error}.statement(time.Now(), fc, codedError{3113})
	assert.Equal(t, 3113, st.oraCode)
}

func TestOptionsParamsFilter(t *testing.T) {
	sql, params := Options{Parameterized: true}.ParamsFilter(context.Background(), "SELECT :1 FROM DUAL", 1)
	assert.Equal(t, "SELECT :1 FROM DUAL", sql)
	assert.Nil(t, params)

	_, params = Options{}.ParamsFilter(context.Background(), "SELECT :1 FROM DUAL", 1)
	assert.Equal(t, []interface{}{1}, params)
}
