package logger

import (
	"context"
	"time"
)

// Options are the settings shared by the structured adapters.
type Options struct {
	LogLevel      LogLevel
	SlowThreshold time.Duration

	// Parameterized drops bind values from logged statements.
	Parameterized       bool
	IgnoreNotFoundError bool
	NotFoundError       error
}

func (c Config) options() Options {
	return Options{
		LogLevel:            c.LogLevel,
		SlowThreshold:       c.SlowThreshold,
		Parameterized:       c.ParameterizedQueries,
		IgnoreNotFoundError: c.IgnoreNotFoundError,
		NotFoundError:       c.NotFoundError,
	}
}

func (o Options) enabled(level LogLevel) bool {
	return o.LogLevel > Silent && o.LogLevel >= level
}

func (o Options) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if o.Parameterized {
		return sql, nil
	}
	return sql, params
}

// statement is one finished round trip that passed the level filter.
type statement struct {
	level   LogLevel
	msg     string
	sql     string
	rows    int64
	elapsed time.Duration
	err     error
	oraCode int
	// slow is the exceeded threshold, zero when the statement was fast.
	slow time.Duration
}

// statement decides whether a round trip is logged, and at which level.
// fc is only called when it is.
func (o Options) statement(begin time.Time, fc func() (string, int64), err error) (statement, bool) {
	if o.LogLevel <= Silent {
		return statement{}, false
	}

	st := statement{elapsed: time.Since(begin)}
	switch {
	case !ignored(err, o.IgnoreNotFoundError, o.NotFoundError):
		st.level, st.msg, st.err = Error, "statement failed", err
		st.oraCode, _ = OraCode(err)
	case o.SlowThreshold != 0 && st.elapsed > o.SlowThreshold && o.LogLevel >= Warn:
		st.level, st.msg, st.slow = Warn, "slow statement", o.SlowThreshold
	case o.LogLevel >= Info:
		st.level, st.msg = Info, "statement executed"
	default:
		return statement{}, false
	}
	st.sql, st.rows = fc()
	return st, true
}

func (st statement) duration() string { return durationString(st.elapsed) }
