package oracle

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gorm.io/driver/oracle/logger"
	"gorm.io/driver/oracle/quoting"
)

// oraError stands in for a backend error carrying an ORA code.
type oraError struct {
	code int
}

func (e oraError) Error() string {
	return fmt.Sprintf("ORA-%05d: simulated", e.code)
}

// fakeDialect binds to plain Go values so sqlmock can match them.
type fakeDialect struct {
	inlineLOB bool
}

func (fakeDialect) Name() string                     { return "fake" }
func (fakeDialect) DriverName() string               { return "sqlmock" }
func (fakeDialect) DSN(Config) (string, error)       { return "", nil }
func (fakeDialect) QueryArgs(Config) []interface{}   { return nil }
func (fakeDialect) Unwrap(v interface{}) interface{} { return v }
func (fakeDialect) ReturningSQL(sql string) string   { return sql }
func (d fakeDialect) InlineLOB() bool                { return d.inlineLOB }

func (fakeDialect) ErrorCode(err error) int {
	var ora oraError
	if errors.As(err, &ora) {
		return ora.code
	}
	return 0
}

func (fakeDialect) BindInteger(i int64) (interface{}, error)           { return i, nil }
func (fakeDialect) BindFloat(f float64) (interface{}, error)           { return f, nil }
func (fakeDialect) BindDecimal(d decimal.Decimal) (interface{}, error) { return d.String(), nil }
func (fakeDialect) BindString(s string) (interface{}, error)           { return s, nil }
func (fakeDialect) BindDate(t time.Time) (interface{}, error)          { return t, nil }
func (fakeDialect) BindTimestamp(t time.Time) (interface{}, error)     { return t, nil }
func (fakeDialect) BindBinary(b []byte) (interface{}, error)           { return b, nil }
func (fakeDialect) BindRaw(b []byte) (interface{}, error)              { return b, nil }
func (fakeDialect) BindCLOB(s string) (interface{}, error)             { return s, nil }
func (fakeDialect) BindNull(quoting.WireType) (interface{}, error)     { return nil, nil }

// outConverter lets sql.Out through to the expectations.
type outConverter struct{}

func (outConverter) ConvertValue(v interface{}) (driver.Value, error) {
	if out, ok := v.(sql.Out); ok {
		return out, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// returning matches the :returning_id out bind and fills it with id.
type returning struct {
	id int64
}

func (r returning) Match(v driver.Value) bool {
	out, ok := v.(sql.Out)
	if !ok {
		return false
	}
	dest, ok := out.Dest.(*int64)
	if !ok {
		return false
	}
	*dest = r.id
	return true
}

// newMock registers a sqlmock database as a datasource named after the
// test and returns a configuration that borrows from it.
func newMock(t *testing.T) (sqlmock.Sqlmock, Config) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(outConverter{}))
	require.NoError(t, err)

	name := t.Name()
	RegisterDataSource(name, db)
	t.Cleanup(func() {
		UnregisterDataSource(name)
		db.Close()
	})

	cfg := DefaultConfig()
	cfg.DataSource = name
	cfg.Username = "scott"
	return mock, cfg
}

func expectSession(mock sqlmock.Sqlmock, cfg Config) {
	for _, stmt := range SessionStatements(cfg) {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func testOptions(metrics *Metrics) []Option {
	return []Option{WithLogger(logger.Discard), WithMetrics(metrics)}
}

func newTestSession(t *testing.T, mock sqlmock.Sqlmock, cfg Config, d Dialect) (*Session, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	expectSession(mock, cfg)
	sess, err := NewSession(context.Background(), d, cfg, testOptions(metrics)...)
	require.NoError(t, err)
	return sess, metrics
}

func quote(sql string) string {
	return regexp.QuoteMeta(sql)
}
