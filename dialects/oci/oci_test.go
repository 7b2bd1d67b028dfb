//go:build cgo

package oci

import (
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/godror/godror"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/driver/oracle"
	"gorm.io/driver/oracle/quoting"
)

func TestRegistered(t *testing.T) {
	d, ok := oracle.GetDialect(Name)
	require.True(t, ok)
	assert.Equal(t, "godror", d.DriverName())
	assert.True(t, d.InlineLOB())
	assert.Equal(t, "godror", oracle.PreferredDrivers()[0])
}

func TestDSN(t *testing.T) {
	cfg := oracle.DefaultConfig()
	cfg.Host = "db.example"
	cfg.Database = "XEPDB1"
	cfg.Username = "scott"
	cfg.Password = "tiger"

	dsn, err := Dialect{}.DSN(cfg)
	require.NoError(t, err)
	assert.Contains(t, dsn, `connectString="db.example:1521/XEPDB1"`)
	assert.Contains(t, dsn, "standaloneConnection=1")
	assert.NotContains(t, dsn, "sysdba")

	params, err := godror.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "scott", params.Username)
	assert.Equal(t, "db.example:1521/XEPDB1", params.ConnectString)

	cfg.Privilege = "sysdba"
	dsn, err = Dialect{}.DSN(cfg)
	require.NoError(t, err)
	assert.Contains(t, dsn, "sysdba=1")
}

func TestQueryArgs(t *testing.T) {
	cfg := oracle.DefaultConfig()
	assert.Len(t, Dialect{}.QueryArgs(cfg), 1, "LOBs always come back as readers")
	cfg.PrefetchRows = 500
	assert.Len(t, Dialect{}.QueryArgs(cfg), 3)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, 0, Dialect{}.ErrorCode(errors.New("ORA-03113 but not from the driver")))
}

func TestUnwrap(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, "12.50", d.Unwrap(godror.Number("12.50")))
	assert.Nil(t, d.Unwrap((*godror.Lob)(nil)))
	assert.Equal(t, "x", d.Unwrap("x"))

	lob := &godror.Lob{Reader: strings.NewReader("body"), IsClob: true}
	assert.Same(t, lob, d.Unwrap(lob), "the locator is handed on unread")
}

func TestDirectLOB(t *testing.T) {
	_, err := DirectLOB(quoting.CLOB("x"))
	assert.ErrorIs(t, err, oracle.ErrArgument)

	_, err = DirectLOB(quoting.LOBLocator(strings.NewReader("x"), true))
	assert.ErrorIs(t, err, oracle.ErrArgument)
}

func TestBinds(t *testing.T) {
	d := Dialect{}

	v, err := quoting.CLOB("body").Bind(d)
	require.NoError(t, err)
	lob, ok := v.(godror.Lob)
	require.True(t, ok)
	assert.True(t, lob.IsClob)
	body, err := io.ReadAll(lob.Reader)
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))

	v, err = quoting.Decimal(decimal.RequireFromString("12345678901234567890.5")).Bind(d)
	require.NoError(t, err)
	assert.Equal(t, godror.Number("12345678901234567890.5"), v)

	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local)
	v, err = quoting.Time(day).Bind(d)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29 00:00:00", v, "a date binds through NLS_DATE_FORMAT")

	noon := day.Add(12 * time.Hour)
	v, err = quoting.Time(noon).Bind(d)
	require.NoError(t, err)
	assert.Equal(t, noon, v, "a timestamp binds as time.Time")

	v, err = d.BindNull(quoting.WireCLOB)
	require.NoError(t, err)
	assert.Equal(t, sql.NullString{}, v)
}
