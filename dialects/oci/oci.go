//go:build cgo

package oci

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/godror/godror"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"gorm.io/driver/oracle"
	"gorm.io/driver/oracle/quoting"
)

// Name is the registry name of this backend.
const Name = "godror"

func init() {
	oracle.RegisterDialect(Name, Dialect{})
}

// Dialect adapts godror to the shared session code.
type Dialect struct{}

func (Dialect) Name() string       { return Name }
func (Dialect) DriverName() string { return "godror" }
func (Dialect) InlineLOB() bool    { return true }

// DSN renders the logfmt connection parameters godror parses.
func (Dialect) DSN(cfg oracle.Config) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "user=%q password=%q connectString=%q", cfg.Username, cfg.Password, cfg.ConnectDescriptor())
	switch {
	case cfg.SysDBA():
		b.WriteString(" sysdba=1")
	case cfg.SysOper():
		b.WriteString(" sysoper=1")
	}
	// sessions are pinned by the caller, the OCI session pool adds nothing
	b.WriteString(" standaloneConnection=1")

	dsn := b.String()
	if _, err := godror.ParseDSN(dsn); err != nil {
		return "", errors.Wrap(oracle.ErrArgument, err.Error())
	}
	return dsn, nil
}

// QueryArgs asks for LOB columns as *godror.Lob so that a lazy fetch keeps
// the locator.
func (Dialect) QueryArgs(cfg oracle.Config) []interface{} {
	args := []interface{}{godror.LobAsReader()}
	if cfg.PrefetchRows > 0 {
		args = append(args, godror.PrefetchCount(cfg.PrefetchRows), godror.FetchArraySize(cfg.PrefetchRows))
	}
	return args
}

// RETURNING ... INTO fills sql.Out binds directly.
func (Dialect) ReturningSQL(sql string) string { return sql }

func (Dialect) ErrorCode(err error) int {
	if oe, ok := godror.AsOraErr(err); ok {
		return oe.Code()
	}
	return 0
}

func (Dialect) Unwrap(v interface{}) interface{} {
	switch v := v.(type) {
	case godror.Number:
		return string(v)
	case *godror.Lob:
		if v == nil || v.Reader == nil {
			return nil
		}
		return v
	}
	return v
}

// DirectLOB hands over the server-side LOB behind a value fetched with
// FetchLOBEagerly false, for piecewise reads and writes by offset. The value
// must not be read through the cursor afterwards.
func DirectLOB(v quoting.Value) (*godror.DirectLob, error) {
	loc, err := oracle.LiveLocator(v)
	if err != nil {
		return nil, err
	}
	lob, ok := loc.Reader.(*godror.Lob)
	if !ok {
		return nil, errors.Wrapf(oracle.ErrArgument, "%T is not a godror LOB", loc.Reader)
	}
	dl, err := lob.Hijack()
	return dl, errors.Wrap(err, "hijack LOB")
}

func (Dialect) BindInteger(i int64) (interface{}, error)           { return i, nil }
func (Dialect) BindFloat(f float64) (interface{}, error)           { return f, nil }
func (Dialect) BindDecimal(d decimal.Decimal) (interface{}, error) { return godror.Number(d.String()), nil }
func (Dialect) BindString(s string) (interface{}, error)           { return s, nil }
func (Dialect) BindTimestamp(t time.Time) (interface{}, error)     { return t, nil }
func (Dialect) BindRaw(b []byte) (interface{}, error)              { return b, nil }

// BindDate sends a DATE as text in the session's NLS_DATE_FORMAT; a
// time.Time would reach the server as a TIMESTAMP WITH TIME ZONE.
func (Dialect) BindDate(t time.Time) (interface{}, error) {
	return t.Format(quoting.DateTimeLayout), nil
}

func (Dialect) BindBinary(b []byte) (interface{}, error) {
	return godror.Lob{Reader: bytes.NewReader(b)}, nil
}

func (Dialect) BindCLOB(s string) (interface{}, error) {
	return godror.Lob{Reader: strings.NewReader(s), IsClob: true}, nil
}

// BindNull declares the NULL with its column type.
func (Dialect) BindNull(w quoting.WireType) (interface{}, error) {
	switch w {
	case quoting.WireNumber:
		return sql.NullInt64{}, nil
	case quoting.WireDate, quoting.WireTimestamp:
		return sql.NullTime{}, nil
	case quoting.WireRaw, quoting.WireBLOB:
		return []byte(nil), nil
	}
	return sql.NullString{}, nil
}
