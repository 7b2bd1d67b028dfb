// Package thin is the pure Go backend, speaking the Oracle wire protocol
// through go-ora. It needs no client libraries and builds without cgo.
//
// go-ora returns LOB contents rather than locators, so FetchLOBEagerly false
// changes nothing here: a LOB column arrives as a CLOB or Binary value and
// oracle.LiveLocator reports ErrArgument for it.
//
//	import _ "gorm.io/driver/oracle/dialects/thin"
package thin

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	goOra "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"

	"gorm.io/driver/oracle"
	"gorm.io/driver/oracle/quoting"
)

// Name is the registry name of this backend.
const Name = "goora"

func init() {
	oracle.RegisterDialect(Name, Dialect{})
}

// Dialect adapts go-ora to the shared session code.
type Dialect struct{}

func (Dialect) Name() string       { return Name }
func (Dialect) DriverName() string { return "oracle" }

// go-ora cannot stream a LOB parameter into a plain DML statement, so large
// values are staged after the row is written.
func (Dialect) InlineLOB() bool { return false }

// DSN builds a go-ora URL. Without a host, Database is handed over as a TNS
// alias or connect descriptor.
func (Dialect) DSN(cfg oracle.Config) (string, error) {
	options := map[string]string{}
	switch {
	case cfg.SysDBA():
		options["DBA PRIVILEGE"] = "SYSDBA"
	case cfg.SysOper():
		options["DBA PRIVILEGE"] = "SYSOPER"
	}
	if cfg.PrefetchRows > 0 {
		options["PREFETCH_ROWS"] = strconv.Itoa(cfg.PrefetchRows)
	}

	if cfg.Host == "" {
		if cfg.Database == "" {
			return "", errors.Wrap(oracle.ErrArgument, "database is required without a host")
		}
		return goOra.BuildJDBC(cfg.Username, cfg.Password, cfg.Database, options), nil
	}

	service := cfg.Database
	if cfg.SID != "" {
		options["SID"] = cfg.SID
		service = ""
	}
	port := cfg.Port
	if port == 0 {
		port = oracle.DefaultPort
	}
	return goOra.BuildUrl(cfg.Host, port, service, cfg.Username, cfg.Password, nilIfEmpty(options)), nil
}

func nilIfEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func (Dialect) QueryArgs(oracle.Config) []interface{} { return nil }

// ReturningSQL wraps the statement in an anonymous block, go-ora only fills
// out binds of PL/SQL.
func (Dialect) ReturningSQL(sql string) string {
	return "BEGIN " + strings.TrimRight(strings.TrimSpace(sql), ";") + "; END;"
}

func (Dialect) ErrorCode(err error) int {
	var oe *network.OracleError
	if errors.As(err, &oe) {
		return oe.ErrCode
	}
	return 0
}

func (Dialect) Unwrap(v interface{}) interface{} {
	switch v := v.(type) {
	case goOra.Clob:
		if !v.Valid {
			return nil
		}
		return v.String
	case goOra.NClob:
		if !v.Valid {
			return nil
		}
		return v.String
	case goOra.Blob:
		if v.Data == nil {
			return nil
		}
		return v.Data
	case goOra.TimeStamp:
		return time.Time(v)
	}
	return v
}

func (Dialect) BindInteger(i int64) (interface{}, error)           { return i, nil }
func (Dialect) BindFloat(f float64) (interface{}, error)           { return f, nil }
func (Dialect) BindDecimal(d decimal.Decimal) (interface{}, error) { return d.String(), nil }
func (Dialect) BindString(s string) (interface{}, error)           { return s, nil }
func (Dialect) BindDate(t time.Time) (interface{}, error)          { return t, nil }
func (Dialect) BindTimestamp(t time.Time) (interface{}, error)     { return goOra.TimeStamp(t), nil }
func (Dialect) BindBinary(b []byte) (interface{}, error)           { return b, nil }
func (Dialect) BindRaw(b []byte) (interface{}, error)              { return b, nil }

func (Dialect) BindCLOB(s string) (interface{}, error) {
	return goOra.Clob{String: s, Valid: true}, nil
}

// BindNull declares the NULL with its column type; an untyped nil is sent
// as VARCHAR2 and fails against LOB columns.
func (Dialect) BindNull(w quoting.WireType) (interface{}, error) {
	switch w {
	case quoting.WireNumber:
		return sql.NullInt64{}, nil
	case quoting.WireDate, quoting.WireTimestamp:
		return sql.NullTime{}, nil
	case quoting.WireCLOB:
		return goOra.Clob{}, nil
	case quoting.WireRaw, quoting.WireBLOB:
		return []byte(nil), nil
	}
	return sql.NullString{}, nil
}
