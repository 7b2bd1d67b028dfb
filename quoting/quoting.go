// Package quoting converts between normalized values and their Oracle
// representations: quoted identifiers, SQL literals and the typed values
// the drivers hand back.
//
// Oracle upper cases every identifier that is not quoted. Names that are
// legal unquoted identifiers are therefore upper cased before they are
// quoted, so "posts" and POSTS refer to the same table. Anything else is
// quoted verbatim.
//
// Oracle has no boolean column type. When boolean emulation is enabled,
// booleans are stored as NUMBER(1) holding 1/0, or as CHAR(1)/VARCHAR2(1)
// holding 'Y'/'N', depending on the configured style.
package quoting

import (
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedType is returned when a Go value has no normalized form.
var ErrUnsupportedType = errors.New("unsupported value type")

// BooleanStyle selects how emulated booleans are stored.
type BooleanStyle int

const (
	// BooleanNumber stores booleans as NUMBER(1) 1/0.
	BooleanNumber BooleanStyle = iota
	// BooleanString stores booleans as CHAR(1) 'Y'/'N'.
	BooleanString
)

// ParseBooleanStyle accepts "number" or "string"; empty means number.
func ParseBooleanStyle(s string) (BooleanStyle, error) {
	switch strings.ToLower(s) {
	case "", "number", "numeric":
		return BooleanNumber, nil
	case "string", "char":
		return BooleanString, nil
	}
	return BooleanNumber, errors.Errorf("unknown boolean style %q", s)
}

// Config is passed to New. There is no process-wide switch; DefaultConfig
// only backs the Default quoter.
type Config struct {
	EmulateBooleans bool
	BooleanStyle    BooleanStyle
}

var DefaultConfig = Config{EmulateBooleans: true, BooleanStyle: BooleanNumber}

// Default is a Quoter built from DefaultConfig, for callers at the edge of
// the program that have no connection at hand.
var Default = New(DefaultConfig)

const (
	DateLayout      = "2006-01-02"
	DateTimeLayout  = "2006-01-02 15:04:05"
	TimestampLayout = "2006-01-02 15:04:05.000000"

	// NLS formats set on every session so that implicit conversions
	// agree with the layouts above.
	NLSDateFormat      = "YYYY-MM-DD HH24:MI:SS"
	NLSTimestampFormat = "YYYY-MM-DD HH24:MI:SS:FF6"
)

var (
	unquotedIdentifier = regexp.MustCompile(`\A[a-z][a-z_0-9$#]*\z`)
	validTableName     = regexp.MustCompile(`(?i)\A(?:[a-z][a-z_0-9$#]*\.)?[a-z][a-z_0-9$#]*(?:@[a-z][a-z_0-9$#.]*)?\z`)
	truthyTokens       = []string{"1", "t", "true", "y", "yes"}
)

// Quoter quotes identifiers and values for one connection.
type Quoter struct {
	cfg         Config
	columnNames sync.Map
	tableNames  sync.Map
}

func New(cfg Config) *Quoter {
	return &Quoter{cfg: cfg}
}

func (q *Quoter) Config() Config { return q.cfg }

// QuoteColumnName upper cases and quotes a legal unquoted identifier;
// other names are quoted as given with embedded double quotes removed.
func (q *Quoter) QuoteColumnName(name string) string {
	if quoted, ok := q.columnNames.Load(name); ok {
		return quoted.(string)
	}

	var quoted string
	if unquotedIdentifier.MatchString(name) {
		quoted = `"` + strings.ToUpper(name) + `"`
	} else {
		quoted = `"` + strings.ReplaceAll(name, `"`, "") + `"`
	}
	q.columnNames.Store(name, quoted)
	return quoted
}

// QuoteTableName quotes every part of schema.table and keeps a trailing
// @dblink untouched.
func (q *Quoter) QuoteTableName(name string) string {
	if quoted, ok := q.tableNames.Load(name); ok {
		return quoted.(string)
	}

	base, link, hasLink := strings.Cut(name, "@")
	parts := strings.Split(base, ".")
	for i, part := range parts {
		parts[i] = q.QuoteColumnName(part)
	}
	quoted := strings.Join(parts, ".")
	if hasLink {
		quoted += "@" + link
	}
	q.tableNames.Store(name, quoted)
	return quoted
}

// ValidTableName reports whether name can be used without quoting,
// optionally schema qualified and with a database link. Mixed case names
// are not valid since Oracle would not find them unquoted.
func ValidTableName(name string) bool {
	if !validTableName.MatchString(name) {
		return false
	}
	return name == strings.ToUpper(name) || name == strings.ToLower(name)
}

// QuoteString doubles embedded single quotes.
func QuoteString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (q *Quoter) QuotedTrue() string {
	if q.cfg.BooleanStyle == BooleanString {
		return "'Y'"
	}
	return "1"
}

func (q *Quoter) QuotedFalse() string {
	if q.cfg.BooleanStyle == BooleanString {
		return "'N'"
	}
	return "0"
}

// Quote renders v as a SQL literal.
func (q *Quoter) Quote(v Value) string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return "'" + QuoteString(v.s) + "'"
	case KindCLOB:
		return "TO_CLOB('" + QuoteString(v.s) + "')"
	case KindDate:
		return fmt.Sprintf("TO_DATE('%s','YYYY-MM-DD')", v.t.Format(DateLayout))
	case KindTimestamp:
		return fmt.Sprintf("TO_TIMESTAMP('%s','YYYY-MM-DD HH24:MI:SS.FF6')", v.t.Format(TimestampLayout))
	case KindBinary, KindRaw:
		return "HEXTORAW('" + strings.ToUpper(hex.EncodeToString(v.b)) + "')"
	}
	return "NULL"
}

// Truthy reports whether s is one of the accepted true tokens, ignoring case.
func Truthy(s string) bool {
	s = strings.TrimSpace(s)
	for _, token := range truthyTokens {
		if strings.EqualFold(s, token) {
			return true
		}
	}
	return false
}

// IsBooleanColumn reports whether a column of sqlType carries an
// emulated boolean under the current policy.
func (q *Quoter) IsBooleanColumn(sqlType string) bool {
	if !q.cfg.EmulateBooleans {
		return false
	}
	sqlType = strings.ToUpper(strings.ReplaceAll(sqlType, " ", ""))
	if q.cfg.BooleanStyle == BooleanString {
		return sqlType == "CHAR(1)" || sqlType == "VARCHAR2(1)"
	}
	return sqlType == "NUMBER(1)" || sqlType == "NUMBER(1,0)"
}

// ToBoolean reads an emulated boolean back.
func (q *Quoter) ToBoolean(v Value) (bool, error) {
	switch v.kind {
	case KindNull:
		return false, nil
	case KindInteger:
		return v.i != 0, nil
	case KindDecimal:
		return !v.d.IsZero(), nil
	case KindFloat:
		return v.f != 0, nil
	case KindString:
		return Truthy(v.s), nil
	}
	return false, errors.Wrapf(ErrUnsupportedType, "%s is not a boolean", v.kind)
}

// Normalize converts a Go value into a Value.
func (q *Quoter) Normalize(v interface{}) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null(WireVarchar), nil
	case Value:
		return v, nil
	case bool:
		return q.normalizeBool(v)
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return normalizeUint(uint64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return normalizeUint(v), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case decimal.Decimal:
		return Decimal(v), nil
	case *decimal.Decimal:
		if v == nil {
			return Null(WireNumber), nil
		}
		return Decimal(*v), nil
	case string:
		return String(v), nil
	case []byte:
		if v == nil {
			return Null(WireBLOB), nil
		}
		return Binary(v), nil
	case time.Time:
		return Time(v), nil
	case *time.Time:
		if v == nil {
			return Null(WireTimestamp), nil
		}
		return Time(*v), nil
	case sql.NullString:
		if !v.Valid {
			return Null(WireVarchar), nil
		}
		return String(v.String), nil
	case sql.NullInt64:
		if !v.Valid {
			return Null(WireNumber), nil
		}
		return Int(v.Int64), nil
	case sql.NullFloat64:
		if !v.Valid {
			return Null(WireNumber), nil
		}
		return Float(v.Float64), nil
	case sql.NullBool:
		if !v.Valid {
			return Null(q.booleanWire()), nil
		}
		return q.normalizeBool(v.Bool)
	case sql.NullTime:
		if !v.Valid {
			return Null(WireTimestamp), nil
		}
		return Time(v.Time), nil
	case driver.Valuer:
		inner, err := v.Value()
		if err != nil {
			return Value{}, err
		}
		return q.Normalize(inner)
	}
	return Value{}, errors.Wrapf(ErrUnsupportedType, "%T", v)
}

func (q *Quoter) normalizeBool(b bool) (Value, error) {
	if !q.cfg.EmulateBooleans {
		return Value{}, errors.Wrap(ErrUnsupportedType, "bool without boolean emulation")
	}
	if q.cfg.BooleanStyle == BooleanString {
		if b {
			return String("Y"), nil
		}
		return String("N"), nil
	}
	if b {
		return Int(1), nil
	}
	return Int(0), nil
}

func (q *Quoter) booleanWire() WireType {
	if q.cfg.BooleanStyle == BooleanString {
		return WireVarchar
	}
	return WireNumber
}

func normalizeUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Decimal(decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0))
	}
	return Int(int64(u))
}
