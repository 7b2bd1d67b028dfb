package quoting

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ColumnType is the metadata TypeCast needs; *sql.ColumnType satisfies it.
type ColumnType interface {
	Name() string
	DatabaseTypeName() string
}

var timeLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05:000000",
	time.RFC3339Nano,
	DateTimeLayout,
	DateLayout,
}

// Cast converts a scanned driver value into a Value, using the column's
// database type to pick the kind. Drivers are expected to have unwrapped
// their own types into Go basics, or an io.Reader for an unread LOB.
func (q *Quoter) Cast(raw interface{}, col ColumnType) (Value, error) {
	typeName := strings.ToUpper(col.DatabaseTypeName())

	if raw == nil {
		return Null(wireOf(typeName)), nil
	}
	if r, ok := raw.(io.Reader); ok {
		return LOBLocator(r, strings.HasSuffix(typeName, "CLOB")), nil
	}

	switch {
	case typeName == "BINARY_FLOAT" || typeName == "BINARY_DOUBLE" || typeName == "IBFLOAT" || typeName == "IBDOUBLE":
		f, err := toFloat(raw)
		if err != nil {
			return Value{}, castError(col, raw, err)
		}
		return Float(f), nil
	case typeName == "NUMBER" || typeName == "INTEGER" || typeName == "FLOAT" || typeName == "DECIMAL":
		v, err := castNumber(raw)
		if err != nil {
			return Value{}, castError(col, raw, err)
		}
		return v, nil
	case typeName == "DATE":
		t, err := toTime(raw)
		if err != nil {
			return Value{}, castError(col, raw, err)
		}
		return Time(t), nil
	case strings.HasPrefix(typeName, "TIMESTAMP"):
		t, err := toTime(raw)
		if err != nil {
			return Value{}, castError(col, raw, err)
		}
		return Timestamp(t), nil
	case strings.HasSuffix(typeName, "CLOB"):
		return CLOB(toString(raw)), nil
	case typeName == "BLOB":
		return Binary(toBytes(raw)), nil
	case typeName == "RAW" || typeName == "LONG RAW":
		return Raw(toBytes(raw)), nil
	}

	// unknown or empty type name, go by the Go type
	switch v := raw.(type) {
	case int64:
		return Int(v), nil
	case int:
		return Int(int64(v)), nil
	case float64:
		return Float(v), nil
	case float32:
		return Float(float64(v)), nil
	case decimal.Decimal:
		return Decimal(v), nil
	case time.Time:
		return Time(v), nil
	case []byte:
		return Binary(v), nil
	case string:
		return String(v), nil
	case bool:
		return q.normalizeBool(v)
	}
	return Value{}, castError(col, raw, ErrUnsupportedType)
}

func castError(col ColumnType, raw interface{}, err error) error {
	return errors.Wrapf(err, "column %s (%s): cannot cast %T", col.Name(), col.DatabaseTypeName(), raw)
}

func wireOf(typeName string) WireType {
	switch {
	case typeName == "NUMBER" || typeName == "INTEGER" || typeName == "FLOAT" ||
		typeName == "BINARY_FLOAT" || typeName == "BINARY_DOUBLE":
		return WireNumber
	case typeName == "DATE":
		return WireDate
	case strings.HasPrefix(typeName, "TIMESTAMP"):
		return WireTimestamp
	case strings.HasSuffix(typeName, "CLOB"):
		return WireCLOB
	case typeName == "BLOB":
		return WireBLOB
	case typeName == "RAW" || typeName == "LONG RAW":
		return WireRaw
	}
	return WireVarchar
}

// castNumber returns an Integer when the number is integral and fits in
// 64 bits, a Decimal otherwise. Infinities and NaN have no decimal form and
// stay Float.
func castNumber(raw interface{}) (Value, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case int64:
		return Int(v), nil
	case int:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case uint64:
		return normalizeUint(v), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return Float(v), nil
		}
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return Int(int64(v)), nil
		}
		d = decimal.NewFromFloat(v)
	case float32:
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			return Float(float64(v)), nil
		}
		d = decimal.NewFromFloat32(v)
	case decimal.Decimal:
		d = v
	case string, []byte:
		var err error
		if d, err = decimal.NewFromString(strings.TrimSpace(toString(v))); err != nil {
			return Value{}, err
		}
	default:
		return Value{}, ErrUnsupportedType
	}

	if d.Equal(d.Truncate(0)) {
		if i := d.IntPart(); decimal.NewFromInt(i).Equal(d) {
			return Int(i), nil
		}
	}
	return Decimal(d), nil
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, nil
	case string, []byte:
		return strconv.ParseFloat(strings.TrimSpace(toString(v)), 64)
	}
	return 0, ErrUnsupportedType
}

func toTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string, []byte:
		s := strings.TrimSpace(toString(v))
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errors.Errorf("unrecognized time %q", s)
	}
	return time.Time{}, ErrUnsupportedType
}

func toString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

func toBytes(raw interface{}) []byte {
	switch v := raw.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}
