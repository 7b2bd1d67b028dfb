package quoting

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// Kind is the semantic type of a normalized value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindDecimal
	KindString
	KindDate
	KindTimestamp
	KindBinary
	KindRaw
	KindCLOB
	// KindLocator is only produced by fetches that leave LOBs unread.
	KindLocator
)

var kindNames = [...]string{
	KindNull:      "null",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindDecimal:   "decimal",
	KindString:    "string",
	KindDate:      "date",
	KindTimestamp: "timestamp",
	KindBinary:    "binary",
	KindRaw:       "raw",
	KindCLOB:      "clob",
	KindLocator:   "locator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsLOB reports whether values of this kind are stored out of row.
func (k Kind) IsLOB() bool {
	return k == KindCLOB || k == KindBinary || k == KindLocator
}

// WireType is the native column type a NULL is declared with.
type WireType uint8

const (
	WireVarchar WireType = iota
	WireNumber
	WireDate
	WireTimestamp
	WireRaw
	WireCLOB
	WireBLOB
)

var wireNames = [...]string{
	WireVarchar:   "VARCHAR2",
	WireNumber:    "NUMBER",
	WireDate:      "DATE",
	WireTimestamp: "TIMESTAMP",
	WireRaw:       "RAW",
	WireCLOB:      "CLOB",
	WireBLOB:      "BLOB",
}

func (w WireType) String() string {
	if int(w) < len(wireNames) {
		return wireNames[w]
	}
	return fmt.Sprintf("wire(%d)", uint8(w))
}

// Locator is a live handle on a LOB that has not been read yet.
type Locator struct {
	io.Reader
	CLOB bool
}

// Value is a normalized scalar moving between the caller and a driver.
// The zero Value is a NULL declared as VARCHAR2.
type Value struct {
	kind Kind
	i    int64
	f    float64
	d    decimal.Decimal
	s    string
	t    time.Time
	b    []byte
	wire WireType
	loc  *Locator
}

func Int(i int64) Value               { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value           { return Value{kind: KindFloat, f: f} }
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }
func String(s string) Value           { return Value{kind: KindString, s: s} }
func CLOB(s string) Value             { return Value{kind: KindCLOB, s: s} }
func Binary(b []byte) Value           { return Value{kind: KindBinary, b: b} }
func Raw(b []byte) Value              { return Value{kind: KindRaw, b: b} }
func Timestamp(t time.Time) Value     { return Value{kind: KindTimestamp, t: t} }

// Date drops the time of day from t.
func Date(t time.Time) Value {
	return Value{kind: KindDate, t: now.With(t).BeginningOfDay()}
}

// Null returns a NULL that binds as the given native type.
func Null(w WireType) Value { return Value{kind: KindNull, wire: w} }

// LOBLocator wraps an unread LOB.
func LOBLocator(r io.Reader, clob bool) Value {
	return Value{kind: KindLocator, loc: &Locator{Reader: r, CLOB: clob}}
}

// Time normalizes t using the time-of-day heuristic: hour, minute and
// second all zero means a DATE, anything else a TIMESTAMP. A timestamp at
// exactly midnight therefore comes back as a date; this is a known
// ambiguity and is kept so values round-trip the same way every time.
func Time(t time.Time) Value {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return Date(t)
	}
	return Timestamp(t)
}

func (v Value) Kind() Kind         { return v.kind }
func (v Value) IsNull() bool       { return v.kind == KindNull }
func (v Value) NullType() WireType { return v.wire }

func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInteger
}

func (v Value) Float() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.d, v.kind == KindDecimal
}

// Str returns the text of a string or CLOB value.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString || v.kind == KindCLOB
}

func (v Value) Time() (time.Time, bool) {
	return v.t, v.kind == KindDate || v.kind == KindTimestamp
}

// Bytes returns the payload of a binary or raw value.
func (v Value) Bytes() ([]byte, bool) {
	return v.b, v.kind == KindBinary || v.kind == KindRaw
}

func (v Value) Locator() (*Locator, bool) {
	return v.loc, v.kind == KindLocator
}

// Interface returns the plain Go value held by v.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d
	case KindString, KindCLOB:
		return v.s
	case KindDate, KindTimestamp:
		return v.t
	case KindBinary, KindRaw:
		return v.b
	case KindLocator:
		return v.loc
	}
	return nil
}

// Len is the LOB length as Oracle counts it: characters for CLOBs and
// bytes for binary data.
func (v Value) Len() int {
	switch v.kind {
	case KindString, KindCLOB:
		return len([]rune(v.s))
	case KindBinary, KindRaw:
		return len(v.b)
	}
	return 0
}

// Materialize reads a locator to the end. Other values are returned as is.
func (v Value) Materialize() (Value, error) {
	if v.kind != KindLocator {
		return v, nil
	}
	if v.loc.Reader == nil {
		if v.loc.CLOB {
			return CLOB(""), nil
		}
		return Binary([]byte{}), nil
	}
	data, err := io.ReadAll(v.loc.Reader)
	if err != nil {
		return Value{}, err
	}
	if v.loc.CLOB {
		return CLOB(string(data)), nil
	}
	return Binary(data), nil
}

// Equal compares kind and payload. NULLs are equal whatever their wire type.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal:
		return v.d.Equal(o.d)
	case KindString, KindCLOB:
		return v.s == o.s
	case KindDate, KindTimestamp:
		return v.t.Equal(o.t)
	case KindBinary, KindRaw:
		return bytes.Equal(v.b, o.b)
	case KindLocator:
		return v.loc == o.loc
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL(" + v.wire.String() + ")"
	case KindBinary, KindRaw:
		return fmt.Sprintf("%s(%d bytes)", v.kind, len(v.b))
	case KindLocator:
		return "locator"
	}
	return fmt.Sprint(v.Interface())
}
