package quoting

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type column struct {
	name, typ string
}

func (c column) Name() string             { return c.name }
func (c column) DatabaseTypeName() string { return c.typ }

// echoBinder binds every value as its plain Go payload, which is what a
// driver would hand back when the row is read again.
type echoBinder struct{}

func (echoBinder) BindInteger(i int64) (interface{}, error)           { return i, nil }
func (echoBinder) BindFloat(f float64) (interface{}, error)           { return f, nil }
func (echoBinder) BindDecimal(d decimal.Decimal) (interface{}, error) { return d.String(), nil }
func (echoBinder) BindString(s string) (interface{}, error)           { return s, nil }
func (echoBinder) BindDate(t time.Time) (interface{}, error)          { return t, nil }
func (echoBinder) BindTimestamp(t time.Time) (interface{}, error)     { return t, nil }
func (echoBinder) BindBinary(b []byte) (interface{}, error)           { return b, nil }
func (echoBinder) BindRaw(b []byte) (interface{}, error)              { return b, nil }
func (echoBinder) BindCLOB(s string) (interface{}, error)             { return s, nil }
func (echoBinder) BindNull(WireType) (interface{}, error)             { return nil, nil }

func TestCastNumber(t *testing.T) {
	q := New(DefaultConfig)
	num := column{"amount", "NUMBER"}

	v, err := q.Cast("42", num)
	require.NoError(t, err)
	assert.Equal(t, KindInteger, v.Kind())
	i, _ := v.Int()
	assert.Equal(t, int64(42), i)

	v, err = q.Cast(int64(42), num)
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(42)))

	v, err = q.Cast(float64(42), num)
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(42)))

	v, err = q.Cast("3.14159265358979323846", num)
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, v.Kind())
	assert.Equal(t, "3.14159265358979323846", q.Quote(v))

	v, err = q.Cast("123456789012345678901234567890", num)
	require.NoError(t, err)
	assert.Equal(t, KindDecimal, v.Kind(), "too large for int64")

	v, err = q.Cast(1.25, column{"ratio", "BINARY_DOUBLE"})
	require.NoError(t, err)
	assert.True(t, v.Equal(Float(1.25)))

	_, err = q.Cast("abc", num)
	assert.Error(t, err)
}

func TestCastNumberNonFinite(t *testing.T) {
	q := New(DefaultConfig)
	num := column{"amount", "NUMBER"}

	for _, raw := range []interface{}{math.Inf(1), math.Inf(-1), float32(math.Inf(1))} {
		v, err := q.Cast(raw, num)
		require.NoError(t, err)
		f, ok := v.Float()
		require.True(t, ok)
		assert.True(t, math.IsInf(f, 0), "%v", raw)
	}

	v, err := q.Cast(math.NaN(), num)
	require.NoError(t, err)
	f, ok := v.Float()
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestCastDates(t *testing.T) {
	q := New(DefaultConfig)
	midnight := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	afternoon := time.Date(2023, 12, 31, 15, 30, 0, 0, time.UTC)

	v, err := q.Cast(midnight, column{"born_on", "DATE"})
	require.NoError(t, err)
	assert.Equal(t, KindDate, v.Kind())

	v, err = q.Cast(afternoon, column{"seen_at", "DATE"})
	require.NoError(t, err)
	assert.Equal(t, KindTimestamp, v.Kind())

	// a TIMESTAMP column keeps its kind even at midnight
	v, err = q.Cast(midnight, column{"created_at", "TIMESTAMP WITH TIME ZONE"})
	require.NoError(t, err)
	assert.Equal(t, KindTimestamp, v.Kind())

	v, err = q.Cast("2023-12-31 15:30:00", column{"seen_at", "DATE"})
	require.NoError(t, err)
	got, _ := v.Time()
	assert.Equal(t, 15, got.Hour())
}

func TestCastLOBs(t *testing.T) {
	q := New(DefaultConfig)

	v, err := q.Cast("text", column{"body", "CLOB"})
	require.NoError(t, err)
	assert.True(t, v.Equal(CLOB("text")))

	v, err = q.Cast([]byte{9}, column{"data", "BLOB"})
	require.NoError(t, err)
	assert.True(t, v.Equal(Binary([]byte{9})))

	v, err = q.Cast([]byte{9}, column{"guid", "RAW"})
	require.NoError(t, err)
	assert.Equal(t, KindRaw, v.Kind())

	v, err = q.Cast(strings.NewReader("streamed"), column{"body", "NCLOB"})
	require.NoError(t, err)
	assert.Equal(t, KindLocator, v.Kind())
	v, err = v.Materialize()
	require.NoError(t, err)
	assert.True(t, v.Equal(CLOB("streamed")))

	v, err = q.Cast(bytes.NewReader([]byte{1, 2, 3}), column{"data", "BLOB"})
	require.NoError(t, err)
	v, err = v.Materialize()
	require.NoError(t, err)
	assert.True(t, v.Equal(Binary([]byte{1, 2, 3})))
}

func TestCastNull(t *testing.T) {
	q := New(DefaultConfig)
	v, err := q.Cast(nil, column{"body", "CLOB"})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Equal(t, WireCLOB, v.NullType())
}

func TestBindThenCastRoundTrip(t *testing.T) {
	q := New(DefaultConfig)
	day := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2022, 6, 1, 8, 15, 0, 0, time.UTC)
	big := strings.Repeat("x", 1<<20)

	tests := []struct {
		value Value
		typ   string
	}{
		{Int(42), "NUMBER"},
		{Int(-9007199254740993), "NUMBER"},
		{Decimal(decimal.RequireFromString("0.000001")), "NUMBER"},
		{String("hello"), "VARCHAR2"},
		{Date(day), "DATE"},
		{Timestamp(at), "TIMESTAMP"},
		{Binary([]byte{0, 1, 2}), "BLOB"},
		{CLOB(big), "CLOB"},
		{Null(WireDate), "DATE"},
	}
	for _, tt := range tests {
		t.Run(tt.value.Kind().String(), func(t *testing.T) {
			bound, err := tt.value.Bind(echoBinder{})
			require.NoError(t, err)
			got, err := q.Cast(bound, column{"c", tt.typ})
			require.NoError(t, err)
			assert.Equal(t, tt.value.Kind(), got.Kind())
			assert.True(t, tt.value.Equal(got))
		})
	}

	t.Run("midnight timestamp reads back as date", func(t *testing.T) {
		bound, err := Timestamp(day).Bind(echoBinder{})
		require.NoError(t, err)
		got, err := q.Cast(bound, column{"c", "DATE"})
		require.NoError(t, err)
		assert.Equal(t, KindDate, got.Kind())
	})
}

func TestLocatorIsNotBindable(t *testing.T) {
	_, err := LOBLocator(strings.NewReader(""), true).Bind(echoBinder{})
	assert.ErrorIs(t, err, ErrUnbindable)
}
