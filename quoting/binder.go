package quoting

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnbindable is returned for values that can only be read, never bound.
var ErrUnbindable = errors.New("value cannot be bound")

// Binder turns each kind of Value into the argument a native driver
// expects. Every backend implements all of it, so a new Kind cannot be
// added without each backend deciding how to bind it.
type Binder interface {
	BindInteger(int64) (interface{}, error)
	BindFloat(float64) (interface{}, error)
	BindDecimal(decimal.Decimal) (interface{}, error)
	BindString(string) (interface{}, error)
	BindDate(time.Time) (interface{}, error)
	BindTimestamp(time.Time) (interface{}, error)
	BindBinary([]byte) (interface{}, error)
	BindRaw([]byte) (interface{}, error)
	BindCLOB(string) (interface{}, error)
	BindNull(WireType) (interface{}, error)
}

// Bind dispatches v to the matching Binder method.
func (v Value) Bind(b Binder) (interface{}, error) {
	switch v.kind {
	case KindNull:
		return b.BindNull(v.wire)
	case KindInteger:
		return b.BindInteger(v.i)
	case KindFloat:
		return b.BindFloat(v.f)
	case KindDecimal:
		return b.BindDecimal(v.d)
	case KindString:
		return b.BindString(v.s)
	case KindDate:
		return b.BindDate(v.t)
	case KindTimestamp:
		return b.BindTimestamp(v.t)
	case KindBinary:
		return b.BindBinary(v.b)
	case KindRaw:
		return b.BindRaw(v.b)
	case KindCLOB:
		return b.BindCLOB(v.s)
	}
	return nil, ErrUnbindable
}
