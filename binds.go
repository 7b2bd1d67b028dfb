package oracle

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/quoting"
)

type namedBind struct {
	name  string
	value quoting.Value
}

// bindSet holds the values bound to one statement. Oracle binds either by
// position or by name, never both in one execution.
type bindSet struct {
	positional []quoting.Value
	named      []namedBind
}

func (b *bindSet) setPositional(position int, v quoting.Value) error {
	if position < 1 {
		return errors.Wrapf(ErrArgument, "bind position %d, positions start at 1", position)
	}
	if len(b.named) > 0 {
		return errors.Wrap(ErrArgument, "cannot mix positional and named binds")
	}
	for len(b.positional) < position {
		b.positional = append(b.positional, quoting.Null(quoting.WireVarchar))
	}
	b.positional[position-1] = v
	return nil
}

func (b *bindSet) setNamed(name string, v quoting.Value) error {
	name = strings.TrimPrefix(name, ":")
	if name == "" {
		return errors.Wrap(ErrArgument, "empty bind name")
	}
	if len(b.positional) > 0 {
		return errors.Wrap(ErrArgument, "cannot mix positional and named binds")
	}
	for i := range b.named {
		if strings.EqualFold(b.named[i].name, name) {
			b.named[i].value = v
			return nil
		}
	}
	b.named = append(b.named, namedBind{name: name, value: v})
	return nil
}

func (b *bindSet) isNamed() bool {
	return len(b.named) > 0
}

func (b *bindSet) reset() {
	b.positional = b.positional[:0]
	b.named = b.named[:0]
}

// args binds every value through the backend.
func (b *bindSet) args(binder quoting.Binder) ([]interface{}, error) {
	args := make([]interface{}, 0, len(b.positional)+len(b.named)+1)
	for i, v := range b.positional {
		arg, err := v.Bind(binder)
		if err != nil {
			return nil, errors.Wrapf(ErrArgument, "bind %d (%s): %v", i+1, v.Kind(), err)
		}
		args = append(args, arg)
	}
	for _, nb := range b.named {
		arg, err := nb.value.Bind(binder)
		if err != nil {
			return nil, errors.Wrapf(ErrArgument, "bind :%s (%s): %v", nb.name, nb.value.Kind(), err)
		}
		args = append(args, sql.Named(nb.name, arg))
	}
	return args, nil
}

// logVars returns the plain values for ExplainSQL.
func (b *bindSet) logVars() ([]interface{}, map[string]interface{}) {
	var vars []interface{}
	for _, v := range b.positional {
		vars = append(vars, logValue(v))
	}
	var named map[string]interface{}
	if len(b.named) > 0 {
		named = make(map[string]interface{}, len(b.named))
		for _, nb := range b.named {
			named[nb.name] = logValue(nb.value)
		}
	}
	return vars, named
}

func logValue(v quoting.Value) interface{} {
	if v.Kind().IsLOB() {
		return "<" + v.Kind().String() + " " + strconv.Itoa(v.Len()) + ">"
	}
	return v.Interface()
}
