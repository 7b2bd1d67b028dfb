package oracle

import (
	"context"
	"strings"

	"gorm.io/driver/oracle/quoting"
)

// Connection is one logical session with the database. Implementations are
// not safe for concurrent use; callers serialize access.
type Connection interface {
	// Exec runs one statement. With no binds the text is sent as is.
	Exec(ctx context.Context, sql string, binds ...interface{}) (Result, error)
	Select(ctx context.Context, sql string, binds ...interface{}) (*ResultSet, error)
	// SelectOne returns the first row, or ErrNotFound.
	SelectOne(ctx context.Context, sql string, binds ...interface{}) (Row, error)
	Prepare(ctx context.Context, sql string) (Cursor, error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error

	// Describe resolves a possibly qualified name, following synonyms, to
	// the owner and name of the table or view behind it.
	Describe(ctx context.Context, name string) (owner, table string, err error)

	// Ping reports false for a dead session instead of failing; only a
	// session in an unusable state returns ErrConnectionException.
	Ping(ctx context.Context) (bool, error)
	Active() bool
	Autocommit() bool
	// Reconnect replaces the physical session, keeping this handle.
	Reconnect(ctx context.Context) error
	Logoff(ctx context.Context) error
	// ClearCache closes every cached cursor.
	ClearCache()

	Owner() string
	Config() Config
	Quoter() *quoting.Quoter
	// InlineLOB reports whether LOB values can be bound in the statement
	// that stores the row.
	InlineLOB() bool
	DriverName() string
}

// Cursor is one prepared statement. Positions are 1-based.
type Cursor interface {
	BindParam(position int, value interface{}) error
	BindNamed(name string, value interface{}) error
	// Exec runs the statement and reports whether it produced rows.
	Exec(ctx context.Context) (bool, error)
	ExecUpdate(ctx context.Context) (int64, error)
	// Fetch returns the next row, io.EOF after the last one.
	Fetch(ctx context.Context, opts FetchOptions) (Row, error)
	Columns() []Column
	// ReturningID is the value bound to :returning_id by the last Exec.
	ReturningID() (int64, bool)
	// Close is safe to call more than once.
	Close() error
}

// ReturningPlaceholder marks the bind that receives a generated key.
const ReturningPlaceholder = ":returning_id"

type FetchOptions struct {
	// FetchLOBEagerly reads LOB columns into values. When false LOB
	// columns come back as locators to be read or written by the caller,
	// on backends that have them; see LiveLocator.
	FetchLOBEagerly bool
}

var DefaultFetchOptions = FetchOptions{FetchLOBEagerly: true}

type Column struct {
	// Name is lower cased.
	Name         string
	DatabaseType string
}

type Result struct {
	RowsAffected int64
	ReturningID  int64
	HasReturning bool
}

// Row maps lower cased column names to values, in select list order.
type Row struct {
	columns []string
	values  []quoting.Value
}

func newRow(columns []Column, values []quoting.Value) Row {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return Row{columns: names, values: values}
}

func (r Row) Columns() []string       { return r.columns }
func (r Row) Values() []quoting.Value { return r.values }
func (r Row) Len() int                { return len(r.values) }

// Get looks a column up by name, ignoring case.
func (r Row) Get(name string) (quoting.Value, bool) {
	name = strings.ToLower(name)
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return quoting.Value{}, false
}

// Map copies the row into a map.
func (r Row) Map() map[string]quoting.Value {
	m := make(map[string]quoting.Value, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

type ResultSet struct {
	Columns []Column
	Rows    []Row
}
