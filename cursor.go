package oracle

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/quoting"
)

// cursor is a prepared statement of one Session. Cached cursors survive
// Close and are handed out again, with their binds cleared, the next time
// the same SQL is prepared.
type cursor struct {
	sess   *Session
	sql    string
	native string
	kind   string
	stmt   *sql.Stmt

	binds     bindSet
	returning bool

	rows     *sql.Rows
	columns  []Column
	colTypes []*sql.ColumnType

	returningID  int64
	hasReturning bool

	cached bool
	inUse  bool
	closed bool
}

var _ Cursor = (*cursor)(nil)

func (c *cursor) reuse() {
	c.binds.reset()
	c.rows, c.columns, c.colTypes = nil, nil, nil
	c.returningID, c.hasReturning = 0, false
	c.inUse, c.closed = true, false
}

func (c *cursor) check() error {
	if c.closed || c.stmt == nil {
		return errors.Wrap(ErrArgument, "cursor is closed")
	}
	return nil
}

func (c *cursor) BindParam(position int, value interface{}) error {
	if err := c.check(); err != nil {
		return err
	}
	v, err := c.sess.normalize(value)
	if err != nil {
		return err
	}
	return c.binds.setPositional(position, v)
}

func (c *cursor) BindNamed(name string, value interface{}) error {
	if err := c.check(); err != nil {
		return err
	}
	v, err := c.sess.normalize(value)
	if err != nil {
		return err
	}
	return c.binds.setNamed(name, v)
}

func (c *cursor) args() ([]interface{}, error) {
	args, err := c.binds.args(c.sess.dialect)
	if err != nil {
		return nil, err
	}
	if c.returning {
		out := sql.Out{Dest: &c.returningID}
		if c.binds.isNamed() {
			args = append(args, sql.Named(strings.TrimPrefix(ReturningPlaceholder, ":"), out))
		} else {
			args = append(args, out)
		}
	}
	return args, nil
}

// Exec runs a query when the statement is a SELECT, and reports so.
func (c *cursor) Exec(ctx context.Context) (bool, error) {
	if c.kind == "select" {
		return true, c.query(ctx)
	}
	_, err := c.ExecUpdate(ctx)
	return false, err
}

func (c *cursor) ExecUpdate(ctx context.Context) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	c.closeRows()
	c.returningID, c.hasReturning = 0, false
	args, err := c.args()
	if err != nil {
		return 0, err
	}

	begin := time.Now()
	res, err := c.stmt.ExecContext(ctx, args...)
	rows := int64(-1)
	if err == nil {
		if n, rerr := res.RowsAffected(); rerr == nil {
			rows = n
		}
	}
	c.sess.trace(ctx, begin, c.native, &c.binds, rows, err)
	c.sess.metrics.statement(c.sess.dialect.Name(), c.kind)
	if err != nil {
		return 0, c.sess.classify(err)
	}
	c.hasReturning = c.returning
	if rows < 0 {
		rows = 0
	}
	return rows, nil
}

func (c *cursor) query(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}
	c.closeRows()
	args, err := c.args()
	if err != nil {
		return err
	}
	args = append(args, c.sess.dialect.QueryArgs(c.sess.cfg)...)

	begin := time.Now()
	rows, err := c.stmt.QueryContext(ctx, args...)
	c.sess.trace(ctx, begin, c.native, &c.binds, -1, err)
	c.sess.metrics.statement(c.sess.dialect.Name(), "select")
	if err != nil {
		return c.sess.classify(err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return c.sess.classify(err)
	}

	c.rows, c.colTypes = rows, colTypes
	c.columns = make([]Column, len(colTypes))
	for i, ct := range colTypes {
		c.columns[i] = Column{Name: strings.ToLower(ct.Name()), DatabaseType: ct.DatabaseTypeName()}
	}
	return nil
}

// Fetch returns io.EOF once the rows are exhausted; fetching again needs
// another Exec.
func (c *cursor) Fetch(ctx context.Context, opts FetchOptions) (Row, error) {
	if err := c.check(); err != nil {
		return Row{}, err
	}
	if c.rows == nil {
		return Row{}, io.EOF
	}
	if !c.rows.Next() {
		err := c.rows.Err()
		c.closeRows()
		if err != nil {
			return Row{}, c.sess.classify(err)
		}
		return Row{}, io.EOF
	}

	raw := make([]interface{}, len(c.columns))
	dest := make([]interface{}, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		return Row{}, c.sess.classify(err)
	}

	values := make([]quoting.Value, len(raw))
	for i := range raw {
		v, err := c.sess.quoter.Cast(c.sess.dialect.Unwrap(raw[i]), c.colTypes[i])
		if err != nil {
			return Row{}, &Error{Kind: ErrStatement, Message: err.Error(), Err: err}
		}
		if v, err = fetchLOB(v, opts); err != nil {
			return Row{}, c.sess.classify(err)
		}
		values[i] = v
	}
	return newRow(c.columns, values), nil
}

// fetchLOB reads locators when fetching eagerly. Otherwise the value is
// left as the backend produced it: a locator from a backend that hands
// them out, a materialized CLOB or BLOB from one that does not.
func fetchLOB(v quoting.Value, opts FetchOptions) (quoting.Value, error) {
	if opts.FetchLOBEagerly {
		return v.Materialize()
	}
	return v, nil
}

// LiveLocator returns the backend locator behind a LOB column fetched with
// FetchLOBEagerly false. It is valid until the next Fetch or Close of the
// cursor. A value that is not a locator, because it is not a LOB or
// because the backend only returns LOB contents, gives ErrArgument.
func LiveLocator(v quoting.Value) (*quoting.Locator, error) {
	loc, ok := v.Locator()
	if !ok || loc.Reader == nil {
		return nil, errors.Wrapf(ErrArgument, "%s value is not a live LOB locator", v.Kind())
	}
	return loc, nil
}

func (c *cursor) Columns() []Column {
	return c.columns
}

func (c *cursor) ReturningID() (int64, bool) {
	return c.returningID, c.hasReturning
}

func (c *cursor) closeRows() {
	if c.rows == nil {
		return
	}
	if err := c.rows.Close(); err != nil {
		c.sess.logger.Info(context.Background(), "close rows of %q: %v", c.sql, err)
	}
	c.rows = nil
}

func (c *cursor) closeStmt() error {
	if c.stmt == nil {
		return nil
	}
	err := c.stmt.Close()
	c.stmt = nil
	return ignoreDone(err)
}

// Close gives a cached cursor back to the cache and closes a private one.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed, c.inUse = true, false
	c.closeRows()
	c.binds.reset()
	if c.cached {
		return nil
	}
	if err := c.closeStmt(); err != nil {
		c.sess.logger.Info(context.Background(), "close cursor %q: %v", c.sql, err)
	}
	return nil
}

// Release is called when the cursor leaves the cache. A cursor still in
// use is closed by its holder.
func (c *cursor) Release() error {
	c.cached = false
	if c.inUse {
		return nil
	}
	c.closed = true
	return c.closeStmt()
}
