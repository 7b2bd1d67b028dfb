package oracle

import (
	"context"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/logger"
)

type retryKey struct{}

// WithRetry turns retry after a lost connection on or off for calls made
// with the returned context. Without it the auto_retry setting applies.
func WithRetry(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, retryKey{}, enabled)
}

func retryEnabled(ctx context.Context, fallback bool) bool {
	if enabled, ok := ctx.Value(retryKey{}).(bool); ok {
		return enabled
	}
	return fallback
}

// RecoveringConnection reconnects and re-issues a call once when it failed
// because the connection was lost. It only does so when autocommit was on
// before the call, so nothing that may have been applied already is run
// twice. Transaction control is never retried.
type RecoveringConnection struct {
	Connection
	logger  logger.Interface
	metrics *Metrics
}

var _ Connection = (*RecoveringConnection)(nil)

func NewRecoveringConnection(conn Connection, opts ...Option) *RecoveringConnection {
	o := options{logger: logger.Default, metrics: DefaultMetrics}
	for _, opt := range opts {
		opt(&o)
	}
	return &RecoveringConnection{Connection: conn, logger: o.logger, metrics: o.metrics}
}

// Unwrap returns the connection calls are forwarded to.
func (r *RecoveringConnection) Unwrap() Connection {
	return r.Connection
}

// withRetry runs fn, and once more after a reconnect when the failure
// allows it. fn is told whether it is the retry. A failed reconnect
// returns the original error.
func (r *RecoveringConnection) withRetry(ctx context.Context, op string, fn func(retry bool) error) error {
	autocommit := r.Connection.Autocommit()
	err := fn(false)
	if err == nil || !errors.Is(err, ErrConnectionLost) {
		return err
	}
	if !autocommit || !retryEnabled(ctx, r.Connection.Config().AutoRetry) {
		return err
	}

	r.logger.Warn(ctx, "%s: %v, reconnecting and retrying once", op, err)
	if rerr := r.Connection.Reconnect(ctx); rerr != nil {
		r.logger.Error(ctx, "%s: reconnect failed: %v", op, rerr)
		return err
	}
	r.metrics.retry()
	return fn(true)
}

func (r *RecoveringConnection) Exec(ctx context.Context, sql string, binds ...interface{}) (res Result, err error) {
	err = r.withRetry(ctx, "exec", func(bool) error {
		res, err = r.Connection.Exec(ctx, sql, binds...)
		return err
	})
	return res, err
}

func (r *RecoveringConnection) Select(ctx context.Context, sql string, binds ...interface{}) (rs *ResultSet, err error) {
	err = r.withRetry(ctx, "select", func(bool) error {
		rs, err = r.Connection.Select(ctx, sql, binds...)
		return err
	})
	return rs, err
}

func (r *RecoveringConnection) SelectOne(ctx context.Context, sql string, binds ...interface{}) (row Row, err error) {
	err = r.withRetry(ctx, "select", func(bool) error {
		row, err = r.Connection.SelectOne(ctx, sql, binds...)
		return err
	})
	return row, err
}

func (r *RecoveringConnection) Describe(ctx context.Context, name string) (owner, table string, err error) {
	err = r.withRetry(ctx, "describe", func(bool) error {
		owner, table, err = r.Connection.Describe(ctx, name)
		return err
	})
	return owner, table, err
}

func (r *RecoveringConnection) Begin(ctx context.Context) error {
	return r.withRetry(ctx, "begin", func(bool) error {
		return r.Connection.Begin(ctx)
	})
}

func (r *RecoveringConnection) Prepare(ctx context.Context, sql string) (Cursor, error) {
	c := &recoveringCursor{conn: r, sql: sql}
	err := r.withRetry(ctx, "prepare", func(bool) error {
		cur, err := r.Connection.Prepare(ctx, sql)
		c.cur = cur
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Logoff never fails; the session is gone either way.
func (r *RecoveringConnection) Logoff(ctx context.Context) error {
	if err := r.Connection.Logoff(ctx); err != nil {
		r.logger.Info(ctx, "logoff: %v", err)
	}
	return nil
}

type cursorBind struct {
	position int
	name     string
	value    interface{}
}

// recoveringCursor remembers its binds so that after a reconnect the
// statement can be prepared and bound again on the new session.
type recoveringCursor struct {
	conn  *RecoveringConnection
	sql   string
	cur   Cursor
	binds []cursorBind
}

func (c *recoveringCursor) remember(b cursorBind) {
	for i := range c.binds {
		if c.binds[i].position == b.position && c.binds[i].name == b.name {
			c.binds[i] = b
			return
		}
	}
	c.binds = append(c.binds, b)
}

func (c *recoveringCursor) BindParam(position int, value interface{}) error {
	if err := c.cur.BindParam(position, value); err != nil {
		return err
	}
	c.remember(cursorBind{position: position, value: value})
	return nil
}

func (c *recoveringCursor) BindNamed(name string, value interface{}) error {
	if err := c.cur.BindNamed(name, value); err != nil {
		return err
	}
	c.remember(cursorBind{name: name, value: value})
	return nil
}

func (c *recoveringCursor) reprepare(ctx context.Context) error {
	_ = c.cur.Close()
	cur, err := c.conn.Connection.Prepare(ctx, c.sql)
	if err != nil {
		return err
	}
	c.cur = cur
	for _, b := range c.binds {
		if b.name != "" {
			err = cur.BindNamed(b.name, b.value)
		} else {
			err = cur.BindParam(b.position, b.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *recoveringCursor) Exec(ctx context.Context) (rows bool, err error) {
	err = c.conn.withRetry(ctx, "exec", func(retry bool) error {
		if retry {
			if err := c.reprepare(ctx); err != nil {
				return err
			}
		}
		rows, err = c.cur.Exec(ctx)
		return err
	})
	return rows, err
}

func (c *recoveringCursor) ExecUpdate(ctx context.Context) (n int64, err error) {
	err = c.conn.withRetry(ctx, "exec", func(retry bool) error {
		if retry {
			if err := c.reprepare(ctx); err != nil {
				return err
			}
		}
		n, err = c.cur.ExecUpdate(ctx)
		return err
	})
	return n, err
}

// Fetch is not retried: rows already handed out cannot be fetched again.
func (c *recoveringCursor) Fetch(ctx context.Context, opts FetchOptions) (Row, error) {
	return c.cur.Fetch(ctx, opts)
}

func (c *recoveringCursor) Columns() []Column          { return c.cur.Columns() }
func (c *recoveringCursor) ReturningID() (int64, bool) { return c.cur.ReturningID() }
func (c *recoveringCursor) Close() error               { return c.cur.Close() }

