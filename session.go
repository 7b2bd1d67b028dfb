package oracle

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/internal/stmtstore"
	"gorm.io/driver/oracle/logger"
	"gorm.io/driver/oracle/quoting"
)

const pingSQL = "SELECT 1 FROM DUAL"

const currentSchemaSQL = "SELECT SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') FROM DUAL"

// Session is one physical database session pinned for its whole life.
// Every statement, inside a transaction or not, runs on the same
// connection, so session settings and transaction state always apply.
type Session struct {
	dialect Dialect
	cfg     Config
	logger  logger.Interface
	metrics *Metrics
	quoter  *quoting.Quoter

	db    *sql.DB
	ownDB bool
	conn  *sql.Conn
	tx    *sql.Tx

	active     bool
	autocommit bool
	owner      string

	stmts *stmtstore.Store[*cursor]
}

var _ Connection = (*Session)(nil)

// NewSession connects using d. Most callers want Open, which also picks
// the backend and adds recovery.
func NewSession(ctx context.Context, d Dialect, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: logger.Default, metrics: DefaultMetrics}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		dialect: d,
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
		quoter:  quoting.New(cfg.QuotingConfig()),
		owner:   defaultOwner(cfg),
	}
	stmts, err := stmtstore.New[*cursor](cfg.StatementLimit)
	if err != nil {
		return nil, err
	}
	if stmts != nil {
		stmts.OnReleaseError = func(key string, err error) {
			s.logger.Info(context.Background(), "release cursor %q: %v", key, err)
		}
	}
	s.stmts = stmts

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultOwner(cfg Config) string {
	if cfg.Schema != "" {
		return strings.ToUpper(cfg.Schema)
	}
	return strings.ToUpper(cfg.Username)
}

func (s *Session) connect(ctx context.Context) error {
	if name := s.cfg.DataSourceName(); name != "" {
		db, ok := lookupDataSource(name)
		if !ok {
			return errors.Wrapf(ErrArgument, "datasource %q is not registered", name)
		}
		s.db, s.ownDB = db, false
	} else if s.db == nil {
		dsn, err := s.dialect.DSN(s.cfg)
		if err != nil {
			return err
		}
		db, err := sql.Open(s.dialect.DriverName(), dsn)
		if err != nil {
			return errors.Wrap(ErrArgument, err.Error())
		}
		s.db, s.ownDB = db, true
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return s.classify(err)
	}
	for _, stmt := range SessionStatements(s.cfg) {
		begin := time.Now()
		_, err := conn.ExecContext(ctx, stmt)
		s.trace(ctx, begin, stmt, nil, -1, err)
		if err != nil {
			_ = conn.Close()
			return s.classify(err)
		}
	}

	s.conn, s.tx = conn, nil
	s.active, s.autocommit = true, true
	return nil
}

// disconnect drops the physical session. Cleanup errors are logged, the
// first one is returned.
func (s *Session) disconnect(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil {
			s.logger.Info(ctx, "disconnect: %v", err)
			if first == nil {
				first = err
			}
		}
	}

	s.stmts.Purge()
	if s.tx != nil {
		keep(ignoreDone(s.tx.Rollback()))
		s.tx = nil
	}
	if s.conn != nil {
		keep(ignoreDone(s.conn.Close()))
		s.conn = nil
	}
	if s.ownDB && s.db != nil {
		keep(s.db.Close())
		s.db = nil
	}
	s.active, s.autocommit = false, true
	return first
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (s *Session) ensureConn() error {
	if s.conn == nil {
		return &Error{Kind: ErrConnectionLost, Message: "session is not connected"}
	}
	return nil
}

func (s *Session) classify(err error) error {
	err = classify(s.dialect, err)
	if errors.Is(err, ErrConnectionLost) {
		s.active = false
	}
	return err
}

func (s *Session) trace(ctx context.Context, begin time.Time, query string, binds *bindSet, rows int64, err error) {
	s.logger.Trace(ctx, begin, func() (string, int64) {
		if binds == nil {
			return query, rows
		}
		vars, named := binds.logVars()
		if filter, ok := s.logger.(logger.ParamsFilter); ok {
			query, vars = filter.ParamsFilter(ctx, query, vars...)
			if vars == nil {
				named = nil
			}
		}
		return logger.ExplainSQL(query, vars, named), rows
	}, err)
}

func (s *Session) normalize(v interface{}) (quoting.Value, error) {
	value, err := s.quoter.Normalize(v)
	if err != nil {
		return quoting.Value{}, errors.Wrap(ErrArgument, err.Error())
	}
	return value, nil
}

func (s *Session) Exec(ctx context.Context, query string, binds ...interface{}) (Result, error) {
	if len(binds) == 0 && !hasReturning(query) {
		if err := s.ensureConn(); err != nil {
			return Result{}, err
		}
		begin := time.Now()
		res, err := s.conn.ExecContext(ctx, query)
		rows := int64(-1)
		if err == nil {
			if n, rerr := res.RowsAffected(); rerr == nil {
				rows = n
			}
		}
		s.trace(ctx, begin, query, nil, rows, err)
		s.metrics.statement(s.dialect.Name(), statementKind(query))
		if err != nil {
			return Result{}, s.classify(err)
		}
		return Result{RowsAffected: rows}, nil
	}

	c, err := s.prepareWith(ctx, query, binds)
	if err != nil {
		return Result{}, err
	}
	defer c.Close()

	n, err := c.ExecUpdate(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{RowsAffected: n}
	res.ReturningID, res.HasReturning = c.ReturningID()
	return res, nil
}

func (s *Session) Select(ctx context.Context, query string, binds ...interface{}) (*ResultSet, error) {
	c, err := s.prepareWith(ctx, query, binds)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.query(ctx); err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: c.Columns()}
	for {
		row, err := c.Fetch(ctx, DefaultFetchOptions)
		if err == io.EOF {
			return rs, nil
		}
		if err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, row)
	}
}

func (s *Session) SelectOne(ctx context.Context, query string, binds ...interface{}) (Row, error) {
	c, err := s.prepareWith(ctx, query, binds)
	if err != nil {
		return Row{}, err
	}
	defer c.Close()

	if err := c.query(ctx); err != nil {
		return Row{}, err
	}
	row, err := c.Fetch(ctx, DefaultFetchOptions)
	if err == io.EOF {
		return Row{}, errors.Wrap(ErrNotFound, "query returned no rows")
	}
	return row, err
}

func (s *Session) Prepare(ctx context.Context, query string) (Cursor, error) {
	return s.prepare(ctx, query)
}

// prepareWith prepares query and binds args in order. sql.NamedArg values
// are bound by name.
func (s *Session) prepareWith(ctx context.Context, query string, args []interface{}) (*cursor, error) {
	c, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	for i, arg := range args {
		if named, ok := arg.(sql.NamedArg); ok {
			err = c.BindNamed(named.Name, named.Value)
		} else {
			err = c.BindParam(i+1, arg)
		}
		if err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// prepare returns the cached cursor for query when it is free. A cursor
// already in use is left alone and a private one is prepared instead.
func (s *Session) prepare(ctx context.Context, query string) (*cursor, error) {
	if err := s.ensureConn(); err != nil {
		return nil, err
	}
	cached, found := s.stmts.Get(query)
	if found && !cached.inUse {
		cached.reuse()
		return cached, nil
	}

	native := query
	returning := hasReturning(query)
	if returning {
		native = s.dialect.ReturningSQL(query)
	}
	begin := time.Now()
	stmt, err := s.conn.PrepareContext(ctx, native)
	if err != nil {
		s.trace(ctx, begin, native, nil, -1, err)
		return nil, s.classify(err)
	}

	c := &cursor{
		sess:      s,
		sql:       query,
		native:    native,
		kind:      statementKind(query),
		stmt:      stmt,
		returning: returning,
		inUse:     true,
	}
	if s.stmts != nil && !found {
		c.cached = true
		s.stmts.Put(query, c)
	}
	return c, nil
}

func (s *Session) Begin(ctx context.Context) error {
	if err := s.ensureConn(); err != nil {
		return err
	}
	if s.tx != nil {
		return errors.Wrap(ErrInvalidTransaction, "transaction already open")
	}
	// the transaction outlives this call, so it must not die with ctx
	tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return s.classify(err)
	}
	s.tx, s.autocommit = tx, false
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return errors.Wrap(ErrInvalidTransaction, "commit without transaction")
	}
	defer s.endTransaction()
	begin := time.Now()
	err := s.tx.Commit()
	s.trace(ctx, begin, "COMMIT", nil, -1, err)
	return s.classify(err)
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return errors.Wrap(ErrInvalidTransaction, "rollback without transaction")
	}
	defer s.endTransaction()
	begin := time.Now()
	err := s.tx.Rollback()
	s.trace(ctx, begin, "ROLLBACK", nil, -1, err)
	return s.classify(err)
}

func (s *Session) endTransaction() {
	s.tx, s.autocommit = nil, true
}

func (s *Session) Savepoint(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "SAVEPOINT ", name)
}

func (s *Session) RollbackToSavepoint(ctx context.Context, name string) error {
	return s.savepointExec(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

// ReleaseSavepoint only validates name; Oracle releases savepoints at the
// end of the transaction.
func (s *Session) ReleaseSavepoint(ctx context.Context, name string) error {
	return validSavepoint(name)
}

func (s *Session) savepointExec(ctx context.Context, prefix, name string) error {
	if err := validSavepoint(name); err != nil {
		return err
	}
	if s.tx == nil {
		return errors.Wrapf(ErrInvalidTransaction, "savepoint %s outside a transaction", name)
	}
	_, err := s.Exec(ctx, prefix+name)
	return err
}

func validSavepoint(name string) error {
	if !quoting.ValidTableName(name) || strings.ContainsAny(name, ".@") {
		return errors.Wrapf(ErrArgument, "invalid savepoint name %q", name)
	}
	return nil
}

func (s *Session) Ping(ctx context.Context) (bool, error) {
	if s.conn == nil {
		s.active = false
		return false, nil
	}
	begin := time.Now()
	_, err := s.conn.ExecContext(ctx, pingSQL)
	s.trace(ctx, begin, pingSQL, nil, -1, err)
	if err == nil {
		s.active = true
		return true, nil
	}

	err = s.classify(err)
	s.active = false
	if errors.Is(err, ErrConnectionException) {
		return false, err
	}
	s.logger.Info(ctx, "ping failed: %v", err)
	return false, nil
}

func (s *Session) Active() bool     { return s.active }
func (s *Session) Autocommit() bool { return s.autocommit }

// Reconnect drops the physical session, with any open transaction, and
// opens a new one with the same configuration.
func (s *Session) Reconnect(ctx context.Context) error {
	s.logger.Warn(ctx, "reconnecting %s session to %s", s.dialect.Name(), s.target())
	_ = s.disconnect(ctx)
	if err := s.connect(ctx); err != nil {
		return err
	}
	s.metrics.reconnect()
	return nil
}

func (s *Session) target() string {
	if name := s.cfg.DataSourceName(); name != "" {
		return "datasource " + name
	}
	return s.cfg.ConnectDescriptor()
}

func (s *Session) Logoff(ctx context.Context) error {
	return s.disconnect(ctx)
}

func (s *Session) ClearCache() {
	s.stmts.Purge()
}

// Owner is the schema unqualified names resolve in. Without a configured
// schema or username the session is asked once.
func (s *Session) Owner() string {
	if s.owner == "" && s.conn != nil {
		row, err := s.SelectOne(context.Background(), currentSchemaSQL)
		if err == nil && row.Len() == 1 {
			if name, ok := row.Values()[0].Str(); ok {
				s.owner = strings.ToUpper(name)
			}
		}
	}
	return s.owner
}

func (s *Session) Config() Config           { return s.cfg }
func (s *Session) Quoter() *quoting.Quoter  { return s.quoter }
func (s *Session) InlineLOB() bool          { return s.dialect.InlineLOB() }
func (s *Session) DriverName() string       { return s.dialect.Name() }
func (s *Session) Logger() logger.Interface { return s.logger }

func hasReturning(query string) bool {
	return strings.Contains(strings.ToLower(query), ReturningPlaceholder)
}

// statementKind labels a statement by its first keyword.
func statementKind(query string) string {
	q := strings.TrimLeft(query, " \t\r\n(")
	for strings.HasPrefix(q, "--") || strings.HasPrefix(q, "/*") {
		if strings.HasPrefix(q, "--") {
			_, rest, _ := strings.Cut(q, "\n")
			q = rest
		} else {
			_, rest, _ := strings.Cut(q, "*/")
			q = rest
		}
		q = strings.TrimLeft(q, " \t\r\n(")
	}
	word := q
	if i := strings.IndexAny(q, " \t\r\n(;"); i >= 0 {
		word = q[:i]
	}

	switch strings.ToUpper(word) {
	case "SELECT", "WITH":
		return "select"
	case "INSERT", "UPDATE", "DELETE", "MERGE":
		return strings.ToLower(word)
	case "BEGIN", "DECLARE", "CALL":
		return "plsql"
	case "CREATE", "ALTER", "DROP", "TRUNCATE", "GRANT", "REVOKE", "COMMENT", "RENAME":
		return "ddl"
	}
	return "other"
}
