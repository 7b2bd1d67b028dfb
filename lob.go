package oracle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"gorm.io/driver/oracle/logger"
	"gorm.io/driver/oracle/quoting"
)

// StagingState is where a LOBCoordinator is in writing one row.
type StagingState int

const (
	// NotNeeded no LOB write is outstanding.
	NotNeeded StagingState = iota
	// PendingWrite the row is stored but its LOB columns are not.
	PendingWrite
	// Written every changed LOB column holds its full payload.
	Written
)

func (s StagingState) String() string {
	switch s {
	case NotNeeded:
		return "not_needed"
	case PendingWrite:
		return "pending_write"
	case Written:
		return "written"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LOBWrite is the LOB part of storing one row: the row's key and the LOB
// columns that changed, with their new values.
type LOBWrite struct {
	Table   string
	Key     map[string]interface{}
	Columns map[string]quoting.Value
}

// LOBCoordinator writes LOB columns in a second step on backends that
// cannot bind LOB payloads in the statement that stores the row. Each
// column is reset to an empty LOB, filled chunk by chunk through a locator
// selected FOR UPDATE, and its length checked against the payload. On
// backends that bind LOBs inline, Persist updates each column with its
// payload in one statement. Any failure rolls the write back and is
// returned as ErrLOBStaging.
type LOBCoordinator struct {
	conn         Connection
	logger       logger.Interface
	metrics      *Metrics
	state        StagingState
	onTransition func(from, to StagingState)
}

func NewLOBCoordinator(conn Connection, opts ...Option) *LOBCoordinator {
	o := options{logger: logger.Default, metrics: DefaultMetrics}
	for _, opt := range opts {
		opt(&o)
	}
	return &LOBCoordinator{conn: conn, logger: o.logger, metrics: o.metrics}
}

// OnTransition registers fn to be called on every state change.
func (c *LOBCoordinator) OnTransition(fn func(from, to StagingState)) {
	c.onTransition = fn
}

func (c *LOBCoordinator) State() StagingState {
	return c.state
}

func (c *LOBCoordinator) transition(to StagingState) {
	from := c.state
	c.state = to
	if c.onTransition != nil && from != to {
		c.onTransition(from, to)
	}
}

// Needed reports whether w has to be staged after the row is stored.
func (c *LOBCoordinator) Needed(w LOBWrite) bool {
	return !c.conn.InlineLOB() && len(w.Columns) > 0
}

// Save runs the statement that stores the row and stages w in the same
// transaction. When staging is not needed the statement runs alone and
// binds are expected to carry the LOB values.
func (c *LOBCoordinator) Save(ctx context.Context, query string, binds []interface{}, w LOBWrite) (Result, error) {
	if !c.Needed(w) {
		return c.conn.Exec(ctx, query, binds...)
	}

	var res Result
	err := c.inTransaction(ctx, func() error {
		var err error
		if res, err = c.conn.Exec(ctx, query, binds...); err != nil {
			return err
		}
		return c.stage(ctx, w)
	})
	return res, err
}

// Persist writes the LOB columns of w for a row that is already stored.
func (c *LOBCoordinator) Persist(ctx context.Context, w LOBWrite) error {
	if len(w.Columns) == 0 {
		return nil
	}
	return c.inTransaction(ctx, func() error {
		return c.stage(ctx, w)
	})
}

// inTransaction opens a transaction unless the caller already holds one,
// in which case the caller decides about commit and rollback.
func (c *LOBCoordinator) inTransaction(ctx context.Context, fn func() error) error {
	own := c.conn.Autocommit()
	if own {
		if err := c.conn.Begin(ctx); err != nil {
			return err
		}
	}

	err := fn()
	if err == nil && own {
		err = c.conn.Commit(ctx)
	}
	if err != nil {
		if own && !c.conn.Autocommit() {
			if rerr := c.conn.Rollback(ctx); rerr != nil {
				c.logger.Info(ctx, "rollback after failed LOB write: %v", rerr)
			}
		}
		c.transition(NotNeeded)
		return c.stagingError(err)
	}
	return nil
}

func (c *LOBCoordinator) stagingError(err error) error {
	var staged *Error
	if errors.As(err, &staged) && staged.Kind == ErrLOBStaging {
		return err
	}
	return &Error{Kind: ErrLOBStaging, Code: oraCode(err), Message: err.Error(), Err: err}
}

func oraCode(err error) int {
	code, _ := logger.OraCode(err)
	return code
}

func (c *LOBCoordinator) stage(ctx context.Context, w LOBWrite) error {
	if w.Table == "" || len(w.Key) == 0 {
		return errors.Wrap(ErrArgument, "LOB write needs a table and a key")
	}
	c.transition(PendingWrite)

	// inline writes bind the payload as :1, ahead of the key
	inline := c.conn.InlineLOB()
	first := 1
	if inline {
		first = 2
	}
	q := c.conn.Quoter()
	table := q.QuoteTableName(w.Table)
	where, keyArgs := keyCondition(q, w.Key, first)
	for _, column := range sortedKeys(w.Columns) {
		write := c.stageColumn
		if inline {
			write = c.writeInline
		}
		if err := write(ctx, table, q.QuoteColumnName(column), where, keyArgs, w.Columns[column]); err != nil {
			return errors.Wrapf(err, "%s.%s", w.Table, column)
		}
	}

	c.transition(Written)
	c.transition(NotNeeded)
	return nil
}

func (c *LOBCoordinator) writeInline(ctx context.Context, table, column, where string, keyArgs []interface{}, v quoting.Value) error {
	v, err := v.Materialize()
	if err != nil {
		return err
	}
	args := append([]interface{}{v}, keyArgs...)
	res, err := c.conn.Exec(ctx, "UPDATE "+table+" SET "+column+" = :1 WHERE "+where, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected != 1 {
		return errors.Errorf("expected 1 row for key, found %d", res.RowsAffected)
	}
	c.metrics.lobStaged(payloadBytes(v))
	return nil
}

func (c *LOBCoordinator) stageColumn(ctx context.Context, table, column, where string, keyArgs []interface{}, v quoting.Value) error {
	v, err := v.Materialize()
	if err != nil {
		return err
	}
	clob := isCharacterLOB(v)

	empty := "EMPTY_BLOB()"
	if v.IsNull() {
		empty = "NULL"
	} else if clob {
		empty = "EMPTY_CLOB()"
	}
	res, err := c.conn.Exec(ctx, "UPDATE "+table+" SET "+column+" = "+empty+" WHERE "+where, keyArgs...)
	if err != nil {
		return err
	}
	if res.RowsAffected != 1 {
		return errors.Errorf("expected 1 row for key, found %d", res.RowsAffected)
	}
	if v.IsNull() {
		return nil
	}

	if err := c.writeChunks(ctx, table, column, where, keyArgs, v, clob); err != nil {
		return err
	}
	return c.verify(ctx, table, column, where, keyArgs, v)
}

func (c *LOBCoordinator) writeChunks(ctx context.Context, table, column, where string, keyArgs []interface{}, v quoting.Value, clob bool) error {
	chunkSize := c.conn.Config().LOBChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultLOBChunkSize
	}

	var chunks []quoting.Value
	if clob {
		s, _ := v.Str()
		for _, part := range splitRunes(s, chunkSize) {
			chunks = append(chunks, quoting.String(part))
		}
	} else {
		b, _ := v.Bytes()
		for len(b) > 0 {
			n := min(chunkSize, len(b))
			chunks = append(chunks, quoting.Raw(b[:n]))
			b = b[n:]
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	cur, err := c.conn.Prepare(ctx, appendSQL(table, column, where, len(keyArgs), clob))
	if err != nil {
		return err
	}
	defer cur.Close()

	for _, chunk := range chunks {
		for i, arg := range keyArgs {
			if err := cur.BindParam(i+1, arg); err != nil {
				return err
			}
		}
		if err := cur.BindParam(len(keyArgs)+1, int64(lobLength(chunk))); err != nil {
			return err
		}
		if err := cur.BindParam(len(keyArgs)+2, chunk); err != nil {
			return err
		}
		if _, err := cur.ExecUpdate(ctx); err != nil {
			return err
		}
		c.metrics.lobStaged(payloadBytes(chunk))
	}
	return nil
}

// appendSQL selects the locator FOR UPDATE and appends one chunk to it. The
// amount is bound after the key and the chunk last.
func appendSQL(table, column, where string, keys int, clob bool) string {
	lobType := "BLOB"
	if clob {
		lobType = "CLOB"
	}
	return fmt.Sprintf("DECLARE l %s; BEGIN SELECT %s INTO l FROM %s WHERE %s FOR UPDATE; DBMS_LOB.WRITEAPPEND(l, :%d, :%d); END;",
		lobType, column, table, where, keys+1, keys+2)
}

// lobLength is the length Oracle gives v as a LOB: UTF-16 code units for
// character data, so a rune outside the BMP counts twice, and bytes
// otherwise.
func lobLength(v quoting.Value) int {
	s, ok := v.Str()
	if !ok {
		return v.Len()
	}
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func payloadBytes(v quoting.Value) int {
	if s, ok := v.Str(); ok {
		return len(s)
	}
	return v.Len()
}

func (c *LOBCoordinator) verify(ctx context.Context, table, column, where string, keyArgs []interface{}, v quoting.Value) error {
	row, err := c.conn.SelectOne(ctx, "SELECT DBMS_LOB.GETLENGTH("+column+") FROM "+table+" WHERE "+where, keyArgs...)
	if err != nil {
		return err
	}
	got, ok := rowInt(row.Values()[0])
	if want := int64(lobLength(v)); !ok || got != want {
		return errors.Errorf("stored length %s, want %d", row.Values()[0], want)
	}
	return nil
}

func isCharacterLOB(v quoting.Value) bool {
	switch v.Kind() {
	case quoting.KindCLOB, quoting.KindString:
		return true
	case quoting.KindNull:
		return v.NullType() != quoting.WireBLOB
	}
	return false
}

// keyCondition renders "COL1" = :first AND "COL2" = :first+1 with columns
// sorted.
func keyCondition(q *quoting.Quoter, key map[string]interface{}, first int) (string, []interface{}) {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)

	conds := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		conds[i] = fmt.Sprintf("%s = :%d", q.QuoteColumnName(name), first+i)
		args[i] = key[name]
	}
	return strings.Join(conds, " AND "), args
}

// splitRunes cuts s into pieces of at most size bytes without splitting a
// multi-byte character.
func splitRunes(s string, size int) []string {
	var parts []string
	for len(s) > 0 {
		if len(s) <= size {
			parts = append(parts, s)
			break
		}
		n := size
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		if n == 0 {
			_, n = utf8.DecodeRuneInString(s)
		}
		parts = append(parts, s[:n])
		s = s[n:]
	}
	return parts
}

// ChangedLOBColumns returns, sorted, the LOB columns of after whose value
// differs from before.
func ChangedLOBColumns(before, after map[string]quoting.Value) []string {
	var changed []string
	for name, v := range after {
		old, ok := before[name]
		if !isLOBValue(v) && !(ok && isLOBValue(old)) {
			continue
		}
		if !ok || !old.Equal(v) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

func isLOBValue(v quoting.Value) bool {
	if v.IsNull() {
		return v.NullType() == quoting.WireCLOB || v.NullType() == quoting.WireBLOB
	}
	return v.Kind().IsLOB()
}

func sortedKeys(m map[string]quoting.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
