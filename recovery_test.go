package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecovering(t *testing.T, mock sqlmock.Sqlmock, cfg Config) (*RecoveringConnection, *Metrics) {
	t.Helper()
	sess, metrics := newTestSession(t, mock, cfg, fakeDialect{})
	return NewRecoveringConnection(sess, testOptions(metrics)...), metrics
}

func TestRecoveringConnectionRetriesOnce(t *testing.T) {
	mock, cfg := newMock(t)
	conn, metrics := newRecovering(t, mock, cfg)

	update := "UPDATE posts SET views = views + 1"
	mock.ExpectExec(quote(update)).WillReturnError(oraError{3113})
	expectSession(mock, cfg)
	mock.ExpectExec(quote(update)).WillReturnResult(sqlmock.NewResult(0, 4))

	res, err := conn.Exec(context.Background(), update)
	require.NoError(t, err, "the caller never sees the lost connection")
	assert.Equal(t, int64(4), res.RowsAffected)
	assert.True(t, conn.Active())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.retries))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.reconnects))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveringConnectionRetriesOnlyOnce(t *testing.T) {
	mock, cfg := newMock(t)
	conn, metrics := newRecovering(t, mock, cfg)

	update := "UPDATE posts SET views = 0"
	mock.ExpectExec(quote(update)).WillReturnError(oraError{3113})
	expectSession(mock, cfg)
	mock.ExpectExec(quote(update)).WillReturnError(oraError{3114})

	_, err := conn.Exec(context.Background(), update)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.retries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveringConnectionNoRetryInTransaction(t *testing.T) {
	mock, cfg := newMock(t)
	conn, metrics := newRecovering(t, mock, cfg)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(quote("DELETE FROM posts")).WillReturnError(oraError{3113})

	require.NoError(t, conn.Begin(ctx))
	_, err := conn.Exec(ctx, "DELETE FROM posts")
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.False(t, conn.Active())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.retries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveringConnectionRetryDisabled(t *testing.T) {
	t.Run("per call", func(t *testing.T) {
		mock, cfg := newMock(t)
		conn, _ := newRecovering(t, mock, cfg)

		mock.ExpectExec(quote("DELETE FROM posts")).WillReturnError(oraError{3113})
		_, err := conn.Exec(WithRetry(context.Background(), false), "DELETE FROM posts")
		assert.ErrorIs(t, err, ErrConnectionLost)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by configuration", func(t *testing.T) {
		mock, cfg := newMock(t)
		cfg.AutoRetry = false
		conn, _ := newRecovering(t, mock, cfg)

		mock.ExpectExec(quote("DELETE FROM posts")).WillReturnError(oraError{3113})
		_, err := conn.Exec(context.Background(), "DELETE FROM posts")
		assert.ErrorIs(t, err, ErrConnectionLost)

		mock.ExpectExec(quote("DELETE FROM posts")).WillReturnError(oraError{3113})
		expectSession(mock, cfg)
		mock.ExpectExec(quote("DELETE FROM posts")).WillReturnResult(sqlmock.NewResult(0, 0))
		_, err = conn.Exec(WithRetry(context.Background(), true), "DELETE FROM posts")
		assert.NoError(t, err, "the call overrides the configuration")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecoveringConnectionStatementErrorsPassThrough(t *testing.T) {
	mock, cfg := newMock(t)
	conn, metrics := newRecovering(t, mock, cfg)

	mock.ExpectExec(quote("DELETE FROM missing")).WillReturnError(oraError{942})
	_, err := conn.Exec(context.Background(), "DELETE FROM missing")
	assert.ErrorIs(t, err, ErrStatement)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.reconnects))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveringConnectionReconnectFails(t *testing.T) {
	mock, cfg := newMock(t)
	conn, _ := newRecovering(t, mock, cfg)

	mock.ExpectExec(quote("DELETE FROM posts")).WillReturnError(oraError{3113})
	mock.ExpectExec(quote(SessionStatements(cfg)[0])).WillReturnError(oraError{12541})

	_, err := conn.Exec(context.Background(), "DELETE FROM posts")
	var oraErr *Error
	require.True(t, errors.As(err, &oraErr))
	assert.Equal(t, 3113, oraErr.Code, "the original error is returned")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveringCursorReplaysBinds(t *testing.T) {
	mock, cfg := newMock(t)
	conn, _ := newRecovering(t, mock, cfg)
	ctx := context.Background()

	update := "UPDATE posts SET title = :1 WHERE id = :2"
	mock.ExpectPrepare(quote(update))
	mock.ExpectExec(quote(update)).WithArgs("new", int64(5)).WillReturnError(oraError{3135})
	expectSession(mock, cfg)
	mock.ExpectPrepare(quote(update))
	mock.ExpectExec(quote(update)).WithArgs("new", int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	cur, err := conn.Prepare(ctx, update)
	require.NoError(t, err)
	defer cur.Close()
	require.NoError(t, cur.BindParam(1, "old"))
	require.NoError(t, cur.BindParam(1, "new"))
	require.NoError(t, cur.BindParam(2, 5))

	n, err := cur.ExecUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoveringConnectionLogoffSwallowsErrors(t *testing.T) {
	conn := NewRecoveringConnection(failingLogoff{}, testOptions(nil)...)
	assert.NoError(t, conn.Logoff(context.Background()))
}

type failingLogoff struct {
	Connection
}

func (failingLogoff) Logoff(context.Context) error {
	return &Error{Kind: ErrConnectionLost, Message: "already gone"}
}
