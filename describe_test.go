package oracle

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeRows(owner, name string, link interface{}, priority int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"owner", "table_name", "db_link", "priority"}).
		AddRow(owner, name, link, priority)
}

func describeArgs(owner, name string) []driver.Value {
	return []driver.Value{owner, name, owner, name, owner, name, name}
}

func TestDescribeTable(t *testing.T) {
	mock, cfg := newMock(t)
	sess, _ := newTestSession(t, mock, cfg, fakeDialect{})

	mock.ExpectPrepare(quote(describeSQL)).ExpectQuery().
		WithArgs(describeArgs("SCOTT", "POSTS")...).
		WillReturnRows(describeRows("SCOTT", "POSTS", nil, 1))

	owner, name, err := sess.Describe(context.Background(), "posts")
	require.NoError(t, err)
	assert.Equal(t, "SCOTT", owner)
	assert.Equal(t, "POSTS", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeFollowsSynonym(t *testing.T) {
	mock, cfg := newMock(t)
	sess, _ := newTestSession(t, mock, cfg, fakeDialect{})

	mock.ExpectPrepare(quote(describeSQL)).ExpectQuery().
		WithArgs(describeArgs("APP", "STAFF")...).
		WillReturnRows(describeRows("HR", "EMPLOYEES", nil, 3))
	mock.ExpectQuery(quote(describeSQL)).
		WithArgs(describeArgs("HR", "EMPLOYEES")...).
		WillReturnRows(describeRows("HR", "EMPLOYEES", nil, 1))

	owner, name, err := sess.Describe(context.Background(), "app.staff")
	require.NoError(t, err)
	assert.Equal(t, "HR", owner)
	assert.Equal(t, "EMPLOYEES", name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeKeepsQuotedCase(t *testing.T) {
	mock, cfg := newMock(t)
	sess, _ := newTestSession(t, mock, cfg, fakeDialect{})

	mock.ExpectPrepare(quote(describeSQL)).ExpectQuery().
		WithArgs(describeArgs("SCOTT", "MixedCase")...).
		WillReturnRows(describeRows("SCOTT", "MixedCase", nil, 2))

	_, name, err := sess.Describe(context.Background(), `"MixedCase"`)
	require.NoError(t, err)
	assert.Equal(t, "MixedCase", name)
}

func TestDescribeNotFound(t *testing.T) {
	mock, cfg := newMock(t)
	sess, _ := newTestSession(t, mock, cfg, fakeDialect{})

	mock.ExpectPrepare(quote(describeSQL)).ExpectQuery().
		WithArgs(describeArgs("SCOTT", "NOPE")...).
		WillReturnRows(sqlmock.NewRows([]string{"owner", "table_name", "db_link", "priority"}))

	_, _, err := sess.Describe(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDescribeRejectsDatabaseLinks(t *testing.T) {
	mock, cfg := newMock(t)
	sess, _ := newTestSession(t, mock, cfg, fakeDialect{})
	ctx := context.Background()

	_, _, err := sess.Describe(ctx, "posts@remote")
	assert.ErrorIs(t, err, ErrArgument)

	mock.ExpectPrepare(quote(describeSQL)).ExpectQuery().
		WithArgs(describeArgs("SCOTT", "REMOTE_POSTS")...).
		WillReturnRows(describeRows("BLOG", "POSTS", "remote.example", 4))
	_, _, err = sess.Describe(ctx, "remote_posts")
	assert.ErrorIs(t, err, ErrArgument)

	_, _, err = sess.Describe(ctx, " ")
	assert.ErrorIs(t, err, ErrArgument)
}

func TestDescribeSynonymCycle(t *testing.T) {
	mock, cfg := newMock(t)
	sess, _ := newTestSession(t, mock, cfg, fakeDialect{})

	mock.ExpectPrepare(quote(describeSQL)).ExpectQuery().
		WithArgs(describeArgs("SCOTT", "LOOP")...).
		WillReturnRows(describeRows("SCOTT", "LOOP", nil, 3))
	for i := 0; i < maxSynonymDepth; i++ {
		mock.ExpectQuery(quote(describeSQL)).
			WithArgs(describeArgs("SCOTT", "LOOP")...).
			WillReturnRows(describeRows("SCOTT", "LOOP", nil, 3))
	}

	_, _, err := sess.Describe(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitObjectName(t *testing.T) {
	tests := []struct {
		in, owner, table string
	}{
		{"posts", "", "POSTS"},
		{"blog.posts", "BLOG", "POSTS"},
		{"BLOG.POSTS", "BLOG", "POSTS"},
		{`"Blog"."Posts"`, "Blog", "Posts"},
		{`"Posts"`, "", "Posts"},
	}
	for _, tt := range tests {
		owner, table := splitObjectName(tt.in)
		assert.Equal(t, tt.owner, owner, tt.in)
		assert.Equal(t, tt.table, table, tt.in)
	}
}
