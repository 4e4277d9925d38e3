package sqlstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/preload/backend"
	"github.com/syssam/preload/backend/sqlstore"
	"github.com/syssam/preload/schema"
)

func entityType(t *testing.T, name string) *schema.Type {
	t.Helper()
	s := schema.New().MustRegister(schema.NewType(name))
	typ, ok := s.Type(name)
	require.True(t, ok)
	return typ
}

func TestFetchFiltered(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlstore.SQLite, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tasks WHERE project_id IN (?, ?) ORDER BY id")).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id"}).
			AddRow(10, 1).
			AddRow(11, 2))

	rows, err := store.Fetch(context.Background(), backend.FetchRequest{
		Type:      entityType(t, "Task"),
		KeyColumn: "project_id",
		Keys:      []any{1, 2},
		OrderBy:   []string{"id"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 10, rows[0]["id"])
	assert.EqualValues(t, 2, rows[1]["project_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchUnfiltered(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlstore.SQLite, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tasks")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	rows, err := store.Fetch(context.Background(), backend.FetchRequest{
		Type: entityType(t, "Task"),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchPostgresPlaceholders(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlstore.Postgres, db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tasks WHERE project_id IN ($1, $2, $3)")).
		WithArgs(1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.Fetch(context.Background(), backend.FetchRequest{
		Type:      entityType(t, "Task"),
		KeyColumn: "project_id",
		Keys:      []any{1, 2, 3},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchBytesToString(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlstore.MySQL, db)

	// MySQL returns text columns as []byte and reuses the buffers.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tasks")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(1, []byte("wire checkout")))

	rows, err := store.Fetch(context.Background(), backend.FetchRequest{
		Type: entityType(t, "Task"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "wire checkout", rows[0]["title"])
}

func TestFetchBackendError(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlstore.SQLite, db)

	cause := errors.New("disk I/O error")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM tasks")).WillReturnError(cause)

	_, err = store.Fetch(context.Background(), backend.FetchRequest{
		Type: entityType(t, "Task"),
	})
	assert.ErrorIs(t, err, cause)
}

func TestFetchInvalidIdentifiers(t *testing.T) {
	t.Parallel()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := sqlstore.New(sqlstore.SQLite, db)
	ctx := context.Background()

	t.Run("table", func(t *testing.T) {
		typ := entityType(t, "Task")
		typ.Table = "tasks; DROP TABLE tasks"
		_, err := store.Fetch(ctx, backend.FetchRequest{Type: typ})
		assert.ErrorContains(t, err, "invalid table name")
	})

	t.Run("key_column", func(t *testing.T) {
		_, err := store.Fetch(ctx, backend.FetchRequest{
			Type:      entityType(t, "Task"),
			KeyColumn: "project_id OR 1=1",
			Keys:      []any{1},
		})
		assert.ErrorContains(t, err, "invalid column name")
	})

	t.Run("order_column", func(t *testing.T) {
		_, err := store.Fetch(ctx, backend.FetchRequest{
			Type:    entityType(t, "Task"),
			OrderBy: []string{"id--"},
		})
		assert.ErrorContains(t, err, "invalid order column")
	})
}
