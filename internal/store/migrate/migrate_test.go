package migrate

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectApplied = "SELECT version, name, applied_at, down_sql FROM schema_migrations ORDER BY version ASC"

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_index.up.sql":  {Data: []byte("CREATE INDEX i ON t(x);")},
		"0001_create_t.up.sql":   {Data: []byte("CREATE TABLE t (x INT);")},
		"0001_create_t.down.sql": {Data: []byte("DROP TABLE t;")},
		"README.md":              {Data: []byte("ignored")},
	}

	migrations, err := Load(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "create_t", migrations[0].Name)
	assert.Equal(t, "DROP TABLE t;", migrations[0].Down)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Empty(t, migrations[1].Down)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"down without up", fstest.MapFS{"0001_x.down.sql": {Data: []byte("DROP")}}},
		{"bad suffix", fstest.MapFS{"0001_x.sql": {Data: []byte("X")}}},
		{"bad version", fstest.MapFS{"abc_x.up.sql": {Data: []byte("X")}}},
		{"no name", fstest.MapFS{"0001.up.sql": {Data: []byte("X")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestEmbedded(t *testing.T) {
	migrations, err := Embedded()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for _, m := range migrations {
		assert.NotEmpty(t, m.Up, "migration %d", m.Version)
		assert.NotEmpty(t, m.Down, "migration %d", m.Version)
	}
	assert.Contains(t, migrations[0].Up, "CREATE TABLE users")
}

func TestRunner_MigrateUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	all := []*Migration{
		{Version: 1, Name: "first", Up: "CREATE TABLE a (id INT)", Down: "DROP TABLE a"},
		{Version: 2, Name: "second", Up: "CREATE TABLE b (id INT)", Down: "DROP TABLE b"},
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}).
			AddRow(int64(1), "first", time.Now(), "DROP TABLE a"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs(int64(2), "second", "DROP TABLE b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewRunner(db, nil).MigrateUp(context.Background(), all)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_MigrateUpRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE broken").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	n, err := NewRunner(db, nil).MigrateUp(context.Background(), []*Migration{
		{Version: 1, Name: "broken", Up: "CREATE TABLE broken"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1_broken")
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_MigrateDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("ORDER BY version DESC LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}).
			AddRow(int64(2), "second", time.Now(), "DROP TABLE b"))
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schema_migrations WHERE version = $1")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	m, err := NewRunner(db, nil).MigrateDown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", m.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_MigrateDownEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("ORDER BY version DESC LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}))

	_, err = NewRunner(db, nil).MigrateDown(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRollback)
}

func TestRunner_Status(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}).
			AddRow(int64(1), "first", time.Now(), nil)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).WillReturnRows(rows())
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).WillReturnRows(rows())

	status, err := NewRunner(db, nil).Status(context.Background(), []*Migration{
		{Version: 1, Name: "first", Up: "x"},
		{Version: 2, Name: "second", Up: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Total: 2 migrations (1 applied, 1 pending)", status.Summary())
	assert.Equal(t, int64(2), status.Pending[0].Version)
}
