package commands

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumate-app/resumate/internal/store/migrate"
)

const selectApplied = "SELECT version, name, applied_at, down_sql FROM schema_migrations ORDER BY version ASC"

func TestCategorizeDatabaseError(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{`syntax error at or near "CREAT"`, "SQL syntax error"},
		{`insert violates foreign key constraint`, "constraint violation"},
		{`relation "users" does not exist`, "referenced object does not exist"},
		{`relation "users" already exists`, "object already exists"},
		{`permission denied for schema public`, "permission denied"},
		{`dial tcp 127.0.0.1:5432: connect: connection refused`, "cannot reach the database"},
		{`something odd`, "migration failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := categorizeDatabaseError(errors.New(tt.err), false)
			assert.True(t, strings.HasPrefix(got, tt.want), got)
		})
	}

	assert.Equal(t, "raw detail", categorizeDatabaseError(errors.New("raw detail"), true))
}

func newMockRunner(t *testing.T) (*migrate.Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return migrate.NewRunner(db, nil), mock
}

func TestRunMigrateStatus(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	r, mock := newMockRunner(t)
	applied := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}).
			AddRow(int64(1), "create_users", applied, "DROP TABLE users")
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).WillReturnRows(rows())
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).WillReturnRows(rows())

	all := []*migrate.Migration{
		{Version: 1, Name: "create_users", Up: "CREATE TABLE users ()"},
		{Version: 2, Name: "create_resumes", Up: "CREATE TABLE resumes ()"},
	}

	var out bytes.Buffer
	require.NoError(t, runMigrateStatus(context.Background(), &out, r, all))

	text := out.String()
	assert.Contains(t, text, "create_users")
	assert.Contains(t, text, "2026-03-01 12:00:00")
	assert.Contains(t, text, "create_resumes")
	assert.Contains(t, text, "pending")
	assert.Contains(t, text, "Total: 2 migrations (1 applied, 1 pending)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrateUp(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	r, mock := newMockRunner(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE users ()")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(int64(1), "create_users", "DROP TABLE users").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	all := []*migrate.Migration{{Version: 1, Name: "create_users", Up: "CREATE TABLE users ()", Down: "DROP TABLE users"}}

	var out bytes.Buffer
	require.NoError(t, runMigrateUp(context.Background(), &out, r, all))
	assert.Contains(t, out.String(), "✓ Applied 1 migration(s)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrateUp_NothingPending(t *testing.T) {
	r, mock := newMockRunner(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectApplied)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}).
			AddRow(int64(1), "create_users", time.Now(), "DROP TABLE users"))

	all := []*migrate.Migration{{Version: 1, Name: "create_users", Up: "CREATE TABLE users ()"}}

	var out bytes.Buffer
	require.NoError(t, runMigrateUp(context.Background(), &out, r, all))
	assert.Equal(t, "No pending migrations\n", out.String())
}

func TestRunMigrateDown_Empty(t *testing.T) {
	r, mock := newMockRunner(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at", "down_sql"}))

	var out bytes.Buffer
	require.NoError(t, runMigrateDown(context.Background(), &out, r, nil))
	assert.Equal(t, "No migrations to rollback\n", out.String())
}
