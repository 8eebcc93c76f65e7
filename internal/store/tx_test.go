package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/mattn/go-sqlite3"
)

func setupTxDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE records (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	return db
}

func countRecords(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func TestTxManager_Commit(t *testing.T) {
	db := setupTxDB(t)
	mgr := NewTxManager(db)

	err := mgr.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO records (name) VALUES ('a')`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if n := countRecords(t, db); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db := setupTxDB(t)
	mgr := NewTxManager(db)
	boom := errors.New("boom")

	err := mgr.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO records (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := countRecords(t, db); n != 0 {
		t.Errorf("expected rollback, got %d records", n)
	}
}

func TestTxManager_RollbackOnPanic(t *testing.T) {
	db := setupTxDB(t)
	mgr := NewTxManager(db)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = mgr.WithTx(context.Background(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO records (name) VALUES ('a')`); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if n := countRecords(t, db); n != 0 {
		t.Errorf("expected rollback after panic, got %d records", n)
	}
}

func TestTxManager_RetriesSerializationFailure(t *testing.T) {
	db := setupTxDB(t)
	mgr := NewTxManager(db).WithRetryConfig(RetryConfig{MaxRetries: 3, BaseBackoff: time.Millisecond})

	attempts := 0
	err := mgr.WithTx(context.Background(), func(tx *sql.Tx) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: codeSerializationFailure}
		}
		_, err := tx.Exec(`INSERT INTO records (name) VALUES ('a')`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if n := countRecords(t, db); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestTxManager_GivesUpAfterMaxRetries(t *testing.T) {
	db := setupTxDB(t)
	mgr := NewTxManager(db).WithRetryConfig(RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond})

	attempts := 0
	err := mgr.WithTx(context.Background(), func(tx *sql.Tx) error {
		attempts++
		return &pgconn.PgError{Code: codeDeadlockDetected}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
