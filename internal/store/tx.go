package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryConfig configures how often a transaction is re-run after a
// serialization failure or deadlock.
type RetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseBackoff: 50 * time.Millisecond}
}

// TxManager runs functions inside database transactions
type TxManager struct {
	db    *sql.DB
	retry RetryConfig
}

// NewTxManager creates a transaction manager with the default retry policy
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db, retry: DefaultRetryConfig()}
}

// WithRetryConfig replaces the retry policy
func (m *TxManager) WithRetryConfig(cfg RetryConfig) *TxManager {
	m.retry = cfg
	return m
}

// WithTx executes fn within a transaction. It commits when fn returns nil and
// rolls back on error or panic. Serialization failures are retried with
// exponential backoff.
func (m *TxManager) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= m.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := m.retry.BaseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return fmt.Errorf("transaction cancelled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		err := m.run(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("transaction failed after %d retries: %w", m.retry.MaxRetries, lastErr)
}

func (m *TxManager) run(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}
