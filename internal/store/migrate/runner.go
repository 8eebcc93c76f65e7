package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNothingToRollback is returned by MigrateDown on an empty history
var ErrNothingToRollback = errors.New("no migrations to rollback")

// Runner executes migrations, each in its own transaction
type Runner struct {
	db      *sql.DB
	tracker *Tracker
	logger  *zap.Logger
}

// NewRunner creates a new migration runner
func NewRunner(db *sql.DB, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{db: db, tracker: NewTracker(db), logger: logger}
}

// Initialize sets up the migration tracking table
func (r *Runner) Initialize(ctx context.Context) error {
	return r.tracker.Initialize(ctx)
}

// MigrateUp applies all pending migrations and returns how many ran
func (r *Runner) MigrateUp(ctx context.Context, migrations []*Migration) (int, error) {
	pending, err := r.tracker.GetPending(ctx, migrations)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	for i, m := range pending {
		start := time.Now()
		if err := r.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
			return r.tracker.Record(ctx, tx, m)
		}); err != nil {
			return i, fmt.Errorf("migration %d_%s failed: %w", m.Version, m.Name, err)
		}
		r.logger.Info("applied migration",
			zap.Int64("version", m.Version),
			zap.String("name", m.Name),
			zap.Duration("took", time.Since(start)))
	}
	return len(pending), nil
}

// MigrateDown rolls back the last applied migration
func (r *Runner) MigrateDown(ctx context.Context) (*Migration, error) {
	last, err := r.tracker.GetLast(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrNothingToRollback
	}
	if last.Down == "" {
		return nil, fmt.Errorf("migration %d_%s has no down migration", last.Version, last.Name)
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, last.Down); err != nil {
			return fmt.Errorf("failed to execute rollback SQL: %w", err)
		}
		return r.tracker.Remove(ctx, tx, last.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("rollback of %d_%s failed: %w", last.Version, last.Name, err)
	}

	r.logger.Info("rolled back migration", zap.Int64("version", last.Version), zap.String("name", last.Name))
	return last, nil
}

// Status returns the current migration status
func (r *Runner) Status(ctx context.Context, all []*Migration) (*Status, error) {
	applied, err := r.tracker.GetApplied(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.tracker.GetPending(ctx, all)
	if err != nil {
		return nil, err
	}
	return &Status{Total: len(all), Applied: applied, Pending: pending}, nil
}

func (r *Runner) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Warn("failed to rollback migration transaction", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Status represents the current state of migrations
type Status struct {
	Total   int
	Applied []*Migration
	Pending []*Migration
}

// Summary returns a human-readable summary
func (s *Status) Summary() string {
	return fmt.Sprintf("Total: %d migrations (%d applied, %d pending)", s.Total, len(s.Applied), len(s.Pending))
}
