package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoJobs is returned by Dequeue when nothing is runnable
var ErrNoJobs = errors.New("no jobs available")

const jobColumns = `id, queue, type, payload, status, priority, attempts, max_attempts,
	error, created_at, run_at, started_at, completed_at, locked_by, locked_at`

// Queue provides PostgreSQL-backed job queue operations
type Queue struct {
	db  *sql.DB
	now func() time.Time
}

// NewQueue creates a new job queue with PostgreSQL backing
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, queue, type, payload, status, priority,
			attempts, max_attempts, created_at, run_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Queue, job.Type, []byte(job.Payload), job.Status, job.Priority,
		job.Attempts, job.MaxAttempts, job.CreatedAt, job.RunAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var (
		job     Job
		payload []byte
	)
	err := row.Scan(
		&job.ID, &job.Queue, &job.Type, &payload, &job.Status, &job.Priority,
		&job.Attempts, &job.MaxAttempts, &job.Error, &job.CreatedAt, &job.RunAt,
		&job.StartedAt, &job.CompletedAt, &job.LockedBy, &job.LockedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Payload = payload
	return &job, nil
}

// Dequeue retrieves and locks the next available job for processing.
// Returns ErrNoJobs when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context, workerID string, queueName string) (*Job, error) {
	// SKIP LOCKED lets concurrent workers claim different rows
	query := `
		UPDATE jobs
		SET status = $1, locked_by = $2, locked_at = $3, started_at = $3, attempts = attempts + 1
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $4 AND queue = $5 AND run_at <= $3
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := scanJob(q.db.QueryRowContext(ctx, query,
		JobStatusRunning, workerID, q.now(), JobStatusPending, queueName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJobs
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return job, nil
}

// Complete marks a job as successfully completed
func (q *Queue) Complete(ctx context.Context, jobID uuid.UUID) error {
	return q.finish(ctx, jobID, JobStatusCompleted, nil)
}

// Fail marks a job as permanently failed with an error message
func (q *Queue) Fail(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	return q.finish(ctx, jobID, JobStatusFailed, &errMsg)
}

func (q *Queue) finish(ctx context.Context, jobID uuid.UUID, status JobStatus, errMsg *string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, error = $2, completed_at = $3, locked_by = NULL, locked_at = NULL
		WHERE id = $4`,
		status, errMsg, q.now(), jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s: %w", status, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}

// Retry puts a job back in the queue to run at runAt, keeping the last
// error for inspection.
func (q *Queue) Retry(ctx context.Context, jobID uuid.UUID, runAt time.Time, errMsg string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, run_at = $2, error = $3, locked_by = NULL, locked_at = NULL
		WHERE id = $4 AND attempts < max_attempts`,
		JobStatusPending, runAt, errMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to retry job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job not found or exceeded max attempts: %s", jobID)
	}
	return nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job, err := scanJob(q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// PurgeCompleted removes completed jobs older than the specified duration
func (q *Queue) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status = $1 AND completed_at < $2`,
		JobStatusCompleted, q.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// QueueStats holds statistics for a job queue
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Running   int    `json:"running"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// GetQueueStats returns statistics for a queue
func (q *Queue) GetQueueStats(ctx context.Context, queueName string) (*QueueStats, error) {
	stats := QueueStats{Queue: queueName}
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COUNT(*) FILTER (WHERE status = $5)
		FROM jobs
		WHERE queue = $1`,
		queueName, JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed,
	).Scan(&stats.Pending, &stats.Running, &stats.Completed, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return &stats, nil
}
