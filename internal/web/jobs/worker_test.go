package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestJob(jobType string, attempts int) *Job {
	return &Job{
		ID:          uuid.New(),
		Queue:       "default",
		Type:        jobType,
		Payload:     []byte(`{}`),
		Status:      JobStatusRunning,
		Attempts:    attempts,
		MaxAttempts: 3,
	}
}

func TestWorkerPool_ProcessSuccess(t *testing.T) {
	_, mock, queue := setupMockDB(t)
	pool := NewWorkerPool(queue, "default", 1, zap.NewNop())
	pool.RegisterHandler("ok", func(ctx context.Context, job *Job) error { return nil })

	job := newTestJob("ok", 1)
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(JobStatusCompleted, nil, fixedNow, job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.process(context.Background(), zap.NewNop(), job)

	assert.NoError(t, mock.ExpectationsWereMet())
	stats := pool.GetMetrics().GetStats("ok")
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, float64(100), stats.SuccessRate())
}

func TestWorkerPool_ProcessRetry(t *testing.T) {
	_, mock, queue := setupMockDB(t)
	pool := NewWorkerPool(queue, "default", 1, nil)
	pool.RegisterHandler("flaky", func(ctx context.Context, job *Job) error { return errors.New("smtp down") })

	job := newTestJob("flaky", 1)
	mock.ExpectExec(`UPDATE jobs\s+SET status = \$1, run_at = \$2`).
		WithArgs(JobStatusPending, sqlmock.AnyArg(), "smtp down", job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.process(context.Background(), zap.NewNop(), job)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(1), pool.GetMetrics().GetStats("flaky").Retried)
}

func TestWorkerPool_ProcessExhausted(t *testing.T) {
	_, mock, queue := setupMockDB(t)
	pool := NewWorkerPool(queue, "default", 1, nil)
	pool.RegisterHandler("flaky", func(ctx context.Context, job *Job) error { return errors.New("smtp down") })

	job := newTestJob("flaky", 3)
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(JobStatusFailed, "smtp down", fixedNow, job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.process(context.Background(), zap.NewNop(), job)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(1), pool.GetMetrics().GetStats("flaky").Failed)
}

func TestWorkerPool_PermanentAndPanic(t *testing.T) {
	_, mock, queue := setupMockDB(t)
	pool := NewWorkerPool(queue, "default", 1, nil)
	pool.RegisterHandler("bad", func(ctx context.Context, job *Job) error {
		return Permanent(errors.New("bad payload"))
	})
	pool.RegisterHandler("panics", func(ctx context.Context, job *Job) error { panic("nil map") })

	bad := newTestJob("bad", 1)
	panics := newTestJob("panics", 1)
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(JobStatusFailed, "bad payload", fixedNow, bad.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(JobStatusFailed, "handler panic: nil map", fixedNow, panics.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.process(context.Background(), zap.NewNop(), bad)
	pool.process(context.Background(), zap.NewNop(), panics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_UnknownType(t *testing.T) {
	_, mock, queue := setupMockDB(t)
	pool := NewWorkerPool(queue, "default", 1, nil)

	job := newTestJob("nobody.home", 1)
	mock.ExpectExec(`UPDATE jobs`).
		WithArgs(JobStatusFailed, "no handler registered for job type: nobody.home", fixedNow, job.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool.process(context.Background(), zap.NewNop(), job)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_StartStop(t *testing.T) {
	_, mock, queue := setupMockDB(t)

	var handled atomic.Int32
	pool := NewWorkerPool(queue, "default", 1, nil)
	pool.SetPollInterval(10 * time.Millisecond)
	pool.RegisterHandler("ok", func(ctx context.Context, job *Job) error {
		handled.Add(1)
		return nil
	})

	id := uuid.New()
	mock.ExpectQuery(`UPDATE jobs`).WillReturnRows(jobRows().AddRow(
		id.String(), "default", "ok", []byte(`{}`), "running", 50, 1, 3,
		nil, fixedNow, fixedNow, fixedNow, nil, "worker-default-0", fixedNow,
	))
	mock.ExpectExec(`UPDATE jobs`).WithArgs(JobStatusCompleted, nil, fixedNow, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < 100; i++ {
		mock.ExpectQuery(`UPDATE jobs`).WillReturnRows(jobRows())
	}

	pool.Start(context.Background())
	require.Eventually(t, func() bool { return handled.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

func TestHandlerRegistry_ListTypes(t *testing.T) {
	r := NewHandlerRegistry()
	r.Register("mail.verification", nil)
	r.Register("blob.delete", nil)
	assert.Equal(t, []string{"blob.delete", "mail.verification"}, r.ListTypes())
}
