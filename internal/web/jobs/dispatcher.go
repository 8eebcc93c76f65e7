package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher enqueues jobs on a single named queue
type Dispatcher struct {
	queue       *Queue
	queueName   string
	maxAttempts int
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher for queueName. A non-positive
// maxAttempts uses DefaultMaxAttempts.
func NewDispatcher(queue *Queue, queueName string, maxAttempts int, logger *zap.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:       queue,
		queueName:   queueName,
		maxAttempts: maxAttempts,
		logger:      logger.Named("jobs"),
	}
}

// Dispatch enqueues a job of jobType carrying payload
func (d *Dispatcher) Dispatch(ctx context.Context, jobType string, payload any, priority JobPriority) error {
	job, err := NewJob(d.queueName, jobType, payload)
	if err != nil {
		return err
	}
	job.Priority = priority
	job.MaxAttempts = d.maxAttempts

	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to dispatch %s: %w", jobType, err)
	}

	d.logger.Debug("dispatched job",
		zap.String("job_id", job.ID.String()),
		zap.String("type", jobType),
		zap.String("queue", d.queueName))
	return nil
}
