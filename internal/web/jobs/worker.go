package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one job. Returning an error retries the job with
// backoff until MaxAttempts, unless the error is wrapped with Permanent.
type Handler func(ctx context.Context, job *Job) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// DefaultPollInterval is how long an idle worker sleeps between dequeues
const DefaultPollInterval = 500 * time.Millisecond

// Worker represents a single worker goroutine that processes jobs
type Worker struct {
	ID        string
	pool      *WorkerPool
	queueName string
}

// WorkerPool manages multiple worker goroutines for concurrent job processing
type WorkerPool struct {
	queue        *Queue
	handlers     *HandlerRegistry
	queueName    string
	numWorkers   int
	pollInterval time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	started      bool
	metrics      *Metrics
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue *Queue, queueName string, numWorkers int, logger *zap.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		queue:        queue,
		handlers:     NewHandlerRegistry(),
		queueName:    queueName,
		numWorkers:   numWorkers,
		pollInterval: DefaultPollInterval,
		logger:       logger.Named("jobs"),
		stopChan:     make(chan struct{}),
		metrics:      NewMetrics(),
	}
}

// SetPollInterval changes the idle sleep between dequeues
func (p *WorkerPool) SetPollInterval(d time.Duration) {
	p.pollInterval = d
}

// RegisterHandler registers a job handler for a specific job type
func (p *WorkerPool) RegisterHandler(jobType string, handler Handler) {
	p.handlers.Register(jobType, handler)
	p.logger.Debug("registered job handler", zap.String("type", jobType))
}

// Start starts all workers in the pool
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool",
		zap.Int("workers", p.numWorkers),
		zap.String("queue", p.queueName),
		zap.Strings("types", p.handlers.ListTypes()))

	for i := 0; i < p.numWorkers; i++ {
		worker := &Worker{
			ID:        fmt.Sprintf("worker-%s-%d", p.queueName, i),
			pool:      p,
			queueName: p.queueName,
		}
		p.wg.Add(1)
		go worker.run(ctx)
	}
}

// Stop signals all workers and waits for in-flight jobs to finish
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false

	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("worker pool stopped", zap.String("queue", p.queueName))
}

// Shutdown stops the pool; it satisfies the server shutdown hook signature
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetMetrics returns the current metrics
func (p *WorkerPool) GetMetrics() *Metrics {
	return p.metrics
}

func (w *Worker) run(ctx context.Context) {
	defer w.pool.wg.Done()
	log := w.pool.logger.With(zap.String("worker", w.ID))

	for {
		select {
		case <-w.pool.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.pool.queue.Dequeue(ctx, w.ID, w.queueName)
		if err != nil {
			if !errors.Is(err, ErrNoJobs) && ctx.Err() == nil {
				log.Warn("dequeue failed", zap.Error(err))
			}
			select {
			case <-w.pool.stopChan:
				return
			case <-ctx.Done():
				return
			case <-time.After(w.pool.pollInterval):
			}
			continue
		}

		w.pool.process(ctx, log, job)
	}
}

// process runs one job and records the outcome
func (p *WorkerPool) process(ctx context.Context, log *zap.Logger, job *Job) {
	start := time.Now()
	log = log.With(
		zap.String("job_id", job.ID.String()),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts))

	handler, err := p.handlers.Get(job.Type)
	if err != nil {
		log.Error("no handler registered")
		if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("failed to mark job failed", zap.Error(failErr))
		}
		p.metrics.RecordFailure(job.Type, time.Since(start))
		return
	}

	err = p.safeRun(ctx, handler, job)
	duration := time.Since(start)

	if err != nil {
		p.handleJobError(ctx, log, job, err, duration)
		return
	}

	if err := p.queue.Complete(ctx, job.ID); err != nil {
		log.Error("failed to mark job complete", zap.Error(err))
		return
	}
	log.Info("job completed", zap.Duration("duration", duration))
	p.metrics.RecordSuccess(job.Type, duration)
}

func (p *WorkerPool) safeRun(ctx context.Context, handler Handler, job *Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = Permanent(fmt.Errorf("handler panic: %v", rec))
		}
	}()
	return handler(ctx, job)
}

// handleJobError schedules a retry with backoff, or fails the job for good
func (p *WorkerPool) handleJobError(ctx context.Context, log *zap.Logger, job *Job, err error, duration time.Duration) {
	errMsg := err.Error()

	if job.IsRetryable() && !IsPermanent(err) {
		nextRunAt := time.Now().Add(job.Backoff())
		retryErr := p.queue.Retry(ctx, job.ID, nextRunAt, errMsg)
		if retryErr == nil {
			log.Warn("job failed, retry scheduled", zap.Error(err), zap.Time("next_run_at", nextRunAt))
			p.metrics.RecordRetry(job.Type)
			return
		}
		log.Error("failed to schedule retry", zap.Error(retryErr))
	}

	if failErr := p.queue.Fail(ctx, job.ID, errMsg); failErr != nil {
		log.Error("failed to mark job failed", zap.Error(failErr))
	}
	log.Error("job failed permanently", zap.Error(err))
	p.metrics.RecordFailure(job.Type, duration)
}

// HandlerRegistry manages job type handlers
type HandlerRegistry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register adds a handler for a job type
func (r *HandlerRegistry) Register(jobType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// Get retrieves a handler for a job type
func (r *HandlerRegistry) Get(jobType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("no handler registered for job type: %s", jobType)
	}
	return handler, nil
}

// ListTypes returns all registered job types, sorted
func (r *HandlerRegistry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Metrics tracks job processing statistics per job type
type Metrics struct {
	mu            sync.RWMutex
	stats         map[string]*JobStats
	totalDuration map[string]time.Duration
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{
		stats:         make(map[string]*JobStats),
		totalDuration: make(map[string]time.Duration),
	}
}

func (m *Metrics) entry(jobType string) *JobStats {
	s, ok := m.stats[jobType]
	if !ok {
		s = &JobStats{JobType: jobType}
		m.stats[jobType] = s
	}
	return s
}

// RecordSuccess records a successful job execution
func (m *Metrics) RecordSuccess(jobType string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(jobType)
	s.Processed++
	s.Succeeded++
	m.updateDuration(s, duration)
}

// RecordFailure records a failed job execution
func (m *Metrics) RecordFailure(jobType string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.entry(jobType)
	s.Processed++
	s.Failed++
	m.updateDuration(s, duration)
}

// RecordRetry records a job retry
func (m *Metrics) RecordRetry(jobType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(jobType).Retried++
}

func (m *Metrics) updateDuration(s *JobStats, duration time.Duration) {
	m.totalDuration[s.JobType] += duration
	if s.MinDuration == 0 || duration < s.MinDuration {
		s.MinDuration = duration
	}
	if duration > s.MaxDuration {
		s.MaxDuration = duration
	}
	s.AvgDuration = m.totalDuration[s.JobType] / time.Duration(s.Processed)
}

// GetStats returns statistics for a job type
func (m *Metrics) GetStats(jobType string) JobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.stats[jobType]; ok {
		return *s
	}
	return JobStats{JobType: jobType}
}

// GetAllStats returns statistics for all job types
func (m *Metrics) GetAllStats() map[string]JobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]JobStats, len(m.stats))
	for k, s := range m.stats {
		out[k] = *s
	}
	return out
}

// JobStats holds statistics for a specific job type
type JobStats struct {
	JobType     string        `json:"job_type"`
	Processed   int64         `json:"processed"`
	Succeeded   int64         `json:"succeeded"`
	Failed      int64         `json:"failed"`
	Retried     int64         `json:"retried"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// SuccessRate returns the success rate as a percentage
func (s JobStats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Processed) * 100
}
