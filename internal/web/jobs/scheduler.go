package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CronScheduler enqueues recurring jobs at fixed intervals
type CronScheduler struct {
	queue     *Queue
	schedules map[string]*Schedule
	logger    *zap.Logger
	tick      time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
}

// Schedule defines a recurring job schedule
type Schedule struct {
	ID       string
	Queue    string
	Type     string
	Payload  any
	Interval time.Duration
	LastRun  time.Time
	NextRun  time.Time
}

// NewCronScheduler creates a new cron scheduler
func NewCronScheduler(queue *Queue, logger *zap.Logger) *CronScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronScheduler{
		queue:     queue,
		schedules: make(map[string]*Schedule),
		logger:    logger.Named("scheduler"),
		tick:      time.Second,
		stopChan:  make(chan struct{}),
	}
}

// AddSchedule adds a new recurring job schedule; the first run is one
// interval from now
func (s *CronScheduler) AddSchedule(schedule *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule.ID == "" {
		schedule.ID = uuid.New().String()
	}
	if schedule.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if schedule.Queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if schedule.Type == "" {
		return fmt.Errorf("job type is required")
	}

	schedule.NextRun = time.Now().Add(schedule.Interval)
	s.schedules[schedule.ID] = schedule
	s.logger.Info("added schedule",
		zap.String("type", schedule.Type),
		zap.Duration("interval", schedule.Interval))
	return nil
}

// Start starts the scheduler
func (s *CronScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler
func (s *CronScheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *CronScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.checkSchedules(ctx, now)
		}
	}
}

// checkSchedules enqueues every schedule that is due at now
func (s *CronScheduler) checkSchedules(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, schedule := range s.schedules {
		if now.Before(schedule.NextRun) {
			continue
		}

		job, err := NewJob(schedule.Queue, schedule.Type, schedule.Payload)
		if err == nil {
			job.Priority = PriorityLow
			err = s.queue.Enqueue(ctx, job)
		}
		if err != nil {
			s.logger.Error("failed to enqueue scheduled job", zap.String("type", schedule.Type), zap.Error(err))
			continue
		}

		schedule.LastRun = now
		schedule.NextRun = now.Add(schedule.Interval)
	}
}

// ScheduleEvery is a helper to create a schedule with a simple interval
func ScheduleEvery(interval time.Duration, queue, jobType string, payload any) *Schedule {
	return &Schedule{
		ID:       uuid.New().String(),
		Queue:    queue,
		Type:     jobType,
		Payload:  payload,
		Interval: interval,
	}
}
