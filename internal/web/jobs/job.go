// Package jobs is a PostgreSQL-backed background job queue with a polling
// worker pool. Transactional email and object cleanup run through it.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed after all retries
	JobStatusFailed JobStatus = "failed"
)

// JobPriority represents the priority level of a job
type JobPriority int

const (
	PriorityLow    JobPriority = 0
	PriorityNormal JobPriority = 50
	// PriorityHigh is used for mail a user is actively waiting on
	PriorityHigh JobPriority = 75
)

// DefaultMaxAttempts is used when a job is created without an explicit limit
const DefaultMaxAttempts = 3

// Job represents a background job with all its metadata
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Queue       string          `json:"queue"`
	Type        string          `json:"type"` // handler name, e.g. "mail.verification"
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	Priority    JobPriority     `json:"priority"` // higher runs sooner
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Error       *string         `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	RunAt       time.Time       `json:"run_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LockedBy    *string         `json:"locked_by,omitempty"`
	LockedAt    *time.Time      `json:"locked_at,omitempty"`
}

// NewJob creates a pending job whose payload is the JSON encoding of payload
func NewJob(queue, jobType string, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		Queue:       queue,
		Type:        jobType,
		Payload:     data,
		Status:      JobStatusPending,
		Priority:    PriorityNormal,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		RunAt:       now,
	}, nil
}

// Decode unmarshals the payload into v
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Type, err)
	}
	return nil
}

// IsRetryable returns true if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Attempts < j.MaxAttempts
}

// Backoff is the delay before the next attempt: one minute doubled per
// attempt already made, capped at 1024 minutes.
func (j *Job) Backoff() time.Duration {
	shift := j.Attempts - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10
	}
	return time.Duration(1<<shift) * time.Minute
}
