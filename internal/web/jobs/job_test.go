package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job, err := NewJob("default", "mail.verification", struct {
		Email string `json:"email"`
	}{"ada@example.com"})
	require.NoError(t, err)

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, PriorityNormal, job.Priority)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
	assert.JSONEq(t, `{"email":"ada@example.com"}`, string(job.Payload))

	_, err = NewJob("default", "bad", make(chan int))
	assert.Error(t, err)
}

func TestJob_Backoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{30, 1024 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, (&Job{Attempts: tt.attempts}).Backoff(), "attempts=%d", tt.attempts)
	}
}

func TestJob_IsRetryable(t *testing.T) {
	assert.True(t, (&Job{Attempts: 1, MaxAttempts: 3}).IsRetryable())
	assert.False(t, (&Job{Attempts: 3, MaxAttempts: 3}).IsRetryable())
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad payload")
	err := Permanent(base)

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}
