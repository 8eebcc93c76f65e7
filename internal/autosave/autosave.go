// Package autosave persists resume edits after the user pauses typing.
package autosave

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
)

// DefaultDelay is how long edits must settle before they are saved
const DefaultDelay = 1500 * time.Millisecond

// SaveFunc persists values and returns the resume id. An empty values.ID
// means the resume does not exist yet.
type SaveFunc func(ctx context.Context, values domain.ResumeValues) (string, error)

// Option configures a Saver
type Option func(*Saver)

// WithDelay sets the debounce delay
func WithDelay(d time.Duration) Option {
	return func(s *Saver) { s.delay = d }
}

// WithContext sets the context timer-triggered saves run under
func WithContext(ctx context.Context) Option {
	return func(s *Saver) { s.ctx = ctx }
}

// OnSaved registers a callback run after every successful save
func OnSaved(fn func(id string)) Option {
	return func(s *Saver) { s.onSaved = fn }
}

// OnError registers a callback run after a failed save
func OnError(fn func(err error)) Option {
	return func(s *Saver) { s.onError = fn }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Saver) { s.logger = l }
}

// Saver debounces edits of one resume. A failed save is not retried until
// Retry is called or the user edits again.
type Saver struct {
	save    SaveFunc
	delay   time.Duration
	ctx     context.Context
	onSaved func(id string)
	onError func(err error)
	logger  *zap.Logger

	mu        sync.Mutex
	timer     *time.Timer
	current   *domain.ResumeValues
	lastSaved []byte
	resumeID  string
	saving    bool
	idle      chan struct{}
	failed    bool
	rearm     bool
	closed    bool
}

// New creates a Saver for initial, the resume as last loaded from storage.
// A zero initial starts a resume that is created on its first changed save.
func New(save SaveFunc, initial domain.ResumeValues, opts ...Option) *Saver {
	s := &Saver{
		save:     save,
		delay:    DefaultDelay,
		ctx:      context.Background(),
		logger:   zap.NewNop(),
		resumeID: initial.ID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSaved, _ = initial.Snapshot()
	return s
}

// Update records the latest edited values and restarts the debounce timer
func (s *Saver) Update(values domain.ResumeValues) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	values = values.Clone()
	s.current = &values
	s.failed = false
	s.restartTimer()
}

func (s *Saver) restartTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if _, err := s.saveIfChanged(s.ctx, false); err != nil {
			s.logger.Debug("autosave failed", zap.String("resume_id", s.ResumeID()), zap.Error(err))
		}
	})
}

// Retry clears the error state and saves immediately
func (s *Saver) Retry(ctx context.Context) error {
	s.mu.Lock()
	s.failed = false
	s.mu.Unlock()

	_, err := s.saveIfChanged(ctx, false)
	return err
}

// Flush waits for an in-flight save and then saves any pending changes,
// even after a failure.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	for {
		saved, err := s.saveIfChanged(ctx, true)
		if err != nil || saved {
			return err
		}

		s.mu.Lock()
		idle, busy := s.idle, s.saving
		s.mu.Unlock()
		if !busy {
			return nil
		}

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// saveIfChanged saves the current values unless they match the last saved
// snapshot, a save is running, or (without force) the last save failed. It
// reports whether a save was attempted.
func (s *Saver) saveIfChanged(ctx context.Context, force bool) (bool, error) {
	s.mu.Lock()
	if s.saving {
		s.rearm = true
		s.mu.Unlock()
		return false, nil
	}
	if s.current == nil || (s.failed && !force) {
		s.mu.Unlock()
		return false, nil
	}

	values := *s.current
	snapshot, err := values.Snapshot()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if bytes.Equal(snapshot, s.lastSaved) {
		s.mu.Unlock()
		return false, nil
	}

	values = values.Clone()
	values.ID = s.resumeID
	s.saving = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	id, saveErr := s.save(ctx, values)

	s.mu.Lock()
	s.saving = false
	close(s.idle)
	if saveErr != nil {
		s.failed = true
	} else {
		s.failed = false
		s.resumeID = id
		s.lastSaved = snapshot
	}
	if s.rearm && !s.closed && !s.failed {
		s.restartTimer()
	}
	s.rearm = false
	onSaved, onError := s.onSaved, s.onError
	s.mu.Unlock()

	if saveErr != nil {
		if onError != nil {
			onError(saveErr)
		}
		return true, saveErr
	}
	if onSaved != nil {
		onSaved(id)
	}
	return true, nil
}

// HasUnsavedChanges reports whether the latest values differ from the last
// successful save
func (s *Saver) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	snapshot, err := s.current.Snapshot()
	if err != nil {
		return true
	}
	return !bytes.Equal(snapshot, s.lastSaved)
}

// IsSaving reports whether a save is in flight
func (s *Saver) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Failed reports whether the last save failed
func (s *Saver) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// ResumeID returns the id of the saved resume, empty before the first save
func (s *Saver) ResumeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeID
}

// Close stops the timer. Pending changes are dropped; call Flush first to
// keep them.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}
