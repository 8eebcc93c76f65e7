// Package editor runs live resume editing sessions: edits arrive over a
// WebSocket and are autosaved once the user pauses.
package editor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/autosave"
	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
	"github.com/resumate-app/resumate/internal/web/websocket"
)

// Message types of the editor protocol
const (
	TypeUpdate     = "resume.update"
	TypeRetry      = "resume.retry"
	TypeSaved      = "resume.saved"
	TypeSaveFailed = "resume.save_failed"
	TypeStatus     = "resume.status"
)

// FlushTimeout bounds the final save when a session ends
const FlushTimeout = 10 * time.Second

// Saver persists resume values for a user
type Saver interface {
	Save(ctx context.Context, userID string, values domain.ResumeValues) (*domain.ResumeValues, error)
}

// Status reports the autosave state to the client
type Status struct {
	Saving  bool   `json:"saving"`
	Unsaved bool   `json:"unsaved"`
	Failed  bool   `json:"failed"`
	ID      string `json:"id,omitempty"`
}

// Session is one editor connection
type Session struct {
	client *websocket.Client
	saver  *autosave.Saver
	logger *zap.Logger
}

// Start serves client as an editor of initial, a resume loaded for the
// client's user or the zero value for a new one
func Start(client *websocket.Client, resumes Saver, initial domain.ResumeValues, delay time.Duration, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		client: client,
		logger: logger.With(zap.String("user_id", client.UserID), zap.String("client_id", client.ID)),
	}

	save := func(ctx context.Context, values domain.ResumeValues) (string, error) {
		saved, err := resumes.Save(ctx, client.UserID, values)
		if err != nil {
			return "", err
		}
		return saved.ID, nil
	}

	opts := []autosave.Option{
		autosave.WithLogger(s.logger),
		autosave.OnSaved(func(id string) {
			_ = client.Send(TypeSaved, map[string]string{"id": id})
		}),
		autosave.OnError(func(err error) {
			s.logger.Info("autosave failed", zap.Error(err))
			_ = client.Send(TypeSaveFailed, map[string]string{"message": saveFailureMessage(err)})
		}),
	}
	if delay > 0 {
		opts = append(opts, autosave.WithDelay(delay))
	}
	s.saver = autosave.New(save, initial, opts...)

	router := websocket.NewMessageRouter()
	router.Register(TypeUpdate, s.handleUpdate)
	router.Register(TypeRetry, s.handleRetry)
	router.Register(TypeStatus, func(ctx context.Context, c *websocket.Client, m *websocket.Message) error {
		return s.sendStatus()
	})

	client.Run(router, s.finish)
	_ = s.sendStatus()
	return s
}

func saveFailureMessage(err error) string {
	if verrs, ok := validation.As(err); ok {
		return verrs.Error()
	}
	switch {
	case errors.Is(err, domain.ErrResumeLimitReached), errors.Is(err, domain.ErrNotFound):
		return err.Error()
	}
	return "Could not save changes"
}

func (s *Session) handleUpdate(ctx context.Context, c *websocket.Client, m *websocket.Message) error {
	var values domain.ResumeValues
	if err := m.Decode(&values); err != nil {
		return err
	}
	s.saver.Update(values)
	return s.sendStatus()
}

func (s *Session) handleRetry(ctx context.Context, c *websocket.Client, m *websocket.Message) error {
	// failures are reported through OnError
	_ = s.saver.Retry(ctx)
	return s.sendStatus()
}

func (s *Session) sendStatus() error {
	return s.client.Send(TypeStatus, s.Status())
}

// Status returns the current autosave state
func (s *Session) Status() Status {
	return Status{
		Saving:  s.saver.IsSaving(),
		Unsaved: s.saver.HasUnsavedChanges(),
		Failed:  s.saver.Failed(),
		ID:      s.saver.ResumeID(),
	}
}

// finish saves what the user typed before disconnecting
func (s *Session) finish() {
	ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
	defer cancel()

	if err := s.saver.Flush(ctx); err != nil {
		s.logger.Warn("final autosave failed", zap.Error(err))
	}
	s.saver.Close()
}
