// Package events publishes domain events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultExchangeName is the topic exchange events are published to
const DefaultExchangeName = "resumate.events"

// Event types
const (
	PaymentVerified    = "payment.verified"
	UserRegistered     = "user.registered"
	ResumeAnalyzed     = "resume.analyzed"
	CoverLetterCreated = "cover_letter.created"
)

// Event is the envelope every published message carries
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Encode serialises the envelope
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher sends events. The event type doubles as the routing key.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
	Close() error
}

// Nop discards every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, string, any) error { return nil }

// Close does nothing
func (Nop) Close() error { return nil }
