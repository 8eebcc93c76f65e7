// Package websocket carries JSON messages between the API and browser
// clients over gorilla/websocket connections.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned for messages no handler is registered for
var ErrUnknownType = errors.New("unknown message type")

// Message is the envelope of every frame in both directions
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the message data into v
func (m *Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: data is required", m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%s: invalid data: %w", m.Type, err)
	}
	return nil
}

func encode(messageType string, payload interface{}) ([]byte, error) {
	msg := Message{Type: messageType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", messageType, err)
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// MessageHandler handles one incoming message
type MessageHandler func(ctx context.Context, client *Client, message *Message) error

// MessageRouter dispatches messages by type
type MessageRouter struct {
	handlers map[string]MessageHandler
}

// NewMessageRouter creates a router that answers "ping" with "pong"
func NewMessageRouter() *MessageRouter {
	r := &MessageRouter{handlers: make(map[string]MessageHandler)}
	r.Register(TypePing, func(ctx context.Context, c *Client, m *Message) error {
		return c.Send(TypePong, nil)
	})
	return r
}

// Register sets the handler for a message type
func (r *MessageRouter) Register(messageType string, handler MessageHandler) {
	r.handlers[messageType] = handler
}

// Route runs the handler registered for the message type
func (r *MessageRouter) Route(ctx context.Context, client *Client, message *Message) error {
	handler, ok := r.handlers[message.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, message.Type)
	}
	return handler(ctx, client, message)
}

// Message types shared by every connection
const (
	TypePing  = "ping"
	TypePong  = "pong"
	TypeError = "error"
)
