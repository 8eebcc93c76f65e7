package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// A full resume with long descriptions stays well below this
	maxMessageSize = 512 * 1024

	sendBuffer = 64
)

// ErrClosed is returned when sending on a closed client
var ErrClosed = errors.New("websocket: client closed")

// Client is one WebSocket connection of an authenticated user
type Client struct {
	ID     string
	UserID string

	conn   *websocket.Conn
	hub    *Hub
	logger *zap.Logger
	send   chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func newClient(id, userID string, conn *websocket.Conn, hub *Hub, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		hub:    hub,
		logger: logger.With(zap.String("client_id", id), zap.String("user_id", userID)),
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is cancelled when the connection closes
func (c *Client) Context() context.Context {
	return c.ctx
}

// Send queues a message. It fails when the client is closed or too slow to
// keep up.
func (c *Client) Send(messageType string, payload interface{}) error {
	data, err := encode(messageType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("websocket send buffer full, dropping message", zap.String("type", messageType))
		return errors.New("websocket: send buffer full")
	}
}

// SendError sends an error message, ignoring delivery failures
func (c *Client) SendError(message string) {
	_ = c.Send(TypeError, map[string]string{"message": message})
}

// Close stops both pumps. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.send)
}

// Run serves the connection: incoming messages go to router and onClose
// runs after the peer disconnects, before the client leaves the hub
func (c *Client) Run(router *MessageRouter, onClose func()) {
	c.hub.add(c)
	go c.writePump()
	go func() {
		defer c.hub.remove(c)
		c.readPump(router)
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()
}

// readPump leaves closing the connection to writePump so the close frame
// goes out first
func (c *Client) readPump(router *MessageRouter) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// closing the client cancels ctx, which unblocks the read below
	go func() {
		<-c.ctx.Done()
		c.conn.SetReadDeadline(time.Now())
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && c.ctx.Err() == nil {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.SendError("invalid message")
			continue
		}
		if err := router.Route(c.ctx, c, &msg); err != nil {
			c.logger.Debug("websocket message failed", zap.String("type", msg.Type), zap.Error(err))
			c.SendError(err.Error())
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
