package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Upgrader turns authenticated HTTP requests into hub clients
type Upgrader struct {
	upgrader websocket.Upgrader
	hub      *Hub
	logger   *zap.Logger
}

// NewUpgrader accepts browser origins listed in origins, plus same-host
// requests. An empty list accepts any origin.
func NewUpgrader(hub *Hub, origins []string, logger *zap.Logger) *Upgrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
		hub:    hub,
		logger: logger,
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimSuffix(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Upgrade completes the handshake for userID. On failure the error reply
// has already been written.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request, userID string) (*Client, error) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.logger.Debug("websocket upgrade failed", zap.Error(err))
		return nil, err
	}
	return newClient(uuid.NewString(), userID, conn, u.hub, u.logger), nil
}
