// Package echo is the optional real-time channel: it accepts WebSocket connections,
// keeps track of the open ones and ignores whatever they send.
package echo

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userlist/internal/logger"
)

const closeGracePeriod = time.Second

// Hub owns the registry of open connections.
type Hub struct {
	upgrader websocket.Upgrader
	connsMu  sync.RWMutex
	conns    map[*websocket.Conn]struct{}
	closed   bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin access is governed by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Debugln("websocket upgrade error:", zap.Error(err))
		return
	}

	if !h.register(conn) {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"),
			time.Now().Add(closeGracePeriod),
		)
		_ = conn.Close()
		return
	}
	defer h.unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debugln("websocket read error:", zap.Error(err))
			}
			return
		}
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.connsMu.RLock()
	defer h.connsMu.RUnlock()

	return len(h.conns)
}

// Close says goodbye to every open connection and refuses new ones.
func (h *Hub) Close() error {
	h.connsMu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.connsMu.Unlock()

	for _, conn := range conns {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"),
			time.Now().Add(closeGracePeriod),
		)
		_ = conn.Close()
	}

	return nil
}

func (h *Hub) register(conn *websocket.Conn) bool {
	h.connsMu.Lock()
	defer h.connsMu.Unlock()

	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}

	return true
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.connsMu.Lock()
	delete(h.conns, conn)
	h.connsMu.Unlock()

	_ = conn.Close()
}
