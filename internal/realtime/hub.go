// Package realtime pushes freshly persisted notifications to the
// recipient's open websocket connections.
package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/monocle-dev/crewboard/internal/models"
)

const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 512
)

// Conn is a push target. Implementations own their write deadlines.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[Conn]bool
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{clients: make(map[uint]map[Conn]bool), logger: logger}
}

func (h *Hub) Register(userID uint, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[Conn]bool)
	}
	h.clients[userID][conn] = true
}

func (h *Hub) Unregister(userID uint, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[userID]; exists {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish writes the notification to every connection of userID. Failed
// connections are dropped and closed.
func (h *Hub) Publish(userID uint, n models.Notification) {
	h.mu.RLock()
	clients, exists := h.clients[userID]
	if !exists || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy so the lock is not held while writing.
	conns := make([]Conn, 0, len(clients))
	for conn := range clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		err := conn.WriteJSON(map[string]interface{}{
			"type":         "notification",
			"notification": n,
		})
		if err != nil {
			h.logger.Warn("push notification failed", "user_id", userID, "error", err)
			h.Unregister(userID, conn)
			conn.Close()
		}
	}
}

var _ Conn = (*Client)(nil)
