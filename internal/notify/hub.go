package notify

import (
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Hub fans events out to every connected websocket client. A page that is not
// connected simply misses the event; the queue itself stays consistent.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// Handler blocks on the connection until the client goes away. Register it
// with fiber's websocket middleware.
func (h *Hub) Handler(c *websocket.Conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
	}()

	// Reads are discarded; the socket only pushes events out. The read loop
	// exists to detect the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) Notify(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if err := c.WriteJSON(event); err != nil {
			slog.Info("dropping notification client", "error", err)
			delete(h.clients, c)
			c.Close()
		}
	}
}
