package vizserver

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 3 * time.Second

// Hub tracks connected viewers.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	write   func(ctx context.Context, conn *websocket.Conn, message []byte) error
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{}), write: writeText}
}

func writeText(ctx context.Context, conn *websocket.Conn, message []byte) error {
	return conn.Write(ctx, websocket.MessageText, message)
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends message to every viewer, dropping the ones that fail.
// Writes happen outside the lock so a slow viewer does not block the hub.
func (h *Hub) Broadcast(ctx context.Context, message []byte) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	var failed []*websocket.Conn
	for _, conn := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := h.write(wctx, conn, message)
		cancel()
		if err != nil {
			_ = conn.Close(websocket.StatusGoingAway, "write failed")
			failed = append(failed, conn)
		}
	}
	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, conn := range failed {
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

// CloseAll disconnects every viewer.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusNormalClosure, "shutting down")
		delete(h.clients, conn)
	}
}
