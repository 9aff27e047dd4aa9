package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"simtrade/internal/event"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub relays lifecycle events from the bus to connected websocket clients as
// JSON. A client that cannot keep up is disconnected by the failed write.
type Hub struct {
	bus *event.Bus
	log *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates a Hub fed by the given event bus.
func NewHub(bus *event.Bus, log *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		log:     log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Run subscribes to the bus and broadcasts events until the context is
// cancelled. It should be launched as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	subID, ch := h.bus.Subscribe(1024)
	defer h.bus.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case evt := <-ch:
			payload, err := json.Marshal(evt)
			if err != nil {
				h.log.Error("encoding event", "type", evt.Type, "error", err)
				continue
			}
			h.broadcast(payload)
		}
	}
}

// HandleWebSocket upgrades the connection and registers the client. A read
// pump processes control frames so a client that closes its end is
// deregistered promptly instead of on the next failed write.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info("dashboard client connected", "total", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	conn.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		h.log.Info("dashboard client disconnected", "total", len(h.clients))
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}
