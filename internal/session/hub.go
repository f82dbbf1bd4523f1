package session

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mordian/w40k-companion/internal/models"
)

// Upgrader is shared by the feed handlers. Origin filtering is left to
// the deployment, same as the API's CORS handling.
var Upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hub fans appended entries out to feed subscribers, one subscriber
// set per session id.
type Hub struct {
	log  *zap.Logger
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{log: log, subs: map[string]map[*websocket.Conn]bool{}}
}

// Subscribe registers a connection for a session's feed.
func (h *Hub) Subscribe(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[id]
	if !ok {
		set = map[*websocket.Conn]bool{}
		h.subs[id] = set
	}
	set[conn] = true
}

// Unsubscribe drops a connection. Safe to call twice.
func (h *Hub) Unsubscribe(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[id]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
}

// Subscribers reports the subscriber count for a session.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

// Broadcast sends one message to every subscriber of a session,
// dropping connections whose writes fail. Writes happen under the hub
// lock; gorilla connections do not allow concurrent writers.
func (h *Hub) Broadcast(id string, msg models.WsMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[id] {
		if err := c.WriteJSON(msg); err != nil {
			h.log.Warn("feed write failed", zap.String("session", id), zap.Error(err))
			delete(h.subs[id], c)
			_ = c.Close()
		}
	}
	if len(h.subs[id]) == 0 {
		delete(h.subs, id)
	}
}

// Serve subscribes the connection and blocks reading it until the
// client goes away, then cleans up. Incoming messages are discarded;
// the feed is one-way.
func (h *Hub) Serve(id string, conn *websocket.Conn) {
	h.Subscribe(id, conn)
	defer func() {
		h.Unsubscribe(id, conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
