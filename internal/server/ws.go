package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GauravRai2002/ARBadminton/internal/collision"
)

const (
	clientBuffer = 16
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventHub pushes collision events to websocket clients as JSON text
// messages. A client that falls behind misses events instead of stalling
// the others.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Broadcast queues ev for every connected client.
func (h *EventHub) Broadcast(ev collision.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("websocket encode error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			log.Printf("websocket client is behind, dropping event %s", ev.ID)
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Clients never send anything; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case msg, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for conn, ch := range h.clients {
		close(ch)
		delete(h.clients, conn)
	}
}
