package server

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/clipd/internal/metric"
	"github.com/hpungsan/clipd/internal/protocol"
)

// Event is the envelope pushed to /events subscribers whenever new content
// enters the store.
type Event struct {
	Type      string       `json:"type"`
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   EventPayload `json:"payload"`
}

// EventPayload carries a bounded preview, never the full value. Subscribers
// that want the content ask for it over the command surface.
type EventPayload struct {
	Preview string `json:"preview"`
}

// Hub fans new-item events out to WebSocket subscribers. It implements the
// dispatcher's Announcer.
type Hub struct {
	log      *slog.Logger
	metrics  *metric.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func NewHub(m *metric.Metrics, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The daemon binds to loopback; subscribers are local tools.
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Announce is called from the dispatcher loop. Slow subscribers lose events
// rather than stalling command execution.
func (h *Hub) Announce(value string) {
	ev := Event{
		Type:      "new-item",
		ID:        newEventID(),
		Timestamp: time.Now().UTC(),
		Payload:   EventPayload{Preview: protocol.Shorten(value, protocol.DefaultPreview)},
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("event marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- data:
		default:
			h.log.Debug("event dropped for slow subscriber", "remote", conn.RemoteAddr())
		}
	}
}

// HandleWS upgrades the request and streams events until the subscriber
// hangs up.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	h.metrics.ClientConnected()
	h.log.Debug("event subscriber connected", "remote", conn.RemoteAddr())

	go h.writePump(conn, ch)

	// Subscribers send nothing meaningful; reading just services close and
	// control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	close(ch)
	conn.Close()
	h.metrics.ClientDisconnected()
	h.log.Debug("event subscriber disconnected", "remote", conn.RemoteAddr())
}

func (h *Hub) writePump(conn *websocket.Conn, ch chan []byte) {
	for data := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("event write failed", "remote", conn.RemoteAddr(), "error", err)
			conn.Close()
			// Keep draining so Announce never blocks on this subscriber.
			for range ch {
			}
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// Close hangs up every subscriber. In-flight handlers unwind through their
// read loops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
}

// ClientCount reports current subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func newEventID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
