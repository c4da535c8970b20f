// Package transport provides a concrete WebSocket implementation of the
// broadcast adapter interface (C7/C9): subscriber registration, per-block
// L2 fan-out, on-subscribe snapshotting, per-connection compression, and
// back-pressure.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/hlreplicator/orderbook-server/internal/broadcast"
)

// sendBufferSize bounds how many queued frames a slow subscriber is
// allowed before it is disconnected rather than stalling the dispatcher.
const sendBufferSize = 64

// resnapRate bounds how often a single subscriber may request a full
// re-snapshot, to tolerate a late subscriber without letting a
// misbehaving client thunder the engine with re-snapshot requests.
const resnapRate = 1.0 // per second
const resnapBurst = 2

// Client is one connected WebSocket subscriber.
type Client struct {
	id            uuid.UUID
	conn          *websocket.Conn
	send          chan []byte
	resnapLimiter *rate.Limiter
}

// Hub fans block-driven L2 updates out to every connected subscriber and
// hands new subscribers an initial snapshot. It implements C9 against the
// C7 Source interface.
type Hub struct {
	mu               sync.RWMutex
	clients          map[uuid.UUID]*Client
	source           broadcast.Source
	logger           *slog.Logger
	snapshotKind     broadcast.SnapshotKind
	compressionLevel int
}

// NewHub constructs a Hub pulling state from source. compressionLevel is
// the gorilla/websocket per-message-deflate level in 0..=9 (0 disables
// compression), taken directly from the --websocket-compression-level
// CLI flag (spec §6).
func NewHub(source broadcast.Source, snapshotKind broadcast.SnapshotKind, compressionLevel int, logger *slog.Logger) *Hub {
	return &Hub{
		clients:          make(map[uuid.UUID]*Client),
		source:           source,
		logger:           logger,
		snapshotKind:     snapshotKind,
		compressionLevel: compressionLevel,
	}
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket connection and registers
// it as a new subscriber. CheckOrigin is left permissive: origin policy
// is a deployment concern for the collaborator fronting this handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin:       func(*http.Request) bool { return true },
		EnableCompression: h.compressionLevel > 0,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	if h.compressionLevel > 0 {
		conn.EnableWriteCompression(true)
		if err := conn.SetCompressionLevel(h.compressionLevel); err != nil {
			h.logger.Warn("unsupported websocket compression level, using default", "level", h.compressionLevel, "error", err)
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		h.logger.Error("failed to allocate subscriber id", "error", err)
		conn.Close()
		return
	}
	client := &Client{
		id:            id,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		resnapLimiter: rate.NewLimiter(rate.Limit(resnapRate), resnapBurst),
	}

	h.register(client)
	h.sendWelcome(client)

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("subscriber connected", "subscriber_id", c.id, "count", h.Count())
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Info("subscriber disconnected", "subscriber_id", c.id, "count", h.Count())
}

func (h *Hub) sendWelcome(c *Client) {
	var payload any
	switch h.snapshotKind {
	case broadcast.SnapshotL4:
		snap := h.source.ComputeSnapshot()
		payload = broadcast.WelcomeL4{Height: snap.Height, Time: snap.Time, Book: snap.Snapshot}
	default:
		frame := h.source.L2Snapshot()
		payload = broadcast.WelcomeL2{Height: h.source.Height(), Time: frame.Time, Book: frame.Snapshot}
	}
	h.sendJSON(c, "welcome", payload)
}

// BroadcastL2 pulls the deduplicated L2 frame for the current height
// (l2_snapshots(prevent_future=true)) and fans it out to every connected
// subscriber. Call this once per successful ApplyUpdates. Subscribers
// whose send buffer is full are disconnected rather than allowed to
// stall the dispatcher (spec §5 back-pressure policy).
func (h *Hub) BroadcastL2() {
	l2Frame, ok := h.source.L2Snapshots(true)
	if !ok {
		return
	}
	data, err := envelope("l2_update", l2Frame)
	if err != nil {
		h.logger.Error("failed to marshal l2 frame", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("subscriber send buffer full, dropping", "subscriber_id", c.id)
			go h.disconnectSlow(c)
		}
	}
}

func (h *Hub) disconnectSlow(c *Client) {
	h.unregister(c)
	c.conn.Close()
}

func (h *Hub) sendJSON(c *Client, kind string, payload any) {
	data, err := envelope(kind, payload)
	if err != nil {
		h.logger.Error("failed to marshal frame", "kind", kind, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("subscriber send buffer full on welcome frame", "subscriber_id", c.id)
	}
}

func envelope(kind string, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{Type: kind, Data: payload})
}

func (h *Hub) writePump(c *Client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump handles inbound control messages, e.g. explicit re-snapshot
// requests from a subscriber that believes it has fallen behind.
func (h *Hub) readPump(c *Client) {
	defer h.unregister(c)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		if req.Type == "resnapshot" {
			if !c.resnapLimiter.Allow() {
				continue
			}
			h.sendWelcome(c)
		}
	}
}
