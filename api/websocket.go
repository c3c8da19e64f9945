package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"agora/core"
	"agora/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 512

	sendChannelSize = 64
)

// MessageTypeNotification tags pushed notification records
const MessageTypeNotification = "notification"

// WebSocketMessage is the envelope of every pushed message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// client is one websocket connection of one user
type client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks open notification streams per user and pushes each new
// notification to the recipient's connections. Delivery is best effort: a
// client whose buffer is full is disconnected and can re-read the list.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	closed  bool
	logger  *zap.SugaredLogger
}

// NewHub creates an empty hub
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

// Publish implements service.Publisher
func (h *Hub) Publish(userID string, n *core.Notification) {
	payload, err := json.Marshal(WebSocketMessage{
		Type:      MessageTypeNotification,
		Data:      n,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Errorw("Failed to marshal notification push",
			"user", userID,
			"error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warnw("Notification stream buffer full, disconnecting client",
				"user", userID)
			go func(slow *client) {
				h.remove(slow)
				slow.conn.Close()
			}(c)
		}
	}
}

// ClientCount returns the number of open connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

// UserClientCount returns the number of open connections of one user
func (h *Hub) UserClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Stop closes every connection and refuses new ones
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
			metrics.WebSocketClients.Dec()
		}
		delete(h.clients, userID)
	}
	h.logger.Info("Notification hub stopped")
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	metrics.WebSocketClients.Inc()
	h.logger.Debugw("Notification stream opened",
		"user", c.userID,
		"user_clients", len(set))
	return true
}

// remove is idempotent; send is closed exactly once under the write lock so
// Publish never writes to a closed channel.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.WebSocketClients.Dec()
}

// readPump only detects disconnection; clients do not send messages.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debugw("Notification stream closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkOrigin accepts same-origin and non-browser clients plus the CORS allow list
func (a *API) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.config.API.AllowedOrigins {
		if origin == allowed || allowed == "*" {
			return true
		}
	}
	return false
}

// serveWs upgrades an authenticated request to a notification stream
func (a *API) serveWs(w http.ResponseWriter, r *http.Request) {
	actor := GetActor(r.Context())
	if actor == nil {
		writeError(w, r, http.StatusUnauthorized, "Authentication required", nil, a.logger)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the error response
		a.logger.Warnw("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:    a.hub,
		userID: actor.UserID,
		conn:   conn,
		send:   make(chan []byte, sendChannelSize),
	}
	if !a.hub.add(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
