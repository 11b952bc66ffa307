// Package live pushes new announcements to the websocket connections of their center.
package live

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16

	EventAnnouncement = "announcement"
)

type (
	// SessionRecorder tracks open connections.
	SessionRecorder interface {
		SessionOpened()
		SessionClosed()
	}

	Event struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}

	Hub struct {
		mu      sync.RWMutex
		centers map[string]map[*client]struct{}
		closed  bool

		metrics SessionRecorder
		logger  core.Logger
	}

	client struct {
		hub      *Hub
		conn     *websocket.Conn
		centerID string
		viewer   announcement.Viewer
		send     chan []byte
		once     sync.Once
	}
)

var _ announcement.Publisher = (*Hub)(nil)

func NewHub(metrics SessionRecorder, logger core.Logger) *Hub {
	return &Hub{
		centers: make(map[string]map[*client]struct{}),
		metrics: metrics,
		logger:  logger,
	}
}

// Publish sends a to every connection of the center allowed to see it.
// Connections too slow to keep up are dropped.
func (h *Hub) Publish(centerID string, a announcement.Announcement) {
	msg, err := json.Marshal(Event{Type: EventAnnouncement, Data: a})
	if err != nil {
		h.logger.Error(fmt.Sprintf("encoding live announcement: %v", err), err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.centers[centerID] {
		if !a.Visible(c.viewer) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
}

// Serve registers conn as a subscriber of the center and blocks until it is closed.
func (h *Hub) Serve(conn *websocket.Conn, centerID string, viewer announcement.Viewer) {
	c := &client{
		hub:      h,
		conn:     conn,
		centerID: centerID,
		viewer:   viewer,
		send:     make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait),
		)
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

// Subscribers returns the number of open connections of the center.
func (h *Hub) Subscribers(centerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.centers[centerID])
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, clients := range h.centers {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	clients, ok := h.centers[c.centerID]
	if !ok {
		clients = make(map[*client]struct{})
		h.centers[c.centerID] = clients
	}
	clients[c] = struct{}{}
	h.metrics.SessionOpened()
	return true
}

func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		if clients, ok := h.centers[c.centerID]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.centers, c.centerID)
			}
		}
		h.mu.Unlock()
		close(c.send)
		h.metrics.SessionClosed()
	})
}

// readPump discards incoming messages; it only keeps the connection alive.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug(fmt.Sprintf("live connection closed: %v", err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
