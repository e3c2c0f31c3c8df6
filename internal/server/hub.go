package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
)

const (
	protocolOfficial7 = "http://livereload.com/protocols/official-7"
	writeWait         = 5 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = 50 * time.Second
	sendBuffer        = 8
)

// message is a LiveReload protocol frame.
type message struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols,omitempty"`
	ServerName string   `json:"serverName,omitempty"`
	Path       string   `json:"path,omitempty"`
	LiveCSS    bool     `json:"liveCSS,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan message
	done chan struct{}
}

// Hub tracks LiveReload clients and broadcasts reload commands to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	closed   bool
	upgrader websocket.Upgrader
	recorder metrics.Recorder
}

// NewHub creates a hub. rec may be nil.
func NewHub(rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		recorder: rec,
	}
}

// ServeHTTP upgrades the request and serves one client until it
// disconnects or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Op.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Debug("LiveReload upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan message, sendBuffer),
		done: make(chan struct{}),
	}
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.recorder.SetLiveReloadClients(len(h.clients))
	logger.Op.WithFields(map[string]interface{}{
		"client":  c.id,
		"clients": len(h.clients),
	}).Debug("LiveReload client connected")
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.done)
	h.recorder.SetLiveReloadClients(len(h.clients))
	logger.Op.WithFields(map[string]interface{}{
		"client":  id,
		"clients": len(h.clients),
	}).Debug("LiveReload client disconnected")
}

// readLoop answers the hello handshake. Other client frames are ignored.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c.id)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Command != "hello" {
			continue
		}
		hello := message{
			Command:    "hello",
			Protocols:  []string{protocolOfficial7},
			ServerName: "sitepipe",
		}
		select {
		case c.send <- hello:
		case <-c.done:
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.remove(c.id)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c.id)
				return
			}
		}
	}
}

// Reload broadcasts a reload command for path. Stylesheets are applied
// in place by the client. Clients whose queue is full are dropped.
func (h *Hub) Reload(path string) {
	msg := message{
		Command: "reload",
		Path:    path,
		LiveCSS: strings.HasSuffix(path, ".css"),
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.send <- msg:
		default:
			dropped++
			h.remove(c.id)
		}
	}
	h.recorder.IncReloadBroadcast()
	logger.User.Reloadf("Reloading %s (%d clients)", path, len(snapshot)-dropped)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}
