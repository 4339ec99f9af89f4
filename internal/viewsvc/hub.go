package viewsvc

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump drains the connection so close frames are handled. Clients have
// nothing to say.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type hub struct {
	log     *zap.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("Client connected", zap.Int("clients", n))
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.log.Debug("Client disconnected", zap.Int("clients", n))
	}
}

// broadcast never blocks: a client with a full buffer is dropped.
func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			h.log.Warn("Dropped slow client")
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
