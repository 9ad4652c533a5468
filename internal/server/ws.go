package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// clientBuffer is how many results may wait for a slow subscriber before it is dropped.
const clientBuffer = 16

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// writePump delivers queued results. It closes the connection when the
// queue is closed or a write fails, which also ends the reader in ServeHTTP.
func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// ResultHub pushes every published detection result to connected websocket clients.
// Publish never waits on the network; each client has its own writer goroutine.
type ResultHub struct {
	clients map[*client]bool
	mu      sync.Mutex
}

// NewResultHub creates an empty ResultHub.
func NewResultHub() *ResultHub {
	return &ResultHub{
		clients: make(map[*client]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ResultHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	defer h.remove(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *ResultHub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked unregisters c and stops its writer. h.mu must be held.
func (h *ResultHub) dropLocked(c *client) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish queues v as a JSON text message for every client.
// A client whose queue is full is dropped.
func (h *ResultHub) Publish(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("dropping slow result subscriber")
			h.dropLocked(c)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *ResultHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *ResultHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.dropLocked(c)
	}
}
