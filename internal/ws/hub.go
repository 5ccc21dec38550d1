package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"go-pos-access/internal/event"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub pushes role and user events to every connected console so it can
// refetch its session and navigation.
type Hub struct {
	Clients    map[Conn]bool
	Register   chan Conn
	Unregister chan Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	done       chan struct{}
}

const broadcastBuffer = 64

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[Conn]bool),
		Register:   make(chan Conn),
		Unregister: make(chan Conn),
		Broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("New WS Client Connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Add registers conn. Once the hub has stopped it closes conn instead and
// returns false.
func (h *Hub) Add(conn Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		conn.Close()
		return false
	}
}

// Remove unregisters conn. It returns immediately once the hub has stopped.
func (h *Hub) Remove(conn Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

// Serve upgrades the request and keeps the connection registered until the
// client goes away. Callers authenticate the request before it reaches here.
func (h *Hub) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if !h.Add(c) {
			return
		}
		defer h.Remove(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Publish queues e for every client. It never blocks the caller: when the
// queue is full the event is dropped and clients catch up on their next
// refetch.
func (h *Hub) Publish(_ context.Context, e event.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case h.Broadcast <- msg:
	default:
		log.Printf("Warning: ws broadcast queue full, dropping %s", e.Type)
	}
	return nil
}
