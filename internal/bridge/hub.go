package bridge

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"fiddlegg/internal/logging"
)

// Hub fans events out to every connected websocket client
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	done       chan struct{} // closed when Run exits
	stopOnce   sync.Once
	log        logrus.FieldLogger

	mu    sync.RWMutex
	count int
}

// NewHub creates a hub. Call Run to start it.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		log:        log.WithField("component", "hub"),
	}
}

// Run serves the hub until Stop is called
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*Client]struct{})
			h.setCount(0)
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			h.log.WithField("client", client.ID).Debug("Client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				h.setCount(len(h.clients))
				h.log.WithField("client", client.ID).Debug("Client disconnected")
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// slow consumer
					delete(h.clients, client)
					client.close()
					h.log.WithField("client", client.ID).Warn("Dropping slow websocket client")
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Stop shuts the hub down and closes every client. It blocks until Run
// has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done
}

// Emit implements Emitter. Events emitted after Stop are dropped.
func (h *Hub) Emit(topic string, data any) {
	msg, err := encodeEvent(topic, data)
	if err != nil {
		h.log.WithError(err).WithField("topic", topic).Error("Failed to encode event")
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Register adds a client
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

func encodeEvent(topic string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Topic: topic, Data: payload})
}
