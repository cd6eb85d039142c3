package chatserver

import (
	"context"

	"github.com/rs/zerolog"
)

// message is a line of chat posted by a producer.
type message struct {
	source *client
	data   []byte
}

// Hub keeps the set of clients and fans posted lines out to the consumers.
type Hub struct {
	clients map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan message
	dismiss    chan message
	count      chan chan int

	// done is closed once Run has returned.
	done   chan struct{}
	logger *zerolog.Logger
}

func newHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message),
		dismiss:    make(chan message),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves hub requests until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info().Str("id", c.id).Str("addr", c.addr).Str("role", string(c.role)).
				Int("clients", len(h.clients)).Msg("client connected")
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.post(m)
		case m := <-h.dismiss:
			// The notice is queued ahead of the close frame.
			if h.clients[m.source] {
				select {
				case m.source.send <- m.data:
				default:
				}
			}
			h.remove(m.source)
		case reply := <-h.count:
			reply <- len(h.clients)
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

// Clients returns the number of connected clients, or zero once the hub has stopped.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) remove(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info().Str("id", c.id).Str("addr", c.addr).Int("clients", len(h.clients)).Msg("client disconnected")
}

// post delivers m to every consuming client except its source.
// A client whose queue is full is dropped.
func (h *Hub) post(m message) {
	for c := range h.clients {
		if c == m.source || !c.role.Consumes() {
			continue
		}
		select {
		case c.send <- m.data:
		default:
			h.logger.Warn().Str("id", c.id).Msg("send queue full")
			h.remove(c)
		}
	}
}

// enqueue hands a request to the hub unless it has stopped.
func enqueue[T any](h *Hub, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-h.done:
		return false
	}
}
