package server

import (
	"sync"

	"go-vibe/debug"
	"go-vibe/protocol"
)

// DefaultQueueSize bounds each client's outbound queue
const DefaultQueueSize = 256

// Message is one outbound command, encoded once for every receiver
type Message struct {
	Cmd  protocol.ClientCommand
	Data []byte
}

// Client is one connected observer
type Client struct {
	ID   uint64
	Addr string

	out  chan Message
	done chan struct{}
	once sync.Once
}

// Out delivers the client's queued messages in order
func (c *Client) Out() <-chan Message { return c.out }

// Done is closed when the hub drops the client
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub is the registry of connected clients. Broadcast and Send never block:
// a client whose queue is full is disconnected instead.
type Hub struct {
	mu        sync.Mutex
	clients   map[uint64]*Client
	order     []uint64
	nextID    uint64
	queueSize int
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		clients:   make(map[uint64]*Client),
		queueSize: queueSize,
	}
}

// Register adds a client. IDs start at 1 and are never reused.
func (h *Hub) Register(addr string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	c := &Client{
		ID:   h.nextID,
		Addr: addr,
		out:  make(chan Message, h.queueSize),
		done: make(chan struct{}),
	}
	h.clients[c.ID] = c
	h.order = append(h.order, c.ID)
	debug.Info("hub", "client %d connected from %s", c.ID, addr)
	return c
}

// Unregister removes a client; calling it twice is harmless
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c.ID)
}

func (h *Hub) remove(id uint64) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	c.close()
	debug.Info("hub", "client %d disconnected", id)
}

// Len is the number of connected clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func encode(cmd protocol.ClientCommand) (Message, bool) {
	data, err := protocol.EncodeClient(cmd)
	if err != nil {
		debug.Error("hub", "encode %s: %v", cmd.Action(), err)
		return Message{}, false
	}
	return Message{Cmd: cmd, Data: data}, true
}

// Broadcast queues cmd for every client
func (h *Hub) Broadcast(cmd protocol.ClientCommand) {
	msg, ok := encode(cmd)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range append([]uint64(nil), h.order...) {
		h.deliver(h.clients[id], msg)
	}
}

// Send queues cmd for one client. Unknown IDs are ignored.
func (h *Hub) Send(to uint64, cmd protocol.ClientCommand) {
	msg, ok := encode(cmd)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[to]; ok {
		h.deliver(c, msg)
	}
}

// deliver queues without blocking. Caller holds mu.
func (h *Hub) deliver(c *Client, msg Message) {
	if !TrySend(c.out, msg) {
		debug.Warn("hub", "client %d is too slow, dropping it", c.ID)
		h.remove(c.ID)
	}
}

// CloseAll drops every client, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range append([]uint64(nil), h.order...) {
		h.remove(id)
	}
}

// TrySend is a helper function to send a value to a channel if it is not
// full. It is guaranteed to be non-blocking. Return true if the value was
// sent, false otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
