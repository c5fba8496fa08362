package feed

import (
	"context"
	"sync"
	"time"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
)

const (
	clientBufferSize = 256
	pingInterval     = 30 * time.Second
)

// Hub fans feed events out to connected clients.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 10),
		unregister: make(chan *Client, 10),
		broadcast:  make(chan *Event, 1000),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-h.register:
			h.addClient(c)

		case c := <-h.unregister:
			h.removeClient(c)

		case ev := <-h.broadcast:
			h.deliver(ev)

		case <-ticker.C:
			h.deliver(&Event{Type: EventPing, Timestamp: time.Now().Unix()})

		case <-h.ctx.Done():
			h.closeAllClients()
			return
		}
	}
}

// Register adds c to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister removes c and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Publish queues ev for delivery without blocking.
func (h *Hub) Publish(_ context.Context, ev *Event) error {
	select {
	case h.broadcast <- ev:
	default:
		metrics.IncrementFeedEventsDropped()
		logger.Warn("Feed broadcast buffer full, dropping event")
	}
	return nil
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
	metrics.IncrementFeedConnections()

	logger.WithFields(map[string]any{
		"client_id":     c.ID,
		"counterparty":  c.Counterparty,
		"total_clients": len(h.clients),
	}).Info("Feed client registered")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.Send)
	metrics.DecrementFeedConnections()

	logger.WithFields(map[string]any{
		"client_id":     c.ID,
		"total_clients": len(h.clients),
	}).Info("Feed client unregistered")
}

func (h *Hub) deliver(ev *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.Send <- ev:
		default:
			metrics.IncrementFeedEventsDropped()
			logger.WithField("client_id", id).Warn("Feed client buffer full, dropping event")
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		close(c.Send)
		metrics.DecrementFeedConnections()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.cancel()
	<-h.done
}
