package websocket

import (
	"log/slog"
	"sync"
)

// Hub is the connection registry. It knows every live client and which room codes
// each one is subscribed to.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	closed  bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "Hub"),
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// register returns false once the hub is closed.
func (that *Hub) register(client *Client) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	that.clients[client.id] = client

	return true
}

// unregister forgets the client everywhere and closes its outbound queue.
func (that *Hub) unregister(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.clients[client.id] != client {
		return
	}

	delete(that.clients, client.id)

	for code, members := range that.rooms {
		delete(members, client.id)
		if len(members) == 0 {
			delete(that.rooms, code)
		}
	}

	client.closeSend()
}

func (that *Hub) Subscribe(code, connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	client, ok := that.clients[connectionID]
	if !ok {
		return
	}

	if that.rooms[code] == nil {
		that.rooms[code] = make(map[string]*Client)
	}
	that.rooms[code][connectionID] = client
}

func (that *Hub) Unsubscribe(code, connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.rooms[code]
	if !ok {
		return
	}

	delete(members, connectionID)
	if len(members) == 0 {
		delete(that.rooms, code)
	}
}

// Broadcast queues the event for every client subscribed to code without blocking.
func (that *Hub) Broadcast(code, event string, payload any) {
	log := that.logger.With("method", "Broadcast", "code", code, "event", event)

	message, err := encode(event, "", payload)
	if err != nil {
		log.Error("failed to encode event", "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, client := range that.rooms[code] {
		if !client.enqueue(message) {
			log.Warn("client send buffer full, event dropped", "connectionID", client.id)
		}
	}
}

// Send queues a message for a single client.
func (that *Hub) Send(connectionID string, message []byte) bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	client, ok := that.clients[connectionID]
	if !ok {
		return false
	}

	return client.enqueue(message)
}

func (that *Hub) Members(code string) int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms[code])
}

// Len counts registered clients.
func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

// Close drops every client and refuses new ones. Their loops notice and finish the disconnect path.
func (that *Hub) Close() {
	that.mu.Lock()
	that.closed = true
	clients := make([]*Client, 0, len(that.clients))
	for _, client := range that.clients {
		clients = append(clients, client)
	}
	that.mu.Unlock()

	for _, client := range clients {
		_ = client.conn.Close()
	}
}
