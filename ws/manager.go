package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"shoplist-server/entities"
)

const (
	EventListUpdate  = "listUpdate"
	EventListDeleted = "listDeleted"
	EventJoined      = "joined"
	EventLeft        = "left"
	EventError       = "error"
)

// Envelope is the frame written to subscribers.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Manager keeps track of connected clients and the list channels they
// joined. Membership lives only as long as the connection.
type Manager struct {
	mu      sync.RWMutex
	clients map[*Client]map[string]struct{} // client -> joined list uuids
	rooms   map[string]map[*Client]struct{} // list uuid -> members
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[*Client]map[string]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connected client with no channels joined.
func (m *Manager) Register(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; !ok {
		m.clients[c] = make(map[string]struct{})
	}
}

// Unregister removes the client from every channel and closes its send
// queue. Calling it more than once is harmless.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined, ok := m.clients[c]
	if !ok {
		return
	}
	for listUUID := range joined {
		m.removeMember(listUUID, c)
	}
	delete(m.clients, c)
	close(c.send)
}

// Join subscribes a registered client to a list channel.
func (m *Manager) Join(c *Client, listUUID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined, ok := m.clients[c]
	if !ok {
		return false
	}
	room, ok := m.rooms[listUUID]
	if !ok {
		room = make(map[*Client]struct{})
		m.rooms[listUUID] = room
	}
	room[c] = struct{}{}
	joined[listUUID] = struct{}{}
	return true
}

// Leave unsubscribes a client from a list channel.
func (m *Manager) Leave(c *Client, listUUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if joined, ok := m.clients[c]; ok {
		delete(joined, listUUID)
	}
	m.removeMember(listUUID, c)
}

// removeMember must be called with m.mu held.
func (m *Manager) removeMember(listUUID string, c *Client) {
	room, ok := m.rooms[listUUID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(m.rooms, listUUID)
	}
}

// PublishUpdate sends the full list document to every member of its channel.
func (m *Manager) PublishUpdate(listUUID string, list *entities.ShoppingList) {
	payload, err := json.Marshal(Envelope{Event: EventListUpdate, Data: list})
	if err != nil {
		slog.Error("failed to encode list update", "list", listUUID, "error", err)
		return
	}
	m.broadcast(listUUID, payload)
}

// PublishDeletion tells members the list is gone and closes the channel.
func (m *Manager) PublishDeletion(listUUID string) {
	payload, err := json.Marshal(Envelope{Event: EventListDeleted, Data: map[string]string{"uuid": listUUID}})
	if err != nil {
		slog.Error("failed to encode list deletion", "list", listUUID, "error", err)
		return
	}
	m.broadcast(listUUID, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.rooms[listUUID] {
		if joined, ok := m.clients[c]; ok {
			delete(joined, listUUID)
		}
	}
	delete(m.rooms, listUUID)
}

// broadcast enqueues payload for each member without blocking. Members
// whose queue is full are dropped.
func (m *Manager) broadcast(listUUID string, payload []byte) {
	var slow []*Client

	// Sends happen under the read lock so Unregister cannot close a queue
	// mid-send.
	m.mu.RLock()
	delivered := 0
	for c := range m.rooms[listUUID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("dropping slow realtime client", "list", listUUID, "user", c.UserID)
		m.Unregister(c)
	}
	slog.Debug("list broadcast", "list", listUUID, "delivered", delivered, "dropped", len(slow))
}

// SendTo writes a single frame to one client, if it is still registered.
func (m *Manager) SendTo(c *Client, event string, data any) bool {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Members returns the number of clients subscribed to a list.
func (m *Manager) Members(listUUID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[listUUID])
}

// Channels returns a copy of the active channels with their member counts.
func (m *Manager) Channels() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.rooms))
	for id, room := range m.rooms {
		out[id] = len(room)
	}
	return out
}

// ConnectedClients returns the number of open connections.
func (m *Manager) ConnectedClients() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
