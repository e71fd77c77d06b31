// internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Notification messages
	MessageNotification      MessageType = "notification"
	MessageNotificationCount MessageType = "notification_count"

	// User presence
	MessageUserOnline  MessageType = "user_online"
	MessageUserOffline MessageType = "user_offline"

	// System messages
	MessagePing  MessageType = "ping"
	MessagePong  MessageType = "pong"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	UserID   string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	Rooms    map[string]bool // user:<id>, project:<id>
	mu       sync.Mutex
	lastPing time.Time
}

// RoomAuthorizer decides whether userID may join room.
type RoomAuthorizer func(ctx context.Context, userID, room string) bool

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool
	roomClients map[string]map[*Client]bool

	register      chan *Client
	unregister    chan *Client
	broadcast     chan []byte
	roomBroadcast chan *RoomMessage
	directMessage chan *DirectMessage
	stop          chan struct{}

	authorize RoomAuthorizer

	mu sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
	Exclude string // User ID to exclude from broadcast
}

// DirectMessage represents a message to be sent to a specific user
type DirectMessage struct {
	UserID  string
	Message []byte
}

// NewHub creates a new Hub. A nil authorizer only admits a client to its own user room.
func NewHub(authorize RoomAuthorizer) *Hub {
	if authorize == nil {
		authorize = func(_ context.Context, userID, room string) bool {
			return room == UserRoom(userID)
		}
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan []byte, 256),
		roomBroadcast: make(chan *RoomMessage, 256),
		directMessage: make(chan *DirectMessage, 256),
		stop:          make(chan struct{}),
		authorize:     authorize,
	}
}

func UserRoom(userID string) string       { return "user:" + userID }
func ProjectRoom(projectID string) string { return "project:" + projectID }

// ProjectAccess is the access check project rooms are guarded by.
type ProjectAccess interface {
	HasProjectAccess(ctx context.Context, projectID, userID string) (bool, error)
}

// ProjectRoomAuthorizer admits a client to its own user room and to the rooms
// of projects it can access.
func ProjectRoomAuthorizer(access ProjectAccess) RoomAuthorizer {
	return func(ctx context.Context, userID, room string) bool {
		if room == UserRoom(userID) {
			return true
		}
		projectID := strings.TrimPrefix(room, "project:")
		if projectID == room || projectID == "" {
			return false
		}
		ok, err := access.HasProjectAccess(ctx, projectID, userID)
		if err != nil {
			log.Printf("[Hub] access check for room %s failed: %v", room, err)
			return false
		}
		return ok
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	log.Println("[Hub] WebSocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)

		case rm := <-h.roomBroadcast:
			h.broadcastToRoom(rm)

		case dm := <-h.directMessage:
			h.sendToUser(dm)

		case <-pingTicker.C:
			h.pingClients()

		case <-h.stop:
			h.closeAll()
			log.Println("[Hub] WebSocket hub stopped")
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true

	room := UserRoom(client.UserID)
	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()
	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true

	log.Printf("[Hub] Client registered: user=%s, id=%s, total_clients=%d",
		client.UserID, client.ID, len(h.clients))

	h.queueBroadcast(statusMessage(client.UserID, true))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	if clients, ok := h.userClients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userClients, client.UserID)
			h.queueBroadcast(statusMessage(client.UserID, false))
		}
	}

	client.mu.Lock()
	for room := range client.Rooms {
		if clients, ok := h.roomClients[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
	client.mu.Unlock()

	close(client.Send)
	log.Printf("[Hub] Client disconnected: user=%s, id=%s, total_clients=%d",
		client.UserID, client.ID, len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
	h.roomClients = make(map[string]map[*Client]bool)
}

// deliver hands message to client, dropping the client when its buffer is full.
func (h *Hub) deliver(client *Client, message []byte) bool {
	select {
	case client.Send <- message:
		return true
	default:
		go func(c *Client) {
			select {
			case h.unregister <- c:
			case <-h.stop:
			}
		}(client)
		return false
	}
}

func (h *Hub) broadcastToAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		h.deliver(client, message)
	}
}

func (h *Hub) broadcastToRoom(rm *RoomMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.roomClients[rm.Room] {
		if rm.Exclude != "" && client.UserID == rm.Exclude {
			continue
		}
		if h.deliver(client, rm.Message) {
			sent++
		}
	}
	return sent
}

func (h *Hub) sendToUser(dm *DirectMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.userClients[dm.UserID] {
		if h.deliver(client, dm.Message) {
			sent++
		}
	}
	return sent
}

func (h *Hub) pingClients() {
	data, _ := json.Marshal(Message{Type: MessagePing, Timestamp: time.Now()})
	h.broadcastToAll(data)
}

// ============================================
// Room Management
// ============================================

// JoinRoom adds a client to a room if the authorizer admits it.
func (h *Hub) JoinRoom(ctx context.Context, client *Client, room string) bool {
	if !h.authorize(ctx, client.UserID, room) {
		log.Printf("[Hub] Room join denied: user=%s, room=%s", client.UserID, room)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
	return true
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}
}

// ============================================
// Sending
// ============================================

func encode(msgType MessageType, payload interface{}) ([]byte, bool) {
	data, err := json.Marshal(Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("[Hub] Error marshaling message: %v", err)
		return nil, false
	}
	return data, true
}

// SendToUser queues a message for every connection of userID. It never blocks.
func (h *Hub) SendToUser(userID string, msgType MessageType, payload interface{}) {
	data, ok := encode(msgType, payload)
	if !ok {
		return
	}
	select {
	case h.directMessage <- &DirectMessage{UserID: userID, Message: data}:
	default:
		log.Printf("[Hub] Direct queue full, dropping %s for user %s", msgType, userID)
	}
}

// SendToRoom queues a message for a room. It never blocks.
func (h *Hub) SendToRoom(room string, msgType MessageType, payload interface{}, excludeUserID string) {
	data, ok := encode(msgType, payload)
	if !ok {
		return
	}
	select {
	case h.roomBroadcast <- &RoomMessage{Room: room, Message: data, Exclude: excludeUserID}:
	default:
		log.Printf("[Hub] Room queue full, dropping %s for room %s", msgType, room)
	}
}

func (h *Hub) queueBroadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
	}
}

func statusMessage(userID string, online bool) []byte {
	msgType := MessageUserOffline
	if online {
		msgType = MessageUserOnline
	}
	data, _ := encode(msgType, map[string]interface{}{
		"userId": userID,
		"online": online,
	})
	return data
}

// ============================================
// Query Methods
// ============================================

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.userClients[userID]
	return ok
}

// RoomSize returns the number of clients in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}

// ClientCount returns total connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
