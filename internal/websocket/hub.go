package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/turntable-server/turntable/internal/domain"
)

// Message types
const (
	MessageTypeUserUpdate  = "user_update"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// Message is one frame on the internal event feed.
type Message struct {
	Type      string      `json:"type"`
	Event     string      `json:"event,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// UserUpdate tells the realtime server a player switched modes while
// browsing leaderboards, so their presence can follow.
type UserUpdate struct {
	UserID int             `json:"user_id"`
	Mode   domain.GameMode `json:"mode"`
}

// Hub maintains the set of connected internal consumers (the realtime
// server, typically) and fans events out to the ones subscribed to each
// event type.
type Hub struct {
	// Registered clients by event type
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

type subscriptionRequest struct {
	client *Client
	event  string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Run processes hub events until Stop is called.
func (h *Hub) Run() {
	defer close(h.doneCh)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Info("event client connected", "client_id", client.id)

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.clients[req.event] == nil {
				h.clients[req.event] = make(map[*Client]bool)
			}
			h.clients[req.event][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("event subscription added", "client_id", req.client.id, "event", req.event)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if subs := h.clients[req.event]; subs != nil {
				delete(subs, req.client)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.stopCh:
			h.mu.Lock()
			for client := range h.allClients {
				close(client.send)
			}
			h.allClients = make(map[*Client]bool)
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

// add registers a client, or reports false when the hub has stopped and will
// never accept it. Without the stop check a late upgrade would block its
// handler goroutine forever.
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stopCh:
		return false
	}
}

// remove unregisters a client, tolerating a hub that already stopped.
func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopCh:
	}
}

// PublishUserUpdate fans a mode change out to subscribed consumers. Never
// blocks the request path.
func (h *Hub) PublishUserUpdate(userID int, mode domain.GameMode) {
	message := &Message{
		Type:      MessageTypeUserUpdate,
		Event:     MessageTypeUserUpdate,
		Data:      UserUpdate{UserID: userID, Mode: mode},
		Timestamp: time.Now(),
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("event broadcast queue full, dropping user update", "user_id", userID)
	}
}

// TotalConnections returns the number of connected clients.
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}

func (h *Hub) deliver(message *Message) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal event message", "error", err)
		return
	}

	h.mu.RLock()
	subs := h.clients[message.Event]
	targets := make([]*Client, 0, len(subs))
	for client := range subs {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- payload:
		default:
			// Slow consumer: drop the connection rather than the
			// whole feed.
			h.removeClient(client)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.allClients[client]; ok {
		delete(h.allClients, client)
		for _, subs := range h.clients {
			delete(subs, client)
		}
		close(client.send)
		h.logger.Info("event client disconnected", "client_id", client.id)
	}
	h.mu.Unlock()
}
