package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The feed is internal; the deployment fronts it with network
		// policy, not origin checks.
		return true
	},
}

// Client is one connected event consumer.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// ClientMessage represents a control message from the consumer.
type ClientMessage struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
}

// ServeWs upgrades an HTTP request to a websocket connection and registers
// it with the hub.
func ServeWs(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade websocket", "error", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		logger: logger,
	}

	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump handles subscription control messages from the consumer.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}

		var message ClientMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			c.logger.Warn("malformed client message", "client_id", c.id, "error", err)
			continue
		}

		switch message.Type {
		case MessageTypeSubscribe:
			if message.Event != "" {
				c.hub.subscribe <- &subscriptionRequest{client: c, event: message.Event}
			}
		case MessageTypeUnsubscribe:
			if message.Event != "" {
				c.hub.unsubscribe <- &subscriptionRequest{client: c, event: message.Event}
			}
		case MessageTypePing:
			pong, _ := json.Marshal(Message{Type: MessageTypePong, Timestamp: time.Now()})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// writePump pushes hub messages and keepalive pings to the consumer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
