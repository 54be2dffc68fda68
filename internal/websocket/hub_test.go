package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turntable-server/turntable/internal/domain"
)

func testHub() *Hub {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewHub(logger)
}

func addClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{id: "test-client", hub: h, send: make(chan []byte, 16)}
	h.register <- c
	return c
}

func waitForSubscribers(t *testing.T, h *Hub, event string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients[event]) == want
	}, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case payload := <-c.send:
		var m Message
		require.NoError(t, json.Unmarshal(payload, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	h := testHub()
	go h.Run()
	defer h.Stop()

	c := addClient(t, h)
	h.subscribe <- &subscriptionRequest{client: c, event: MessageTypeUserUpdate}
	waitForSubscribers(t, h, MessageTypeUserUpdate, 1)

	h.PublishUserUpdate(17, domain.ModeTaiko)

	m := receive(t, c)
	assert.Equal(t, MessageTypeUserUpdate, m.Type)

	data, err := json.Marshal(m.Data)
	require.NoError(t, err)
	var update UserUpdate
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, 17, update.UserID)
	assert.Equal(t, domain.ModeTaiko, update.Mode)
}

func TestHubSkipsUnsubscribedClients(t *testing.T) {
	h := testHub()
	go h.Run()
	defer h.Stop()

	c := addClient(t, h)

	h.PublishUserUpdate(17, domain.ModeOsu)

	select {
	case <-c.send:
		t.Fatal("unsubscribed client received a message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := testHub()
	go h.Run()
	defer h.Stop()

	c := addClient(t, h)
	h.subscribe <- &subscriptionRequest{client: c, event: MessageTypeUserUpdate}
	waitForSubscribers(t, h, MessageTypeUserUpdate, 1)
	h.unsubscribe <- &subscriptionRequest{client: c, event: MessageTypeUserUpdate}
	waitForSubscribers(t, h, MessageTypeUserUpdate, 0)

	h.PublishUserUpdate(17, domain.ModeOsu)

	select {
	case <-c.send:
		t.Fatal("unsubscribed client received a message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeWsAfterStopClosesConnection(t *testing.T) {
	h := testHub()
	go h.Run()
	h.Stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(h, logger, w, r)
	}))
	defer srv.Close()

	// An upgrade landing after shutdown must not leave the handler
	// goroutine parked on a hub that will never accept it.
	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, h.TotalConnections())
}

func TestHubStopClosesClients(t *testing.T) {
	h := testHub()
	go h.Run()

	c := addClient(t, h)
	assert.Eventually(t, func() bool { return h.TotalConnections() == 1 },
		time.Second, 10*time.Millisecond)

	h.Stop()

	_, open := <-c.send
	assert.False(t, open)
	assert.Zero(t, h.TotalConnections())
}
