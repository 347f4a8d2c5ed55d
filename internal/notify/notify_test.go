package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/netopscore/internal/interfaces"
)

func httpHandler(hub *Hub) http.HandlerFunc {
	return hub.HandleWebSocket
}

func TestPublish_BroadcastsAuditEventToConnectedClient(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	server := httptest.NewServer(httpHandler(hub))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, hub.Publish(t.Context(), interfaces.AuditEvent{Type: interfaces.AuditJobStarted, JobName: "ping-sweep"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"audit"`)
	assert.Contains(t, string(data), "ping-sweep")
}

func TestDispatch_BroadcastsNotificationEventToConnectedClient(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	server := httptest.NewServer(httpHandler(hub))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, hub.Dispatch(t.Context(), interfaces.NotificationEvent{Title: "job failed", Body: "ping sweep returned no hosts"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"notification"`)
	assert.Contains(t, string(data), "job failed")
}

func TestBroadcast_NoClientsIsANoOp(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	assert.NoError(t, hub.Publish(t.Context(), interfaces.AuditEvent{Type: interfaces.AuditJobStarted}))
}

func TestHandleWebSocket_DisconnectRemovesClient(t *testing.T) {
	hub := NewHub(arbor.NewLogger())
	server := httptest.NewServer(httpHandler(hub))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	hub.mu.RLock()
	connected := len(hub.clients)
	hub.mu.RUnlock()
	assert.Equal(t, 1, connected)

	conn.Close()
	time.Sleep(50 * time.Millisecond)

	hub.mu.RLock()
	remaining := len(hub.clients)
	hub.mu.RUnlock()
	assert.Equal(t, 0, remaining)
}
