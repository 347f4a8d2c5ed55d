// Package notify fans out Job Engine audit events and notifications to
// connected websocket clients, grounded on the teacher's
// internal/handlers.WebSocketHandler broadcast pattern.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/netopscore/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireMessage is the envelope every broadcast frame carries.
type wireMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub fans audit events and notifications out to every connected
// websocket client. It implements both interfaces.AuditSink and
// interfaces.NotificationDispatcher.
type Hub struct {
	logger arbor.ILogger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

func NewHub(logger arbor.ILogger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	h.logger.Info().Int("clients", len(h.clients)).Msg("notify client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()
		conn.Close()
		h.logger.Info().Int("clients", remaining).Msg("notify client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish implements interfaces.AuditSink (§4.8 step 8).
func (h *Hub) Publish(ctx context.Context, event interfaces.AuditEvent) error {
	return h.broadcast("audit", event)
}

// Dispatch implements interfaces.NotificationDispatcher (§4.8 step 7).
func (h *Hub) Dispatch(ctx context.Context, event interfaces.NotificationEvent) error {
	return h.broadcast("notification", event)
}

func (h *Hub) broadcast(kind string, payload interface{}) error {
	data, err := json.Marshal(wireMessage{Type: kind, Payload: payload})
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, mu := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, mu)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		writeErr := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if writeErr != nil {
			h.logger.Warn().Err(writeErr).Msg("failed to write notify frame to client")
		}
	}
	return nil
}
