package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"go-solver/internal/metrics"
	"go-solver/internal/solver"
)

// Connection is one attached WebSocket client. BatchIDs is the client's
// subscription filter; empty means all batches.
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Send     chan []byte
	BatchIDs map[string]struct{}
	LastPing time.Time
}

// PushMessage is the envelope for every pushed update.
type PushMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id"`
	Data      interface{} `json:"data"`
}

// SolutionUpdateData carries one solution lifecycle update.
type SolutionUpdateData struct {
	Action   string           `json:"action"` // 'assembled' | 'submitted' | 'rejected'
	Solution *solver.Solution `json:"solution"`
}

// WebSocketPushService fans solve-progress updates out to attached
// clients. Connections register through the WebSocket handler.
type WebSocketPushService struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewWebSocketPushService creates a new WebSocketPushService instance
func NewWebSocketPushService() *WebSocketPushService {
	return &WebSocketPushService{
		connections: make(map[string]*Connection),
	}
}

// Register attaches a connection and starts its writer loop.
func (s *WebSocketPushService) Register(conn *websocket.Conn) *Connection {
	connection := &Connection{
		ID:       uuid.New().String(),
		Conn:     conn,
		Send:     make(chan []byte, 64),
		BatchIDs: make(map[string]struct{}),
		LastPing: time.Now(),
	}

	s.mu.Lock()
	s.connections[connection.ID] = connection
	s.mu.Unlock()
	metrics.WebSocketConnections.Inc()

	go s.writeLoop(connection)
	return connection
}

// Unregister detaches a connection and closes its channel.
func (s *WebSocketPushService) Unregister(connectionID string) {
	s.mu.Lock()
	connection, ok := s.connections[connectionID]
	if ok {
		delete(s.connections, connectionID)
	}
	s.mu.Unlock()

	if ok {
		close(connection.Send)
		metrics.WebSocketConnections.Dec()
	}
}

// Subscribe narrows a connection's updates to the given batch.
func (s *WebSocketPushService) Subscribe(connectionID, batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connection, ok := s.connections[connectionID]; ok {
		connection.BatchIDs[batchID] = struct{}{}
	}
}

// Unsubscribe removes a batch filter from a connection.
func (s *WebSocketPushService) Unsubscribe(connectionID, batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if connection, ok := s.connections[connectionID]; ok {
		delete(connection.BatchIDs, batchID)
	}
}

// PushSolutionUpdate broadcasts a solution lifecycle update to every
// connection subscribed to its batch (or to everything).
func (s *WebSocketPushService) PushSolutionUpdate(solution *solver.Solution, action string) {
	message := PushMessage{
		Type:      "solution_update",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
		Data: SolutionUpdateData{
			Action:   action,
			Solution: solution,
		},
	}

	payload, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal push message")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, connection := range s.connections {
		if len(connection.BatchIDs) > 0 {
			if _, ok := connection.BatchIDs[solution.BatchID]; !ok {
				continue
			}
		}
		select {
		case connection.Send <- payload:
		default:
			// Slow consumer, drop the update rather than block the solve path.
			logrus.WithField("connection_id", connection.ID).Warn("WebSocket send buffer full, dropping update")
		}
	}
}

// writeLoop serializes writes for one connection.
func (s *WebSocketPushService) writeLoop(connection *Connection) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		connection.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-connection.Send:
			if !ok {
				connection.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := connection.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logrus.WithError(err).WithField("connection_id", connection.ID).Debug("WebSocket write failed")
				return
			}
		case <-ticker.C:
			if err := connection.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
