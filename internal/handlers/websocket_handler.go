package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"go-solver/internal/services"
)

// WebSocketHandler manages WebSocket connections and subscriptions
type WebSocketHandler struct {
	pushService *services.WebSocketPushService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(pushService *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{
		pushService: pushService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// SubscriptionMessage represents a client subscription request
type SubscriptionMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	BatchID string `json:"batch_id"`
}

// HandleWebSocket handles GET /ws
// Upgrades the connection and serves subscription messages until the
// client disconnects.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	connection := h.pushService.Register(conn)
	defer h.pushService.Unregister(connection.ID)

	logrus.WithField("connection_id", connection.ID).Info("WebSocket client connected")

	conn.SetReadLimit(4096)
	conn.SetPongHandler(func(string) error {
		connection.LastPing = time.Now()
		return nil
	})

	for {
		var msg SubscriptionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("connection_id", connection.ID).Debug("WebSocket read failed")
			}
			return
		}

		switch msg.Action {
		case "subscribe":
			if msg.BatchID != "" {
				h.pushService.Subscribe(connection.ID, msg.BatchID)
			}
		case "unsubscribe":
			if msg.BatchID != "" {
				h.pushService.Unsubscribe(connection.ID, msg.BatchID)
			}
		default:
			logrus.WithFields(logrus.Fields{
				"connection_id": connection.ID,
				"action":        msg.Action,
			}).Debug("Unknown WebSocket action")
		}
	}
}
