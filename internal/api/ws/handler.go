package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/andjs/internal/capability/adb"
	"github.com/GriffinCanCode/andjs/internal/infrastructure/monitoring"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	subBuffer    = 64
)

// Message is one frame sent to log stream clients.
type Message struct {
	Type    string     `json:"type"`
	Message string     `json:"message,omitempty"`
	Entry   *adb.Entry `json:"entry,omitempty"`
}

// Handler streams adb entries to websocket clients
type Handler struct {
	hub      *adb.Hub
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new log stream handler. metrics may be nil.
func NewHandler(hub *adb.Hub, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		metrics: metrics,
		logger:  logger.Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is enforced by the CORS middleware
			},
		},
	}
}

// HandleConnection upgrades the request and streams entries until the client
// goes away. ?history=n first replays the n most recent entries.
func (h *Handler) HandleConnection(c *gin.Context) {
	replay := 0
	if raw := c.Query("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "history must be a non-negative integer"})
			return
		}
		replay = n
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	history, entries, cancel := h.hub.SubscribeWithHistory(replay, subBuffer)
	defer cancel()

	// Reader: only needed to notice the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, Message{Type: "system", Message: "connected"}); err != nil {
		return
	}
	for _, e := range history {
		entry := e
		if err := h.send(conn, Message{Type: "entry", Entry: &entry}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := h.send(conn, Message{Type: "entry", Entry: &e}); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg Message) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", msg.Type)
	}
	return nil
}
