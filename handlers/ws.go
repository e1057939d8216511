package handlers

import (
	"encoding/json"
	"time"

	"github.com/LovationAdmin/feeding-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"go.uber.org/zap"
)

// Event types pushed to live clients.
const (
	EventCreated       = "created"
	EventUpdated       = "updated"
	EventDeleted       = "deleted"
	EventSyncCompleted = "sync.completed"
)

// Notifier receives a message for every committed change.
type Notifier interface {
	Notify(event Event)
}

// Event describes a change without carrying the changed record, so clients
// refetch through the permission-checked endpoints.
type Event struct {
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"`
	ID     int64  `json:"id,omitempty"`
	UserID int64  `json:"user,omitempty"`
	Count  int    `json:"count,omitempty"`
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// WSHandler fans change events out to connected WebSocket clients.
type WSHandler struct {
	M      *melody.Melody
	logger *zap.Logger
}

func NewWSHandler(logger *zap.Logger) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 4096

	// Keep-alive for hosts that drop idle connections.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &WSHandler{M: m, logger: logger}

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		logger.Info("live client connected", zap.Any("user_id", userID))
	})

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		logger.Info("live client disconnected", zap.Any("user_id", userID))
	})

	m.HandleError(func(s *melody.Session, err error) {
		logger.Warn("websocket error", zap.Error(err))
	})

	return h
}

// HandleWS upgrades an authenticated request to a WebSocket session.
func (h *WSHandler) HandleWS(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{"user_id": userID})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

// Notify broadcasts event to every connected session.
func (h *WSHandler) Notify(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("encode live event", zap.Error(err))
		return
	}
	if err := h.M.Broadcast(msg); err != nil {
		h.logger.Warn("broadcast live event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}
