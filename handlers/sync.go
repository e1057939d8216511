package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LovationAdmin/feeding-api/middleware"
	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errMalformedSync = errors.New("malformed sync request")

type SyncHandler struct {
	sync   *services.SyncService
	audit  *services.AuditService
	notify Notifier
	logger *zap.Logger
}

func NewSyncHandler(sync *services.SyncService, audit *services.AuditService, notify Notifier, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, audit: audit, notify: notifierOrNop(notify), logger: logger}
}

// Sync reconciles a batch of offline entries. The body is one entry or an
// array of them. A body that is neither fails the whole call.
func (h *SyncHandler) Sync(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	raw, err := c.GetRawData()
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := splitEntries(raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	results, err := h.sync.Reconcile(c.Request.Context(), userID, entries)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.notify.Notify(Event{Type: EventSyncCompleted, UserID: userID, Count: len(results)})
	c.JSON(http.StatusOK, models.SyncResponse{Results: results})
}

// fail answers 500 without a results list. Only a malformed envelope is
// named; storage and commit failures get the generic message.
func (h *SyncHandler) fail(c *gin.Context, err error) {
	h.logger.Error("sync request failed", zap.Error(err))
	msg := "Internal server error"
	if errors.Is(err, errMalformedSync) {
		msg = errMalformedSync.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func splitEntries(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errMalformedSync
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, errMalformedSync
		}
		return entries, nil
	case '{':
		if !json.Valid(trimmed) {
			return nil, errMalformedSync
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	default:
		return nil, errMalformedSync
	}
}

// Audit lists reconciled entries, optionally for one ?batch=.
func (h *SyncHandler) Audit(c *gin.Context) {
	filter := services.AuditFilter{Page: pageFromQuery(c)}
	if raw := c.Query("batch"); raw != "" {
		batchID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"batch": "Must be a valid UUID."}})
			return
		}
		filter.BatchID = batchID
	}

	records, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}
