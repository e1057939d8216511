package handlers

import (
	"net/http"
	"strconv"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/services"
	"github.com/LovationAdmin/feeding-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	svc    *services.TransactionService
	notify Notifier
	logger *zap.Logger
}

func NewTransactionHandler(svc *services.TransactionService, notify Notifier, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, notify: notifierOrNop(notify), logger: logger}
}

// List supports ?status= and ?fund=. A non-numeric fund matches nothing.
func (h *TransactionHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	filter := services.TransactionFilter{Status: c.Query("status"), Page: page}
	if raw := c.Query("fund"); raw != "" {
		fundID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || fundID <= 0 {
			c.JSON(http.StatusOK, newPaginatedResponse([]models.Transaction{}, 0, page))
			return
		}
		filter.FundID = fundID
	}

	transactions, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(transactions, total, page))
}

func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TransactionHandler) Create(c *gin.Context) {
	var in models.TransactionInput
	if err := decodeBody(c, &in, services.TransactionReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	t, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("transaction recorded",
		zap.Int64("id", t.ID),
		zap.Int64("fund_id", t.FundID),
		utils.PersonField("recipient", t.Recipient),
	)
	h.notify.Notify(Event{Type: EventCreated, Entity: models.ModelTransaction, ID: t.ID})
	c.JSON(http.StatusCreated, t)
}

func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch models.TransactionInput
	if err := decodeBody(c, &patch, services.TransactionReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	t, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notify.Notify(Event{Type: EventUpdated, Entity: models.ModelTransaction, ID: id})
	c.JSON(http.StatusOK, t)
}

func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notify.Notify(Event{Type: EventDeleted, Entity: models.ModelTransaction, ID: id})
	c.Status(http.StatusNoContent)
}
