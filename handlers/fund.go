package handlers

import (
	"net/http"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FundHandler struct {
	svc    *services.FundService
	notify Notifier
	logger *zap.Logger
}

func NewFundHandler(svc *services.FundService, notify Notifier, logger *zap.Logger) *FundHandler {
	return &FundHandler{svc: svc, notify: notifierOrNop(notify), logger: logger}
}

func (h *FundHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	funds, total, err := h.svc.List(c.Request.Context(), services.FundFilter{
		Source: c.Query("source"),
		Page:   page,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(funds, total, page))
}

func (h *FundHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	f, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *FundHandler) Create(c *gin.Context) {
	var in models.FundInput
	if err := decodeBody(c, &in, services.FundReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	f, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("fund allocated", zap.Int64("id", f.ID), zap.String("amount", f.Amount.StringFixed(2)))
	h.notify.Notify(Event{Type: EventCreated, Entity: models.ModelFund, ID: f.ID})
	c.JSON(http.StatusCreated, f)
}

func (h *FundHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch models.FundInput
	if err := decodeBody(c, &patch, services.FundReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	f, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notify.Notify(Event{Type: EventUpdated, Entity: models.ModelFund, ID: id})
	c.JSON(http.StatusOK, f)
}

// Delete also removes the fund's transactions.
func (h *FundHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notify.Notify(Event{Type: EventDeleted, Entity: models.ModelFund, ID: id})
	c.Status(http.StatusNoContent)
}
