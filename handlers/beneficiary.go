package handlers

import (
	"net/http"

	"github.com/LovationAdmin/feeding-api/models"
	"github.com/LovationAdmin/feeding-api/services"
	"github.com/LovationAdmin/feeding-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BeneficiaryHandler struct {
	svc    *services.BeneficiaryService
	notify Notifier
	logger *zap.Logger
}

func NewBeneficiaryHandler(svc *services.BeneficiaryService, notify Notifier, logger *zap.Logger) *BeneficiaryHandler {
	return &BeneficiaryHandler{svc: svc, notify: notifierOrNop(notify), logger: logger}
}

// List supports ?search= over name and location and an exact ?location=.
func (h *BeneficiaryHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	beneficiaries, total, err := h.svc.List(c.Request.Context(), services.BeneficiaryFilter{
		Search:   c.Query("search"),
		Location: c.Query("location"),
		Page:     page,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(beneficiaries, total, page))
}

func (h *BeneficiaryHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BeneficiaryHandler) Create(c *gin.Context) {
	var in models.BeneficiaryInput
	if err := decodeBody(c, &in, services.BeneficiaryReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	b, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("beneficiary created", zap.Int64("id", b.ID), utils.PersonField("name", b.Name))
	h.notify.Notify(Event{Type: EventCreated, Entity: models.ModelBeneficiary, ID: b.ID})
	c.JSON(http.StatusCreated, b)
}

// Update applies a partial update: absent fields keep their stored value.
func (h *BeneficiaryHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch models.BeneficiaryInput
	if err := decodeBody(c, &patch, services.BeneficiaryReadOnly); err != nil {
		respondError(c, h.logger, err)
		return
	}

	b, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notify.Notify(Event{Type: EventUpdated, Entity: models.ModelBeneficiary, ID: id})
	c.JSON(http.StatusOK, b)
}

func (h *BeneficiaryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.notify.Notify(Event{Type: EventDeleted, Entity: models.ModelBeneficiary, ID: id})
	c.Status(http.StatusNoContent)
}
