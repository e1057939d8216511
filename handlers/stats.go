package handlers

import (
	"net/http"

	"github.com/LovationAdmin/feeding-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatsHandler struct {
	svc    *services.StatsService
	logger *zap.Logger
}

func NewStatsHandler(svc *services.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Counts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) Report(c *gin.Context) {
	report, err := h.svc.Report(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
