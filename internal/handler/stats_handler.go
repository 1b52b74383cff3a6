package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

type statsProvider interface {
	Get(ctx context.Context) (*models.DashboardStats, error)
}

// StatsHandler serves dashboard statistics.
type StatsHandler struct {
	service statsProvider
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Get godoc
// @Summary Dashboard statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
