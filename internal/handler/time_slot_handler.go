package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

type timeSlotManager interface {
	List(ctx context.Context) ([]models.TimeSlot, error)
	Generate(ctx context.Context, req dto.GenerateTimeSlotsRequest) (*dto.GenerateTimeSlotsResponse, error)
}

// TimeSlotHandler exposes time-slot endpoints.
type TimeSlotHandler struct {
	service timeSlotManager
}

// NewTimeSlotHandler constructs the handler.
func NewTimeSlotHandler(svc *service.TimeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{service: svc}
}

// List godoc
// @Summary List time slots
// @Tags TimeSlots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *TimeSlotHandler) List(c *gin.Context) {
	slots, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Generate godoc
// @Summary Bulk-generate time slots
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimeSlotsRequest true "Generation window"
// @Success 201 {object} response.Envelope
// @Router /timeslots/generate [post]
func (h *TimeSlotHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimeSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time slot payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
