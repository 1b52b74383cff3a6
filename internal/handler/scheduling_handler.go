package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

type schedulingRunner interface {
	Run(ctx context.Context, req dto.ScheduleRunRequest, triggeredBy string) (*dto.ScheduleRunResponse, error)
	Runs(ctx context.Context, limit int) ([]models.ScheduleRun, error)
}

type manualAssigner interface {
	Assign(ctx context.Context, req dto.ManualScheduleRequest) (*dto.ManualScheduleResponse, error)
}

// SchedulingHandler exposes batch and manual scheduling endpoints.
type SchedulingHandler struct {
	service schedulingRunner
	manual  manualAssigner
}

// NewSchedulingHandler constructs the handler.
func NewSchedulingHandler(svc *service.SchedulingService, manual *service.ManualAssignmentService) *SchedulingHandler {
	return &SchedulingHandler{service: svc, manual: manual}
}

// Run godoc
// @Summary Run the batch scheduling engine
// @Description Places every unscheduled exam (or the listed subset) into rooms, time slots and proctors. Returns 409 while another run holds the lock.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRunRequest false "Optional exam subset"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule [post]
func (h *SchedulingHandler) Run(c *gin.Context) {
	var req dto.ScheduleRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Runs godoc
// @Summary List recent scheduling runs
// @Tags Scheduler
// @Produce json
// @Param limit query int false "Maximum runs returned"
// @Success 200 {object} response.Envelope
// @Router /schedule/runs [get]
func (h *SchedulingHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}

// Manual godoc
// @Summary Commit a hand-picked assignment
// @Description Validates the exam, room, slot and proctors against the latest schedule. Hard-constraint violations are returned with status 422.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.ManualScheduleRequest true "Manual assignment"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /manual-schedule [post]
func (h *SchedulingHandler) Manual(c *gin.Context) {
	var req dto.ManualScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid manual schedule payload"))
		return
	}
	result, err := h.manual.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Status == dto.ManualStatusError {
		response.UnprocessableEntity(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
