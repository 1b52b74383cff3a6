package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

type conflictLister interface {
	List(ctx context.Context, query dto.ConflictQuery) (*dto.ConflictReport, error)
}

// ConflictHandler serves the conflict audit view.
type ConflictHandler struct {
	service conflictLister
}

// NewConflictHandler constructs the handler.
func NewConflictHandler(svc *service.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: svc}
}

// List godoc
// @Summary List conflicts in the committed schedule
// @Description Ordered by severity (high first), then exam ids.
// @Tags Scheduler
// @Produce json
// @Param kind query string false "room, proctor, department or level"
// @Param severity query string false "high, medium or low"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	var query dto.ConflictQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict query"))
		return
	}
	report, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report.Conflicts, nil, map[string]interface{}{"total": report.Total})
}
