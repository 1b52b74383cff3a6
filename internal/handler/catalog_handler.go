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

type catalogManager interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error)
	ListProctors(ctx context.Context) ([]models.Proctor, error)
	GetProctor(ctx context.Context, id string) (*models.Proctor, error)
	CreateProctor(ctx context.Context, req dto.CreateProctorRequest) (*models.Proctor, error)
	ListExams(ctx context.Context, query dto.ExamListQuery) ([]models.Exam, *models.Pagination, error)
	GetExam(ctx context.Context, id string) (*models.Exam, error)
	CreateExam(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error)
	DeleteExam(ctx context.Context, id string) error
	UnscheduleExam(ctx context.Context, id string) (*models.Exam, error)
}

// CatalogHandler manages rooms, proctors and exams.
type CatalogHandler struct {
	service catalogManager
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListRooms godoc
// @Summary List rooms
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// GetRoom godoc
// @Summary Get room
// @Tags Catalog
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *CatalogHandler) GetRoom(c *gin.Context) {
	room, err := h.service.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// CreateRoom godoc
// @Summary Create room
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}
	room, err := h.service.CreateRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// ListProctors godoc
// @Summary List proctors
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proctors [get]
func (h *CatalogHandler) ListProctors(c *gin.Context) {
	proctors, err := h.service.ListProctors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proctors, nil)
}

// GetProctor godoc
// @Summary Get proctor
// @Tags Catalog
// @Produce json
// @Param id path string true "Proctor ID"
// @Success 200 {object} response.Envelope
// @Router /proctors/{id} [get]
func (h *CatalogHandler) GetProctor(c *gin.Context) {
	proctor, err := h.service.GetProctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proctor, nil)
}

// CreateProctor godoc
// @Summary Create proctor
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateProctorRequest true "Proctor payload"
// @Success 201 {object} response.Envelope
// @Router /proctors [post]
func (h *CatalogHandler) CreateProctor(c *gin.Context) {
	var req dto.CreateProctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proctor payload"))
		return
	}
	proctor, err := h.service.CreateProctor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proctor)
}

// ListExams godoc
// @Summary List exams
// @Tags Catalog
// @Produce json
// @Param level query string false "Academic level"
// @Param department query string false "Department"
// @Param date query string false "Scheduled date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *CatalogHandler) ListExams(c *gin.Context) {
	var query dto.ExamListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam query"))
		return
	}
	exams, pagination, err := h.service.ListExams(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// GetExam godoc
// @Summary Get exam
// @Tags Catalog
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *CatalogHandler) GetExam(c *gin.Context) {
	exam, err := h.service.GetExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// CreateExam godoc
// @Summary Create exam
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *CatalogHandler) CreateExam(c *gin.Context) {
	var req dto.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	exam, err := h.service.CreateExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// DeleteExam godoc
// @Summary Delete exam and release its time slot
// @Tags Catalog
// @Param id path string true "Exam ID"
// @Success 204
// @Router /exams/{id} [delete]
func (h *CatalogHandler) DeleteExam(c *gin.Context) {
	if err := h.service.DeleteExam(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnscheduleExam godoc
// @Summary Clear an exam's room, start time and proctors
// @Tags Catalog
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/unschedule [post]
func (h *CatalogHandler) UnscheduleExam(c *gin.Context) {
	exam, err := h.service.UnscheduleExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}
