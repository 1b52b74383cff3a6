package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

type catalogMock struct {
	examQuery dto.ExamListQuery
	roomReq   dto.CreateRoomRequest
	deleted   string
	err       error
}

func (m *catalogMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "r1", Name: "Amphi A", Capacity: 120}}, nil
}

func (m *catalogMock) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	return &models.Room{ID: id}, m.err
}

func (m *catalogMock) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	m.roomReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Room{ID: "r2", Name: req.Name, Capacity: req.Capacity}, nil
}

func (m *catalogMock) ListProctors(ctx context.Context) ([]models.Proctor, error) {
	return nil, nil
}

func (m *catalogMock) GetProctor(ctx context.Context, id string) (*models.Proctor, error) {
	return &models.Proctor{ID: id}, m.err
}

func (m *catalogMock) CreateProctor(ctx context.Context, req dto.CreateProctorRequest) (*models.Proctor, error) {
	return &models.Proctor{ID: "p1", Name: req.Name}, m.err
}

func (m *catalogMock) ListExams(ctx context.Context, query dto.ExamListQuery) ([]models.Exam, *models.Pagination, error) {
	m.examQuery = query
	return []models.Exam{{ID: "e1"}}, &models.Pagination{Page: 1, PageSize: 10, TotalCount: 1}, nil
}

func (m *catalogMock) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Exam{ID: id}, nil
}

func (m *catalogMock) CreateExam(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error) {
	return &models.Exam{ID: "e9", Name: req.Name}, m.err
}

func (m *catalogMock) DeleteExam(ctx context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *catalogMock) UnscheduleExam(ctx context.Context, id string) (*models.Exam, error) {
	return &models.Exam{ID: id}, m.err
}

func TestCatalogHandlerCreateRoom(t *testing.T) {
	svc := &catalogMock{}
	handler := &CatalogHandler{service: svc}
	c, w := newJSONContext(http.MethodPost, "/rooms", `{"name":"Amphi B","capacity":80}`)

	handler.CreateRoom(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Amphi B", svc.roomReq.Name)
	assert.Equal(t, 80, svc.roomReq.Capacity)
}

func TestCatalogHandlerCreateRoomDuplicate(t *testing.T) {
	handler := &CatalogHandler{service: &catalogMock{err: appErrors.Clone(appErrors.ErrConflict, "room name already exists")}}
	c, w := newJSONContext(http.MethodPost, "/rooms", `{"name":"Amphi A","capacity":80}`)

	handler.CreateRoom(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCatalogHandlerListExamsBindsFilters(t *testing.T) {
	svc := &catalogMock{}
	handler := &CatalogHandler{service: svc}
	c, w := newJSONContext(http.MethodGet, "/exams?level=L2&department=physics&date=2024-06-10&page=1&pageSize=10", "")

	handler.ListExams(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "L2", svc.examQuery.Level)
	assert.Equal(t, "physics", svc.examQuery.Department)
	assert.Equal(t, "2024-06-10", svc.examQuery.Date)
	assert.Equal(t, 10, svc.examQuery.PageSize)
	assert.Contains(t, w.Body.String(), `"pagination"`)
}

func TestCatalogHandlerDeleteExam(t *testing.T) {
	svc := &catalogMock{}
	handler := &CatalogHandler{service: svc}
	c, w := newJSONContext(http.MethodDelete, "/exams/e1", "")
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	handler.DeleteExam(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "e1", svc.deleted)
	assert.Empty(t, w.Body.String())
}

func TestCatalogHandlerGetExamMissing(t *testing.T) {
	handler := &CatalogHandler{service: &catalogMock{err: appErrors.Clone(appErrors.ErrNotFound, "exam not found")}}
	c, w := newJSONContext(http.MethodGet, "/exams/nope", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	handler.GetExam(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
