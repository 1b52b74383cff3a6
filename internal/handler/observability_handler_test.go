package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
)

type conflictListerMock struct {
	query dto.ConflictQuery
}

func (m *conflictListerMock) List(ctx context.Context, query dto.ConflictQuery) (*dto.ConflictReport, error) {
	m.query = query
	conflicts := []models.Conflict{{ExamA: "a", ExamB: "b", Kind: models.ConflictRoom, Severity: models.SeverityHigh}}
	return &dto.ConflictReport{Conflicts: conflicts, Total: len(conflicts)}, nil
}

type timeSlotManagerMock struct {
	req dto.GenerateTimeSlotsRequest
}

func (m *timeSlotManagerMock) List(ctx context.Context) ([]models.TimeSlot, error) {
	return []models.TimeSlot{{ID: "s1"}}, nil
}

func (m *timeSlotManagerMock) Generate(ctx context.Context, req dto.GenerateTimeSlotsRequest) (*dto.GenerateTimeSlotsResponse, error) {
	m.req = req
	return &dto.GenerateTimeSlotsResponse{Created: 25}, nil
}

type statsProviderMock struct{}

func (statsProviderMock) Get(ctx context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{Totals: models.StatsTotals{Exams: 3}}, nil
}

func TestConflictHandlerListWithFilters(t *testing.T) {
	svc := &conflictListerMock{}
	handler := &ConflictHandler{service: svc}
	c, w := newJSONContext(http.MethodGet, "/conflicts?kind=room&severity=high", "")

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "room", svc.query.Kind)
	assert.Equal(t, "high", svc.query.Severity)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestTimeSlotHandlerGenerate(t *testing.T) {
	svc := &timeSlotManagerMock{}
	handler := &TimeSlotHandler{service: svc}
	c, w := newJSONContext(http.MethodPost, "/timeslots/generate", `{"startDate":"2024-06-10","days":5}`)

	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 5, svc.req.Days)
	assert.Contains(t, w.Body.String(), `"created":25`)
}

func TestStatsHandlerGet(t *testing.T) {
	handler := &StatsHandler{service: statsProviderMock{}}
	c, w := newJSONContext(http.MethodGet, "/stats", "")

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"database": func(ctx context.Context) error { return nil },
	})
	c, w := newJSONContext(http.MethodGet, "/ready", "")
	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	handler = NewMetricsHandler(nil, map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	c, w = newJSONContext(http.MethodGet, "/ready", "")
	handler.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newJSONContext(http.MethodGet, "/metrics", "")
	handler.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
