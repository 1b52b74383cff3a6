package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

type roomStore interface {
	List(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}

type proctorStore interface {
	List(ctx context.Context) ([]models.Proctor, error)
	FindByID(ctx context.Context, id string) (*models.Proctor, error)
	Create(ctx context.Context, proctor *models.Proctor) error
}

type examStore interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
	Unschedule(ctx context.Context, id string, expectedVersion int) error
}

// CatalogService manages rooms, proctors and exams.
type CatalogService struct {
	rooms     roomStore
	proctors  proctorStore
	exams     examStore
	gate      *CommitGate
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(rooms roomStore, proctors proctorStore, exams examStore, gate *CommitGate, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{rooms: rooms, proctors: proctors, exams: exams, gate: gate, cache: cache, validator: validate, logger: logger}
}

// ListRooms returns every room.
func (s *CatalogService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	return rooms, nil
}

// GetRoom loads a room.
func (s *CatalogService) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "room not found")
	}
	return room, nil
}

// CreateRoom registers a room. Names are unique.
func (s *CatalogService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	room := &models.Room{Name: strings.TrimSpace(req.Name), Capacity: req.Capacity}
	if room.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room name is required")
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, translateStoreError(err, "")
	}
	_ = s.cache.Invalidate(ctx, CacheKeyStats)
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.Int("capacity", room.Capacity))
	return room, nil
}

// ListProctors returns every proctor.
func (s *CatalogService) ListProctors(ctx context.Context) ([]models.Proctor, error) {
	proctors, err := s.proctors.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	return proctors, nil
}

// GetProctor loads a proctor.
func (s *CatalogService) GetProctor(ctx context.Context, id string) (*models.Proctor, error) {
	proctor, err := s.proctors.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "proctor not found")
	}
	return proctor, nil
}

// CreateProctor registers a proctor with availability windows sorted by start.
func (s *CatalogService) CreateProctor(ctx context.Context, req dto.CreateProctorRequest) (*models.Proctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proctor payload")
	}
	windows := make(models.AvailabilityWindows, 0, len(req.Availability))
	for _, w := range req.Availability {
		windows = append(windows, models.Interval{Start: w.Start.UTC(), End: w.End.UTC()})
	}
	windows = windows.Sorted()
	if windows.Overlapping() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability windows must not overlap")
	}
	proctor := &models.Proctor{
		Name:         strings.TrimSpace(req.Name),
		Department:   models.Department(req.Department),
		Availability: windows,
	}
	if err := s.proctors.Create(ctx, proctor); err != nil {
		return nil, translateStoreError(err, "")
	}
	_ = s.cache.Invalidate(ctx, CacheKeyStats)
	s.logger.Info("proctor created", zap.String("proctor_id", proctor.ID), zap.Int("windows", len(windows)))
	return proctor, nil
}

// ListExams returns exams matching the query, paginated.
func (s *CatalogService) ListExams(ctx context.Context, query dto.ExamListQuery) ([]models.Exam, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam filter")
	}
	filter := models.ExamFilter{Level: models.Level(query.Level), Department: models.Department(query.Department)}
	if query.Date != "" {
		day, err := time.Parse("2006-01-02", query.Date)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
		}
		filter.Date = &day
	}
	exams, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, nil, translateStoreError(err, "")
	}
	items, pagination := models.Page(exams, query.Page, query.PageSize)
	return items, pagination, nil
}

// GetExam loads an exam.
func (s *CatalogService) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "exam not found")
	}
	return exam, nil
}

// CreateExam registers an unscheduled exam.
func (s *CatalogService) CreateExam(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	duration, err := models.ParseDuration(req.Duration)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid duration %q", req.Duration))
	}
	exam := &models.Exam{
		Name:            strings.TrimSpace(req.Name),
		Level:           models.Level(req.Level),
		Department:      models.Department(req.Department),
		DurationMinutes: int(duration / time.Minute),
		Participants:    req.Participants,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, translateStoreError(err, "")
	}
	_ = s.cache.Invalidate(ctx, CacheKeyStats)
	s.logger.Info("exam created", zap.String("exam_id", exam.ID), zap.Int("duration_minutes", exam.DurationMinutes))
	return exam, nil
}

// DeleteExam removes an exam and frees the slot it consumed.
func (s *CatalogService) DeleteExam(ctx context.Context, id string) error {
	leave, err := s.gate.Enter(ctx)
	if err != nil {
		return translateStoreError(err, "")
	}
	defer leave()

	if err := s.exams.Delete(ctx, id); err != nil {
		return translateStoreError(err, "exam not found")
	}
	_ = s.cache.Invalidate(ctx, CacheKeyConflicts, CacheKeyStats)
	s.logger.Info("exam deleted", zap.String("exam_id", id))
	return nil
}

// UnscheduleExam clears an exam's placement and frees its slot. Unscheduled exams are returned unchanged.
func (s *CatalogService) UnscheduleExam(ctx context.Context, id string) (*models.Exam, error) {
	leave, err := s.gate.Enter(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	defer leave()

	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, "exam not found")
	}
	if !exam.Scheduled() {
		return exam, nil
	}
	if err := s.exams.Unschedule(ctx, id, exam.Version); err != nil {
		return nil, translateStoreError(err, "exam not found")
	}
	exam.StartTime = nil
	exam.RoomID = nil
	exam.ProctorIDs = exam.ProctorIDs[:0]
	exam.Version++

	_ = s.cache.Invalidate(ctx, CacheKeyConflicts, CacheKeyStats)
	s.logger.Info("exam unscheduled", zap.String("exam_id", id))
	return exam, nil
}
