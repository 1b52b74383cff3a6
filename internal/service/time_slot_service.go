package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

type timeSlotStore interface {
	List(ctx context.Context) ([]models.TimeSlot, error)
	BulkCreate(ctx context.Context, slots []models.TimeSlot) (int, error)
}

type roomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// TimeSlotDefaults fill omitted generation fields.
type TimeSlotDefaults struct {
	Days         int
	DayStart     time.Duration
	DayEnd       time.Duration
	SlotDuration time.Duration
}

// TimeSlotService generates and lists time slots.
type TimeSlotService struct {
	slots     timeSlotStore
	rooms     roomFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	defaults  TimeSlotDefaults
	newID     func() string
}

// NewTimeSlotService constructs the time slot service.
func NewTimeSlotService(slots timeSlotStore, rooms roomFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger, defaults TimeSlotDefaults) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.Days <= 0 {
		defaults.Days = 5
	}
	if defaults.DayEnd <= defaults.DayStart {
		defaults.DayStart, defaults.DayEnd = 8*time.Hour, 18*time.Hour
	}
	if defaults.SlotDuration <= 0 {
		defaults.SlotDuration = 2 * time.Hour
	}
	return &TimeSlotService{
		slots:     slots,
		rooms:     rooms,
		cache:     cache,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
		newID:     uuid.NewString,
	}
}

// List returns every slot ordered by start.
func (s *TimeSlotService) List(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	return slots, nil
}

// Generate creates slots for the requested day range and returns how many were stored.
func (s *TimeSlotService) Generate(ctx context.Context, req dto.GenerateTimeSlotsRequest) (*dto.GenerateTimeSlotsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot generation payload")
	}
	gen, err := s.generation(req)
	if err != nil {
		return nil, err
	}
	for _, roomID := range gen.RoomIDs {
		if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
			return nil, translateStoreError(err, fmt.Sprintf("room %s not found", roomID))
		}
	}

	slots, err := scheduler.GenerateTimeSlots(gen, s.newID)
	if err != nil {
		return nil, err
	}
	created, err := s.slots.BulkCreate(ctx, slots)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	_ = s.cache.Invalidate(ctx, CacheKeyStats)
	s.logger.Info("time slots generated",
		zap.Int("created", created),
		zap.Int("days", gen.Days),
		zap.Duration("slot_duration", gen.SlotDuration),
		zap.Int("rooms", len(gen.RoomIDs)),
	)
	return &dto.GenerateTimeSlotsResponse{Created: created}, nil
}

func (s *TimeSlotService) generation(req dto.GenerateTimeSlotsRequest) (models.TimeSlotGeneration, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return models.TimeSlotGeneration{}, appErrors.Clone(appErrors.ErrValidation, "startDate must use YYYY-MM-DD")
	}
	gen := models.TimeSlotGeneration{
		StartDate:    startDate,
		Days:         req.Days,
		DayStart:     s.defaults.DayStart,
		DayEnd:       s.defaults.DayEnd,
		SlotDuration: s.defaults.SlotDuration,
		RoomIDs:      uniqueSorted(req.RoomIDs),
	}
	if gen.Days == 0 {
		gen.Days = s.defaults.Days
	}
	if req.DayStart != "" {
		if gen.DayStart, err = config.ParseClock(req.DayStart); err != nil {
			return gen, appErrors.Clone(appErrors.ErrValidation, "dayStart must use HH:MM")
		}
	}
	if req.DayEnd != "" {
		if gen.DayEnd, err = config.ParseClock(req.DayEnd); err != nil {
			return gen, appErrors.Clone(appErrors.ErrValidation, "dayEnd must use HH:MM")
		}
	}
	if req.SlotDuration != "" {
		if gen.SlotDuration, err = models.ParseDuration(req.SlotDuration); err != nil {
			return gen, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slotDuration")
		}
	}
	if req.Step != "" {
		if gen.Step, err = models.ParseDuration(req.Step); err != nil {
			return gen, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid step")
		}
	}
	return gen, nil
}

func uniqueSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
