package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// Manual assignment outcomes reported to metrics.
const (
	manualOutcomeCommitted = "committed"
	manualOutcomeRejected  = "rejected"
	manualOutcomeInvalid   = "invalid"
	manualOutcomeStale     = "stale"
)

// ManualAssignmentService validates and commits single human-chosen placements.
type ManualAssignmentService struct {
	store     scheduleStore
	checker   *scheduler.Checker
	gate      *CommitGate
	audit     jobEnqueuer
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewManualAssignmentService constructs the manual assignment flow.
func NewManualAssignmentService(store scheduleStore, checker *scheduler.Checker, gate *CommitGate, audit jobEnqueuer, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ManualAssignmentService {
	if checker == nil {
		checker = scheduler.NewChecker(scheduler.DefaultMinProctors)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManualAssignmentService{
		store:     store,
		checker:   checker,
		gate:      gate,
		audit:     audit,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Assign checks the placement against the latest committed snapshot and commits it when every hard
// constraint holds. A rejected placement is a successful call returning status "error" and the violations.
func (s *ManualAssignmentService) Assign(ctx context.Context, req dto.ManualScheduleRequest) (resp *dto.ManualScheduleResponse, err error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveManualAssignment(manualOutcomeInvalid, nil)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual schedule payload")
	}

	ctx, span := tracer.Start(ctx, "scheduling.ManualAssign")
	span.SetAttributes(
		attribute.String("exam_id", req.ExamID),
		attribute.String("room_id", req.RoomID),
		attribute.String("time_slot_id", req.TimeSlotID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	leave, err := s.gate.Enter(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	defer leave()

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}

	exam, ok := snapshot.ExamByID(req.ExamID)
	if !ok {
		s.metrics.ObserveManualAssignment(manualOutcomeInvalid, nil)
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("exam %s not found", req.ExamID))
	}
	room, ok := snapshot.RoomByID(req.RoomID)
	if !ok {
		s.metrics.ObserveManualAssignment(manualOutcomeInvalid, nil)
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %s not found", req.RoomID))
	}
	slot, ok := snapshot.TimeSlotByID(req.TimeSlotID)
	if !ok {
		s.metrics.ObserveManualAssignment(manualOutcomeInvalid, nil)
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("time slot %s not found", req.TimeSlotID))
	}
	proctorIDs := req.ProctorIDs
	if proctorIDs == nil {
		proctorIDs = []string{}
	}
	idx := scheduler.NewIndex(snapshot)
	verdict, err := s.checker.Check(idx, scheduler.Assignment{Exam: exam, Room: room, Start: slot.StartTime, ProctorIDs: proctorIDs})
	if err != nil {
		s.metrics.ObserveManualAssignment(manualOutcomeInvalid, nil)
		return nil, err
	}
	kinds := verdict.Violations
	if slotUnusable(slot, exam, room.ID) {
		kinds = append(kinds, models.ViolationSlotUnavailable)
	}
	verdict = models.NewVerdict(kinds)
	if !verdict.OK {
		s.metrics.ObserveManualAssignment(manualOutcomeRejected, verdict.Violations)
		s.logger.Info("manual assignment rejected",
			zap.String("exam_id", exam.ID),
			zap.Any("violations", verdict.Violations),
		)
		return &dto.ManualScheduleResponse{Status: dto.ManualStatusError, Violations: verdict.Violations}, nil
	}

	update := models.AssignmentUpdate{
		ExamID:          exam.ID,
		RoomID:          room.ID,
		StartTime:       slot.StartTime,
		ProctorIDs:      proctorIDs,
		TimeSlotID:      slot.ID,
		ExpectedVersion: exam.Version,
		ReleaseSlotIDs:  snapshot.SlotsHeldBy(exam.ID),
	}
	if err := s.store.CommitManualAssignment(ctx, update); err != nil {
		translated := translateStoreError(err, fmt.Sprintf("exam %s not found", exam.ID))
		if appErrors.Is(translated, appErrors.ErrStaleSnapshot) {
			s.metrics.ObserveManualAssignment(manualOutcomeStale, nil)
		}
		return nil, translated
	}

	start := slot.StartTime
	roomID := room.ID
	exam.StartTime = &start
	exam.RoomID = &roomID
	exam.ProctorIDs = append(pq.StringArray{}, proctorIDs...)
	exam.Version++

	s.metrics.ObserveManualAssignment(manualOutcomeCommitted, nil)
	_ = s.cache.Invalidate(ctx, CacheKeyConflicts, CacheKeyStats)
	enqueueConflictAudit(s.audit, s.logger, exam.ID, "manual_assignment")
	s.logger.Info("manual assignment committed",
		zap.String("exam_id", exam.ID),
		zap.String("room_id", room.ID),
		zap.Time("start", start),
	)
	return &dto.ManualScheduleResponse{Status: dto.ManualStatusSuccess, Exam: &exam}, nil
}

// slotUnusable reports whether the slot is consumed by another exam, reserved for another room or
// shorter than the exam.
func slotUnusable(slot models.TimeSlot, exam models.Exam, roomID string) bool {
	if slot.ExamID != nil && *slot.ExamID != exam.ID {
		return true
	}
	if slot.RoomID != nil && *slot.RoomID != roomID {
		return true
	}
	return slot.EndTime.Sub(slot.StartTime) < exam.Duration()
}
