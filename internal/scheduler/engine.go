package scheduler

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

var tracer = otel.Tracer("exam-scheduler.scheduler")

// Structural failure reasons reported with a failed plan.
const (
	ReasonNoRooms     = "no_rooms"
	ReasonNoTimeSlots = "no_time_slots"
	ReasonNoProctors  = "no_proctors"
	ReasonUnplaceable = "no_feasible_assignment"
)

// Plan is the outcome of one engine pass. Updates are meant to be committed as a single batch.
type Plan struct {
	Status      string
	Reason      string
	Updates     []models.AssignmentUpdate
	Unscheduled []string
	Considered  int
}

// Placed returns the number of exams the plan assigns.
func (p *Plan) Placed() int {
	return len(p.Updates)
}

// Engine places exams greedily, tightest room fit first, never relaxing a hard constraint.
type Engine struct {
	checker *Checker
	logger  *zap.Logger
}

// NewEngine constructs the scheduling engine.
func NewEngine(checker *Checker, logger *zap.Logger) *Engine {
	if checker == nil {
		checker = NewChecker(DefaultMinProctors)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{checker: checker, logger: logger}
}

// Checker exposes the constraint checker used by the engine.
func (e *Engine) Checker() *Checker {
	return e.checker
}

type candidatePair struct {
	room  models.Room
	slot  models.TimeSlot
	slack int
}

// Plan computes assignments for the requested exams against the snapshot. With no examIDs every
// unscheduled exam is considered; named exams that are already scheduled are re-placed.
// The snapshot is not mutated. Cancellation is checked between exams and returns ctx.Err().
func (e *Engine) Plan(ctx context.Context, snapshot *models.Snapshot, examIDs []string) (*Plan, error) {
	ctx, span := tracer.Start(ctx, "scheduler.Plan", trace.WithAttributes(
		attribute.Int("exams", len(snapshot.Exams)),
		attribute.Int("rooms", len(snapshot.Rooms)),
		attribute.Int("proctors", len(snapshot.Proctors)),
		attribute.Int("time_slots", len(snapshot.TimeSlots)),
	))
	defer span.End()

	candidates, err := selectCandidates(snapshot, examIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid exam selection")
		return nil, err
	}
	for _, exam := range candidates {
		if exam.DurationMinutes <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam %s has a non-positive duration", exam.ID))
		}
	}

	plan := &Plan{Considered: len(candidates), Updates: []models.AssignmentUpdate{}, Unscheduled: []string{}}
	if len(candidates) == 0 {
		plan.Status = models.RunStatusSuccess
		return plan, nil
	}

	// A candidate keeps its current bookings until it is re-placed, so an exam that cannot
	// move still blocks its room, proctors and slots for everything placed after it.
	idx := NewIndex(snapshot)
	holders := newSlotState(snapshot)
	held := make(map[string][]string, len(candidates))
	for _, exam := range candidates {
		held[exam.ID] = snapshot.SlotsHeldBy(exam.ID)
		holders.reclaimable(held[exam.ID])
	}

	if reason := structuralFailure(snapshot, holders); reason != "" {
		plan.Status = models.RunStatusFailed
		plan.Reason = reason
		for _, exam := range candidates {
			plan.Unscheduled = append(plan.Unscheduled, exam.ID)
		}
		span.SetAttributes(attribute.String("reason", reason))
		e.logger.Warn("scheduling aborted", zap.String("reason", reason), zap.Int("exams", len(candidates)))
		return plan, nil
	}

	slots := make([]models.TimeSlot, len(snapshot.TimeSlots))
	copy(slots, snapshot.TimeSlots)
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].ID < slots[j].ID
	})
	proctors := make([]models.Proctor, len(snapshot.Proctors))
	copy(proctors, snapshot.Proctors)

	for _, exam := range candidates {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}

		update, ok, err := e.place(idx, exam, snapshot.Rooms, slots, proctors, holders)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !ok {
			plan.Unscheduled = append(plan.Unscheduled, exam.ID)
			e.logger.Debug("exam unplaceable", zap.String("exam_id", exam.ID), zap.Int("participants", exam.Participants))
			continue
		}
		update.ReleaseSlotIDs = held[exam.ID]
		holders.release(exam.ID, held[exam.ID], update.TimeSlotID)
		plan.Updates = append(plan.Updates, update)
	}

	switch {
	case len(plan.Unscheduled) == 0:
		plan.Status = models.RunStatusSuccess
	case len(plan.Updates) > 0:
		plan.Status = models.RunStatusPartial
	default:
		plan.Status = models.RunStatusFailed
		plan.Reason = ReasonUnplaceable
	}

	span.SetAttributes(
		attribute.String("status", plan.Status),
		attribute.Int("placed", len(plan.Updates)),
		attribute.Int("unscheduled", len(plan.Unscheduled)),
	)
	return plan, nil
}

func (e *Engine) place(idx *Index, exam models.Exam, rooms []models.Room, slots []models.TimeSlot, proctors []models.Proctor, state *slotState) (models.AssignmentUpdate, bool, error) {
	for _, pair := range candidatePairs(exam, rooms, slots, state) {
		iv := models.NewInterval(pair.slot.StartTime, exam.Duration())

		// cheap rejections before choosing proctors
		if !idx.IsRoomFree(pair.room.ID, iv, exam.ID) ||
			!idx.IsLevelFree(exam.Level, iv, exam.ID) ||
			!idx.IsDepartmentFree(exam.Department, iv, exam.ID) {
			continue
		}

		proctorIDs := pickProctors(idx, exam, iv, proctors, e.checker.MinProctors())
		if proctorIDs == nil {
			continue
		}

		verdict, err := e.checker.Check(idx, Assignment{Exam: exam, Room: pair.room, Start: pair.slot.StartTime, ProctorIDs: proctorIDs})
		if err != nil {
			return models.AssignmentUpdate{}, false, err
		}
		if !verdict.OK {
			continue
		}

		idx.Reserve(exam, pair.room.ID, iv, proctorIDs)
		state.take(pair.slot.ID, exam.ID)
		return models.AssignmentUpdate{
			ExamID:          exam.ID,
			RoomID:          pair.room.ID,
			StartTime:       pair.slot.StartTime,
			ProctorIDs:      proctorIDs,
			TimeSlotID:      pair.slot.ID,
			ExpectedVersion: exam.Version,
		}, true, nil
	}
	return models.AssignmentUpdate{}, false, nil
}

func selectCandidates(snapshot *models.Snapshot, examIDs []string) ([]models.Exam, error) {
	var candidates []models.Exam
	if len(examIDs) == 0 {
		for _, exam := range snapshot.Exams {
			if !exam.Scheduled() {
				candidates = append(candidates, exam)
			}
		}
	} else {
		seen := make(map[string]struct{}, len(examIDs))
		for _, id := range examIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			exam, ok := snapshot.ExamByID(id)
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("exam %s not found", id))
			}
			candidates = append(candidates, exam)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Participants != b.Participants {
			return a.Participants > b.Participants
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return candidates, nil
}

func structuralFailure(snapshot *models.Snapshot, state *slotState) string {
	if len(snapshot.Rooms) == 0 {
		return ReasonNoRooms
	}
	if !state.anyUsable() {
		return ReasonNoTimeSlots
	}
	if len(snapshot.Proctors) == 0 {
		return ReasonNoProctors
	}
	return ""
}

// slotState tracks which exam holds each slot during a run. Slots held by a candidate
// stay reserved for that candidate until it moves elsewhere.
type slotState struct {
	owner map[string]string
	// slots whose holder is being re-placed in this run
	movable map[string]bool
}

func newSlotState(snapshot *models.Snapshot) *slotState {
	state := &slotState{
		owner:   make(map[string]string, len(snapshot.TimeSlots)),
		movable: make(map[string]bool),
	}
	for _, slot := range snapshot.TimeSlots {
		if slot.Consumed() {
			state.owner[slot.ID] = *slot.ExamID
		} else {
			state.owner[slot.ID] = ""
		}
	}
	return state
}

func (s *slotState) reclaimable(slotIDs []string) {
	for _, id := range slotIDs {
		s.movable[id] = true
	}
}

func (s *slotState) usableBy(slotID, examID string) bool {
	owner := s.owner[slotID]
	return owner == "" || owner == examID
}

func (s *slotState) take(slotID, examID string) {
	s.owner[slotID] = examID
	delete(s.movable, slotID)
}

// release frees the slots the exam held before, except the one it now occupies.
func (s *slotState) release(examID string, slotIDs []string, keep string) {
	for _, id := range slotIDs {
		if id == keep || s.owner[id] != examID {
			continue
		}
		s.owner[id] = ""
		delete(s.movable, id)
	}
}

func (s *slotState) anyUsable() bool {
	for id, owner := range s.owner {
		if owner == "" || s.movable[id] {
			return true
		}
	}
	return false
}

// candidatePairs lists every (room, slot) that fits the exam, tightest capacity first.
func candidatePairs(exam models.Exam, rooms []models.Room, slots []models.TimeSlot, state *slotState) []candidatePair {
	var pairs []candidatePair
	for _, room := range rooms {
		if room.Capacity < exam.Participants {
			continue
		}
		for _, slot := range slots {
			if !state.usableBy(slot.ID, exam.ID) || !slotAcceptsRoom(slot, room.ID) {
				continue
			}
			if slot.Interval().Duration() < exam.Duration() {
				continue
			}
			pairs = append(pairs, candidatePair{room: room, slot: slot, slack: room.Capacity - exam.Participants})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.slack != b.slack {
			return a.slack < b.slack
		}
		if !a.slot.StartTime.Equal(b.slot.StartTime) {
			return a.slot.StartTime.Before(b.slot.StartTime)
		}
		if a.room.ID != b.room.ID {
			return a.room.ID < b.room.ID
		}
		return a.slot.ID < b.slot.ID
	})
	return pairs
}

func slotAcceptsRoom(slot models.TimeSlot, roomID string) bool {
	return slot.RoomID == nil || *slot.RoomID == roomID
}

// pickProctors returns the required number of available proctors, own department first, then
// least loaded, or nil when not enough qualify.
func pickProctors(idx *Index, exam models.Exam, iv models.Interval, proctors []models.Proctor, need int) []string {
	eligible := make([]models.Proctor, 0, len(proctors))
	for _, proctor := range proctors {
		if idx.IsProctorAvailable(proctor.ID, iv) && idx.IsProctorFree(proctor.ID, iv, exam.ID) {
			eligible = append(eligible, proctor)
		}
	}
	if len(eligible) < need {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		aOwn, bOwn := a.Department == exam.Department, b.Department == exam.Department
		if aOwn != bOwn {
			return aOwn
		}
		if idx.Load(a.ID) != idx.Load(b.ID) {
			return idx.Load(a.ID) < idx.Load(b.ID)
		}
		return a.ID < b.ID
	})
	ids := make([]string, 0, need)
	for _, proctor := range eligible[:need] {
		ids = append(ids, proctor.ID)
	}
	return ids
}
