package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

// MemoryStore keeps every entity in process memory behind one lock. It backs the
// STORAGE_DRIVER=memory mode and mirrors the Postgres repositories' contracts.
type MemoryStore struct {
	mu       sync.RWMutex
	exams    map[string]models.Exam
	rooms    map[string]models.Room
	proctors map[string]models.Proctor
	slots    map[string]models.TimeSlot
	runs     []models.ScheduleRun
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams:    make(map[string]models.Exam),
		rooms:    make(map[string]models.Room),
		proctors: make(map[string]models.Proctor),
		slots:    make(map[string]models.TimeSlot),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Rooms exposes the room repository view.
func (s *MemoryStore) Rooms() *MemoryRoomRepository { return &MemoryRoomRepository{store: s} }

// Proctors exposes the proctor repository view.
func (s *MemoryStore) Proctors() *MemoryProctorRepository { return &MemoryProctorRepository{store: s} }

// Exams exposes the exam repository view.
func (s *MemoryStore) Exams() *MemoryExamRepository { return &MemoryExamRepository{store: s} }

// TimeSlots exposes the time slot repository view.
func (s *MemoryStore) TimeSlots() *MemoryTimeSlotRepository { return &MemoryTimeSlotRepository{store: s} }

// Schedule exposes the snapshot and commit view.
func (s *MemoryStore) Schedule() *MemoryScheduleRepository { return &MemoryScheduleRepository{store: s} }

// Runs exposes the run audit view.
func (s *MemoryStore) Runs() *MemoryScheduleRunRepository { return &MemoryScheduleRunRepository{store: s} }

func copyExam(e models.Exam) models.Exam {
	if e.StartTime != nil {
		start := *e.StartTime
		e.StartTime = &start
	}
	if e.RoomID != nil {
		room := *e.RoomID
		e.RoomID = &room
	}
	e.ProctorIDs = append(pq.StringArray{}, e.ProctorIDs...)
	return e
}

func copySlot(t models.TimeSlot) models.TimeSlot {
	if t.ExamID != nil {
		exam := *t.ExamID
		t.ExamID = &exam
	}
	if t.RoomID != nil {
		room := *t.RoomID
		t.RoomID = &room
	}
	return t
}

func copyProctor(p models.Proctor) models.Proctor {
	p.Availability = append(models.AvailabilityWindows{}, p.Availability...)
	return p
}

// MemoryRoomRepository serves rooms from a MemoryStore.
type MemoryRoomRepository struct{ store *MemoryStore }

// List returns every room ordered by name.
func (r *MemoryRoomRepository) List(ctx context.Context) ([]models.Room, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rooms := make([]models.Room, 0, len(r.store.rooms))
	for _, room := range r.store.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// FindByID loads a room by id.
func (r *MemoryRoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	room, ok := r.store.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

// Create stores a room, rejecting duplicate names case-insensitively.
func (r *MemoryRoomRepository) Create(ctx context.Context, room *models.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.rooms {
		if strings.EqualFold(existing.Name, room.Name) {
			return fmt.Errorf("create room: %w", ErrDuplicate)
		}
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = r.store.now()
	}
	r.store.rooms[room.ID] = *room
	return nil
}

// MemoryProctorRepository serves proctors from a MemoryStore.
type MemoryProctorRepository struct{ store *MemoryStore }

// List returns proctors ordered by name.
func (r *MemoryProctorRepository) List(ctx context.Context) ([]models.Proctor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	proctors := make([]models.Proctor, 0, len(r.store.proctors))
	for _, proctor := range r.store.proctors {
		proctors = append(proctors, copyProctor(proctor))
	}
	sort.Slice(proctors, func(i, j int) bool { return proctors[i].Name < proctors[j].Name })
	return proctors, nil
}

// FindByID loads a proctor by id.
func (r *MemoryProctorRepository) FindByID(ctx context.Context, id string) (*models.Proctor, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	proctor, ok := r.store.proctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := copyProctor(proctor)
	return &out, nil
}

// Create stores a proctor.
func (r *MemoryProctorRepository) Create(ctx context.Context, proctor *models.Proctor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if proctor.ID == "" {
		proctor.ID = uuid.NewString()
	}
	if proctor.CreatedAt.IsZero() {
		proctor.CreatedAt = r.store.now()
	}
	proctor.Availability = proctor.Availability.Sorted()
	r.store.proctors[proctor.ID] = copyProctor(*proctor)
	return nil
}

// MemoryExamRepository serves exams from a MemoryStore.
type MemoryExamRepository struct{ store *MemoryStore }

// List returns exams matching the filter ordered by start time then name.
func (r *MemoryExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	exams := make([]models.Exam, 0, len(r.store.exams))
	for _, exam := range r.store.exams {
		if filter.Matches(exam) {
			exams = append(exams, copyExam(exam))
		}
	}
	sort.Slice(exams, func(i, j int) bool {
		a, b := exams[i], exams[j]
		switch {
		case a.StartTime != nil && b.StartTime != nil && !a.StartTime.Equal(*b.StartTime):
			return a.StartTime.Before(*b.StartTime)
		case a.StartTime != nil && b.StartTime == nil:
			return true
		case a.StartTime == nil && b.StartTime != nil:
			return false
		}
		return a.Name < b.Name
	})
	return exams, nil
}

// FindByID loads an exam by id.
func (r *MemoryExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	exam, ok := r.store.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := copyExam(exam)
	return &out, nil
}

// Create stores an exam.
func (r *MemoryExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := r.store.now()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
	if exam.Version == 0 {
		exam.Version = 1
	}
	if exam.ProctorIDs == nil {
		exam.ProctorIDs = pq.StringArray{}
	}
	r.store.exams[exam.ID] = copyExam(*exam)
	return nil
}

// Delete removes an exam and releases its slots.
func (r *MemoryExamRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.exams[id]; !ok {
		return sql.ErrNoRows
	}
	r.store.releaseSlotsLocked(id, nil)
	delete(r.store.exams, id)
	return nil
}

// Unschedule clears an exam's placement when its version still matches.
func (r *MemoryExamRepository) Unschedule(ctx context.Context, id string, expectedVersion int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	exam, ok := r.store.exams[id]
	if !ok || exam.Version != expectedVersion {
		return fmt.Errorf("unschedule exam: %w", ErrStaleVersion)
	}
	r.store.releaseSlotsLocked(id, nil)
	exam.StartTime = nil
	exam.RoomID = nil
	exam.ProctorIDs = pq.StringArray{}
	exam.Version++
	exam.UpdatedAt = r.store.now()
	r.store.exams[id] = exam
	return nil
}

// MemoryTimeSlotRepository serves time slots from a MemoryStore.
type MemoryTimeSlotRepository struct{ store *MemoryStore }

// List returns slots ordered by start time.
func (r *MemoryTimeSlotRepository) List(ctx context.Context) ([]models.TimeSlot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.sortedSlotsLocked(), nil
}

// BulkCreate stores generated slots.
func (r *MemoryTimeSlotRepository) BulkCreate(ctx context.Context, slots []models.TimeSlot) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		r.store.slots[slots[i].ID] = copySlot(slots[i])
	}
	return len(slots), nil
}

// MemoryScheduleRepository reads snapshots and commits assignments against a MemoryStore.
type MemoryScheduleRepository struct{ store *MemoryStore }

// Snapshot copies every entity under the read lock.
func (r *MemoryScheduleRepository) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &models.Snapshot{TakenAt: s.now()}
	for _, exam := range s.exams {
		snapshot.Exams = append(snapshot.Exams, copyExam(exam))
	}
	sort.Slice(snapshot.Exams, func(i, j int) bool {
		if !snapshot.Exams[i].CreatedAt.Equal(snapshot.Exams[j].CreatedAt) {
			return snapshot.Exams[i].CreatedAt.Before(snapshot.Exams[j].CreatedAt)
		}
		return snapshot.Exams[i].ID < snapshot.Exams[j].ID
	})
	for _, room := range s.rooms {
		snapshot.Rooms = append(snapshot.Rooms, room)
	}
	sort.Slice(snapshot.Rooms, func(i, j int) bool { return snapshot.Rooms[i].ID < snapshot.Rooms[j].ID })
	for _, proctor := range s.proctors {
		snapshot.Proctors = append(snapshot.Proctors, copyProctor(proctor))
	}
	sort.Slice(snapshot.Proctors, func(i, j int) bool { return snapshot.Proctors[i].ID < snapshot.Proctors[j].ID })
	snapshot.TimeSlots = s.sortedSlotsLocked()
	return snapshot, nil
}

// CommitAssignments validates the whole batch before applying any of it.
func (r *MemoryScheduleRepository) CommitAssignments(ctx context.Context, updates []models.AssignmentUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// slots released earlier in the batch become available to later updates
	released := make(map[string]bool)
	claimed := make(map[string]bool)
	for _, update := range updates {
		exam, ok := s.exams[update.ExamID]
		if !ok || exam.Version != update.ExpectedVersion {
			return fmt.Errorf("assign exam %s: %w", update.ExamID, ErrStaleVersion)
		}
		for _, id := range update.ReleaseSlotIDs {
			if slot, ok := s.slots[id]; ok && slot.ExamID != nil && *slot.ExamID == update.ExamID {
				released[id] = true
			}
		}
		if update.TimeSlotID == "" {
			continue
		}
		slot, ok := s.slots[update.TimeSlotID]
		if !ok || claimed[update.TimeSlotID] || (slot.ExamID != nil && !released[update.TimeSlotID]) {
			return fmt.Errorf("consume slot %s: %w", update.TimeSlotID, ErrStaleVersion)
		}
		claimed[update.TimeSlotID] = true
	}

	now := s.now()
	for _, update := range updates {
		s.releaseSlotsLocked(update.ExamID, update.ReleaseSlotIDs)
		exam := s.exams[update.ExamID]
		roomID := update.RoomID
		start := update.StartTime
		exam.RoomID = &roomID
		exam.StartTime = &start
		exam.ProctorIDs = append(pq.StringArray{}, update.ProctorIDs...)
		exam.Version++
		exam.UpdatedAt = now
		s.exams[update.ExamID] = exam
		if update.TimeSlotID != "" {
			slot := s.slots[update.TimeSlotID]
			examID := update.ExamID
			slot.ExamID = &examID
			s.slots[update.TimeSlotID] = slot
		}
	}
	return nil
}

// CommitManualAssignment commits one assignment.
func (r *MemoryScheduleRepository) CommitManualAssignment(ctx context.Context, update models.AssignmentUpdate) error {
	return r.CommitAssignments(ctx, []models.AssignmentUpdate{update})
}

// MemoryScheduleRunRepository keeps run audit records in memory.
type MemoryScheduleRunRepository struct{ store *MemoryStore }

// Record appends a run.
func (r *MemoryScheduleRunRepository) Record(ctx context.Context, run *models.ScheduleRun) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	r.store.runs = append(r.store.runs, *run)
	return nil
}

// ListRecent returns the latest runs, newest first.
func (r *MemoryScheduleRunRepository) ListRecent(ctx context.Context, limit int) ([]models.ScheduleRun, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	out := make([]models.ScheduleRun, 0, limit)
	for i := len(r.store.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.store.runs[i])
	}
	return out, nil
}

// releaseSlotsLocked frees slots held by the exam. A nil ids list frees all of them.
func (s *MemoryStore) releaseSlotsLocked(examID string, ids []string) {
	if ids == nil {
		for id, slot := range s.slots {
			if slot.ExamID != nil && *slot.ExamID == examID {
				slot.ExamID = nil
				s.slots[id] = slot
			}
		}
		return
	}
	for _, id := range ids {
		slot, ok := s.slots[id]
		if ok && slot.ExamID != nil && *slot.ExamID == examID {
			slot.ExamID = nil
			s.slots[id] = slot
		}
	}
}

func (s *MemoryStore) sortedSlotsLocked() []models.TimeSlot {
	slots := make([]models.TimeSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		slots = append(slots, copySlot(slot))
	}
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].ID < slots[j].ID
	})
	return slots
}
