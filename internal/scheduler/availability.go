package scheduler

import (
	"sort"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

type booking struct {
	interval models.Interval
	examID   string
}

// bookings is kept sorted by interval start.
type bookings []booking

func (b bookings) insert(item booking) bookings {
	i := sort.Search(len(b), func(i int) bool { return b[i].interval.Start.After(item.interval.Start) })
	b = append(b, booking{})
	copy(b[i+1:], b[i:])
	b[i] = item
	return b
}

func (b bookings) without(examID string) bookings {
	out := b[:0]
	for _, item := range b {
		if item.examID != examID {
			out = append(out, item)
		}
	}
	return out
}

// overlapping returns the ids of exams whose booking overlaps iv, skipping ignore.
// Bookings starting at or after iv.End cannot overlap, so the scan stops at that bound.
func (b bookings) overlapping(iv models.Interval, ignore string) []string {
	bound := sort.Search(len(b), func(i int) bool { return !b[i].interval.Start.Before(iv.End) })
	var ids []string
	for _, item := range b[:bound] {
		if item.examID == ignore {
			continue
		}
		if item.interval.Overlaps(iv) {
			ids = append(ids, item.examID)
		}
	}
	return ids
}

type placement struct {
	roomID     string
	level      models.Level
	department models.Department
	proctorIDs []string
}

// Index answers free/busy questions for rooms, proctors, levels and departments.
// It is built once per run from a snapshot and updated in place as the engine places exams.
type Index struct {
	rooms       map[string]bookings
	proctors    map[string]bookings
	levels      map[models.Level]bookings
	departments map[models.Department]bookings
	windows     map[string]models.AvailabilityWindows
	load        map[string]int
	placed      map[string]placement
}

// NewIndex builds the index from every timed exam in the snapshot.
func NewIndex(snapshot *models.Snapshot) *Index {
	idx := &Index{
		rooms:       make(map[string]bookings),
		proctors:    make(map[string]bookings),
		levels:      make(map[models.Level]bookings),
		departments: make(map[models.Department]bookings),
		windows:     make(map[string]models.AvailabilityWindows, len(snapshot.Proctors)),
		load:        make(map[string]int, len(snapshot.Proctors)),
		placed:      make(map[string]placement),
	}
	for _, proctor := range snapshot.Proctors {
		idx.windows[proctor.ID] = proctor.Availability.Sorted()
		idx.load[proctor.ID] = 0
	}
	for _, exam := range snapshot.Exams {
		iv, ok := exam.Interval()
		if !ok {
			continue
		}
		roomID := ""
		if exam.RoomID != nil {
			roomID = *exam.RoomID
		}
		idx.Reserve(exam, roomID, iv, exam.ProctorIDs)
	}
	return idx
}

// KnowsProctor reports whether the proctor exists in the snapshot.
func (idx *Index) KnowsProctor(proctorID string) bool {
	_, ok := idx.windows[proctorID]
	return ok
}

// IsRoomFree reports whether no exam other than ignore occupies the room during iv.
func (idx *Index) IsRoomFree(roomID string, iv models.Interval, ignore string) bool {
	return len(idx.rooms[roomID].overlapping(iv, ignore)) == 0
}

// IsProctorFree reports whether the proctor supervises no other exam overlapping iv.
func (idx *Index) IsProctorFree(proctorID string, iv models.Interval, ignore string) bool {
	return len(idx.proctors[proctorID].overlapping(iv, ignore)) == 0
}

// IsProctorAvailable reports whether one declared window fully contains iv.
func (idx *Index) IsProctorAvailable(proctorID string, iv models.Interval) bool {
	windows := idx.windows[proctorID]
	i := sort.Search(len(windows), func(i int) bool { return windows[i].Start.After(iv.Start) })
	// only the last window starting at or before iv.Start can contain it
	return i > 0 && windows[i-1].Contains(iv)
}

// IsLevelFree reports whether no other exam of the level overlaps iv.
func (idx *Index) IsLevelFree(level models.Level, iv models.Interval, ignore string) bool {
	return len(idx.levels[level].overlapping(iv, ignore)) == 0
}

// IsDepartmentFree reports whether no other exam of the department overlaps iv.
func (idx *Index) IsDepartmentFree(department models.Department, iv models.Interval, ignore string) bool {
	return len(idx.departments[department].overlapping(iv, ignore)) == 0
}

// Load returns how many exams the proctor currently supervises.
func (idx *Index) Load(proctorID string) int {
	return idx.load[proctorID]
}

// Reserve records the exam as occupying the room, its proctors, its level and department during iv.
// A previous reservation of the same exam is released first.
func (idx *Index) Reserve(exam models.Exam, roomID string, iv models.Interval, proctorIDs []string) {
	idx.Release(exam.ID)

	item := booking{interval: iv, examID: exam.ID}
	if roomID != "" {
		idx.rooms[roomID] = idx.rooms[roomID].insert(item)
	}
	for _, proctorID := range proctorIDs {
		idx.proctors[proctorID] = idx.proctors[proctorID].insert(item)
		idx.load[proctorID]++
	}
	idx.levels[exam.Level] = idx.levels[exam.Level].insert(item)
	idx.departments[exam.Department] = idx.departments[exam.Department].insert(item)

	idx.placed[exam.ID] = placement{
		roomID:     roomID,
		level:      exam.Level,
		department: exam.Department,
		proctorIDs: append([]string(nil), proctorIDs...),
	}
}

// Release forgets every booking of the exam.
func (idx *Index) Release(examID string) {
	p, ok := idx.placed[examID]
	if !ok {
		return
	}
	if p.roomID != "" {
		idx.rooms[p.roomID] = idx.rooms[p.roomID].without(examID)
	}
	for _, proctorID := range p.proctorIDs {
		idx.proctors[proctorID] = idx.proctors[proctorID].without(examID)
		if idx.load[proctorID] > 0 {
			idx.load[proctorID]--
		}
	}
	idx.levels[p.level] = idx.levels[p.level].without(examID)
	idx.departments[p.department] = idx.departments[p.department].without(examID)
	delete(idx.placed, examID)
}
