package models

import "time"

// TimeSlot is a bulk-generated schedulable unit. A consumed slot links to the exam placed in it.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	ExamID    *string   `db:"exam_id" json:"exam_id,omitempty"`
	RoomID    *string   `db:"room_id" json:"room_id,omitempty"`
}

// Interval returns the slot span.
func (t TimeSlot) Interval() Interval {
	return Interval{Start: t.StartTime, End: t.EndTime}
}

// Consumed reports whether an exam occupies the slot.
func (t TimeSlot) Consumed() bool {
	return t.ExamID != nil
}

// UsableFor reports whether the slot may host an exam in the given room.
func (t TimeSlot) UsableFor(roomID string) bool {
	if t.Consumed() {
		return false
	}
	return t.RoomID == nil || *t.RoomID == roomID
}

// TimeSlotGeneration describes a bulk slot creation request.
type TimeSlotGeneration struct {
	StartDate    time.Time
	Days         int
	DayStart     time.Duration
	DayEnd       time.Duration
	SlotDuration time.Duration
	Step         time.Duration
	RoomIDs      []string
}
