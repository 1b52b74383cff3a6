package models

import "time"

// Snapshot is a point-in-time copy of every entity used by one scheduling or validation operation.
type Snapshot struct {
	Exams     []Exam     `json:"exams"`
	Rooms     []Room     `json:"rooms"`
	Proctors  []Proctor  `json:"proctors"`
	TimeSlots []TimeSlot `json:"time_slots"`
	TakenAt   time.Time  `json:"taken_at"`
}

// ExamByID looks up an exam.
func (s *Snapshot) ExamByID(id string) (Exam, bool) {
	for _, exam := range s.Exams {
		if exam.ID == id {
			return exam, true
		}
	}
	return Exam{}, false
}

// RoomByID looks up a room.
func (s *Snapshot) RoomByID(id string) (Room, bool) {
	for _, room := range s.Rooms {
		if room.ID == id {
			return room, true
		}
	}
	return Room{}, false
}

// ProctorByID looks up a proctor.
func (s *Snapshot) ProctorByID(id string) (Proctor, bool) {
	for _, proctor := range s.Proctors {
		if proctor.ID == id {
			return proctor, true
		}
	}
	return Proctor{}, false
}

// TimeSlotByID looks up a time slot.
func (s *Snapshot) TimeSlotByID(id string) (TimeSlot, bool) {
	for _, slot := range s.TimeSlots {
		if slot.ID == id {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// SlotsHeldBy returns ids of slots consumed by the exam.
func (s *Snapshot) SlotsHeldBy(examID string) []string {
	var ids []string
	for _, slot := range s.TimeSlots {
		if slot.ExamID != nil && *slot.ExamID == examID {
			ids = append(ids, slot.ID)
		}
	}
	return ids
}

// AssignmentUpdate is one exam write-back produced by the engine or a manual request.
type AssignmentUpdate struct {
	ExamID          string    `json:"examId"`
	RoomID          string    `json:"roomId"`
	StartTime       time.Time `json:"startTime"`
	ProctorIDs      []string  `json:"proctorIds"`
	TimeSlotID      string    `json:"timeSlotId"`
	ExpectedVersion int       `json:"-"`
	ReleaseSlotIDs  []string  `json:"-"`
}
