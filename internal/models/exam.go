package models

import (
	"time"

	"github.com/lib/pq"
)

// Exam is a sitting that must be placed into a room, a time and a proctor set.
// StartTime and RoomID are either both set (scheduled) or both nil (unscheduled).
type Exam struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Level           Level          `db:"level" json:"level"`
	Department      Department     `db:"department" json:"department"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	StartTime       *time.Time     `db:"start_time" json:"start_time,omitempty"`
	RoomID          *string        `db:"room_id" json:"room_id,omitempty"`
	ProctorIDs      pq.StringArray `db:"proctor_ids" json:"proctor_ids"`
	Participants    int            `db:"participants" json:"participants"`
	Version         int            `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Duration returns the exam length.
func (e Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Scheduled reports whether the exam holds both a room and a start time.
func (e Exam) Scheduled() bool {
	return e.StartTime != nil && e.RoomID != nil
}

// Interval returns the occupied span of a timed exam.
func (e Exam) Interval() (Interval, bool) {
	if e.StartTime == nil || e.DurationMinutes <= 0 {
		return Interval{}, false
	}
	return NewInterval(*e.StartTime, e.Duration()), true
}

// HasProctor reports whether the proctor is assigned to the exam.
func (e Exam) HasProctor(proctorID string) bool {
	for _, id := range e.ProctorIDs {
		if id == proctorID {
			return true
		}
	}
	return false
}

// ExamFilter narrows exam listings.
type ExamFilter struct {
	Level      Level
	Department Department
	Date       *time.Time
	Scheduled  *bool
}

// Matches reports whether the exam satisfies the filter.
func (f ExamFilter) Matches(exam Exam) bool {
	if f.Level != "" && exam.Level != f.Level {
		return false
	}
	if f.Department != "" && exam.Department != f.Department {
		return false
	}
	if f.Scheduled != nil && exam.Scheduled() != *f.Scheduled {
		return false
	}
	if f.Date != nil {
		if exam.StartTime == nil {
			return false
		}
		y1, m1, d1 := exam.StartTime.Date()
		y2, m2, d2 := f.Date.Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}
