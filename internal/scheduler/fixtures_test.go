package scheduler

import (
	"fmt"
	"time"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

var testDay = time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

func clock(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func window(fromHour, fromMinute, toHour, toMinute int) models.Interval {
	return models.Interval{Start: clock(fromHour, fromMinute), End: clock(toHour, toMinute)}
}

func exam(id string, participants, minutes int, level models.Level, department models.Department) models.Exam {
	return models.Exam{
		ID:              id,
		Name:            "Exam " + id,
		Level:           level,
		Department:      department,
		DurationMinutes: minutes,
		Participants:    participants,
		Version:         1,
		CreatedAt:       testDay,
	}
}

func scheduledExam(id string, roomID string, start time.Time, minutes int, level models.Level, department models.Department, proctorIDs ...string) models.Exam {
	e := exam(id, 10, minutes, level, department)
	room := roomID
	begin := start
	e.RoomID = &room
	e.StartTime = &begin
	e.ProctorIDs = proctorIDs
	return e
}

func room(id string, capacity int) models.Room {
	return models.Room{ID: id, Name: "Room " + id, Capacity: capacity}
}

func proctor(id string, department models.Department, windows ...models.Interval) models.Proctor {
	return models.Proctor{ID: id, Name: "Proctor " + id, Department: department, Availability: windows}
}

func slot(id string, start time.Time, d time.Duration) models.TimeSlot {
	return models.TimeSlot{ID: id, StartTime: start, EndTime: start.Add(d)}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
