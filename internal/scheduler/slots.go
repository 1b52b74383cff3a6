package scheduler

import (
	"fmt"
	"time"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// MaxGenerationDays bounds a single slot generation request.
const MaxGenerationDays = 31

// GenerateTimeSlots expands a generation request into slots. Each day yields slots starting at
// DayStart + k*Step that end no later than DayEnd. When RoomIDs are given, every start produces one
// slot reserved per room.
func GenerateTimeSlots(req models.TimeSlotGeneration, newID func() string) ([]models.TimeSlot, error) {
	if req.Step <= 0 {
		req.Step = req.SlotDuration
	}
	switch {
	case req.Days < 1 || req.Days > MaxGenerationDays:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must be between 1 and %d", MaxGenerationDays))
	case req.SlotDuration <= 0:
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot duration must be positive")
	case req.DayStart < 0 || req.DayEnd > 24*time.Hour || req.DayEnd <= req.DayStart:
		return nil, appErrors.Clone(appErrors.ErrValidation, "working hours must satisfy 00:00 <= start < end <= 24:00")
	case req.DayStart+req.SlotDuration > req.DayEnd:
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot duration exceeds the working day")
	case req.StartDate.IsZero():
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date is required")
	}

	y, m, d := req.StartDate.Date()
	firstDay := time.Date(y, m, d, 0, 0, 0, 0, req.StartDate.Location())

	var slots []models.TimeSlot
	for day := 0; day < req.Days; day++ {
		midnight := firstDay.AddDate(0, 0, day)
		for offset := req.DayStart; offset+req.SlotDuration <= req.DayEnd; offset += req.Step {
			start := midnight.Add(offset)
			end := start.Add(req.SlotDuration)
			if len(req.RoomIDs) == 0 {
				slots = append(slots, models.TimeSlot{ID: newID(), StartTime: start, EndTime: end})
				continue
			}
			for _, roomID := range req.RoomIDs {
				room := roomID
				slots = append(slots, models.TimeSlot{ID: newID(), StartTime: start, EndTime: end, RoomID: &room})
			}
		}
	}
	return slots, nil
}
