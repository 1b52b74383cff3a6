package dto

import "github.com/noah-isme/exam-scheduler-api/internal/models"

// ScheduleRunRequest triggers a batch run. Without examIds every unscheduled exam is considered;
// named exams that are already scheduled are re-placed.
type ScheduleRunRequest struct {
	ExamIDs []string `json:"examIds" validate:"omitempty,max=1000,dive,required"`
}

// ScheduleRunResponse reports a finished batch run.
type ScheduleRunResponse struct {
	RunID              string   `json:"runId"`
	Status             string   `json:"status"`
	Reason             string   `json:"reason,omitempty"`
	ScheduledCount     int      `json:"scheduledCount"`
	TotalScheduled     int      `json:"totalScheduled"`
	UnscheduledExamIDs []string `json:"unscheduledExamIds"`
	DurationMs         int64    `json:"durationMs"`
}

// ManualScheduleRequest names one human-chosen placement.
type ManualScheduleRequest struct {
	ExamID     string   `json:"examId" validate:"required"`
	RoomID     string   `json:"roomId" validate:"required"`
	TimeSlotID string   `json:"timeSlotId" validate:"required"`
	ProctorIDs []string `json:"proctorIds" validate:"omitempty,max=20,dive,required"`
}

// Manual assignment statuses.
const (
	ManualStatusSuccess = "success"
	ManualStatusError   = "error"
)

// ManualScheduleResponse carries either the committed exam or the violations that rejected it.
type ManualScheduleResponse struct {
	Status     string                 `json:"status"`
	Exam       *models.Exam           `json:"exam,omitempty"`
	Violations []models.ViolationKind `json:"violations,omitempty"`
}

// ConflictQuery filters the conflict report.
type ConflictQuery struct {
	Kind     string `form:"kind" validate:"omitempty,oneof=room proctor department level"`
	Severity string `form:"severity" validate:"omitempty,oneof=high medium low"`
}

// ConflictReport lists detected conflicts.
type ConflictReport struct {
	Conflicts []models.Conflict `json:"conflicts"`
	Total     int               `json:"total"`
}

// GenerateTimeSlotsRequest describes a bulk slot generation. Durations accept Go syntax ("2h", "90m")
// and the legacy "2h30" form.
type GenerateTimeSlotsRequest struct {
	StartDate    string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	Days         int      `json:"days" validate:"omitempty,min=1,max=31"`
	DayStart     string   `json:"dayStart" validate:"omitempty,datetime=15:04"`
	DayEnd       string   `json:"dayEnd" validate:"omitempty,datetime=15:04"`
	SlotDuration string   `json:"slotDuration"`
	Step         string   `json:"step"`
	RoomIDs      []string `json:"roomIds" validate:"omitempty,dive,required"`
}

// GenerateTimeSlotsResponse reports how many slots were stored.
type GenerateTimeSlotsResponse struct {
	Created int `json:"created"`
}
