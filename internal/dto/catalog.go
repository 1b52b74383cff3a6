package dto

import "time"

// CreateRoomRequest registers an exam venue.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=10000"`
}

// AvailabilityWindow is a closed interval during which a proctor can supervise.
type AvailabilityWindow struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

// CreateProctorRequest registers a proctor.
type CreateProctorRequest struct {
	Name         string               `json:"name" validate:"required,max=120"`
	Department   string               `json:"department" validate:"required,oneof=computer_science mathematics physics chemistry biology other"`
	Availability []AvailabilityWindow `json:"availability" validate:"omitempty,dive"`
}

// CreateExamRequest registers an unscheduled exam.
type CreateExamRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Level        string `json:"level" validate:"required,oneof=L1 L2 L3 M1 M2"`
	Department   string `json:"department" validate:"required,oneof=computer_science mathematics physics chemistry biology other"`
	Duration     string `json:"duration" validate:"required"`
	Participants int    `json:"participants" validate:"min=0"`
}

// ExamListQuery filters the exam list.
type ExamListQuery struct {
	Level      string `form:"level" validate:"omitempty,oneof=L1 L2 L3 M1 M2"`
	Department string `form:"department" validate:"omitempty,oneof=computer_science mathematics physics chemistry biology other"`
	Date       string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}
