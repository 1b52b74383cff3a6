package scheduler

import (
	"fmt"
	"time"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// DefaultMinProctors is the proctor count required when none is configured.
const DefaultMinProctors = 1

// Assignment is a prospective placement of one exam.
type Assignment struct {
	Exam       models.Exam
	Room       models.Room
	Start      time.Time
	ProctorIDs []string
}

// Interval returns the span the assignment would occupy.
func (a Assignment) Interval() models.Interval {
	return models.NewInterval(a.Start, a.Exam.Duration())
}

// Checker decides whether an assignment breaks any hard constraint. It never mutates the index.
type Checker struct {
	minProctors int
}

// NewChecker builds a checker requiring at least minProctors proctors per exam.
func NewChecker(minProctors int) *Checker {
	if minProctors < 1 {
		minProctors = DefaultMinProctors
	}
	return &Checker{minProctors: minProctors}
}

// MinProctors returns the configured minimum proctor count.
func (c *Checker) MinProctors() int {
	return c.minProctors
}

// Check evaluates every hard constraint against the index. The exam's own bookings are ignored,
// so an already scheduled exam can be checked for a new placement.
// Malformed input (non-positive duration, unknown or repeated proctors) is an error, not a violation.
func (c *Checker) Check(idx *Index, a Assignment) (models.Verdict, error) {
	if err := c.validate(idx, a); err != nil {
		return models.Verdict{}, err
	}

	iv := a.Interval()
	var kinds []models.ViolationKind

	if a.Exam.Participants > a.Room.Capacity {
		kinds = append(kinds, models.ViolationCapacity)
	}
	if !idx.IsRoomFree(a.Room.ID, iv, a.Exam.ID) {
		kinds = append(kinds, models.ViolationRoomConflict)
	}
	for _, proctorID := range a.ProctorIDs {
		if !idx.IsProctorFree(proctorID, iv, a.Exam.ID) {
			kinds = append(kinds, models.ViolationProctorConflict)
		}
		if !idx.IsProctorAvailable(proctorID, iv) {
			kinds = append(kinds, models.ViolationProctorUnavailable)
		}
	}
	if !idx.IsLevelFree(a.Exam.Level, iv, a.Exam.ID) {
		kinds = append(kinds, models.ViolationLevelCollision)
	}
	if !idx.IsDepartmentFree(a.Exam.Department, iv, a.Exam.ID) {
		kinds = append(kinds, models.ViolationDepartmentCollision)
	}
	if len(a.ProctorIDs) < c.minProctors {
		kinds = append(kinds, models.ViolationInsufficientProctors)
	}

	return models.NewVerdict(kinds), nil
}

func (c *Checker) validate(idx *Index, a Assignment) error {
	if a.Exam.DurationMinutes <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam %s has a non-positive duration", a.Exam.ID))
	}
	if a.Exam.Participants < 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("exam %s has a negative participant count", a.Exam.ID))
	}
	if a.Room.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "room is required")
	}
	if a.Start.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start time is required")
	}
	seen := make(map[string]struct{}, len(a.ProctorIDs))
	for _, proctorID := range a.ProctorIDs {
		if _, dup := seen[proctorID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("proctor %s listed twice", proctorID))
		}
		seen[proctorID] = struct{}{}
		if !idx.KnowsProctor(proctorID) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("proctor %s not found", proctorID))
		}
	}
	return nil
}
