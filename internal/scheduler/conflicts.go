package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

type timedExam struct {
	exam     models.Exam
	interval models.Interval
}

// DetectConflicts scans a committed schedule for every pair of exams that break room, proctor,
// department or level exclusivity, however the exams got their placements.
// Same-level overlaps are only reported when the pair does not already collide on department.
// The result is ordered by severity (high first), then examA, then examB.
func DetectConflicts(exams []models.Exam) []models.Conflict {
	timed := make([]timedExam, 0, len(exams))
	for _, exam := range exams {
		if iv, ok := exam.Interval(); ok {
			timed = append(timed, timedExam{exam: exam, interval: iv})
		}
	}
	sort.Slice(timed, func(i, j int) bool {
		if !timed[i].interval.Start.Equal(timed[j].interval.Start) {
			return timed[i].interval.Start.Before(timed[j].interval.Start)
		}
		return timed[i].exam.ID < timed[j].exam.ID
	})

	conflicts := make([]models.Conflict, 0)
	for i := range timed {
		for j := i + 1; j < len(timed); j++ {
			// sorted by start: nothing further can overlap once a start passes this end
			if !timed[j].interval.Start.Before(timed[i].interval.End) {
				break
			}
			conflicts = append(conflicts, pairConflicts(timed[i].exam, timed[j].exam)...)
		}
	}

	SortConflicts(conflicts)
	return conflicts
}

// SortConflicts orders conflicts by severity descending, then examA, examB, kind.
func SortConflicts(conflicts []models.Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.ExamA != b.ExamA {
			return a.ExamA < b.ExamA
		}
		if a.ExamB != b.ExamB {
			return a.ExamB < b.ExamB
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ResourceID < b.ResourceID
	})
}

func pairConflicts(x, y models.Exam) []models.Conflict {
	a, b := x, y
	if b.ID < a.ID {
		a, b = b, a
	}

	var out []models.Conflict
	if a.RoomID != nil && b.RoomID != nil && *a.RoomID == *b.RoomID {
		out = append(out, newConflict(a, b, models.ConflictRoom, *a.RoomID))
	}
	for _, proctorID := range sharedProctors(a, b) {
		out = append(out, newConflict(a, b, models.ConflictProctor, proctorID))
	}
	sameDepartment := a.Department == b.Department
	if sameDepartment {
		out = append(out, newConflict(a, b, models.ConflictDepartment, string(a.Department)))
	}
	if a.Level == b.Level && !sameDepartment {
		out = append(out, newConflict(a, b, models.ConflictLevel, string(a.Level)))
	}
	return out
}

func sharedProctors(a, b models.Exam) []string {
	var shared []string
	for _, id := range a.ProctorIDs {
		if b.HasProctor(id) {
			shared = append(shared, id)
		}
	}
	sort.Strings(shared)
	return shared
}

func newConflict(a, b models.Exam, kind models.ConflictKind, resourceID string) models.Conflict {
	return models.Conflict{
		ExamA:      a.ID,
		ExamB:      b.ID,
		Kind:       kind,
		Severity:   severityOf(kind),
		Suggestion: suggestionFor(kind, a, b),
		ResourceID: resourceID,
	}
}

func severityOf(kind models.ConflictKind) models.Severity {
	switch kind {
	case models.ConflictRoom, models.ConflictProctor:
		return models.SeverityHigh
	case models.ConflictDepartment:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func suggestionFor(kind models.ConflictKind, a, b models.Exam) string {
	switch kind {
	case models.ConflictRoom:
		return fmt.Sprintf("Move %q or %q to another room or time slot", a.Name, b.Name)
	case models.ConflictProctor:
		return fmt.Sprintf("Assign a different proctor to %q or %q", a.Name, b.Name)
	case models.ConflictDepartment:
		return fmt.Sprintf("Reschedule %q or %q so the %s department has no overlapping exams", a.Name, b.Name, a.Department)
	default:
		return fmt.Sprintf("Reschedule %q or %q so %s students do not sit two exams at once", a.Name, b.Name, a.Level)
	}
}
