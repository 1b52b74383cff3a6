package models

import (
	"sort"
	"time"
)

// AvailabilityWindows is the ordered set of intervals a proctor is willing to work.
type AvailabilityWindows []Interval

// Sorted returns a copy ordered by start time.
func (w AvailabilityWindows) Sorted() AvailabilityWindows {
	out := make(AvailabilityWindows, len(w))
	copy(out, w)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Overlapping reports whether any two windows overlap.
func (w AvailabilityWindows) Overlapping() bool {
	sorted := w.Sorted()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return true
		}
	}
	return false
}

// Proctor supervises exams during declared availability windows.
type Proctor struct {
	ID           string              `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Department   Department          `db:"department" json:"department"`
	Availability AvailabilityWindows `db:"-" json:"availability"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}
