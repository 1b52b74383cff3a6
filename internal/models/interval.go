package models

import "time"

// Interval is a half-open [Start, End) span of time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval builds an interval starting at start and lasting d.
func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Valid reports whether End is strictly after Start.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Duration returns the span length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
// Back-to-back intervals (one ends exactly when the other starts) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether other lies fully inside i. Boundaries are inclusive.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}
