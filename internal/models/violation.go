package models

import "sort"

// ViolationKind tags the hard constraint a candidate assignment breaks.
type ViolationKind string

const (
	ViolationCapacity             ViolationKind = "capacity"
	ViolationRoomConflict         ViolationKind = "room_conflict"
	ViolationProctorConflict      ViolationKind = "proctor_conflict"
	ViolationProctorUnavailable   ViolationKind = "proctor_unavailable"
	ViolationLevelCollision       ViolationKind = "level_collision"
	ViolationDepartmentCollision  ViolationKind = "department_collision"
	ViolationInsufficientProctors ViolationKind = "insufficient_proctors"
	ViolationSlotUnavailable      ViolationKind = "slot_unavailable"
)

// Verdict is the outcome of checking one prospective assignment.
type Verdict struct {
	OK         bool            `json:"ok"`
	Violations []ViolationKind `json:"violations,omitempty"`
}

// Has reports whether the verdict carries the violation kind.
func (v Verdict) Has(kind ViolationKind) bool {
	for _, existing := range v.Violations {
		if existing == kind {
			return true
		}
	}
	return false
}

// NewVerdict deduplicates kinds and sorts them for stable output.
func NewVerdict(kinds []ViolationKind) Verdict {
	if len(kinds) == 0 {
		return Verdict{OK: true}
	}
	seen := make(map[ViolationKind]struct{}, len(kinds))
	out := make([]ViolationKind, 0, len(kinds))
	for _, kind := range kinds {
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Verdict{OK: false, Violations: out}
}
