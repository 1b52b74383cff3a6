package models

// ConflictKind is the exclusivity rule two committed exams break together.
type ConflictKind string

const (
	ConflictRoom       ConflictKind = "room"
	ConflictProctor    ConflictKind = "proctor"
	ConflictDepartment ConflictKind = "department"
	ConflictLevel      ConflictKind = "level"
)

// Severity ranks the operational cost of undoing a conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities so that high sorts first when descending.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Conflict is one pairwise violation found in a committed schedule. ExamA sorts before ExamB.
type Conflict struct {
	ExamA      string       `json:"examA"`
	ExamB      string       `json:"examB"`
	Kind       ConflictKind `json:"kind"`
	Severity   Severity     `json:"severity"`
	Suggestion string       `json:"suggestion"`
	ResourceID string       `json:"resourceId,omitempty"`
}

// ConflictFilter narrows conflict listings.
type ConflictFilter struct {
	Kind     ConflictKind
	Severity Severity
}

// Matches reports whether the conflict satisfies the filter.
func (f ConflictFilter) Matches(c Conflict) bool {
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if f.Severity != "" && c.Severity != f.Severity {
		return false
	}
	return true
}
