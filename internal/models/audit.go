package models

import (
	"time"

	"github.com/lib/pq"
)

// Schedule run statuses.
const (
	RunStatusSuccess   = "success"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// ScheduleRun is the audit trail record of one batch scheduling invocation.
type ScheduleRun struct {
	ID                 string         `db:"id" json:"id"`
	Status             string         `db:"status" json:"status"`
	Reason             *string        `db:"reason" json:"reason,omitempty"`
	ScheduledCount     int            `db:"scheduled_count" json:"scheduled_count"`
	UnscheduledExamIDs pq.StringArray `db:"unscheduled_exam_ids" json:"unscheduled_exam_ids"`
	ConflictCount      int            `db:"conflict_count" json:"conflict_count"`
	TriggeredBy        *string        `db:"triggered_by" json:"triggered_by,omitempty"`
	StartedAt          time.Time      `db:"started_at" json:"started_at"`
	FinishedAt         time.Time      `db:"finished_at" json:"finished_at"`
}
