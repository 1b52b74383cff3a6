package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

// ScheduleRunRepository stores the audit trail of batch scheduling runs.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository creates a new run audit repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

// Record inserts one run.
func (r *ScheduleRunRepository) Record(ctx context.Context, run *models.ScheduleRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.UnscheduledExamIDs == nil {
		run.UnscheduledExamIDs = pq.StringArray{}
	}
	const query = `INSERT INTO schedule_runs (id, status, reason, scheduled_count, unscheduled_exam_ids, conflict_count, triggered_by, started_at, finished_at) VALUES (:id, :status, :reason, :scheduled_count, :unscheduled_exam_ids, :conflict_count, :triggered_by, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("record schedule run: %w", err)
	}
	return nil
}

// ListRecent returns the latest runs, newest first.
func (r *ScheduleRunRepository) ListRecent(ctx context.Context, limit int) ([]models.ScheduleRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs := []models.ScheduleRun{}
	const query = `SELECT id, status, reason, scheduled_count, unscheduled_exam_ids, conflict_count, triggered_by, started_at, finished_at FROM schedule_runs ORDER BY started_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}
