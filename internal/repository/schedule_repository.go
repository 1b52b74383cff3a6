package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

// scheduleLockKey is the transaction-scoped advisory lock every assignment commit takes, so
// commits from different processes apply one after another.
const scheduleLockKey int64 = 0x65786d73636864

// overlapQuery finds a committed exam that shares a room, a proctor, a level or a department
// with the given exam at an overlapping time.
const overlapQuery = `SELECT other.id FROM exams target
JOIN exams other ON other.id <> target.id
WHERE target.id = $1
  AND target.start_time IS NOT NULL
  AND other.start_time IS NOT NULL
  AND other.start_time < target.start_time + make_interval(mins => target.duration_minutes)
  AND target.start_time < other.start_time + make_interval(mins => other.duration_minutes)
  AND (other.room_id = target.room_id
    OR other.proctor_ids && target.proctor_ids
    OR other.level = target.level
    OR other.department = target.department)
LIMIT 1`

// ScheduleRepository reads consistent snapshots of the scheduling inputs and writes assignments back atomically.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Snapshot loads every exam, room, proctor and time slot inside one repeatable-read transaction.
func (r *ScheduleRepository) Snapshot(ctx context.Context) (snapshot *models.Snapshot, err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	snapshot = &models.Snapshot{TakenAt: time.Now().UTC()}
	if err = tx.SelectContext(ctx, &snapshot.Exams, `SELECT `+examColumns+` FROM exams ORDER BY created_at ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("snapshot exams: %w", err)
	}
	if err = tx.SelectContext(ctx, &snapshot.Rooms, `SELECT `+roomColumns+` FROM rooms ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("snapshot rooms: %w", err)
	}
	var proctorRows []proctorRow
	if err = tx.SelectContext(ctx, &proctorRows, `SELECT `+proctorColumns+` FROM proctors ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("snapshot proctors: %w", err)
	}
	if snapshot.Proctors, err = proctorsFromRows(proctorRows); err != nil {
		return nil, err
	}
	if err = tx.SelectContext(ctx, &snapshot.TimeSlots, `SELECT `+timeSlotColumns+` FROM time_slots ORDER BY start_time ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("snapshot time slots: %w", err)
	}
	return snapshot, nil
}

// CommitAssignments writes every update in one transaction under the schedule advisory lock. Any exam
// whose version moved, any slot already consumed by someone else, or any placement that collides with
// an exam committed since the snapshot aborts the whole batch with ErrStaleVersion.
func (r *ScheduleRepository) CommitAssignments(ctx context.Context, updates []models.AssignmentUpdate) (err error) {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, scheduleLockKey); err != nil {
		return fmt.Errorf("lock schedule: %w", err)
	}
	for _, update := range updates {
		if err = applyAssignment(ctx, tx, update); err != nil {
			return err
		}
	}
	// checked once every row of the batch holds its final placement
	for _, update := range updates {
		if err = checkNoOverlap(ctx, tx, update.ExamID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignments: %w", err)
	}
	return nil
}

// CommitManualAssignment writes a single human-chosen assignment atomically.
func (r *ScheduleRepository) CommitManualAssignment(ctx context.Context, update models.AssignmentUpdate) error {
	return r.CommitAssignments(ctx, []models.AssignmentUpdate{update})
}

func applyAssignment(ctx context.Context, tx *sqlx.Tx, update models.AssignmentUpdate) error {
	if len(update.ReleaseSlotIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE time_slots SET exam_id = NULL WHERE id = ANY($1) AND exam_id = $2`, pq.Array(update.ReleaseSlotIDs), update.ExamID); err != nil {
			return fmt.Errorf("release slots of exam %s: %w", update.ExamID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE exams SET room_id = $1, start_time = $2, proctor_ids = $3, version = version + 1, updated_at = NOW() WHERE id = $4 AND version = $5`,
		update.RoomID, update.StartTime, pq.StringArray(update.ProctorIDs), update.ExamID, update.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("assign exam %s: %w", update.ExamID, err)
	}
	if err := expectOneRow(res, ErrStaleVersion); err != nil {
		return fmt.Errorf("assign exam %s: %w", update.ExamID, err)
	}

	if update.TimeSlotID == "" {
		return nil
	}
	res, err = tx.ExecContext(ctx, `UPDATE time_slots SET exam_id = $1 WHERE id = $2 AND exam_id IS NULL`, update.ExamID, update.TimeSlotID)
	if err != nil {
		return fmt.Errorf("consume slot %s: %w", update.TimeSlotID, err)
	}
	if err := expectOneRow(res, ErrStaleVersion); err != nil {
		return fmt.Errorf("consume slot %s: %w", update.TimeSlotID, err)
	}
	return nil
}

func checkNoOverlap(ctx context.Context, tx *sqlx.Tx, examID string) error {
	var otherID string
	err := tx.GetContext(ctx, &otherID, overlapQuery, examID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("recheck exam %s: %w", examID, err)
	default:
		return fmt.Errorf("exam %s overlaps exam %s: %w", examID, otherID, ErrStaleVersion)
	}
}
