package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

const examColumns = "id, name, level, department, duration_minutes, start_time, room_id, proctor_ids, participants, version, created_at, updated_at"

// ExamRepository provides persistence for exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// List returns exams matching the filter ordered by start time then name.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, error) {
	base := "FROM exams WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Date != nil {
		y, m, d := filter.Date.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, filter.Date.Location())
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d AND start_time < $%d", len(args)+1, len(args)+2))
		args = append(args, from, from.AddDate(0, 0, 1))
	}
	if filter.Scheduled != nil {
		if *filter.Scheduled {
			conditions = append(conditions, "start_time IS NOT NULL")
		} else {
			conditions = append(conditions, "start_time IS NULL")
		}
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_time ASC NULLS LAST, name ASC", examColumns, base)
	exams := []models.Exam{}
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// FindByID loads an exam by id.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Create stores a new, unscheduled exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now
	if exam.Version == 0 {
		exam.Version = 1
	}
	if exam.ProctorIDs == nil {
		exam.ProctorIDs = pq.StringArray{}
	}

	const query = `INSERT INTO exams (id, name, level, department, duration_minutes, start_time, room_id, proctor_ids, participants, version, created_at, updated_at) VALUES (:id, :name, :level, :department, :duration_minutes, :start_time, :room_id, :proctor_ids, :participants, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Delete removes an exam and releases every time slot it consumed.
func (r *ExamRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete exam: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE time_slots SET exam_id = NULL WHERE exam_id = $1`, id); err != nil {
		return fmt.Errorf("release exam slots: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if err = expectOneRow(res, sql.ErrNoRows); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete exam: %w", err)
	}
	return nil
}

// Unschedule clears the exam's room, start time and proctors and releases its slots.
// expectedVersion guards against concurrent writers.
func (r *ExamRepository) Unschedule(ctx context.Context, id string, expectedVersion int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unschedule exam: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE time_slots SET exam_id = NULL WHERE exam_id = $1`, id); err != nil {
		return fmt.Errorf("release exam slots: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE exams SET room_id = NULL, start_time = NULL, proctor_ids = '{}', version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("unschedule exam: %w", err)
	}
	if err = expectOneRow(res, ErrStaleVersion); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit unschedule exam: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, otherwise error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return otherwise
	}
	return nil
}
