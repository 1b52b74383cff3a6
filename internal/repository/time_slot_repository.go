package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

const timeSlotColumns = "id, start_time, end_time, exam_id, room_id"

// TimeSlotRepository provides persistence for generated time slots.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns slots ordered by start time.
func (r *TimeSlotRepository) List(ctx context.Context) ([]models.TimeSlot, error) {
	slots := []models.TimeSlot{}
	if err := r.db.SelectContext(ctx, &slots, `SELECT `+timeSlotColumns+` FROM time_slots ORDER BY start_time ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// BulkCreate inserts generated slots within a transaction and returns how many were stored.
func (r *TimeSlotRepository) BulkCreate(ctx context.Context, slots []models.TimeSlot) (created int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk create time slots: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		const query = `INSERT INTO time_slots (id, start_time, end_time, exam_id, room_id) VALUES (:id, :start_time, :end_time, :exam_id, :room_id)`
		if _, err = sqlx.NamedExecContext(ctx, tx, query, &slots[i]); err != nil {
			return 0, fmt.Errorf("bulk insert time slot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk create time slots: %w", err)
	}
	return len(slots), nil
}
