package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

const roomColumns = "id, name, capacity, created_at"

// RoomRepository provides persistence for rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List returns every room ordered by name.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	rooms := []models.Room{}
	if err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindByID loads a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// Create stores a new room. Duplicate names yield ErrDuplicate.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO rooms (id, name, capacity, created_at) VALUES (:id, :name, :capacity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create room: %w", ErrDuplicate)
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}
