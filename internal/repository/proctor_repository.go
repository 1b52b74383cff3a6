package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

const proctorColumns = "id, name, department, availability, created_at"

type proctorRow struct {
	ID           string            `db:"id"`
	Name         string            `db:"name"`
	Department   models.Department `db:"department"`
	Availability types.JSONText    `db:"availability"`
	CreatedAt    time.Time         `db:"created_at"`
}

func (row proctorRow) toModel() (models.Proctor, error) {
	proctor := models.Proctor{ID: row.ID, Name: row.Name, Department: row.Department, CreatedAt: row.CreatedAt}
	if len(row.Availability) > 0 {
		if err := json.Unmarshal(row.Availability, &proctor.Availability); err != nil {
			return models.Proctor{}, fmt.Errorf("decode availability for proctor %s: %w", row.ID, err)
		}
	}
	proctor.Availability = proctor.Availability.Sorted()
	return proctor, nil
}

func proctorsFromRows(rows []proctorRow) ([]models.Proctor, error) {
	out := make([]models.Proctor, 0, len(rows))
	for _, row := range rows {
		proctor, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, proctor)
	}
	return out, nil
}

// ProctorRepository provides persistence for proctors.
type ProctorRepository struct {
	db *sqlx.DB
}

// NewProctorRepository creates a new proctor repository.
func NewProctorRepository(db *sqlx.DB) *ProctorRepository {
	return &ProctorRepository{db: db}
}

// List returns proctors ordered by name.
func (r *ProctorRepository) List(ctx context.Context) ([]models.Proctor, error) {
	var rows []proctorRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+proctorColumns+` FROM proctors ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list proctors: %w", err)
	}
	return proctorsFromRows(rows)
}

// FindByID loads a proctor by id.
func (r *ProctorRepository) FindByID(ctx context.Context, id string) (*models.Proctor, error) {
	var row proctorRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+proctorColumns+` FROM proctors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	proctor, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &proctor, nil
}

// Create stores a new proctor.
func (r *ProctorRepository) Create(ctx context.Context, proctor *models.Proctor) error {
	if proctor.ID == "" {
		proctor.ID = uuid.NewString()
	}
	if proctor.CreatedAt.IsZero() {
		proctor.CreatedAt = time.Now().UTC()
	}
	windows := proctor.Availability
	if windows == nil {
		windows = models.AvailabilityWindows{}
	}
	raw, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}

	row := proctorRow{
		ID:           proctor.ID,
		Name:         proctor.Name,
		Department:   proctor.Department,
		Availability: types.JSONText(raw),
		CreatedAt:    proctor.CreatedAt,
	}
	const query = `INSERT INTO proctors (id, name, department, availability, created_at) VALUES (:id, :name, :department, :availability, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create proctor: %w", err)
	}
	return nil
}
