package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

func TestRoomRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.Room{Name: "Amphi A", Capacity: 150})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, created_at FROM rooms WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProctorRepositoryCreateEncodesAvailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProctorRepository(db)
	start := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO proctors")).
		WithArgs(sqlmock.AnyArg(), "Dr. Blanc", "physics", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	proctor := &models.Proctor{
		Name:         "Dr. Blanc",
		Department:   models.DepartmentPhysics,
		Availability: models.AvailabilityWindows{{Start: start, End: start.Add(4 * time.Hour)}},
	}
	require.NoError(t, repo.Create(context.Background(), proctor))
	assert.NotEmpty(t, proctor.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)
	day := time.Date(2024, time.June, 10, 15, 0, 0, 0, time.UTC)
	midnight := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM exams WHERE 1=1 AND level = $1 AND department = $2 AND start_time >= $3 AND start_time < $4 ORDER BY start_time ASC NULLS LAST, name ASC")).
		WithArgs(models.LevelL1, models.DepartmentMathematics, midnight, midnight.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(examRowColumns).
			AddRow("e1", "Analyse", "L1", "mathematics", 120, day, "r1", "{p1,p2}", 30, 1, day, day))

	exams, err := repo.List(context.Background(), models.ExamFilter{Level: models.LevelL1, Department: models.DepartmentMathematics, Date: &day})
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, pq.StringArray{"p1", "p2"}, exams[0].ProctorIDs)
	assert.Equal(t, 2*time.Hour, exams[0].Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryDeleteReleasesSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = NULL WHERE exam_id = $1")).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exams WHERE id = $1")).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = NULL")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exams")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryUnscheduleStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = NULL")).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = NULL, start_time = NULL")).
		WithArgs("e1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Unschedule(context.Background(), "e1", 2)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)
	start := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO time_slots")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO time_slots")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	slots := []models.TimeSlot{
		{StartTime: start, EndTime: start.Add(2 * time.Hour)},
		{StartTime: start.Add(2 * time.Hour), EndTime: start.Add(4 * time.Hour)},
	}
	created, err := repo.BulkCreate(context.Background(), slots)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.NotEmpty(t, slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRunRepositoryRecord(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRunRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_runs")).WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.ScheduleRun{Status: models.RunStatusPartial, ScheduledCount: 2, StartedAt: now, FinishedAt: now}
	require.NoError(t, repo.Record(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
