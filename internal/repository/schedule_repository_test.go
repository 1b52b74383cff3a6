package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var examRowColumns = []string{"id", "name", "level", "department", "duration_minutes", "start_time", "room_id", "proctor_ids", "participants", "version", "created_at", "updated_at"}

func TestScheduleRepositorySnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	now := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + examColumns + " FROM exams ORDER BY created_at ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows(examRowColumns).
			AddRow("e1", "Analyse", "L1", "mathematics", 120, now, "r1", "{p1}", 30, 2, now, now).
			AddRow("e2", "Algo", "L2", "computer_science", 90, nil, nil, "{}", 20, 1, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + roomColumns + " FROM rooms ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "created_at"}).AddRow("r1", "Amphi A", 150, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + proctorColumns + " FROM proctors ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "department", "availability", "created_at"}).
			AddRow("p1", "Dr. Martin", "mathematics", []byte(`[{"start":"2024-06-10T08:00:00Z","end":"2024-06-10T18:00:00Z"}]`), now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + timeSlotColumns + " FROM time_slots ORDER BY start_time ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "end_time", "exam_id", "room_id"}).
			AddRow("s1", now, now.Add(2*time.Hour), "e1", nil))
	mock.ExpectRollback()

	snapshot, err := repo.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Exams, 2)
	assert.True(t, snapshot.Exams[0].Scheduled())
	assert.Equal(t, pq.StringArray{"p1"}, snapshot.Exams[0].ProctorIDs)
	assert.False(t, snapshot.Exams[1].Scheduled())
	require.Len(t, snapshot.Proctors, 1)
	require.Len(t, snapshot.Proctors[0].Availability, 1)
	assert.Equal(t, now.Add(10*time.Hour), snapshot.Proctors[0].Availability[0].End)
	require.Len(t, snapshot.TimeSlots, 1)
	assert.True(t, snapshot.TimeSlots[0].Consumed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCommitAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	start := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(scheduleLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = NULL WHERE id = ANY($1) AND exam_id = $2")).
		WithArgs(sqlmock.AnyArg(), "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = $1, start_time = $2, proctor_ids = $3, version = version + 1")).
		WithArgs("r1", start, sqlmock.AnyArg(), "e1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = $1 WHERE id = $2 AND exam_id IS NULL")).
		WithArgs("e1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = $1")).
		WithArgs("r2", start, sqlmock.AnyArg(), "e2", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = $1")).
		WithArgs("e2", "s3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT other.id FROM exams target")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT other.id FROM exams target")).
		WithArgs("e2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	err := repo.CommitAssignments(context.Background(), []models.AssignmentUpdate{
		{ExamID: "e1", RoomID: "r1", StartTime: start, ProctorIDs: []string{"p1"}, TimeSlotID: "s2", ExpectedVersion: 3, ReleaseSlotIDs: []string{"s1"}},
		{ExamID: "e2", RoomID: "r2", StartTime: start, ProctorIDs: []string{"p2"}, TimeSlotID: "s3", ExpectedVersion: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCommitRollsBackOnStaleVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	start := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(scheduleLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = $1")).
		WithArgs("r1", start, sqlmock.AnyArg(), "e1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = $1")).
		WithArgs("e1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = $1")).
		WithArgs("r2", start, sqlmock.AnyArg(), "e2", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CommitAssignments(context.Background(), []models.AssignmentUpdate{
		{ExamID: "e1", RoomID: "r1", StartTime: start, ProctorIDs: []string{"p1"}, TimeSlotID: "s1", ExpectedVersion: 1},
		{ExamID: "e2", RoomID: "r2", StartTime: start, ProctorIDs: []string{"p2"}, TimeSlotID: "s2", ExpectedVersion: 4},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleVersion))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCommitRollsBackWhenSlotTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	start := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(scheduleLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = $1")).
		WithArgs("e1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CommitManualAssignment(context.Background(), models.AssignmentUpdate{
		ExamID: "e1", RoomID: "r1", StartTime: start, ProctorIDs: []string{"p1"}, TimeSlotID: "s1", ExpectedVersion: 1,
	})
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCommitRejectsPlacementCommittedElsewhere(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)
	start := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	// another process committed e9 into r1 at 08:00 through a different slot
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(scheduleLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exams SET room_id = $1")).
		WithArgs("r1", start, sqlmock.AnyArg(), "e1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET exam_id = $1")).
		WithArgs("e1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT other.id FROM exams target")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("e9"))
	mock.ExpectRollback()

	err := repo.CommitManualAssignment(context.Background(), models.AssignmentUpdate{
		ExamID: "e1", RoomID: "r1", StartTime: start, ProctorIDs: []string{"p1"}, TimeSlotID: "s2", ExpectedVersion: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.Contains(t, err.Error(), "e9")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCommitEmptyBatchIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	require.NoError(t, NewScheduleRepository(db).CommitAssignments(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
