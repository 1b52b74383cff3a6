package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

func TestCheckerAcceptsExactFit(t *testing.T) {
	snapshot := &models.Snapshot{
		Rooms:    []models.Room{room("r1", 30)},
		Proctors: []models.Proctor{proctor("p1", models.DepartmentPhysics, window(8, 0, 18, 0))},
	}
	e := exam("e1", 30, 120, models.LevelL1, models.DepartmentPhysics)

	verdict, err := NewChecker(1).Check(NewIndex(snapshot), Assignment{Exam: e, Room: snapshot.Rooms[0], Start: clock(8, 0), ProctorIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.True(t, verdict.OK)
	assert.Empty(t, verdict.Violations)
}

func TestCheckerReportsEveryViolation(t *testing.T) {
	snapshot := &models.Snapshot{
		Rooms: []models.Room{room("r1", 20)},
		Proctors: []models.Proctor{
			proctor("p1", models.DepartmentPhysics, window(8, 0, 18, 0)),
			proctor("p2", models.DepartmentPhysics, window(13, 0, 18, 0)),
		},
		Exams: []models.Exam{
			scheduledExam("a", "r1", clock(8, 0), 120, models.LevelL1, models.DepartmentPhysics, "p1"),
		},
	}
	b := exam("b", 40, 120, models.LevelL1, models.DepartmentPhysics)

	verdict, err := NewChecker(3).Check(NewIndex(snapshot), Assignment{Exam: b, Room: snapshot.Rooms[0], Start: clock(9, 0), ProctorIDs: []string{"p1", "p2"}})
	require.NoError(t, err)
	assert.False(t, verdict.OK)
	assert.ElementsMatch(t, []models.ViolationKind{
		models.ViolationCapacity,
		models.ViolationRoomConflict,
		models.ViolationProctorConflict,
		models.ViolationProctorUnavailable,
		models.ViolationLevelCollision,
		models.ViolationDepartmentCollision,
		models.ViolationInsufficientProctors,
	}, verdict.Violations)
}

func TestCheckerProctorAvailabilityBoundary(t *testing.T) {
	snapshot := &models.Snapshot{
		Rooms:    []models.Room{room("r1", 50)},
		Proctors: []models.Proctor{proctor("p1", models.DepartmentMathematics, window(8, 0, 10, 0))},
	}
	idx := NewIndex(snapshot)
	checker := NewChecker(1)

	fits := exam("e1", 10, 120, models.LevelL2, models.DepartmentMathematics)
	verdict, err := checker.Check(idx, Assignment{Exam: fits, Room: snapshot.Rooms[0], Start: clock(8, 0), ProctorIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.True(t, verdict.OK)

	overruns := exam("e2", 10, 150, models.LevelL2, models.DepartmentMathematics)
	verdict, err = checker.Check(idx, Assignment{Exam: overruns, Room: snapshot.Rooms[0], Start: clock(8, 0), ProctorIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.Equal(t, []models.ViolationKind{models.ViolationProctorUnavailable}, verdict.Violations)
}

func TestCheckerBackToBackExamsDoNotCollide(t *testing.T) {
	snapshot := &models.Snapshot{
		Rooms:    []models.Room{room("r1", 50)},
		Proctors: []models.Proctor{proctor("p1", models.DepartmentBiology, window(8, 0, 18, 0))},
		Exams: []models.Exam{
			scheduledExam("a", "r1", clock(8, 0), 120, models.LevelL3, models.DepartmentBiology, "p1"),
		},
	}
	b := exam("b", 10, 120, models.LevelL3, models.DepartmentBiology)

	verdict, err := NewChecker(1).Check(NewIndex(snapshot), Assignment{Exam: b, Room: snapshot.Rooms[0], Start: clock(10, 0), ProctorIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckerIgnoresOwnBooking(t *testing.T) {
	a := scheduledExam("a", "r1", clock(8, 0), 120, models.LevelL3, models.DepartmentBiology, "p1")
	snapshot := &models.Snapshot{
		Rooms:    []models.Room{room("r1", 50)},
		Proctors: []models.Proctor{proctor("p1", models.DepartmentBiology, window(8, 0, 18, 0))},
		Exams:    []models.Exam{a},
	}

	verdict, err := NewChecker(1).Check(NewIndex(snapshot), Assignment{Exam: a, Room: snapshot.Rooms[0], Start: clock(9, 0), ProctorIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.True(t, verdict.OK)
}

func TestCheckerRejectsMalformedInput(t *testing.T) {
	snapshot := &models.Snapshot{
		Rooms:    []models.Room{room("r1", 50)},
		Proctors: []models.Proctor{proctor("p1", models.DepartmentOther, window(8, 0, 18, 0))},
	}
	idx := NewIndex(snapshot)
	checker := NewChecker(1)
	good := exam("e1", 10, 60, models.LevelM1, models.DepartmentOther)

	_, err := checker.Check(idx, Assignment{Exam: good, Room: snapshot.Rooms[0], Start: clock(8, 0), ProctorIDs: []string{"ghost"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = checker.Check(idx, Assignment{Exam: good, Room: snapshot.Rooms[0], Start: clock(8, 0), ProctorIDs: []string{"p1", "p1"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	bad := exam("e2", 10, 0, models.LevelM1, models.DepartmentOther)
	_, err = checker.Check(idx, Assignment{Exam: bad, Room: snapshot.Rooms[0], Start: clock(8, 0), ProctorIDs: []string{"p1"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestIndexReserveAndRelease(t *testing.T) {
	snapshot := &models.Snapshot{
		Proctors: []models.Proctor{proctor("p1", models.DepartmentChemistry, window(8, 0, 18, 0))},
	}
	idx := NewIndex(snapshot)
	e := exam("e1", 10, 60, models.LevelL1, models.DepartmentChemistry)
	iv := window(9, 0, 10, 0)

	idx.Reserve(e, "r1", iv, []string{"p1"})
	assert.False(t, idx.IsRoomFree("r1", window(9, 30, 11, 0), ""))
	assert.False(t, idx.IsProctorFree("p1", iv, ""))
	assert.Equal(t, 1, idx.Load("p1"))

	idx.Reserve(e, "r1", window(12, 0, 13, 0), []string{"p1"})
	assert.True(t, idx.IsRoomFree("r1", iv, ""))
	assert.Equal(t, 1, idx.Load("p1"))

	idx.Release("e1")
	assert.True(t, idx.IsRoomFree("r1", window(12, 0, 13, 0), ""))
	assert.True(t, idx.IsLevelFree(models.LevelL1, window(12, 0, 13, 0), ""))
	assert.Equal(t, 0, idx.Load("p1"))
}
