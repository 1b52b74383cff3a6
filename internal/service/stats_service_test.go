package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

func TestComputeStats(t *testing.T) {
	a := placedExam("e1", models.LevelL1, models.DepartmentMathematics, "room-a", at(8, 0), 120, "p1")
	a.Participants = 50
	b := placedExam("e2", models.LevelL2, models.DepartmentMathematics, "room-a", at(14, 0), 120, "p1")
	b.Participants = 100
	c := models.Exam{ID: "e3", Level: models.LevelM1, Department: models.DepartmentPhysics, DurationMinutes: 60, Participants: 10}
	examID := "e1"
	snapshot := &models.Snapshot{
		Exams: []models.Exam{a, b, c},
		Rooms: []models.Room{
			{ID: "room-a", Name: "Amphi A", Capacity: 100},
			{ID: "room-b", Name: "Salle B", Capacity: 30},
		},
		Proctors: []models.Proctor{{ID: "p1", Name: "Martin"}, {ID: "p2", Name: "Blanc"}},
		TimeSlots: []models.TimeSlot{
			{ID: "s1", StartTime: at(8, 0), EndTime: at(10, 0), ExamID: &examID},
			{ID: "s2", StartTime: at(10, 0), EndTime: at(12, 0)},
			{ID: "s3", StartTime: at(12, 0), EndTime: at(14, 0)},
			{ID: "s4", StartTime: at(14, 0), EndTime: at(16, 0)},
		},
	}

	stats := ComputeStats(snapshot)

	assert.Equal(t, models.StatsTotals{Exams: 3, ScheduledExams: 2, Rooms: 2, Proctors: 2, TimeSlots: 4, FreeTimeSlots: 3}, stats.Totals)
	assert.Equal(t, 50.0, stats.RoomOccupation)
	assert.Equal(t, 50.0, stats.ProctorDistribution)
	assert.Equal(t, 25.0, stats.TimeSlotBalance)

	require.Len(t, stats.ExamsByDepartment, 2)
	assert.Equal(t, models.DepartmentMathematics, stats.ExamsByDepartment[0].Department)
	assert.Equal(t, 66.67, stats.ExamsByDepartment[0].Percentage)

	require.Len(t, stats.Rooms, 2)
	assert.Equal(t, 75.0, stats.Rooms[0].OccupancyRate)
	assert.Equal(t, models.RoomStatusPartiallyOccupied, stats.Rooms[0].Status)
	assert.Equal(t, models.RoomStatusAvailable, stats.Rooms[1].Status)

	assert.Equal(t, "p1", stats.ProctorLoads[0].ProctorID)
	assert.Equal(t, 2, stats.ProctorLoads[0].Assignments)
}

func TestRoomUsageOccupied(t *testing.T) {
	usage := roomUsage(models.Room{ID: "r", Capacity: 30}, []models.Exam{{Participants: 30}})
	assert.Equal(t, 100.0, usage.OccupancyRate)
	assert.Equal(t, models.RoomStatusOccupied, usage.Status)
}

func TestStatsServiceUsesCache(t *testing.T) {
	snapshots := &countingSnapshots{snapshot: conflictSnapshot()}
	cache := NewCacheService(newMapCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(snapshots, cache, nil, time.Minute)

	first, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Totals.Conflicts)

	second, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, 1, snapshots.calls)

	require.NoError(t, cache.Invalidate(context.Background(), CacheKeyStats))
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snapshots.calls)
}
