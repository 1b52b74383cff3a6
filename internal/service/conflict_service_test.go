package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
)

type mapCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{entries: make(map[string][]byte)}
}

func (r *mapCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *mapCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = raw
	return nil
}

func (r *mapCacheRepo) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.entries, key)
	}
	return nil
}

type countingSnapshots struct {
	snapshot *models.Snapshot
	calls    int
}

func (c *countingSnapshots) Snapshot(context.Context) (*models.Snapshot, error) {
	c.calls++
	return c.snapshot, nil
}

func placedExam(id string, level models.Level, department models.Department, roomID string, start time.Time, minutes int, proctors ...string) models.Exam {
	return models.Exam{
		ID:              id,
		Name:            id,
		Level:           level,
		Department:      department,
		DurationMinutes: minutes,
		StartTime:       &start,
		RoomID:          &roomID,
		ProctorIDs:      proctors,
		Version:         1,
	}
}

func conflictSnapshot() *models.Snapshot {
	return &models.Snapshot{Exams: []models.Exam{
		placedExam("e1", models.LevelL1, models.DepartmentMathematics, "room-a", at(8, 0), 120, "p1"),
		placedExam("e2", models.LevelL2, models.DepartmentPhysics, "room-a", at(9, 0), 120, "p1"),
		placedExam("e3", models.LevelM1, models.DepartmentBiology, "room-b", at(14, 0), 60, "p2"),
	}}
}

func TestConflictServiceListCachesReport(t *testing.T) {
	snapshots := &countingSnapshots{snapshot: conflictSnapshot()}
	cache := NewCacheService(newMapCacheRepo(), NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc := NewConflictService(snapshots, cache, NewMetricsService(), nil, nil, time.Minute)

	report, err := svc.List(context.Background(), dto.ConflictQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Total)
	assert.Equal(t, models.SeverityHigh, report.Conflicts[0].Severity)
	assert.Equal(t, "e1", report.Conflicts[0].ExamA)
	assert.Equal(t, "e2", report.Conflicts[0].ExamB)

	again, err := svc.List(context.Background(), dto.ConflictQuery{Kind: string(models.ConflictProctor)})
	require.NoError(t, err)
	require.Equal(t, 1, again.Total)
	assert.Equal(t, models.ConflictProctor, again.Conflicts[0].Kind)
	assert.Equal(t, 1, snapshots.calls)
}

func TestConflictServiceRejectsUnknownFilter(t *testing.T) {
	svc := NewConflictService(&countingSnapshots{snapshot: &models.Snapshot{}}, nil, nil, nil, nil, 0)

	_, err := svc.List(context.Background(), dto.ConflictQuery{Severity: "critical"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestConflictServiceAuditJobRefreshesCache(t *testing.T) {
	snapshots := &countingSnapshots{snapshot: &models.Snapshot{}}
	repo := newMapCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := NewConflictService(snapshots, cache, nil, nil, nil, time.Minute)

	_, err := svc.List(context.Background(), dto.ConflictQuery{})
	require.NoError(t, err)

	snapshots.snapshot = conflictSnapshot()
	require.NoError(t, svc.HandleAuditJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeConflictAudit, Payload: ConflictAuditPayload{Reference: "run-1", Trigger: "batch_run"}}))

	report, err := svc.List(context.Background(), dto.ConflictQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, snapshots.calls)
}

func TestConflictServiceAuditJobRejectsOtherTypes(t *testing.T) {
	svc := NewConflictService(&countingSnapshots{snapshot: &models.Snapshot{}}, nil, nil, nil, nil, 0)
	assert.Error(t, svc.HandleAuditJob(context.Background(), jobs.Job{Type: "export"}))
}

func TestConflictAuditRunsThroughQueue(t *testing.T) {
	snapshots := &countingSnapshots{snapshot: conflictSnapshot()}
	svc := NewConflictService(snapshots, nil, nil, nil, nil, 0)
	queue := jobs.NewQueue("conflict-audit", svc.HandleAuditJob, jobs.QueueConfig{Workers: 1, BufferSize: 4})
	queue.Start(context.Background())

	require.NoError(t, queue.Enqueue(jobs.Job{ID: "job-1", Type: JobTypeConflictAudit, Payload: ConflictAuditPayload{Reference: "exam-a"}}))
	queue.Stop()

	assert.Equal(t, int64(1), queue.Stats().Processed)
	assert.Equal(t, 1, snapshots.calls)
}
