package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/repository"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
	"github.com/noah-isme/exam-scheduler-api/pkg/runlock"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) TryEnqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type busyLocker struct{}

func (busyLocker) TryAcquire(context.Context) (runlock.Release, error) {
	return nil, runlock.ErrBusy
}

type brokenCommitStore struct {
	scheduleStore
}

func (s brokenCommitStore) CommitAssignments(context.Context, []models.AssignmentUpdate) error {
	return errors.New("connection reset by peer")
}

type staleCommitStore struct {
	scheduleStore
}

func (s staleCommitStore) CommitAssignments(context.Context, []models.AssignmentUpdate) error {
	return fmt.Errorf("assign exam e1: %w", repository.ErrStaleVersion)
}

func (s staleCommitStore) CommitManualAssignment(ctx context.Context, update models.AssignmentUpdate) error {
	return s.CommitAssignments(ctx, []models.AssignmentUpdate{update})
}

func seededMemoryStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	now := time.Date(2024, time.June, 9, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repository.SeedSampleData(context.Background(), store, now))
	return store
}

func newTestSchedulingService(store *repository.MemoryStore, queue jobEnqueuer) *SchedulingService {
	return NewSchedulingService(SchedulingServiceParams{
		Store:   store.Schedule(),
		Runs:    store.Runs(),
		Gate:    NewCommitGate(),
		Audit:   queue,
		Metrics: NewMetricsService(),
	})
}

func TestSchedulingServiceRunPlacesEveryExam(t *testing.T) {
	store := seededMemoryStore(t)
	queue := &recordingQueue{}
	svc := newTestSchedulingService(store, queue)

	resp, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "planner@example.com")
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, resp.Status)
	assert.Equal(t, 3, resp.ScheduledCount)
	assert.Equal(t, 3, resp.TotalScheduled)
	assert.Empty(t, resp.UnscheduledExamIDs)
	assert.NotEmpty(t, resp.RunID)

	exams, err := store.Exams().List(context.Background(), models.ExamFilter{})
	require.NoError(t, err)
	for _, exam := range exams {
		assert.True(t, exam.Scheduled(), exam.Name)
	}

	runs, err := svc.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, resp.RunID, runs[0].ID)
	require.NotNil(t, runs[0].TriggeredBy)
	assert.Equal(t, "planner@example.com", *runs[0].TriggeredBy)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeConflictAudit, queue.jobs[0].Type)
}

func TestSchedulingServiceRerunIsIdempotent(t *testing.T) {
	store := seededMemoryStore(t)
	queue := &recordingQueue{}
	svc := newTestSchedulingService(store, queue)

	first, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "")
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "")
	require.NoError(t, err)

	assert.Equal(t, 0, second.ScheduledCount)
	assert.Equal(t, first.TotalScheduled, second.TotalScheduled)
	assert.Equal(t, models.RunStatusSuccess, second.Status)
	assert.Len(t, queue.jobs, 1)
}

func TestSchedulingServiceRejectsConcurrentRun(t *testing.T) {
	store := seededMemoryStore(t)
	svc := NewSchedulingService(SchedulingServiceParams{Store: store.Schedule(), Lock: busyLocker{}})

	_, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSchedulingInProgress))
}

func TestSchedulingServiceCancelledRunWritesNothing(t *testing.T) {
	store := seededMemoryStore(t)
	svc := newTestSchedulingService(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, dto.ScheduleRunRequest{}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRunCancelled))

	scheduled := true
	exams, err := store.Exams().List(context.Background(), models.ExamFilter{Scheduled: &scheduled})
	require.NoError(t, err)
	assert.Empty(t, exams)
}

func TestSchedulingServiceStaleCommitIsConflict(t *testing.T) {
	store := seededMemoryStore(t)
	svc := NewSchedulingService(SchedulingServiceParams{
		Store: staleCommitStore{scheduleStore: store.Schedule()},
		Runs:  store.Runs(),
	})

	_, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStaleSnapshot))

	runs, _ := store.Runs().ListRecent(context.Background(), 1)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].Reason)
	assert.Equal(t, appErrors.ErrStaleSnapshot.Code, *runs[0].Reason)
}

func TestSchedulingServiceCommitFailureIsInternal(t *testing.T) {
	store := seededMemoryStore(t)
	svc := NewSchedulingService(SchedulingServiceParams{Store: brokenCommitStore{scheduleStore: store.Schedule()}})

	_, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestSchedulingServiceUnknownExam(t *testing.T) {
	store := seededMemoryStore(t)
	svc := newTestSchedulingService(store, nil)

	_, err := svc.Run(context.Background(), dto.ScheduleRunRequest{ExamIDs: []string{"ghost"}}, "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSchedulingServiceStructuralFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Exams().Create(ctx, &models.Exam{Name: "Algo", Level: models.LevelL1, Department: models.DepartmentComputerScience, DurationMinutes: 120, Participants: 10}))
	svc := newTestSchedulingService(store, nil)

	resp, err := svc.Run(ctx, dto.ScheduleRunRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, resp.Status)
	assert.Equal(t, "no_rooms", resp.Reason)
	assert.Len(t, resp.UnscheduledExamIDs, 1)
}

func TestSchedulingServiceAuditQueueFullIsNotFatal(t *testing.T) {
	store := seededMemoryStore(t)
	svc := newTestSchedulingService(store, &recordingQueue{err: jobs.ErrQueueFull})

	resp, err := svc.Run(context.Background(), dto.ScheduleRunRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ScheduledCount)
}
