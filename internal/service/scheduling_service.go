package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
	"github.com/noah-isme/exam-scheduler-api/pkg/runlock"
)

var tracer = otel.Tracer("exam-scheduler.service")

type scheduleStore interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	CommitAssignments(ctx context.Context, updates []models.AssignmentUpdate) error
	CommitManualAssignment(ctx context.Context, update models.AssignmentUpdate) error
}

type scheduleRunStore interface {
	Record(ctx context.Context, run *models.ScheduleRun) error
	ListRecent(ctx context.Context, limit int) ([]models.ScheduleRun, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// SchedulingServiceConfig tunes batch runs.
type SchedulingServiceConfig struct {
	RunTimeout time.Duration
}

// SchedulingServiceParams groups constructor dependencies.
type SchedulingServiceParams struct {
	Store     scheduleStore
	Runs      scheduleRunStore
	Engine    *scheduler.Engine
	Lock      runlock.Locker
	Gate      *CommitGate
	Audit     jobEnqueuer
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    SchedulingServiceConfig
}

// SchedulingService executes batch scheduling runs: one at a time, all-or-nothing.
type SchedulingService struct {
	store     scheduleStore
	runs      scheduleRunStore
	engine    *scheduler.Engine
	lock      runlock.Locker
	gate      *CommitGate
	audit     jobEnqueuer
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       SchedulingServiceConfig
}

// NewSchedulingService wires the batch scheduler.
func NewSchedulingService(params SchedulingServiceParams) *SchedulingService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Engine == nil {
		params.Engine = scheduler.NewEngine(nil, params.Logger)
	}
	if params.Lock == nil {
		params.Lock = runlock.NewLocal()
	}
	if params.Config.RunTimeout <= 0 {
		params.Config.RunTimeout = 30 * time.Second
	}
	return &SchedulingService{
		store:     params.Store,
		runs:      params.Runs,
		engine:    params.Engine,
		lock:      params.Lock,
		gate:      params.Gate,
		audit:     params.Audit,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: params.Validator,
		logger:    params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
		cfg:       params.Config,
	}
}

// Run executes one batch run. A second caller while a run is in flight gets ErrSchedulingInProgress.
// Nothing is written when the run is cancelled or times out.
func (s *SchedulingService) Run(ctx context.Context, req dto.ScheduleRunRequest, triggeredBy string) (*dto.ScheduleRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule run payload")
	}

	release, err := s.lock.TryAcquire(ctx)
	if err != nil {
		if errors.Is(err, runlock.ErrBusy) {
			return nil, appErrors.ErrSchedulingInProgress
		}
		return nil, translateStoreError(err, "")
	}
	defer func() {
		if releaseErr := release(context.Background()); releaseErr != nil {
			s.logger.Warn("release run lock failed", zap.Error(releaseErr))
		}
	}()

	runID := uuid.NewString()
	started := s.now()
	ctx, span := tracer.Start(ctx, "scheduling.Run")
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("requested_exams", len(req.ExamIDs)))
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	resp, conflicts, err := s.execute(runCtx, runID, req.ExamIDs)
	duration := s.now().Sub(started)

	run := &models.ScheduleRun{ID: runID, StartedAt: started, FinishedAt: started.Add(duration)}
	if triggeredBy != "" {
		run.TriggeredBy = &triggeredBy
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		run.Status = models.RunStatusFailed
		if isCancellation(err) {
			run.Status = models.RunStatusCancelled
			err = appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, appErrors.ErrRunCancelled.Message)
		} else {
			err = translateStoreError(err, "exam not found")
		}
		reason := appErrors.FromError(err).Code
		run.Reason = &reason
		s.recordRun(run)
		s.metrics.ObserveRun(run.Status, 0, duration)
		s.logger.Warn("scheduling run aborted", zap.String("run_id", runID), zap.String("reason", reason), zap.Error(err))
		return nil, err
	}

	resp.RunID = runID
	resp.DurationMs = duration.Milliseconds()
	run.Status = resp.Status
	run.ScheduledCount = resp.ScheduledCount
	run.ConflictCount = conflicts
	run.UnscheduledExamIDs = pq.StringArray(resp.UnscheduledExamIDs)
	if resp.Reason != "" {
		reason := resp.Reason
		run.Reason = &reason
	}
	s.recordRun(run)
	s.metrics.ObserveRun(resp.Status, resp.ScheduledCount, duration)
	span.SetAttributes(attribute.String("status", resp.Status), attribute.Int("scheduled", resp.ScheduledCount))

	if resp.ScheduledCount > 0 {
		s.afterCommit(ctx, runID)
	}

	s.logger.Info("scheduling run finished",
		zap.String("run_id", runID),
		zap.String("status", resp.Status),
		zap.Int("scheduled", resp.ScheduledCount),
		zap.Int("unscheduled", len(resp.UnscheduledExamIDs)),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

func (s *SchedulingService) execute(ctx context.Context, runID string, examIDs []string) (*dto.ScheduleRunResponse, int, error) {
	leave, err := s.gate.Enter(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer leave()

	readStart := time.Now()
	snapshot, err := s.store.Snapshot(ctx)
	s.metrics.ObserveDBQuery("snapshot", time.Since(readStart))
	if err != nil {
		return nil, 0, err
	}

	plan, err := s.engine.Plan(ctx, snapshot, examIDs)
	if err != nil {
		return nil, 0, err
	}
	// last cancellation point: past this the batch is committed as a whole
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	if len(plan.Updates) > 0 {
		writeStart := time.Now()
		err = s.store.CommitAssignments(ctx, plan.Updates)
		s.metrics.ObserveDBQuery("commit", time.Since(writeStart))
		if err != nil {
			return nil, 0, err
		}
	}

	unscheduled := plan.Unscheduled
	if unscheduled == nil {
		unscheduled = []string{}
	}
	return &dto.ScheduleRunResponse{
		RunID:              runID,
		Status:             plan.Status,
		Reason:             plan.Reason,
		ScheduledCount:     plan.Placed(),
		TotalScheduled:     totalScheduled(snapshot, plan.Updates),
		UnscheduledExamIDs: unscheduled,
	}, len(scheduler.DetectConflicts(applyUpdates(snapshot.Exams, plan.Updates))), nil
}

// Runs lists recent run audit records.
func (s *SchedulingService) Runs(ctx context.Context, limit int) ([]models.ScheduleRun, error) {
	if s.runs == nil {
		return []models.ScheduleRun{}, nil
	}
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	return runs, nil
}

func (s *SchedulingService) recordRun(run *models.ScheduleRun) {
	if s.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.Warn("record scheduling run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *SchedulingService) afterCommit(ctx context.Context, runID string) {
	_ = s.cache.Invalidate(ctx, CacheKeyConflicts, CacheKeyStats)
	enqueueConflictAudit(s.audit, s.logger, runID, "batch_run")
}

// totalScheduled counts exams scheduled once the plan is applied.
func totalScheduled(snapshot *models.Snapshot, updates []models.AssignmentUpdate) int {
	scheduled := make(map[string]struct{}, len(snapshot.Exams))
	for _, exam := range snapshot.Exams {
		if exam.Scheduled() {
			scheduled[exam.ID] = struct{}{}
		}
	}
	for _, update := range updates {
		scheduled[update.ExamID] = struct{}{}
	}
	return len(scheduled)
}

// applyUpdates returns copies of exams with the updates' placements applied.
func applyUpdates(exams []models.Exam, updates []models.AssignmentUpdate) []models.Exam {
	byID := make(map[string]models.AssignmentUpdate, len(updates))
	for _, update := range updates {
		byID[update.ExamID] = update
	}
	out := make([]models.Exam, len(exams))
	for i, exam := range exams {
		if update, ok := byID[exam.ID]; ok {
			roomID := update.RoomID
			start := update.StartTime
			exam.RoomID = &roomID
			exam.StartTime = &start
			exam.ProctorIDs = append(pq.StringArray{}, update.ProctorIDs...)
			exam.Version++
		}
		out[i] = exam
	}
	return out
}

func enqueueConflictAudit(queue jobEnqueuer, logger *zap.Logger, reference, trigger string) {
	if queue == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeConflictAudit,
		Payload: ConflictAuditPayload{Reference: reference, Trigger: trigger},
	}
	if err := queue.TryEnqueue(job); err != nil {
		logger.Warn("conflict audit not queued", zap.String("reference", reference), zap.Error(err))
	}
}
