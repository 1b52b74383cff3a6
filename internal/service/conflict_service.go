package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
)

// JobTypeConflictAudit identifies the post-commit conflict rescan job.
const JobTypeConflictAudit = "conflict_audit"

// ConflictAuditPayload names what triggered an audit.
type ConflictAuditPayload struct {
	Reference string
	Trigger   string
}

type snapshotReader interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// ConflictService reports pairwise conflicts among scheduled exams.
type ConflictService struct {
	store     snapshotReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewConflictService constructs the conflict reporter.
func NewConflictService(store snapshotReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, ttl time.Duration) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{store: store, cache: cache, metrics: metrics, validator: validate, logger: logger, ttl: ttl}
}

// List returns the ordered conflict report, optionally filtered by kind and severity.
func (s *ConflictService) List(ctx context.Context, query dto.ConflictQuery) (*dto.ConflictReport, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict filter")
	}

	var conflicts []models.Conflict
	hit, err := s.cache.Get(ctx, CacheKeyConflicts, &conflicts)
	if err != nil {
		hit = false
	}
	if !hit {
		conflicts, err = s.scan(ctx)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Set(ctx, CacheKeyConflicts, conflicts, s.ttl)
	}

	filter := models.ConflictFilter{Kind: models.ConflictKind(query.Kind), Severity: models.Severity(query.Severity)}
	filtered := make([]models.Conflict, 0, len(conflicts))
	for _, conflict := range conflicts {
		if filter.Matches(conflict) {
			filtered = append(filtered, conflict)
		}
	}
	return &dto.ConflictReport{Conflicts: filtered, Total: len(filtered)}, nil
}

// Audit rescans the committed schedule, refreshes the cached report and returns the conflict count.
func (s *ConflictService) Audit(ctx context.Context) (int, error) {
	conflicts, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	_ = s.cache.Set(ctx, CacheKeyConflicts, conflicts, s.ttl)
	return len(conflicts), nil
}

// HandleAuditJob is the jobs.Handler for JobTypeConflictAudit.
func (s *ConflictService) HandleAuditJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeConflictAudit {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	payload, _ := job.Payload.(ConflictAuditPayload)
	count, err := s.Audit(ctx)
	if err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("reference", payload.Reference),
		zap.String("trigger", payload.Trigger),
		zap.Int("conflicts", count),
	}
	if count > 0 {
		s.logger.Warn("conflict audit found overlapping exams", fields...)
		return nil
	}
	s.logger.Info("conflict audit clean", fields...)
	return nil
}

func (s *ConflictService) scan(ctx context.Context) ([]models.Conflict, error) {
	ctx, span := tracer.Start(ctx, "conflicts.Scan")
	defer span.End()

	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return nil, translateStoreError(err, "")
	}
	conflicts := scheduler.DetectConflicts(snapshot.Exams)
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	span.SetAttributes(attribute.Int("conflicts", len(conflicts)))
	s.metrics.SetConflictsDetected(len(conflicts))
	return conflicts, nil
}
