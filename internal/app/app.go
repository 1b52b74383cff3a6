// Package app assembles storage, caches, locks and services from configuration. Both the HTTP server
// and the operator CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/repository"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	"github.com/noah-isme/exam-scheduler-api/pkg/cache"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/database"
	"github.com/noah-isme/exam-scheduler-api/pkg/jobs"
	"github.com/noah-isme/exam-scheduler-api/pkg/runlock"
)

const cachePrefix = "exam-scheduler"

type roomRepository interface {
	List(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}

type proctorRepository interface {
	List(ctx context.Context) ([]models.Proctor, error)
	FindByID(ctx context.Context, id string) (*models.Proctor, error)
	Create(ctx context.Context, proctor *models.Proctor) error
}

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
	Unschedule(ctx context.Context, id string, expectedVersion int) error
}

type timeSlotRepository interface {
	List(ctx context.Context) ([]models.TimeSlot, error)
	BulkCreate(ctx context.Context, slots []models.TimeSlot) (int, error)
}

type scheduleRepository interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	CommitAssignments(ctx context.Context, updates []models.AssignmentUpdate) error
	CommitManualAssignment(ctx context.Context, update models.AssignmentUpdate) error
}

type runRepository interface {
	Record(ctx context.Context, run *models.ScheduleRun) error
	ListRecent(ctx context.Context, limit int) ([]models.ScheduleRun, error)
}

type storage struct {
	rooms     roomRepository
	proctors  proctorRepository
	exams     examRepository
	timeSlots timeSlotRepository
	schedule  scheduleRepository
	runs      runRepository
}

// Options adjust how Build connects to external systems.
type Options struct {
	// Migrate applies embedded migrations after connecting to Postgres.
	Migrate bool
	// SkipRedis builds without a Redis client even when caching is enabled.
	SkipRedis bool
}

// App holds the wired services and the clients they share.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *sqlx.DB
	Redis *redis.Client

	Metrics    *service.MetricsService
	Cache      *service.CacheService
	AuditQueue *jobs.Queue

	Auth       *service.AuthService
	Scheduling *service.SchedulingService
	Manual     *service.ManualAssignmentService
	Conflicts  *service.ConflictService
	Catalog    *service.CatalogService
	TimeSlots  *service.TimeSlotService
	Stats      *service.StatsService
}

// Build connects storage and wires every service. The audit queue is created but not started.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger, Metrics: service.NewMetricsService()}

	store, err := a.openStorage(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := a.openRedis(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}

	var cacheRepo service.CacheRepository
	if a.Redis != nil {
		cacheRepo = repository.NewCacheRepository(a.Redis, cachePrefix, logger)
	}
	a.Cache = service.NewCacheService(cacheRepo, a.Metrics, cfg.Cache.TTL, logger, cfg.Cache.Enabled)

	lock, err := a.runLock()
	if err != nil {
		a.Close()
		return nil, err
	}

	validate := validator.New()
	gate := service.NewCommitGate()
	checker := scheduler.NewChecker(cfg.Scheduler.MinProctors)

	a.Conflicts = service.NewConflictService(store.schedule, a.Cache, a.Metrics, validate, logger, cfg.Cache.TTL)
	a.AuditQueue = jobs.NewQueue("conflict-audit", a.Conflicts.HandleAuditJob, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.Retries,
		RetryDelay: time.Second,
		Logger:     logger,
	})

	a.Auth = service.NewAuthService(logger, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.Tracing.ServiceName})
	a.Scheduling = service.NewSchedulingService(service.SchedulingServiceParams{
		Store:     store.schedule,
		Runs:      store.runs,
		Engine:    scheduler.NewEngine(checker, logger),
		Lock:      lock,
		Gate:      gate,
		Audit:     a.AuditQueue,
		Cache:     a.Cache,
		Metrics:   a.Metrics,
		Validator: validate,
		Logger:    logger,
		Config:    service.SchedulingServiceConfig{RunTimeout: cfg.Scheduler.RunTimeout},
	})
	a.Manual = service.NewManualAssignmentService(store.schedule, checker, gate, a.AuditQueue, a.Cache, a.Metrics, validate, logger)
	a.Catalog = service.NewCatalogService(store.rooms, store.proctors, store.exams, gate, a.Cache, validate, logger)
	a.TimeSlots = service.NewTimeSlotService(store.timeSlots, store.rooms, a.Cache, validate, logger, service.TimeSlotDefaults{
		Days:         5,
		DayStart:     cfg.Scheduler.DayStart,
		DayEnd:       cfg.Scheduler.DayEnd,
		SlotDuration: cfg.Scheduler.SlotDuration,
	})
	a.Stats = service.NewStatsService(store.schedule, a.Cache, logger, cfg.Cache.TTL)

	return a, nil
}

func (a *App) openStorage(ctx context.Context, opts Options) (*storage, error) {
	switch a.Config.Storage.Driver {
	case config.StorageDriverMemory:
		mem := repository.NewMemoryStore()
		if a.Config.Storage.SeedData {
			if err := repository.SeedSampleData(ctx, mem, time.Now().UTC()); err != nil {
				return nil, fmt.Errorf("seed sample data: %w", err)
			}
			a.Logger.Info("memory store seeded with sample data")
		}
		return &storage{
			rooms:     mem.Rooms(),
			proctors:  mem.Proctors(),
			exams:     mem.Exams(),
			timeSlots: mem.TimeSlots(),
			schedule:  mem.Schedule(),
			runs:      mem.Runs(),
		}, nil
	case config.StorageDriverPostgres:
		db, err := database.NewPostgres(a.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.DB = db
		if opts.Migrate {
			applied, err := database.Migrate(ctx, db, a.Logger)
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			a.Logger.Info("migrations applied", zap.Strings("files", applied))
		}
		return &storage{
			rooms:     repository.NewRoomRepository(db),
			proctors:  repository.NewProctorRepository(db),
			exams:     repository.NewExamRepository(db),
			timeSlots: repository.NewTimeSlotRepository(db),
			schedule:  repository.NewScheduleRepository(db),
			runs:      repository.NewScheduleRunRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", a.Config.Storage.Driver)
	}
}

// openRedis connects when a component needs Redis. A cache-only dependency degrades to no caching.
func (a *App) openRedis(ctx context.Context, opts Options) error {
	needLock := a.Config.Scheduler.LockDriver == config.LockDriverRedis
	if opts.SkipRedis && !needLock {
		return nil
	}
	if !needLock && !a.Config.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, a.Config.Redis)
	if err != nil {
		if needLock {
			return fmt.Errorf("redis run lock: %w", err)
		}
		a.Logger.Warn("redis unavailable, caching disabled", zap.Error(err))
		return nil
	}
	a.Redis = client
	return nil
}

func (a *App) runLock() (runlock.Locker, error) {
	switch a.Config.Scheduler.LockDriver {
	case config.LockDriverRedis:
		if a.Redis == nil {
			return nil, errors.New("redis lock driver requires a redis connection")
		}
		return runlock.NewRedis(a.Redis, a.Config.Scheduler.LockKey, a.Config.Scheduler.LockTTL), nil
	default:
		return runlock.NewLocal(), nil
	}
}

// ReadinessChecks returns probes for every external dependency in use.
func (a *App) ReadinessChecks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if a.DB != nil {
		checks["postgres"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
