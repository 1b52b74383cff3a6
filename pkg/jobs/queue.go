package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue buffer full")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Stats reports queue counters.
type Stats struct {
	Processed int64
	Failed    int64
	Dropped   int64
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
// Stop drains jobs already buffered before returning.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	retries  sync.WaitGroup
	mu       sync.Mutex
	sendMu   sync.RWMutex
	started  bool
	stopping bool
	closed   bool

	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop refuses new jobs, lets workers finish the buffered ones and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopping {
		q.mu.Unlock()
		return
	}
	q.stopping = true
	q.mu.Unlock()

	q.cancel()
	q.retries.Wait()
	q.sendMu.Lock()
	q.closed = true
	close(q.jobs)
	q.sendMu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name,
		"processed", q.processed.Load(), "failed", q.failed.Load(), "dropped", q.dropped.Load())
}

// Enqueue pushes a job onto the queue, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	ctx, err := q.accepting()
	if err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue %s stopped", q.name)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue pushes a job without blocking and returns ErrQueueFull when the buffer is saturated.
func (q *Queue) TryEnqueue(job Job) error {
	if _, err := q.accepting(); err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue %s stopped", q.name)
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		q.dropped.Add(1)
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}

func (q *Queue) accepting() (context.Context, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return nil, fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopping {
		return nil, fmt.Errorf("queue %s stopped", q.name)
	}
	return q.ctx, nil
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for job := range q.jobs {
		ctx := q.ctx
		if ctx.Err() != nil {
			// drain with a fresh context so buffered jobs still complete
			ctx = context.Background()
		}
		if err := q.handler(ctx, job); err != nil {
			q.handleFailure(job, err)
			continue
		}
		q.processed.Add(1)
	}
	q.logger.Sugar().Debugw("worker exited", "queue", q.name, "worker", workerID)
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.failed.Add(1)
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.failed.Add(1)
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.failed.Add(1)
				q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
			}
		}
	}(job)
}
