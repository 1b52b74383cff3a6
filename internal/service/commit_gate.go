package service

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/sync/semaphore"

	"github.com/noah-isme/exam-scheduler-api/internal/repository"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

// CommitGate orders every read-validate-write sequence against the schedule inside one process.
// Batch runs, manual assignments and catalog mutations that touch placements all pass through it.
type CommitGate struct {
	sem *semaphore.Weighted
}

// NewCommitGate creates an open gate.
func NewCommitGate() *CommitGate {
	return &CommitGate{sem: semaphore.NewWeighted(1)}
}

// Enter blocks until the gate is free or ctx is done. The returned func leaves the gate.
func (g *CommitGate) Enter(ctx context.Context) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

// translateStoreError maps repository sentinels onto API errors.
func translateStoreError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Wrap(err, appErrors.ErrStaleSnapshot.Code, appErrors.ErrStaleSnapshot.Status, appErrors.ErrStaleSnapshot.Message)
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "resource already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, "request cancelled")
	default:
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
