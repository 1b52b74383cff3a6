package runlock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Local is an in-process single-permit lock.
type Local struct {
	sem *semaphore.Weighted
}

// NewLocal builds an in-process lock.
func NewLocal() *Local {
	return &Local{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the permit or returns ErrBusy immediately.
func (l *Local) TryAcquire(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { l.sem.Release(1) })
		return nil
	}, nil
}
