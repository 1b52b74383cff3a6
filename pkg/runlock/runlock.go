// Package runlock provides the exclusive lock held for the duration of one scheduling run.
package runlock

import (
	"context"
	"errors"
)

// ErrBusy is returned when the lock is held by another run.
var ErrBusy = errors.New("run lock held")

// Release frees a lock obtained from Locker.TryAcquire.
type Release func(ctx context.Context) error

// Locker grants at most one holder at a time and never queues callers.
type Locker interface {
	TryAcquire(ctx context.Context) (Release, error)
}
