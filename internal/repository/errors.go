package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrStaleVersion is returned when a row changed since it was read.
	ErrStaleVersion = errors.New("row version changed")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate value")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
