package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects the write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflictingRole is returned when a student registration meets another active role.
	ErrConflictingRole = errors.New("address holds another active role")
	// ErrSchemeClosed is returned when a scheme is inactive or outside its date range.
	ErrSchemeClosed = errors.New("scheme is not accepting registrations")
	// ErrNoSlots is returned when a scheme has no available slots.
	ErrNoSlots = errors.New("scheme has no available slots")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
