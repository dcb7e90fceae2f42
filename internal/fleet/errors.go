package fleet

import "errors"

var (
	// ErrNotFound is returned when an entity id does not exist.
	ErrNotFound = errors.New("fleet: not found")

	// ErrInvalidEntity is returned when an entity fails validation.
	ErrInvalidEntity = errors.New("fleet: invalid entity")

	// ErrParentNotFound is returned when inserting a child whose parent does not exist.
	ErrParentNotFound = errors.New("fleet: parent not found")
)
