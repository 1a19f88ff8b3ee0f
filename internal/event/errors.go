package event

import (
	"errors"
	"fmt"
)

var (
	// ErrFrozen is returned when time or priority is changed after the event
	// entered a queue.
	ErrFrozen = errors.New("event is frozen: time and priority cannot change after enqueue")

	// ErrReservedPriority is returned when a caller tries to assign 100 or -1,
	// or to change the priority of a critical kind.
	ErrReservedPriority = errors.New("reserved priority cannot be assigned")
)

// UnsupportedOperationError is returned when a non-transmissible event is
// serialized.
type UnsupportedOperationError struct {
	Kind Kind
	Op   string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s events are not transmissible", e.Op, e.Kind)
}

// IsUnsupportedOperation reports whether err is an UnsupportedOperationError.
func IsUnsupportedOperation(err error) bool {
	var target *UnsupportedOperationError
	return errors.As(err, &target)
}
