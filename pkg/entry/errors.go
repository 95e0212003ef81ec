package entry

import (
	"errors"
	"fmt"
)

var (
	// ErrGroupNotFound is returned when no entry group exists for the given id.
	ErrGroupNotFound = errors.New("entry group not found")

	// ErrProjectNotFound is returned when a transaction is added for a
	// project that does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrIndexOutOfRange is returned when a positional transaction reference
	// is negative or past the end of the group's sequence. A caller seeing it
	// holds a stale index and must re-fetch the group.
	ErrIndexOutOfRange = errors.New("transaction index out of range")

	// ErrConflict is returned when a save lost the optimistic-concurrency
	// race: the group was modified between read and write.
	ErrConflict = errors.New("entry group was modified concurrently")
)

// ValidationError describes a rejected input field. The request it belongs to
// is never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
