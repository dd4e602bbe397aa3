package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionActive = errors.New("a review session is already active")
	ErrNoSession     = errors.New("no active review session")
	ErrGradeInFlight = errors.New("previous grade is still being saved")
	ErrNotPending    = errors.New("no area is waiting for a mode choice")
)

// PersistenceError is a failed knowledge store call during grading. The
// cursor has not moved; the grade may be submitted again.
type PersistenceError struct {
	Op     string
	ItemID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
