package deal

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDealNotFound is returned when a referenced deal doesn't exist.
	ErrDealNotFound = errors.New("deal not found")

	// ErrRunNotFound is returned when a referenced run doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrDuplicateDeal is returned when a deal ID is already taken.
	ErrDuplicateDeal = errors.New("duplicate deal")

	// ErrDuplicateRun is returned when a run ID is already stored. Runs are
	// append-only, so a retried write is rejected rather than overwritten.
	ErrDuplicateRun = errors.New("duplicate run")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "deal" or "run"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "run" {
		return ErrRunNotFound
	}
	return ErrDealNotFound
}

// IsNotFound returns true for missing deals and runs.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDealNotFound) || errors.Is(err, ErrRunNotFound)
}
