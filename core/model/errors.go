package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input or unknown identifiers.
	ErrValidation = errors.New("validation error")
	// ErrStaleState marks a reassignment whose chosen resource no longer
	// passes eligibility.
	ErrStaleState = errors.New("stale state")
	// ErrSyncFailure marks a change record that could not be applied remotely.
	ErrSyncFailure = errors.New("sync failure")
)

// StaleStateError lists the rules a resource failed at execution time.
type StaleStateError struct {
	MissionID  string
	ResourceID string
	Kind       ResourceKind
	Failed     []string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s %s no longer eligible for mission %s: %s",
		e.Kind, e.ResourceID, e.MissionID, strings.Join(e.Failed, "; "))
}

// Unwrap allows errors.Is(err, ErrStaleState).
func (e *StaleStateError) Unwrap() error { return ErrStaleState }

// Validationf formats a validation error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
