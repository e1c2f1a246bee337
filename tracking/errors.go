/*
errors.go - Error types for tracking session lifecycle

PURPOSE:
  Session start and stop are the only operations in the system that talk
  to the device's positioning hardware, and the only ones allowed to fail
  for business reasons. All error types live here.

ERROR CATEGORIES:
  1. Positioning errors - the device cannot produce a fix
  2. Lifecycle errors  - session state machine violations

USAGE:
  Callers branch with errors.Is():

    if errors.Is(err, tracking.ErrSessionActive) {
        // prompt the user to stop the running session first
    }

SEE ALSO:
  - tracker.go: Returns these errors
*/
package tracking

import (
	"errors"
	"fmt"

	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPermissionDenied is returned when the caller lacks positioning
	// authorization. Fatal to the operation; never retried.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrLocationUnavailable is returned when the device cannot produce a
	// position within the bounded timeout, after the one reduced-accuracy
	// retry.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrSessionActive is returned when starting a session while the
	// employee already has one active. Starting must fail fast rather than
	// silently replace the in-progress session.
	ErrSessionActive = errors.New("tracking session already active")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SessionActiveError identifies the session blocking a start attempt.
type SessionActiveError struct {
	EmployeeID      trips.EmployeeID
	ActiveSessionID string
}

func (e *SessionActiveError) Error() string {
	return fmt.Sprintf("employee %s already has active session %s", e.EmployeeID, e.ActiveSessionID)
}

func (e *SessionActiveError) Unwrap() error { return ErrSessionActive }
