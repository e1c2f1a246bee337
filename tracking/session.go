/*
session.go - Tracking session state

PURPOSE:
  A TrackingSession is the record of one tracked trip: created at start,
  mutated only by the tracker while active, immutable once stopped. The
  ActiveSession wrapper additionally carries the in-flight accumulation
  state (exact unrounded distance, last known position, standstill timer)
  that never leaves the tracker.

INVARIANTS:
  - CumulativeDistanceMiles never decreases for the session's lifetime.
  - Distance is accumulated unrounded; rounding to a tenth of a mile
    happens only where a value is exposed to a caller.
  - One session per employee at a time (enforced by Tracker.Start).

SEE ALSO:
  - tracker.go: The state machine driving sessions
*/
package tracking

import (
	"sync"
	"time"

	"github.com/warp/trip-insight-engine/geo"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// TRACKING SESSION
// =============================================================================

// TrackingSession captures one tracked trip from start to stop.
type TrackingSession struct {
	ID                      string
	EmployeeID              trips.EmployeeID
	StartTime               time.Time
	EndTime                 time.Time // zero while active
	StartOdometer           float64
	StartLocation           string
	EndLocation             string // empty while active
	CumulativeDistanceMiles float64
	IsActive                bool
	Purpose                 string
	Notes                   string
}

// ToTripRecord converts a completed session into the trip record shape the
// historical store persists.
func (s TrackingSession) ToTripRecord() trips.TripRecord {
	return trips.TripRecord{
		ID:              s.ID,
		EmployeeID:      s.EmployeeID,
		Date:            s.StartTime,
		StartLocation:   s.StartLocation,
		EndLocation:     s.EndLocation,
		Purpose:         s.Purpose,
		Miles:           s.CumulativeDistanceMiles,
		OdometerReading: s.StartOdometer,
		CreatedAt:       s.EndTime,
	}
}

// =============================================================================
// ACTIVE SESSION - session plus in-flight accumulation state
// =============================================================================

// ActiveSession is a TrackingSession in the Tracking state, owned by the
// caller and passed into every tracker operation. Samples are consumed in
// arrival order, but the HTTP surface can deliver a sample and a stop for
// the same session concurrently, so all mutation and exposure is
// serialized by the session's mutex.
type ActiveSession struct {
	mu      sync.Mutex
	session TrackingSession

	exactMiles      float64   // unrounded accumulation
	lastKnown       geo.Point // updated by every sample, even zero-delta ones
	hasLastKnown    bool
	standstillSince time.Time // zero when no standstill timer is running

	now func() time.Time
}

// ID returns the session identifier.
func (a *ActiveSession) ID() string { return a.session.ID }

// active reports whether the session is still in the Tracking state.
func (a *ActiveSession) active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.IsActive
}

// EmployeeID returns the employee the session belongs to.
func (a *ActiveSession) EmployeeID() trips.EmployeeID { return a.session.EmployeeID }

// DistanceMiles returns the distance traveled so far, rounded to the
// nearest tenth of a mile.
func (a *ActiveSession) DistanceMiles() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return geo.RoundTenth(a.exactMiles)
}

// LastKnownPosition returns the most recent sample position and whether
// any sample has arrived yet.
func (a *ActiveSession) LastKnownPosition() (geo.Point, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastKnown, a.hasLastKnown
}

// Snapshot returns a copy of the underlying session with the distance
// rounded for exposure.
func (a *ActiveSession) Snapshot() TrackingSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.session
	s.CumulativeDistanceMiles = geo.RoundTenth(a.exactMiles)
	return s
}
