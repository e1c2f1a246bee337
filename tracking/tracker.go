/*
tracker.go - Live distance tracking over noisy location samples

PURPOSE:
  Owns active tracking sessions and infers real travel from raw device
  samples. The state machine per session is Idle -> Tracking -> Idle; the
  terminal transition happens on Stop, Cancel, or a fatal positioning
  failure at start.

NOISE FILTERING:
  Haversine delta between the previous and the new sample decides what a
  sample means:
    > 5 m        real travel: accumulate, clear the standstill timer
    > ~5 ft      slow creep: accumulate, (re)start the standstill timer
    <= ~5 ft     noise: no accumulation, last known position still updates
  Accumulation is always unrounded; rounding to a tenth of a mile happens
  at exposure only, so rounding error never compounds.

STANDSTILL:
  StationaryTooLong reports true once the standstill timer has run for
  5 minutes without a movement-threshold-exceeding sample.

POSITIONING:
  The provider is consulted exactly twice per session (start and stop),
  each bounded by a timeout with one reduced-accuracy retry. Sample
  processing never blocks on network or storage.

SEE ALSO:
  - session.go: TrackingSession / ActiveSession state
  - provider.go: LocationProvider / ReverseGeocoder contracts
  - errors.go: ErrPermissionDenied, ErrLocationUnavailable, ErrSessionActive
*/
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/trip-insight-engine/diag"
	"github.com/warp/trip-insight-engine/geo"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

const (
	metersPerMile = 1609.344
	feetPerMile   = 5280.0

	// MovementThresholdMiles is the 5-meter bar above which a delta counts
	// as real travel.
	MovementThresholdMiles = 5.0 / metersPerMile

	// NegligibleFloorMiles is the ~5-foot floor below which a delta is
	// treated as positioning noise.
	NegligibleFloorMiles = 5.0 / feetPerMile

	// StandstillLimit is how long the standstill timer must run before a
	// worker is flagged as stationary too long.
	StandstillLimit = 5 * time.Minute

	// PositionTimeout bounds each position fix attempt.
	PositionTimeout = 10 * time.Second
)

// =============================================================================
// TRACKER
// =============================================================================

// Tracker starts, feeds, and stops tracking sessions. It enforces the
// one-active-session-per-employee invariant; everything else about a
// session lives in the ActiveSession the caller owns.
type Tracker struct {
	provider LocationProvider
	geocoder ReverseGeocoder
	rec      diag.Recorder
	now      func() time.Time

	mu     sync.Mutex
	active map[trips.EmployeeID]*ActiveSession
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the tracker's time source. Tests use this to drive
// the standstill timer deterministically.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker over the given positioning collaborators.
// rec may be nil; diagnostics are then discarded.
func NewTracker(provider LocationProvider, geocoder ReverseGeocoder, rec diag.Recorder, opts ...Option) *Tracker {
	if rec == nil {
		rec = diag.Discard{}
	}
	t := &Tracker{
		provider: provider,
		geocoder: geocoder,
		rec:      rec,
		now:      time.Now,
		active:   make(map[trips.EmployeeID]*ActiveSession),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartInput carries the caller-confirmed parameters for a new session.
// The caller is responsible for having confirmed positioning capability
// and authorization before calling Start.
type StartInput struct {
	EmployeeID    trips.EmployeeID
	Purpose       string
	StartOdometer float64
	Notes         string
}

// Start captures the current position, reverse-resolves it, and
// transitions Idle -> Tracking. Fails with ErrSessionActive if the
// employee already has a session, or with ErrPermissionDenied /
// ErrLocationUnavailable if no position can be produced.
func (t *Tracker) Start(ctx context.Context, in StartInput) (*ActiveSession, error) {
	t.mu.Lock()
	if existing, ok := t.active[in.EmployeeID]; ok {
		t.mu.Unlock()
		return nil, &SessionActiveError{EmployeeID: in.EmployeeID, ActiveSessionID: existing.ID()}
	}
	t.mu.Unlock()

	pos, err := t.currentPosition(ctx)
	if err != nil {
		return nil, err
	}

	session := &ActiveSession{
		session: TrackingSession{
			ID:            uuid.NewString(),
			EmployeeID:    in.EmployeeID,
			StartTime:     t.now(),
			StartOdometer: in.StartOdometer,
			StartLocation: t.resolve(ctx, pos),
			IsActive:      true,
			Purpose:       in.Purpose,
			Notes:         in.Notes,
		},
		lastKnown:    pos,
		hasLastKnown: true,
		now:          t.now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.active[in.EmployeeID]; ok {
		// Lost the race against a concurrent Start for the same employee.
		return nil, &SessionActiveError{EmployeeID: in.EmployeeID, ActiveSessionID: existing.ID()}
	}
	t.active[in.EmployeeID] = session
	return session, nil
}

// Process consumes one location sample, strictly in arrival order. It
// never fails and never touches network or storage; noise is simply not
// accumulated. Samples arriving while a Stop is closing the session are
// discarded.
func (t *Tracker) Process(s *ActiveSession, sample LocationSample) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.IsActive {
		return
	}
	if !s.hasLastKnown {
		s.lastKnown = sample.Point
		s.hasLastKnown = true
		return
	}

	delta := geo.DistanceMiles(s.lastKnown, sample.Point)
	switch {
	case delta > MovementThresholdMiles:
		s.exactMiles += delta
		s.standstillSince = time.Time{}
	case delta > NegligibleFloorMiles:
		// Slow creep still accumulates so the total never stalls
		// permanently, but it (re)starts the standstill timer.
		s.exactMiles += delta
		s.standstillSince = s.now()
	default:
		// Noise. The timer keeps its original start so a stationary
		// worker can still mature into StationaryTooLong.
		if s.standstillSince.IsZero() {
			s.standstillSince = s.now()
		}
	}
	s.lastKnown = sample.Point
}

// Follow subscribes to the source and feeds every delivered sample into
// the session, in arrival order, until the stream closes, the context is
// canceled, or the session stops being active.
func (t *Tracker) Follow(ctx context.Context, s *ActiveSession, source SampleSource, minInterval time.Duration, minDistance float64) error {
	sub, err := source.Subscribe(ctx, AccuracyBest, minInterval, minDistance)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-sub.Samples():
			if !ok || !s.active() {
				return nil
			}
			t.Process(s, sample)
		}
	}
}

// StationaryTooLong reports whether the standstill timer has been running
// continuously for StandstillLimit or longer.
func (t *Tracker) StationaryTooLong(s *ActiveSession) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.standstillSince.IsZero() {
		return false
	}
	return t.now().Sub(s.standstillSince) >= StandstillLimit
}

// Stop captures the final position, freezes the session, and transitions
// back to Idle. Stopping a nil or already-stopped session is a no-op
// returning nil. If the provider cannot produce a final fix the session
// closes on the last known sample position.
func (t *Tracker) Stop(ctx context.Context, s *ActiveSession) *TrackingSession {
	if s == nil {
		return nil
	}
	// The lock is held across the final fix and geocode so a racing Stop
	// observes IsActive=false and no-ops; exactly one caller closes the
	// session.
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.IsActive {
		return nil
	}

	endPos := s.lastKnown
	if pos, err := t.currentPosition(ctx); err == nil {
		endPos = pos
	} else {
		t.rec.Record(diag.Event{
			Kind:      diag.KindDegradedLookup,
			Engine:    "tracking",
			Detail:    "final position unavailable, closing on last known sample",
			Timestamp: t.now(),
		})
	}

	s.session.EndTime = t.now()
	s.session.EndLocation = t.resolve(ctx, endPos)
	s.session.CumulativeDistanceMiles = geo.RoundTenth(s.exactMiles)
	s.session.IsActive = false
	t.release(s)

	done := s.session
	return &done
}

// Cancel discards an active session without consulting the provider. It
// always succeeds and always leaves the tracker Idle for the employee,
// regardless of samples still in flight.
func (t *Tracker) Cancel(s *ActiveSession) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.IsActive {
		return
	}
	s.session.IsActive = false
	t.release(s)
}

// ActiveSession returns the employee's active session, if any.
func (t *Tracker) ActiveSession(employee trips.EmployeeID) (*ActiveSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.active[employee]
	return s, ok
}

func (t *Tracker) release(s *ActiveSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.active[s.session.EmployeeID]; ok && cur == s {
		delete(t.active, s.session.EmployeeID)
	}
}

// =============================================================================
// POSITIONING
// =============================================================================

// currentPosition asks for a fix at best accuracy, retrying once at
// reduced accuracy. Permission failures are surfaced immediately and
// never retried.
func (t *Tracker) currentPosition(ctx context.Context) (geo.Point, error) {
	pos, err := t.provider.CurrentPosition(ctx, AccuracyBest, PositionTimeout)
	if err == nil {
		return pos, nil
	}
	if errors.Is(err, ErrPermissionDenied) {
		return geo.Point{}, err
	}

	pos, err = t.provider.CurrentPosition(ctx, AccuracyReduced, PositionTimeout)
	if err == nil {
		return pos, nil
	}
	if errors.Is(err, ErrPermissionDenied) {
		return geo.Point{}, err
	}
	return geo.Point{}, ErrLocationUnavailable
}

// resolve turns a point into a display string, degrading to raw
// coordinates when the geocoder fails.
func (t *Tracker) resolve(ctx context.Context, p geo.Point) string {
	display, err := t.geocoder.Resolve(ctx, p)
	if err != nil || display == "" {
		t.rec.Record(diag.Event{
			Kind:      diag.KindDegradedLookup,
			Engine:    "tracking",
			Detail:    "reverse geocode failed, using raw coordinates",
			Timestamp: t.now(),
		})
		return p.String()
	}
	return display
}
