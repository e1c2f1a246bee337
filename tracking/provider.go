/*
provider.go - External positioning collaborators

PURPOSE:
  The tracker never talks to hardware or the network directly. It consumes
  narrow contracts: a location provider that produces position fixes, a
  reverse geocoder that turns coordinates into display strings, and an
  optional sample source that streams position reports. Provider and
  geocoder are called only at session start and stop; sample processing
  never blocks on them.

DEGRADATION:
  - Position: one retry at reduced accuracy before giving up.
  - Reverse geocoding: falls back to "lat, lon" formatted to 6 decimal
    places, recorded as a degraded_lookup diagnostic.

SEE ALSO:
  - tracker.go: The only consumer of these contracts
*/
package tracking

import (
	"context"
	"time"

	"github.com/warp/trip-insight-engine/geo"
)

// Accuracy hints the provider how hard to work for a fix.
type Accuracy string

const (
	AccuracyBest    Accuracy = "best"
	AccuracyReduced Accuracy = "reduced"
)

// LocationProvider produces position fixes from the device.
type LocationProvider interface {
	// CurrentPosition returns a single fix, or an error if none can be
	// produced within the timeout. Implementations surface
	// ErrPermissionDenied when positioning authorization is missing.
	CurrentPosition(ctx context.Context, hint Accuracy, timeout time.Duration) (geo.Point, error)
}

// LocationSample is one raw device position report. Ephemeral; never
// persisted; consumed in arrival order.
type LocationSample struct {
	Point     geo.Point
	Timestamp time.Time
}

// SampleSource produces a continuous stream of position samples.
type SampleSource interface {
	// Subscribe opens a sample stream. minInterval and minDistance hint
	// how often the source should report; the source closes the channel
	// when the subscription ends.
	Subscribe(ctx context.Context, hint Accuracy, minInterval time.Duration, minDistance float64) (Subscription, error)
}

// Subscription is an open sample stream.
type Subscription interface {
	// Samples delivers reports in arrival order.
	Samples() <-chan LocationSample

	// Unsubscribe stops delivery and closes the sample channel.
	Unsubscribe()
}

// ReverseGeocoder resolves coordinates to a human-readable display string.
type ReverseGeocoder interface {
	Resolve(ctx context.Context, p geo.Point) (string, error)
}

// =============================================================================
// SHIPPED IMPLEMENTATIONS
// =============================================================================

// StaticProvider serves a fixed point. Used where no live positioning
// gateway is wired in (demos, the standalone server).
type StaticProvider struct {
	Point geo.Point
}

func (s StaticProvider) CurrentPosition(context.Context, Accuracy, time.Duration) (geo.Point, error) {
	return s.Point, nil
}

// CoordinateGeocoder resolves every point to its raw coordinate string.
type CoordinateGeocoder struct{}

func (CoordinateGeocoder) Resolve(_ context.Context, p geo.Point) (string, error) {
	return p.String(), nil
}
