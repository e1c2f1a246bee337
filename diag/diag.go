/*
Package diag makes silently-degrading engines observable.

PURPOSE:
  The advisory engines (duplicate, perdiem, recommend, baseaddr) must
  never block the trip-entry workflow: an internal fault is converted at
  the engine boundary into a "no suggestion" result. Without a separate
  signal, an operator cannot tell a silently failing engine from one that
  genuinely found nothing. Each conversion therefore emits a structured
  Event through a Recorder.

USAGE:
  defer diag.Guard(recorder, "recommend", func(ev diag.Event) { ... })

  The deferred Guard recovers a panic, records an engine_fault event, and
  lets the caller substitute its zero-value advisory result.

SEE ALSO:
  - The engines' Evaluate/Suggest entry points, which install Guard
*/
package diag

import (
	"fmt"
	"log"
	"time"
)

// =============================================================================
// EVENTS
// =============================================================================

type EventKind string

const (
	// KindEngineFault: an advisory engine panicked and was converted to a
	// no-suggestion result.
	KindEngineFault EventKind = "engine_fault"

	// KindDegradedLookup: an external collaborator failed and a fallback
	// value was used (e.g. reverse geocode replaced by raw coordinates).
	KindDegradedLookup EventKind = "degraded_lookup"
)

// Event is a structured diagnostic record, distinct from any advisory
// result returned to the workflow.
type Event struct {
	Kind      EventKind
	Engine    string
	Detail    string
	Timestamp time.Time
}

// Recorder receives diagnostic events. Implementations must be safe for
// concurrent use; engines may run in parallel.
type Recorder interface {
	Record(ev Event)
}

// =============================================================================
// RECORDERS
// =============================================================================

// LogRecorder writes events to the standard logger.
type LogRecorder struct{}

func (LogRecorder) Record(ev Event) {
	log.Printf("diag: %s engine=%s detail=%q", ev.Kind, ev.Engine, ev.Detail)
}

// Discard drops all events. Used where no recorder has been configured.
type Discard struct{}

func (Discard) Record(Event) {}

// =============================================================================
// BOUNDARY GUARD
// =============================================================================

// Guard converts a panic into an engine_fault event. Install with defer at
// an advisory engine's entry point; onFault runs after the event is
// recorded so the caller can substitute its empty result.
func Guard(rec Recorder, engine string, onFault func()) {
	if r := recover(); r != nil {
		if rec == nil {
			rec = Discard{}
		}
		rec.Record(Event{
			Kind:      KindEngineFault,
			Engine:    engine,
			Detail:    fmt.Sprint(r),
			Timestamp: time.Now(),
		})
		if onFault != nil {
			onFault()
		}
	}
}
