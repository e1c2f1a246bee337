/*
store.go - Store contracts the inference engines read history through

PURPOSE:
  Defines the boundary between the engines and the persistence layer.
  Engines receive read snapshots; results may be stale the moment they
  are computed, which is fine because every output is advisory.

KEY INTERFACES:
  HistoryStore: read accessors for trips/receipts/time entries, plus the
                single write the core performs (persisting a completed
                tracking session as a trip record)
  RecencyCache: volatile "last cost center used per screen" store
  PromptLog:    when a base-address prompt was last surfaced

IMPLEMENTATIONS:
  - store/memory.go: In-memory (tests, dev mode)
  - store/sqlite/:   Production SQLite

SEE ALSO:
  - types.go: Record shapes
*/
package trips

import (
	"context"
	"time"
)

// =============================================================================
// HISTORY STORE - read snapshots plus the one core write
// =============================================================================

// DateRange bounds a history query. Zero From/To means unbounded on that
// side.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// HistoryStore provides read access to an employee's recorded activity.
// All reads return snapshots ordered by date ascending; engines must
// tolerate results becoming stale immediately after retrieval.
type HistoryStore interface {
	// Trips returns the employee's trip records within the range.
	Trips(ctx context.Context, employee EmployeeID, r DateRange) ([]TripRecord, error)

	// Receipts returns the employee's receipts within the range.
	Receipts(ctx context.Context, employee EmployeeID, r DateRange) ([]Receipt, error)

	// TimeEntries returns the employee's time entries within the range.
	TimeEntries(ctx context.Context, employee EmployeeID, r DateRange) ([]TimeEntry, error)

	// Profile returns the employee's configured defaults.
	Profile(ctx context.Context, employee EmployeeID) (EmployeeProfile, error)

	// SaveTrip persists a trip record. The only write the core performs:
	// storing a completed tracking session.
	SaveTrip(ctx context.Context, trip TripRecord) error
}

// =============================================================================
// RECENCY CACHE - advisory, may be volatile
// =============================================================================

// RecencyCache remembers the last cost center used per (employee, screen).
// Losing its contents only degrades suggestion quality, so in-memory
// implementations are acceptable.
type RecencyCache interface {
	LastCostCenter(employee EmployeeID, screen Screen) (CostCenter, bool)
	SetLastCostCenter(employee EmployeeID, screen Screen, cc CostCenter)
}

// =============================================================================
// PROMPT LOG - base-address prompt throttling
// =============================================================================

// PromptLog records when a base-address suggestion was last surfaced to an
// employee, so prompts can be throttled.
type PromptLog interface {
	// LastPrompt returns the time of the last prompt, or ok=false if the
	// employee has never been prompted.
	LastPrompt(ctx context.Context, employee EmployeeID) (time.Time, bool, error)

	// RecordPrompt stores the time a prompt was surfaced.
	RecordPrompt(ctx context.Context, employee EmployeeID, at time.Time) error
}
