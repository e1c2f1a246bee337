/*
Package trips defines the shared domain model for field-worker activity.

PURPOSE:
  Every inference engine in this system reads the same historical record
  shapes: trip records, expense receipts, and time-tracking entries. This
  package owns those types plus the narrow store contracts the engines
  read them through. The engines themselves never talk to a database; they
  receive snapshots via these interfaces and stay pure.

KEY CONCEPTS IN THIS FILE (types.go):
  - TripRecord: One recorded trip (the unit all engines reason over)
  - Receipt / TimeEntry: Other activity types carrying a cost center
  - EmployeeProfile: Configured defaults (base address, cost centers)
  - Typed identifiers: EmployeeID, CostCenter

DESIGN PRINCIPLES:
  1. Read-only history: engines consume snapshots and never mutate them
  2. Advisory results: nothing here is applied without caller confirmation
  3. Type safety: strong typing for IDs prevents mixing employees and
     cost centers in call sites

SEE ALSO:
  - store.go: HistoryStore / RecencyCache contracts
  - normalize.go: Location-string normalization shared by the engines
*/
package trips

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// CostCenter is an accounting bucket to which hours, mileage, and receipt
// expenses are attributed.
type CostCenter string

// Screen identifies which input screen an entry originated from. Used as
// part of the recency-cache key for cost center suggestions.
type Screen string

const (
	ScreenMileage      Screen = "mileage"
	ScreenReceipt      Screen = "receipt"
	ScreenTimeTracking Screen = "time_tracking"
	ScreenDescription  Screen = "description"
)

// =============================================================================
// ACTIVITY RECORDS
// =============================================================================

// TripRecord is one recorded trip. Owned by the persistence layer; the
// engines treat it as read-only input. A zero CostCenter means none was
// assigned at entry time.
type TripRecord struct {
	ID              string
	EmployeeID      EmployeeID
	Date            time.Time
	StartLocation   string
	EndLocation     string
	Purpose         string
	Miles           float64
	HoursWorked     float64
	OdometerReading float64
	CostCenter      CostCenter
	CreatedAt       time.Time
}

// Receipt is an expense receipt entry.
type Receipt struct {
	ID         string
	EmployeeID EmployeeID
	Date       time.Time
	Category   string
	Amount     float64
	CostCenter CostCenter
	CreatedAt  time.Time
}

// TimeEntry is a time-tracking entry.
type TimeEntry struct {
	ID         string
	EmployeeID EmployeeID
	Date       time.Time
	Hours      float64
	CostCenter CostCenter
	CreatedAt  time.Time
}

// EmployeeProfile carries the configured defaults the engines fall back on.
type EmployeeProfile struct {
	ID                EmployeeID
	BaseAddress       string
	DefaultCostCenter CostCenter
	CostCenters       []CostCenter // assigned list, in configured order
}

// SameCalendarDay reports whether two timestamps fall on the same calendar
// day in UTC. Duplicate detection and per-diem aggregation both group by
// calendar day, never by 24-hour window.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
