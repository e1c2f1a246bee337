/*
Package baseaddr detects when a worker's real starting point has moved.

PURPOSE:
  Field workers rarely update their configured base address after moving
  or being reassigned, which silently skews every distance-from-base
  per-diem check. The detector tallies normalized start locations across
  trip history and, when a non-base location dominates, recommends
  adopting it.

SUGGESTION BAR:
  shouldSuggest only when ALL of:
    - history has at least 5 entries
    - the top non-base location appears in at least 70% of trips
    - its raw count is at least 5
  Below the bar the top candidate is still reported for diagnostics, with
  ShouldSuggest=false.

THROTTLING:
  Re-prompting is suppressed for 14 days after any prior prompt, and
  otherwise fires only at cumulative trip-count milestones (10, 25, 50,
  100) so the worker is not nagged on every entry.

SEE ALSO:
  - trips/normalize.go: CanonicalLocation used for the tally
  - trips/store.go: PromptLog backing the throttle
*/
package baseaddr

import (
	"fmt"
	"time"

	"github.com/warp/trip-insight-engine/diag"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

const (
	// MinHistoryEntries is the minimum trip history before a suggestion
	// is considered at all.
	MinHistoryEntries = 5

	// MinSharePercent is the share of all trips the top location must
	// reach.
	MinSharePercent = 70.0

	// MinOccurrences is the raw count floor for the top location.
	MinOccurrences = 5

	// PromptCooldown suppresses re-prompting after any prior prompt.
	PromptCooldown = 14 * 24 * time.Hour
)

// PromptMilestones are the cumulative trip counts at which a prompt may
// be surfaced.
var PromptMilestones = []int{10, 25, 50, 100}

// =============================================================================
// DETECTION
// =============================================================================

// Detection reports the dominant non-base start location. The top
// candidate is always populated when one exists, even below the
// suggestion bar, so operators can watch a location trend toward
// dominance.
type Detection struct {
	ShouldSuggest bool
	TopLocation   string  // raw form of the most recent occurrence
	Count         int     // occurrences of the top location
	TotalTrips    int     // all history entries considered
	Frequency     float64 // percent of all trips, 0-100
	Reasoning     string
}

// Detector tallies start locations. Stateless; safe for concurrent use.
type Detector struct {
	rec diag.Recorder
}

// NewDetector creates a detector. rec may be nil.
func NewDetector(rec diag.Recorder) *Detector {
	if rec == nil {
		rec = diag.Discard{}
	}
	return &Detector{rec: rec}
}

// Detect tallies normalized start locations across the history, excluding
// the current base address, and reports the most frequent.
func (d *Detector) Detect(history []trips.TripRecord, baseAddress string) (det Detection) {
	defer diag.Guard(d.rec, "baseaddr", func() { det = Detection{TotalTrips: len(history)} })

	det.TotalTrips = len(history)
	base := trips.CanonicalLocation(baseAddress)

	counts := make(map[string]int)
	lastRaw := make(map[string]string)
	lastSeen := make(map[string]time.Time)
	for _, tr := range history {
		loc := trips.CanonicalLocation(tr.StartLocation)
		if loc == "" || loc == base {
			continue
		}
		counts[loc]++
		if _, ok := lastRaw[loc]; !ok || tr.Date.After(lastSeen[loc]) {
			lastRaw[loc] = tr.StartLocation
			lastSeen[loc] = tr.Date
		}
	}

	var top string
	for loc, n := range counts {
		if top == "" || n > counts[top] || (n == counts[top] && lastSeen[loc].After(lastSeen[top])) {
			top = loc
		}
	}
	if top == "" {
		det.Reasoning = "no non-base start locations in history"
		return det
	}

	det.TopLocation = lastRaw[top]
	det.Count = counts[top]
	det.Frequency = float64(det.Count) / float64(det.TotalTrips) * 100

	switch {
	case det.TotalTrips < MinHistoryEntries:
		det.Reasoning = fmt.Sprintf("only %d history entries (need %d)", det.TotalTrips, MinHistoryEntries)
	case det.Frequency < MinSharePercent:
		det.Reasoning = fmt.Sprintf("top location at %.0f%% of trips (need %.0f%%)", det.Frequency, MinSharePercent)
	case det.Count < MinOccurrences:
		det.Reasoning = fmt.Sprintf("top location seen %d times (need %d)", det.Count, MinOccurrences)
	default:
		det.ShouldSuggest = true
		det.Reasoning = fmt.Sprintf("%q started %d of %d trips (%.0f%%)", det.TopLocation, det.Count, det.TotalTrips, det.Frequency)
	}
	return det
}

// =============================================================================
// PROMPT THROTTLE
// =============================================================================

// ShouldPrompt decides whether the worker may be re-prompted to adopt a
// suggested base address. hasPrompted=false means no prompt has ever been
// surfaced.
func ShouldPrompt(lastPrompt time.Time, hasPrompted bool, totalTrips int, now time.Time) bool {
	if hasPrompted && now.Sub(lastPrompt) < PromptCooldown {
		return false
	}
	for _, m := range PromptMilestones {
		if totalTrips == m {
			return true
		}
	}
	return false
}
