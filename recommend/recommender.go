/*
Package recommend pre-fills the most likely cost center for a new entry.

PURPOSE:
  When a worker opens an entry screen, the right cost center is usually
  inferable from context and history. The recommender runs an ordered
  chain of candidate-producing steps; the first step to produce a
  candidate wins. Priority order IS the tie-break between steps; there is
  no cross-step scoring.

THE CHAIN:
  1. same_destination   cost center of the most recent trip to a matching
                        destination (substring match, either direction)
  2. same_purpose       most frequent cost center among trips with a
                        matching purpose; ties broken by most recent use
  3. same_category      most frequent cost center among receipts in the
                        same category; ties broken by most recent use
  4. screen_recency     last cost center used on this input screen
  5. overall_frequency  most used cost center across trips, receipts, and
                        time entries; ties broken by most recent use
  6. configured_default employee's configured default cost center
  7. assigned_fallback  first assigned cost center, else a fixed label

  Steps that find nothing fall through silently. Step 7 cannot fail, so
  the result is always non-empty; "no suggestion" is not an outcome here.

FAULTS:
  An internal fault is converted at the boundary into the fixed fallback
  and recorded as a diagnostic; recommendation must never block entry
  creation.

SEE ALSO:
  - trips/store.go: RecencyCache contract backing step 4
*/
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/trip-insight-engine/diag"
	"github.com/warp/trip-insight-engine/trips"
)

// FallbackCostCenter is the fixed label returned when an employee has no
// history, no default, and no assigned cost centers.
const FallbackCostCenter trips.CostCenter = "UNASSIGNED"

// =============================================================================
// INPUTS AND RESULT
// =============================================================================

// Input is the workforce context for the entry being created. Empty
// fields simply disable the steps that need them.
type Input struct {
	Employee        trips.EmployeeID
	Destination     string
	Purpose         string
	ReceiptCategory string
	Screen          trips.Screen
}

// History is the read snapshot the chain runs over.
type History struct {
	Trips       []trips.TripRecord
	Receipts    []trips.Receipt
	TimeEntries []trips.TimeEntry
	Profile     trips.EmployeeProfile
}

// Suggestion is the advisory result: never auto-applied without caller
// confirmation.
type Suggestion struct {
	Value      trips.CostCenter
	Confidence float64
	Reasoning  string
}

// =============================================================================
// RECOMMENDER
// =============================================================================

// step is one rung of the chain: a name plus a candidate producer that
// reports ok=false to fall through.
type step struct {
	name       string
	confidence float64
	produce    func(in Input, h History, cache trips.RecencyCache) (trips.CostCenter, string, bool)
}

// Recommender runs the chain. Stateless apart from the injected recency
// cache; safe for concurrent use.
type Recommender struct {
	cache trips.RecencyCache
	rec   diag.Recorder
	steps []step
}

// NewRecommender creates a recommender. cache and rec may be nil; a nil
// cache just disables the screen-recency step.
func NewRecommender(cache trips.RecencyCache, rec diag.Recorder) *Recommender {
	if rec == nil {
		rec = diag.Discard{}
	}
	return &Recommender{cache: cache, rec: rec, steps: chain()}
}

// Suggest runs the chain and returns the first non-empty candidate. The
// result is always non-empty.
func (r *Recommender) Suggest(in Input, h History) (s Suggestion) {
	defer diag.Guard(r.rec, "recommend", func() {
		s = Suggestion{Value: FallbackCostCenter, Confidence: 0, Reasoning: "engine fault, fixed fallback"}
	})

	for _, st := range r.steps {
		if value, why, ok := st.produce(in, h, r.cache); ok {
			return Suggestion{Value: value, Confidence: st.confidence, Reasoning: fmt.Sprintf("%s: %s", st.name, why)}
		}
	}
	// Unreachable: the last step always produces.
	return Suggestion{Value: FallbackCostCenter, Confidence: 0, Reasoning: "assigned_fallback: fixed label"}
}

// RecordUse updates the screen-recency cache after the caller commits an
// entry with a cost center.
func (r *Recommender) RecordUse(employee trips.EmployeeID, screen trips.Screen, cc trips.CostCenter) {
	if r.cache == nil || cc == "" {
		return
	}
	r.cache.SetLastCostCenter(employee, screen, cc)
}

// =============================================================================
// THE CHAIN
// =============================================================================

func chain() []step {
	return []step{
		{name: "same_destination", confidence: 0.9, produce: byDestination},
		{name: "same_purpose", confidence: 0.8, produce: byPurpose},
		{name: "same_category", confidence: 0.7, produce: byReceiptCategory},
		{name: "screen_recency", confidence: 0.6, produce: byScreenRecency},
		{name: "overall_frequency", confidence: 0.5, produce: byOverallFrequency},
		{name: "configured_default", confidence: 0.4, produce: byConfiguredDefault},
		{name: "assigned_fallback", confidence: 0.2, produce: byAssignedFallback},
	}
}

// byDestination returns the cost center of the most recent trip whose
// destination matches.
func byDestination(in Input, h History, _ trips.RecencyCache) (trips.CostCenter, string, bool) {
	if in.Destination == "" {
		return "", "", false
	}
	var best *trips.TripRecord
	for i := range h.Trips {
		tr := &h.Trips[i]
		if tr.CostCenter == "" || !substringEither(tr.EndLocation, in.Destination) {
			continue
		}
		if best == nil || tr.Date.After(best.Date) {
			best = tr
		}
	}
	if best == nil {
		return "", "", false
	}
	return best.CostCenter, fmt.Sprintf("most recent trip to %q on %s", best.EndLocation, best.Date.Format("2006-01-02")), true
}

// byPurpose returns the most frequent cost center among trips with a
// matching purpose.
func byPurpose(in Input, h History, _ trips.RecencyCache) (trips.CostCenter, string, bool) {
	if in.Purpose == "" {
		return "", "", false
	}
	tally := newTally()
	for _, tr := range h.Trips {
		if tr.CostCenter != "" && substringEither(tr.Purpose, in.Purpose) {
			tally.add(tr.CostCenter, tr.Date)
		}
	}
	cc, ok := tally.winner()
	if !ok {
		return "", "", false
	}
	return cc, fmt.Sprintf("used %d times for this purpose", tally.count(cc)), true
}

// byReceiptCategory returns the most frequent cost center among receipts
// in the same category.
func byReceiptCategory(in Input, h History, _ trips.RecencyCache) (trips.CostCenter, string, bool) {
	if in.ReceiptCategory == "" {
		return "", "", false
	}
	want := trips.NormalizeText(in.ReceiptCategory)
	tally := newTally()
	for _, rc := range h.Receipts {
		if rc.CostCenter != "" && trips.NormalizeText(rc.Category) == want {
			tally.add(rc.CostCenter, rc.Date)
		}
	}
	cc, ok := tally.winner()
	if !ok {
		return "", "", false
	}
	return cc, fmt.Sprintf("used %d times for this receipt category", tally.count(cc)), true
}

// byScreenRecency reads the last cost center used on the same input
// screen.
func byScreenRecency(in Input, _ History, cache trips.RecencyCache) (trips.CostCenter, string, bool) {
	if cache == nil || in.Screen == "" {
		return "", "", false
	}
	cc, ok := cache.LastCostCenter(in.Employee, in.Screen)
	if !ok || cc == "" {
		return "", "", false
	}
	return cc, fmt.Sprintf("last used on the %s screen", in.Screen), true
}

// byOverallFrequency returns the most used cost center across all
// activity types.
func byOverallFrequency(_ Input, h History, _ trips.RecencyCache) (trips.CostCenter, string, bool) {
	tally := newTally()
	for _, tr := range h.Trips {
		if tr.CostCenter != "" {
			tally.add(tr.CostCenter, tr.Date)
		}
	}
	for _, rc := range h.Receipts {
		if rc.CostCenter != "" {
			tally.add(rc.CostCenter, rc.Date)
		}
	}
	for _, te := range h.TimeEntries {
		if te.CostCenter != "" {
			tally.add(te.CostCenter, te.Date)
		}
	}
	cc, ok := tally.winner()
	if !ok {
		return "", "", false
	}
	return cc, fmt.Sprintf("most used across all activity (%d entries)", tally.count(cc)), true
}

func byConfiguredDefault(_ Input, h History, _ trips.RecencyCache) (trips.CostCenter, string, bool) {
	if h.Profile.DefaultCostCenter == "" {
		return "", "", false
	}
	return h.Profile.DefaultCostCenter, "employee's configured default", true
}

// byAssignedFallback never falls through.
func byAssignedFallback(_ Input, h History, _ trips.RecencyCache) (trips.CostCenter, string, bool) {
	if len(h.Profile.CostCenters) > 0 {
		return h.Profile.CostCenters[0], "first assigned cost center", true
	}
	return FallbackCostCenter, "fixed fallback label", true
}

// =============================================================================
// HELPERS
// =============================================================================

// substringEither is a case-insensitive substring match in either
// direction.
func substringEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// tally counts cost center uses and remembers the most recent use for
// tie-breaking.
type tally struct {
	counts map[trips.CostCenter]int
	recent map[trips.CostCenter]time.Time
}

func newTally() *tally {
	return &tally{
		counts: make(map[trips.CostCenter]int),
		recent: make(map[trips.CostCenter]time.Time),
	}
}

func (t *tally) add(cc trips.CostCenter, at time.Time) {
	t.counts[cc]++
	if at.After(t.recent[cc]) {
		t.recent[cc] = at
	}
}

func (t *tally) count(cc trips.CostCenter) int { return t.counts[cc] }

// winner returns the most frequent cost center; ties break toward the
// most recently used.
func (t *tally) winner() (trips.CostCenter, bool) {
	var best trips.CostCenter
	found := false
	for cc := range t.counts {
		if !found {
			best, found = cc, true
			continue
		}
		switch {
		case t.counts[cc] > t.counts[best]:
			best = cc
		case t.counts[cc] == t.counts[best] && t.recent[cc].After(t.recent[best]):
			best = cc
		}
	}
	return best, found
}
