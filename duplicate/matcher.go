/*
matcher.go - Duplicate trip detection over same-day history

PURPOSE:
  When a worker enters a trip, the matcher compares it against the trips
  already recorded for that calendar day and produces an advisory verdict.
  It never blocks entry creation; the caller surfaces the flag for
  confirmation.

FACTOR TABLE:
  Matching is declarative: an ordered list of (name, weight,
  required-in-strict-mode, comparator) tuples. Strict/lenient behavior
  and threshold tuning are configuration over this table, not branching
  logic.

    purpose         0.30  required   normalized exact equality
    start_location  0.25  required   address-extracted, exact or fuzzy >= 0.9
    end_location    0.25  required   address-extracted, exact or fuzzy >= 0.9
    mileage         0.20  required   relative difference < 5%

MODES:
  Strict (default): a record is a duplicate only when EVERY required
  factor matches; one mismatch zeroes the score. Prevents false positives
  on legitimately similar trips.

  Lenient: weighted partial score, flagged at >= 0.7. Used for same-day
  proximity warnings, never hard blocking.

SEE ALSO:
  - fuzzy.go: Similarity scoring
  - trips/normalize.go: Address extraction and text normalization
*/
package duplicate

import (
	"math"

	"github.com/warp/trip-insight-engine/diag"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Mode selects how strictly factors are combined.
type Mode int

const (
	// Strict flags a duplicate only when all required factors match.
	Strict Mode = iota
	// Lenient flags when the weighted score reaches LenientThreshold.
	Lenient
)

const (
	// LenientThreshold is the weighted-score bar for lenient flagging.
	LenientThreshold = 0.7

	// locationFuzzyBar is the similarity a non-exact location pair must
	// clear to count as a match.
	locationFuzzyBar = 0.9

	// mileageTolerance is the relative mileage difference below which two
	// trips count as the same distance.
	mileageTolerance = 0.05
)

// Factor is one comparison rule in the table.
type Factor struct {
	Name           string
	Weight         float64
	RequiredStrict bool
	Match          func(candidate, entry trips.TripRecord) bool
}

// DefaultFactors returns the standard factor table.
func DefaultFactors() []Factor {
	return []Factor{
		{
			Name:           "purpose",
			Weight:         0.30,
			RequiredStrict: true,
			Match: func(c, e trips.TripRecord) bool {
				return trips.NormalizeText(c.Purpose) == trips.NormalizeText(e.Purpose)
			},
		},
		{
			Name:           "start_location",
			Weight:         0.25,
			RequiredStrict: true,
			Match: func(c, e trips.TripRecord) bool {
				return locationsMatch(c.StartLocation, e.StartLocation)
			},
		},
		{
			Name:           "end_location",
			Weight:         0.25,
			RequiredStrict: true,
			Match: func(c, e trips.TripRecord) bool {
				return locationsMatch(c.EndLocation, e.EndLocation)
			},
		},
		{
			Name:           "mileage",
			Weight:         0.20,
			RequiredStrict: true,
			Match: func(c, e trips.TripRecord) bool {
				return mileageMatch(c.Miles, e.Miles)
			},
		},
	}
}

// =============================================================================
// RESULT
// =============================================================================

// SimilarityResult is the advisory verdict for one evaluation. Score is in
// [0,1]; MatchedFactors lists factor names in table order for
// human-readable justification.
type SimilarityResult struct {
	Score          float64
	MatchedFactors []string
	IsDuplicate    bool
	MatchedTripID  string // the historical entry that produced the score
}

// =============================================================================
// MATCHER
// =============================================================================

// Matcher compares candidate trips against same-day history. Stateless;
// safe for concurrent use.
type Matcher struct {
	mode    Mode
	factors []Factor
	rec     diag.Recorder
}

// NewMatcher creates a matcher with the default factor table. rec may be
// nil.
func NewMatcher(mode Mode, rec diag.Recorder) *Matcher {
	if rec == nil {
		rec = diag.Discard{}
	}
	return &Matcher{mode: mode, factors: DefaultFactors(), rec: rec}
}

// Evaluate scores the candidate against every historical entry on the
// same calendar day and returns the strongest result. Internal faults are
// converted to an empty result; duplicate detection must never block
// entry creation.
func (m *Matcher) Evaluate(candidate trips.TripRecord, history []trips.TripRecord) (result SimilarityResult) {
	defer diag.Guard(m.rec, "duplicate", func() { result = SimilarityResult{} })

	for _, entry := range history {
		if !trips.SameCalendarDay(candidate.Date, entry.Date) {
			continue
		}
		r := m.compare(candidate, entry)
		if r.Score > result.Score || (r.IsDuplicate && !result.IsDuplicate) {
			result = r
		}
	}
	return result
}

// compare applies the factor table to one candidate/entry pair.
func (m *Matcher) compare(candidate, entry trips.TripRecord) SimilarityResult {
	var matched []string
	var score float64
	requiredMissed := false

	for _, f := range m.factors {
		if f.Match(candidate, entry) {
			matched = append(matched, f.Name)
			score += f.Weight
		} else if f.RequiredStrict {
			requiredMissed = true
		}
	}

	r := SimilarityResult{MatchedFactors: matched, MatchedTripID: entry.ID}
	switch m.mode {
	case Strict:
		if requiredMissed {
			// One mismatch zeroes the whole score.
			return SimilarityResult{MatchedTripID: entry.ID}
		}
		r.Score = score
		r.IsDuplicate = true
	case Lenient:
		r.Score = score
		r.IsDuplicate = score >= LenientThreshold
	}
	return r
}

// =============================================================================
// COMPARATORS
// =============================================================================

// locationsMatch normalizes display strings down to their embedded
// address, then accepts an exact match or fuzzy similarity above the bar.
func locationsMatch(a, b string) bool {
	na := trips.NormalizeText(trips.ExtractAddress(a))
	nb := trips.NormalizeText(trips.ExtractAddress(b))
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return Similarity(na, nb) >= locationFuzzyBar
}

// mileageMatch compares on relative difference against the average.
func mileageMatch(m1, m2 float64) bool {
	if m1 == m2 {
		return true
	}
	avg := (m1 + m2) / 2
	if avg == 0 {
		return false
	}
	return math.Abs(m1-m2)/avg < mileageTolerance
}
