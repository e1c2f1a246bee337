package duplicate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/trip-insight-engine/duplicate"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

var march10 = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func trip(id, purpose, start, end string, miles float64) trips.TripRecord {
	return trips.TripRecord{
		ID:            id,
		EmployeeID:    "emp-1",
		Date:          march10,
		Purpose:       purpose,
		StartLocation: start,
		EndLocation:   end,
		Miles:         miles,
	}
}

// =============================================================================
// STRICT MODE
// =============================================================================

func TestStrict_AllFourFactorsMatch_Duplicate(t *testing.T) {
	// GIVEN: a historical trip identical in purpose, start, end, and
	// mileage within 5%
	m := duplicate.NewMatcher(duplicate.Strict, nil)
	candidate := trip("new", "Client Visit", "12 Main St", "44 Dock Rd", 24.0)
	history := []trips.TripRecord{trip("old", "client visit", "12 Main St", "44 Dock Rd", 24.5)}

	// WHEN
	r := m.Evaluate(candidate, history)

	// THEN: flagged, with all four factors listed
	assert.True(t, r.IsDuplicate)
	assert.Equal(t, []string{"purpose", "start_location", "end_location", "mileage"}, r.MatchedFactors)
	assert.Equal(t, "old", r.MatchedTripID)
	assert.InDelta(t, 1.0, r.Score, 1e-9)
}

func TestStrict_PurposeMismatch_ScoreForcedToZero(t *testing.T) {
	m := duplicate.NewMatcher(duplicate.Strict, nil)
	candidate := trip("new", "Site inspection", "12 Main St", "44 Dock Rd", 24.0)
	history := []trips.TripRecord{trip("old", "client visit", "12 Main St", "44 Dock Rd", 24.0)}

	r := m.Evaluate(candidate, history)

	assert.False(t, r.IsDuplicate)
	assert.Equal(t, 0.0, r.Score)
	assert.Empty(t, r.MatchedFactors)
}

func TestStrict_MileageOutsideTolerance_NotDuplicate(t *testing.T) {
	m := duplicate.NewMatcher(duplicate.Strict, nil)
	candidate := trip("new", "client visit", "12 Main St", "44 Dock Rd", 24.0)
	history := []trips.TripRecord{trip("old", "client visit", "12 Main St", "44 Dock Rd", 30.0)}

	r := m.Evaluate(candidate, history)
	assert.False(t, r.IsDuplicate)
}

func TestStrict_DifferentDayIgnored(t *testing.T) {
	m := duplicate.NewMatcher(duplicate.Strict, nil)
	candidate := trip("new", "client visit", "12 Main St", "44 Dock Rd", 24.0)
	old := trip("old", "client visit", "12 Main St", "44 Dock Rd", 24.0)
	old.Date = march10.AddDate(0, 0, -1)

	r := m.Evaluate(candidate, []trips.TripRecord{old})
	assert.False(t, r.IsDuplicate)
	assert.Equal(t, 0.0, r.Score)
}

func TestStrict_DisplayFormatNormalized(t *testing.T) {
	// "Name (Address)" display strings compare on the embedded address.
	m := duplicate.NewMatcher(duplicate.Strict, nil)
	candidate := trip("new", "client visit", "Acme HQ (12 Main St, Springfield)", "44 Dock Rd", 24.0)
	history := []trips.TripRecord{trip("old", "client visit", "12 Main St, Springfield", "44 Dock Rd", 24.0)}

	r := m.Evaluate(candidate, history)
	assert.True(t, r.IsDuplicate)
}

func TestStrict_EmptyHistory_NoFlag(t *testing.T) {
	m := duplicate.NewMatcher(duplicate.Strict, nil)
	r := m.Evaluate(trip("new", "client visit", "a", "b", 10), nil)
	assert.False(t, r.IsDuplicate)
	assert.Equal(t, 0.0, r.Score)
}

// =============================================================================
// LENIENT MODE
// =============================================================================

func TestLenient_PartialMatchAboveThreshold_Flagged(t *testing.T) {
	// Purpose (0.30) + start (0.25) + end (0.25) = 0.80 >= 0.70, mileage
	// differs.
	m := duplicate.NewMatcher(duplicate.Lenient, nil)
	candidate := trip("new", "client visit", "12 Main St", "44 Dock Rd", 24.0)
	history := []trips.TripRecord{trip("old", "client visit", "12 Main St", "44 Dock Rd", 40.0)}

	r := m.Evaluate(candidate, history)

	assert.True(t, r.IsDuplicate)
	assert.InDelta(t, 0.80, r.Score, 1e-9)
	assert.NotContains(t, r.MatchedFactors, "mileage")
}

func TestLenient_PartialMatchBelowThreshold_NotFlagged(t *testing.T) {
	// Start (0.25) + end (0.25) = 0.50 < 0.70.
	m := duplicate.NewMatcher(duplicate.Lenient, nil)
	candidate := trip("new", "site inspection", "12 Main St", "44 Dock Rd", 24.0)
	history := []trips.TripRecord{trip("old", "client visit", "12 Main St", "44 Dock Rd", 40.0)}

	r := m.Evaluate(candidate, history)

	assert.False(t, r.IsDuplicate)
	assert.InDelta(t, 0.50, r.Score, 1e-9)
}

func TestLenient_BestEntryWins(t *testing.T) {
	m := duplicate.NewMatcher(duplicate.Lenient, nil)
	candidate := trip("new", "client visit", "12 Main St", "44 Dock Rd", 24.0)
	weak := trip("weak", "other", "12 Main St", "elsewhere", 5.0)
	strong := trip("strong", "client visit", "12 Main St", "44 Dock Rd", 24.0)

	r := m.Evaluate(candidate, []trips.TripRecord{weak, strong})

	require.True(t, r.IsDuplicate)
	assert.Equal(t, "strong", r.MatchedTripID)
}

// =============================================================================
// FUZZY SIMILARITY
// =============================================================================

func TestSimilarity_EqualStrings(t *testing.T) {
	assert.Equal(t, 1.0, duplicate.Similarity("12 main st", "12 main st"))
}

func TestSimilarity_Containment(t *testing.T) {
	// 7 characters of "main st" over 10 of "12 main st".
	assert.InDelta(t, 0.7, duplicate.Similarity("main st", "12 main st"), 1e-9)
}

func TestSimilarity_TokenOverlap(t *testing.T) {
	// Shared tokens {12, main, st} over the larger count of 4.
	got := duplicate.Similarity("12 main st springfield", "12 main st suite")
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestSimilarity_NoOverlap_Zero(t *testing.T) {
	assert.Equal(t, 0.0, duplicate.Similarity("12 main st", "44 dock rd"))
}

func TestSimilarity_EmptyStrings_Zero(t *testing.T) {
	assert.Equal(t, 0.0, duplicate.Similarity("", ""))
	assert.Equal(t, 0.0, duplicate.Similarity("x", ""))
}
