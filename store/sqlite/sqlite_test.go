package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/trip-insight-engine/perdiem"
	"github.com/warp/trip-insight-engine/store/sqlite"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tripOn(id string, day int, cc trips.CostCenter) trips.TripRecord {
	return trips.TripRecord{
		ID:            id,
		EmployeeID:    "emp-1",
		Date:          time.Date(2026, time.March, day, 8, 0, 0, 0, time.UTC),
		StartLocation: "12 Main St",
		EndLocation:   "44 Dock Rd",
		Purpose:       "client visit",
		Miles:         24.5,
		HoursWorked:   8,
		CostCenter:    cc,
	}
}

// =============================================================================
// TRIPS
// =============================================================================

func TestSaveTrip_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTrip(ctx, tripOn("t1", 10, "CC-100")))

	got, err := s.Trips(ctx, "emp-1", trips.DateRange{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "44 Dock Rd", got[0].EndLocation)
	assert.Equal(t, 24.5, got[0].Miles)
	assert.Equal(t, trips.CostCenter("CC-100"), got[0].CostCenter)
	assert.False(t, got[0].CreatedAt.IsZero(), "created_at is stamped on save")
}

func TestTrips_RangeFilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i, day := range []int{20, 5, 12} {
		require.NoError(t, s.SaveTrip(ctx, tripOn(string(rune('a'+i)), day, "")))
	}

	got, err := s.Trips(ctx, "emp-1", trips.DateRange{
		From: time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Before(got[1].Date))
}

func TestTrips_DayBoundaryRowsIncluded(t *testing.T) {
	// Timestamps are stored as TEXT and range-filtered bytewise, so rows
	// in the first and last second of a day must still fall inside a
	// whole-day range with sub-second bounds.
	s := newTestStore(t)
	ctx := context.Background()

	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	first := tripOn("first", 10, "")
	first.Date = day.Add(500 * time.Millisecond)
	last := tripOn("last", 10, "")
	last.Date = day.Add(24*time.Hour - time.Second)
	require.NoError(t, s.SaveTrip(ctx, first))
	require.NoError(t, s.SaveTrip(ctx, last))

	got, err := s.Trips(ctx, "emp-1", trips.DateRange{
		From: day,
		To:   day.Add(24*time.Hour - time.Nanosecond),
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "last", got[1].ID)
	assert.True(t, got[0].Date.Equal(first.Date), "sub-second precision survives the round trip")
}

func TestTrips_OtherEmployeeInvisible(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTrip(ctx, tripOn("t1", 10, "")))

	got, err := s.Trips(ctx, "emp-2", trips.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// RECEIPTS AND TIME ENTRIES
// =============================================================================

func TestReceipts_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReceipt(ctx, trips.Receipt{
		ID: "r1", EmployeeID: "emp-1",
		Date:     time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
		Category: "Fuel", Amount: 42.10, CostCenter: "CC-FLEET",
	}))

	got, err := s.Receipts(ctx, "emp-1", trips.DateRange{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fuel", got[0].Category)
	assert.Equal(t, trips.CostCenter("CC-FLEET"), got[0].CostCenter)
}

func TestTimeEntries_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTimeEntry(ctx, trips.TimeEntry{
		ID: "te1", EmployeeID: "emp-1",
		Date:  time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Hours: 8, CostCenter: "CC-100",
	}))

	got, err := s.TimeEntries(ctx, "emp-1", trips.DateRange{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8.0, got[0].Hours)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfile_UpsertAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Unknown employee reads as an empty profile, not an error.
	p, err := s.Profile(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, p.BaseAddress)

	require.NoError(t, s.SaveProfile(ctx, trips.EmployeeProfile{
		ID:                "emp-1",
		BaseAddress:       "12 Main St",
		DefaultCostCenter: "CC-HOME",
		CostCenters:       []trips.CostCenter{"CC-HOME", "CC-100"},
	}))

	p, err = s.Profile(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "12 Main St", p.BaseAddress)
	assert.Equal(t, []trips.CostCenter{"CC-HOME", "CC-100"}, p.CostCenters)

	// Upsert replaces.
	require.NoError(t, s.SaveProfile(ctx, trips.EmployeeProfile{ID: "emp-1", BaseAddress: "44 Dock Rd"}))
	p, err = s.Profile(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "44 Dock Rd", p.BaseAddress)
}

// =============================================================================
// RULES
// =============================================================================

func TestRules_LookupDefaultAndMoneyPrecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.DefaultRule(ctx)
	assert.ErrorIs(t, err, perdiem.ErrNoDefaultRule)

	std := perdiem.PerDiemRule{
		CostCenter:          "CC-STANDARD",
		MaxAmountPerDay:     decimal.RequireFromString("35.00"),
		MinHours:            8,
		MinMiles:            100,
		MinDistanceFromBase: 50,
		MonthlyCap:          decimal.RequireFromString("350.00"),
	}
	require.NoError(t, s.SaveRule(ctx, std, true))

	got, ok, err := s.Rule(ctx, "CC-STANDARD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.MaxAmountPerDay.Equal(decimal.RequireFromString("35")))
	assert.Equal(t, 50.0, got.MinDistanceFromBase)

	def, err := s.DefaultRule(ctx)
	require.NoError(t, err)
	assert.Equal(t, trips.CostCenter("CC-STANDARD"), def.CostCenter)

	_, ok, err = s.Rule(ctx, "CC-MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRules_NewDefaultReplacesOld(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := perdiem.PerDiemRule{CostCenter: "CC-A", MaxAmountPerDay: decimal.NewFromInt(10), MonthlyCap: decimal.NewFromInt(100)}
	b := perdiem.PerDiemRule{CostCenter: "CC-B", MaxAmountPerDay: decimal.NewFromInt(20), MonthlyCap: decimal.NewFromInt(200)}

	require.NoError(t, s.SaveRule(ctx, a, true))
	require.NoError(t, s.SaveRule(ctx, b, true))

	def, err := s.DefaultRule(ctx)
	require.NoError(t, err)
	assert.Equal(t, trips.CostCenter("CC-B"), def.CostCenter)
}

// =============================================================================
// RECENCY AND PROMPTS
// =============================================================================

func TestScreenRecency(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.LastCostCenter("emp-1", trips.ScreenMileage)
	assert.False(t, ok)

	s.SetLastCostCenter("emp-1", trips.ScreenMileage, "CC-1")
	s.SetLastCostCenter("emp-1", trips.ScreenMileage, "CC-2")

	cc, ok := s.LastCostCenter("emp-1", trips.ScreenMileage)
	require.True(t, ok)
	assert.Equal(t, trips.CostCenter("CC-2"), cc)
}

func TestPromptLog_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LastPrompt(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.RecordPrompt(ctx, "emp-1", at))

	got, ok, err := s.LastPrompt(ctx, "emp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}
