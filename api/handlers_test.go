/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Session lifecycle (start, sample, stop, cancel) and conflict handling
- Trip creation, listing, and duplicate checks
- Per-diem day and month evaluation
- Cost center suggestions and recency feedback
- Base address suggestion and prompt throttling
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/trip-insight-engine/geo"
	"github.com/warp/trip-insight-engine/perdiem"
	"github.com/warp/trip-insight-engine/store"
	"github.com/warp/trip-insight-engine/tracking"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeProvider struct {
	point geo.Point
	err   error
}

func (p *fakeProvider) CurrentPosition(context.Context, tracking.Accuracy, time.Duration) (geo.Point, error) {
	if p.err != nil {
		return geo.Point{}, p.err
	}
	return p.point, nil
}

type fakeGeocoder struct{}

func (fakeGeocoder) Resolve(_ context.Context, p geo.Point) (string, error) {
	return fmt.Sprintf("near %s", p), nil
}

type testEnv struct {
	store    *store.Memory
	provider *fakeProvider
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	provider := &fakeProvider{point: geo.Point{Lat: 37.5, Lon: -122.25}}
	tracker := tracking.NewTracker(provider, fakeGeocoder{}, nil)
	h := NewHandler(mem, tracker, nil)
	return &testEnv{store: mem, provider: provider, router: NewRouter(h)}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func seedTrip(t *testing.T, mem *store.Memory, day int, start, end, purpose string, miles float64, cc trips.CostCenter) {
	t.Helper()
	require.NoError(t, mem.SaveTrip(context.Background(), trips.TripRecord{
		ID:            fmt.Sprintf("trip-%d-%s", day, end),
		EmployeeID:    "emp-1",
		Date:          time.Date(2026, time.March, day, 9, 0, 0, 0, time.UTC),
		StartLocation: start,
		EndLocation:   end,
		Purpose:       purpose,
		Miles:         miles,
		HoursWorked:   8,
		CostCenter:    cc,
	}))
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// WHEN: a session is started
	rec := env.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{
		EmployeeID: "emp-1", Purpose: "client visit",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	started := decode[SessionDTO](t, rec)
	assert.True(t, started.IsActive)
	assert.NotEmpty(t, started.ID)
	assert.Contains(t, started.StartLocation, "near")

	// AND: a sample well past the movement threshold arrives
	rec = env.do(t, http.MethodPost, "/api/sessions/emp-1/samples", SampleRequest{
		Latitude: 37.51, Longitude: -122.25,
		Timestamp: time.Date(2026, time.March, 1, 9, 1, 0, 0, time.UTC).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, decode[SessionDTO](t, rec).DistanceMiles, 0.0)

	// WHEN: the session is stopped
	rec = env.do(t, http.MethodPost, "/api/sessions/emp-1/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stopped := decode[SessionDTO](t, rec)
	assert.False(t, stopped.IsActive)
	assert.NotEmpty(t, stopped.EndTime)

	// THEN: the closed session was persisted as a trip
	saved, err := env.store.Trips(context.Background(), "emp-1", trips.DateRange{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, stopped.ID, saved[0].ID)

	// AND: the employee has no active session anymore
	rec = env.do(t, http.MethodGet, "/api/sessions/emp-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSession_SecondStartConflicts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{EmployeeID: "emp-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{EmployeeID: "emp-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartSession_PermissionDenied(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = tracking.ErrPermissionDenied

	rec := env.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{EmployeeID: "emp-1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelSession_NothingPersisted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/sessions", StartSessionRequest{EmployeeID: "emp-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/emp-1/cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	saved, err := env.store.Trips(context.Background(), "emp-1", trips.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

// =============================================================================
// TRIP ENDPOINTS
// =============================================================================

func TestCreateAndListTrips(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/trips", CreateTripRequest{
		EmployeeID:    "emp-1",
		Date:          "2026-03-10T09:00:00Z",
		StartLocation: "12 Main St",
		EndLocation:   "44 Dock Rd",
		Miles:         24.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[TripDTO](t, rec)
	assert.NotEmpty(t, created.ID, "an ID is assigned when the client omits one")

	rec = env.do(t, http.MethodGet, "/api/trips?employee_id=emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]TripDTO](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, 24.5, listed[0].Miles)
}

func TestCheckDuplicate_StrictFlagsIdenticalEntry(t *testing.T) {
	env := newTestEnv(t)
	seedTrip(t, env.store, 10, "12 Main St", "44 Dock Rd", "client visit", 24.5, "")

	rec := env.do(t, http.MethodPost, "/api/trips/duplicate-check", DuplicateCheckRequest{
		Entry: CreateTripRequest{
			EmployeeID:    "emp-1",
			Date:          "2026-03-10T15:00:00Z",
			StartLocation: "12 Main St",
			EndLocation:   "44 Dock Rd",
			Purpose:       "client visit",
			Miles:         24.5,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	verdict := decode[DuplicateCheckDTO](t, rec)
	assert.True(t, verdict.IsDuplicate)
	assert.Equal(t, 1.0, verdict.Score)
	assert.Len(t, verdict.MatchedFactors, 4)
}

func TestCheckDuplicate_DifferentDayIsClean(t *testing.T) {
	env := newTestEnv(t)
	seedTrip(t, env.store, 9, "12 Main St", "44 Dock Rd", "client visit", 24.5, "")

	rec := env.do(t, http.MethodPost, "/api/trips/duplicate-check", DuplicateCheckRequest{
		Entry: CreateTripRequest{
			EmployeeID:    "emp-1",
			Date:          "2026-03-10T15:00:00Z",
			StartLocation: "12 Main St",
			EndLocation:   "44 Dock Rd",
			Purpose:       "client visit",
			Miles:         24.5,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[DuplicateCheckDTO](t, rec).IsDuplicate)
}

// =============================================================================
// PER-DIEM ENDPOINTS
// =============================================================================

func standardRule() perdiem.PerDiemRule {
	return perdiem.PerDiemRule{
		CostCenter:          "CC-STANDARD",
		MaxAmountPerDay:     decimal.RequireFromString("35.00"),
		MinHours:            8,
		MinMiles:            100,
		MinDistanceFromBase: 50,
		MonthlyCap:          decimal.RequireFromString("350.00"),
	}
}

func TestEvaluateDay(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetDefaultRule(standardRule())

	rec := env.do(t, http.MethodPost, "/api/perdiem/day", EvaluateDayRequest{
		CostCenter:  "CC-STANDARD",
		Date:        "2026-03-10",
		HoursWorked: 9,
		MilesDriven: 120,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	verdict := decode[EligibilityDTO](t, rec)
	assert.True(t, verdict.IsEligible)
	assert.Equal(t, "35.00", verdict.Amount)
}

func TestEvaluateDay_ReasonsEnumerated(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetDefaultRule(standardRule())

	rec := env.do(t, http.MethodPost, "/api/perdiem/day", EvaluateDayRequest{
		CostCenter:  "CC-STANDARD",
		Date:        "2026-03-10",
		HoursWorked: 7.9,
		MilesDriven: 120,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	verdict := decode[EligibilityDTO](t, rec)
	assert.False(t, verdict.IsEligible)
	require.Len(t, verdict.UnmetReasons, 1)
	assert.Equal(t, "hours_worked", verdict.UnmetReasons[0].Name)
}

func TestEvaluateDay_NoRulesConfigured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/perdiem/day", EvaluateDayRequest{
		CostCenter: "CC-UNKNOWN", Date: "2026-03-10", HoursWorked: 9,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateMonth_CapReported(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetDefaultRule(standardRule())

	// GIVEN: 11 eligible days, which earn past the $350 cap
	for day := 1; day <= 11; day++ {
		seedTrip(t, env.store, day, "12 Main St", fmt.Sprintf("stop %d", day), "route", 120, "")
	}

	rec := env.do(t, http.MethodGet, "/api/perdiem/month?employee_id=emp-1&cost_center=CC-STANDARD&month=2026-03", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[MonthSummaryDTO](t, rec)
	assert.Len(t, summary.Days, 11)
	assert.Equal(t, "385.00", summary.UncappedTotal)
	assert.Equal(t, "350.00", summary.CappedTotal)
}

// =============================================================================
// COST CENTER ENDPOINTS
// =============================================================================

func TestSuggestCostCenter_UsesHistory(t *testing.T) {
	env := newTestEnv(t)
	seedTrip(t, env.store, 8, "12 Main St", "44 Dock Rd", "client visit", 24.5, "CC-DOCK")

	rec := env.do(t, http.MethodPost, "/api/cost-centers/suggest", SuggestCostCenterRequest{
		EmployeeID: "emp-1", Destination: "44 Dock Rd",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	suggestion := decode[SuggestionDTO](t, rec)
	assert.Equal(t, "CC-DOCK", suggestion.Value)
	assert.Equal(t, 0.9, suggestion.Confidence)
}

func TestSuggestCostCenter_NoHistoryFallsBack(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cost-centers/suggest", SuggestCostCenterRequest{
		EmployeeID: "emp-1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	suggestion := decode[SuggestionDTO](t, rec)
	assert.NotEmpty(t, suggestion.Value, "the chain always produces a value")
}

func TestRecordCostCenterUse_FeedsRecency(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cost-centers/used", RecordUseRequest{
		EmployeeID: "emp-1", Screen: "mileage", CostCenter: "CC-LAST",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cost-centers/suggest", SuggestCostCenterRequest{
		EmployeeID: "emp-1", Screen: "mileage",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CC-LAST", decode[SuggestionDTO](t, rec).Value)
}

// =============================================================================
// BASE ADDRESS ENDPOINTS
// =============================================================================

func TestBaseAddressSuggestion(t *testing.T) {
	env := newTestEnv(t)
	// GIVEN: 10 trips, 7 starting from the same non-base address
	for day := 1; day <= 7; day++ {
		seedTrip(t, env.store, day, "88 Depot Way", fmt.Sprintf("stop %d", day), "route", 10, "")
	}
	for day := 8; day <= 10; day++ {
		seedTrip(t, env.store, day, "12 Main St", fmt.Sprintf("stop %d", day), "route", 10, "")
	}

	rec := env.do(t, http.MethodGet, "/api/base-address/suggestion?employee_id=emp-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[BaseAddressDTO](t, rec)
	assert.True(t, dto.ShouldSuggest)
	assert.True(t, dto.ShouldPrompt, "10 trips is a prompt milestone with no prior prompt")
	assert.Equal(t, "88 Depot Way", dto.TopLocation)
	assert.Equal(t, 7, dto.Count)
}

func TestBaseAddressSuggestion_PromptCooldownRespected(t *testing.T) {
	env := newTestEnv(t)
	for day := 1; day <= 10; day++ {
		seedTrip(t, env.store, day, "88 Depot Way", fmt.Sprintf("stop %d", day), "route", 10, "")
	}
	require.NoError(t, env.store.RecordPrompt(context.Background(), "emp-1", time.Now().Add(-48*time.Hour)))

	rec := env.do(t, http.MethodGet, "/api/base-address/suggestion?employee_id=emp-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[BaseAddressDTO](t, rec)
	assert.True(t, dto.ShouldSuggest)
	assert.False(t, dto.ShouldPrompt, "a prompt two days ago suppresses re-prompting")
}

func TestRecordPrompt(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/base-address/prompted", map[string]string{"employee_id": "emp-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, ok, err := env.store.LastPrompt(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
