/*
handlers.go - HTTP API handlers for the trip insight engines

PURPOSE:
  Exposes the inference engines via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Sessions:
    POST   /api/sessions                         Start tracking
    GET    /api/sessions/{employeeID}            Active session snapshot
    POST   /api/sessions/{employeeID}/samples    Feed a position sample
    POST   /api/sessions/{employeeID}/stop       Stop and persist the trip
    POST   /api/sessions/{employeeID}/cancel     Discard the session

  Trips:
    GET    /api/trips                            List trips (employee_id, from, to)
    POST   /api/trips                            Save a trip record
    POST   /api/trips/duplicate-check            Score a candidate entry

  Per-diem:
    POST   /api/perdiem/day                      Evaluate one day
    GET    /api/perdiem/month                    Evaluate a month from trip history

  Cost centers:
    POST   /api/cost-centers/suggest             Suggest a cost center
    POST   /api/cost-centers/used                Record a committed choice

  Base address:
    GET    /api/base-address/suggestion          Dominant start location + prompt gate
    POST   /api/base-address/prompted            Record that a prompt was shown

ARCHITECTURE:
  Handler struct holds all dependencies: the store and the five engines.
  Engines are advisory; nothing here auto-applies a suggestion.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Positioning permission denied
  - 404: Resource not found, no active session
  - 409: Conflict (session already active)
  - 500: Internal errors
  - 503: Position temporarily unavailable

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/trip-insight-engine/baseaddr"
	"github.com/warp/trip-insight-engine/diag"
	"github.com/warp/trip-insight-engine/duplicate"
	"github.com/warp/trip-insight-engine/geo"
	"github.com/warp/trip-insight-engine/perdiem"
	"github.com/warp/trip-insight-engine/recommend"
	"github.com/warp/trip-insight-engine/tracking"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence surface the handlers need. Both the SQLite
// store and the in-memory store satisfy it.
type Store interface {
	trips.HistoryStore
	trips.RecencyCache
	trips.PromptLog
	perdiem.RuleStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Tracker *tracking.Tracker

	matcher     *duplicate.Matcher
	lenient     *duplicate.Matcher
	perdiem     *perdiem.Engine
	recommender *recommend.Recommender
	detector    *baseaddr.Detector

	now func() time.Time
}

// NewHandler creates a handler over the given store and tracker,
// constructing the remaining engines internally. rec may be nil.
func NewHandler(store Store, tracker *tracking.Tracker, rec diag.Recorder) *Handler {
	if rec == nil {
		rec = diag.Discard{}
	}
	return &Handler{
		Store:       store,
		Tracker:     tracker,
		matcher:     duplicate.NewMatcher(duplicate.Strict, rec),
		lenient:     duplicate.NewMatcher(duplicate.Lenient, rec),
		perdiem:     perdiem.NewEngine(store),
		recommender: recommend.NewRecommender(store, rec),
		detector:    baseaddr.NewDetector(rec),
		now:         time.Now,
	}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// StartSession begins distance tracking for an employee.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	session, err := h.Tracker.Start(r.Context(), tracking.StartInput{
		EmployeeID:    trips.EmployeeID(req.EmployeeID),
		Purpose:       req.Purpose,
		StartOdometer: req.StartOdometer,
		Notes:         req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, tracking.ErrSessionActive):
			writeError(w, http.StatusConflict, "A tracking session is already active", err)
		case errors.Is(err, tracking.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "Positioning permission denied", err)
		case errors.Is(err, tracking.ErrLocationUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Current position unavailable", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to start session", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, h.toSessionDTO(session))
}

// GetSession returns the active session snapshot for an employee.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Tracker.ActiveSession(trips.EmployeeID(chi.URLParam(r, "employeeID")))
	if !ok {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.toSessionDTO(session))
}

// FeedSample processes one position fix for the active session.
func (h *Handler) FeedSample(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Tracker.ActiveSession(trips.EmployeeID(chi.URLParam(r, "employeeID")))
	if !ok {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}

	var req SampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timestamp (use RFC3339)", err)
		return
	}

	h.Tracker.Process(session, tracking.LocationSample{
		Point:     geo.Point{Lat: req.Latitude, Lon: req.Longitude},
		Timestamp: at,
	})

	writeJSON(w, http.StatusOK, h.toSessionDTO(session))
}

// StopSession closes the active session and persists it as a trip record.
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Tracker.ActiveSession(trips.EmployeeID(chi.URLParam(r, "employeeID")))
	if !ok {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}

	closed := h.Tracker.Stop(r.Context(), session)
	if closed == nil {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}

	if err := h.Store.SaveTrip(r.Context(), closed.ToTripRecord()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trip", err)
		return
	}

	writeJSON(w, http.StatusOK, toClosedSessionDTO(*closed))
}

// CancelSession discards the active session without saving a trip.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Tracker.ActiveSession(trips.EmployeeID(chi.URLParam(r, "employeeID")))
	if !ok {
		writeError(w, http.StatusNotFound, "No active session", nil)
		return
	}
	h.Tracker.Cancel(session)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRIP HANDLERS
// =============================================================================

// ListTrips returns an employee's trip history, optionally bounded by
// from/to dates (YYYY-MM-DD).
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee_id")
	if employee == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	var rng trips.DateRange
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
		rng.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
		rng.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	records, err := h.Store.Trips(r.Context(), trips.EmployeeID(employee), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list trips", err)
		return
	}

	dtos := make([]TripDTO, len(records))
	for i, rec := range records {
		dtos[i] = toTripDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTrip saves a manually entered trip record.
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := tripFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trip", err)
		return
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	if err := h.Store.SaveTrip(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save trip", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTripDTO(record))
}

// CheckDuplicate scores a candidate entry against same-day history.
// Advisory: the caller decides whether to block or warn.
func (h *Handler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req DuplicateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	candidate, err := tripFromRequest(req.Entry)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry", err)
		return
	}

	day := candidate.Date.UTC().Truncate(24 * time.Hour)
	history, err := h.Store.Trips(r.Context(), candidate.EmployeeID, trips.DateRange{
		From: day,
		To:   day.Add(24*time.Hour - time.Nanosecond),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	m := h.matcher
	if req.Mode == "lenient" {
		m = h.lenient
	}
	result := m.Evaluate(candidate, history)

	writeJSON(w, http.StatusOK, DuplicateCheckDTO{
		IsDuplicate:    result.IsDuplicate,
		Score:          result.Score,
		MatchedFactors: result.MatchedFactors,
		MatchedTripID:  result.MatchedTripID,
	})
}

// =============================================================================
// PER-DIEM HANDLERS
// =============================================================================

// EvaluateDay evaluates one day's activity against a cost center's rule.
func (h *Handler) EvaluateDay(w http.ResponseWriter, r *http.Request) {
	var req EvaluateDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.perdiem.EvaluateDay(r.Context(), trips.CostCenter(req.CostCenter), perdiem.DayInput{
		Date:             date,
		HoursWorked:      req.HoursWorked,
		MilesDriven:      req.MilesDriven,
		DistanceFromBase: req.DistanceFromBase,
	})
	if err != nil {
		if errors.Is(err, perdiem.ErrNoDefaultRule) {
			writeError(w, http.StatusNotFound, "No per-diem rule configured", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to evaluate day", err)
		return
	}

	writeJSON(w, http.StatusOK, toEligibilityDTO(date, result))
}

// EvaluateMonth aggregates an employee's trips for a month and evaluates
// each day, reporting earned and cap-clamped totals.
// GET /api/perdiem/month?employee_id=X&cost_center=Y&month=2026-03
func (h *Handler) EvaluateMonth(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee_id")
	month := r.URL.Query().Get("month")
	if employee == "" || month == "" {
		writeError(w, http.StatusBadRequest, "employee_id and month are required", nil)
		return
	}
	first, err := time.Parse("2006-01", month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	records, err := h.Store.Trips(r.Context(), trips.EmployeeID(employee), trips.DateRange{
		From: first,
		To:   first.AddDate(0, 1, 0).Add(-time.Nanosecond),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load trips", err)
		return
	}

	days := perdiem.DayInputsFromTrips(records)
	summary, err := h.perdiem.EvaluateMonth(r.Context(), trips.CostCenter(r.URL.Query().Get("cost_center")), days)
	if err != nil {
		if errors.Is(err, perdiem.ErrNoDefaultRule) {
			writeError(w, http.StatusNotFound, "No per-diem rule configured", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to evaluate month", err)
		return
	}

	dto := MonthSummaryDTO{
		Month:         month,
		Days:          make([]EligibilityDTO, len(summary.Days)),
		UncappedTotal: summary.UncappedTotal.StringFixed(2),
		CappedTotal:   summary.CappedTotal.StringFixed(2),
		MonthlyCap:    summary.MonthlyCap.StringFixed(2),
	}
	for i, d := range summary.Days {
		dto.Days[i] = toEligibilityDTO(d.Date, d.Result)
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// COST CENTER HANDLERS
// =============================================================================

// SuggestCostCenter runs the fallback chain for an entry being composed.
func (h *Handler) SuggestCostCenter(w http.ResponseWriter, r *http.Request) {
	var req SuggestCostCenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	history, err := h.loadHistory(r.Context(), trips.EmployeeID(req.EmployeeID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	suggestion := h.recommender.Suggest(recommend.Input{
		Employee:        trips.EmployeeID(req.EmployeeID),
		Destination:     req.Destination,
		Purpose:         req.Purpose,
		ReceiptCategory: req.ReceiptCategory,
		Screen:          trips.Screen(req.Screen),
	}, history)

	writeJSON(w, http.StatusOK, SuggestionDTO{
		Value:      string(suggestion.Value),
		Confidence: suggestion.Confidence,
		Reasoning:  suggestion.Reasoning,
	})
}

// RecordCostCenterUse records a committed cost center choice for the
// screen-recency signal.
func (h *Handler) RecordCostCenterUse(w http.ResponseWriter, r *http.Request) {
	var req RecordUseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.CostCenter == "" {
		writeError(w, http.StatusBadRequest, "employee_id and cost_center are required", nil)
		return
	}

	h.recommender.RecordUse(trips.EmployeeID(req.EmployeeID), trips.Screen(req.Screen), trips.CostCenter(req.CostCenter))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadHistory(ctx context.Context, employee trips.EmployeeID) (recommend.History, error) {
	var hist recommend.History
	var err error
	if hist.Trips, err = h.Store.Trips(ctx, employee, trips.DateRange{}); err != nil {
		return hist, fmt.Errorf("trips: %w", err)
	}
	if hist.Receipts, err = h.Store.Receipts(ctx, employee, trips.DateRange{}); err != nil {
		return hist, fmt.Errorf("receipts: %w", err)
	}
	if hist.TimeEntries, err = h.Store.TimeEntries(ctx, employee, trips.DateRange{}); err != nil {
		return hist, fmt.Errorf("time entries: %w", err)
	}
	if hist.Profile, err = h.Store.Profile(ctx, employee); err != nil {
		return hist, fmt.Errorf("profile: %w", err)
	}
	return hist, nil
}

// =============================================================================
// BASE ADDRESS HANDLERS
// =============================================================================

// BaseAddressSuggestion reports the dominant non-base start location and
// whether the client should surface an update prompt now.
// GET /api/base-address/suggestion?employee_id=X
func (h *Handler) BaseAddressSuggestion(w http.ResponseWriter, r *http.Request) {
	employee := r.URL.Query().Get("employee_id")
	if employee == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	history, err := h.Store.Trips(r.Context(), trips.EmployeeID(employee), trips.DateRange{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load trips", err)
		return
	}
	profile, err := h.Store.Profile(r.Context(), trips.EmployeeID(employee))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}

	detection := h.detector.Detect(history, profile.BaseAddress)

	prompt := false
	if detection.ShouldSuggest {
		lastPrompt, hasPrompted, err := h.Store.LastPrompt(r.Context(), trips.EmployeeID(employee))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load prompt log", err)
			return
		}
		prompt = baseaddr.ShouldPrompt(lastPrompt, hasPrompted, detection.TotalTrips, h.now())
	}

	writeJSON(w, http.StatusOK, BaseAddressDTO{
		ShouldSuggest: detection.ShouldSuggest,
		ShouldPrompt:  prompt,
		TopLocation:   detection.TopLocation,
		Count:         detection.Count,
		TotalTrips:    detection.TotalTrips,
		Frequency:     detection.Frequency,
		Reasoning:     detection.Reasoning,
	})
}

// RecordPrompt records that a base address prompt was shown, starting
// the cooldown.
func (h *Handler) RecordPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	if err := h.Store.RecordPrompt(r.Context(), trips.EmployeeID(req.EmployeeID), h.now()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) toSessionDTO(s *tracking.ActiveSession) SessionDTO {
	snap := s.Snapshot()
	dto := toClosedSessionDTO(snap)
	dto.Stationary = h.Tracker.StationaryTooLong(s)
	return dto
}

func toClosedSessionDTO(s tracking.TrackingSession) SessionDTO {
	dto := SessionDTO{
		ID:            s.ID,
		EmployeeID:    string(s.EmployeeID),
		StartTime:     s.StartTime.Format(time.RFC3339),
		StartLocation: s.StartLocation,
		EndLocation:   s.EndLocation,
		DistanceMiles: s.CumulativeDistanceMiles,
		IsActive:      s.IsActive,
		Purpose:       s.Purpose,
	}
	if !s.EndTime.IsZero() {
		dto.EndTime = s.EndTime.Format(time.RFC3339)
	}
	return dto
}

func toTripDTO(rec trips.TripRecord) TripDTO {
	return TripDTO{
		ID:            rec.ID,
		EmployeeID:    string(rec.EmployeeID),
		Date:          rec.Date.Format(time.RFC3339),
		StartLocation: rec.StartLocation,
		EndLocation:   rec.EndLocation,
		Purpose:       rec.Purpose,
		Miles:         rec.Miles,
		HoursWorked:   rec.HoursWorked,
		CostCenter:    string(rec.CostCenter),
	}
}

func tripFromRequest(req CreateTripRequest) (trips.TripRecord, error) {
	if req.EmployeeID == "" {
		return trips.TripRecord{}, fmt.Errorf("employee_id is required")
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("invalid date (use RFC3339): %w", err)
	}
	return trips.TripRecord{
		ID:            req.ID,
		EmployeeID:    trips.EmployeeID(req.EmployeeID),
		Date:          date,
		StartLocation: req.StartLocation,
		EndLocation:   req.EndLocation,
		Purpose:       req.Purpose,
		Miles:         req.Miles,
		HoursWorked:   req.HoursWorked,
		CostCenter:    trips.CostCenter(req.CostCenter),
	}, nil
}

func toEligibilityDTO(date time.Time, result perdiem.EligibilityResult) EligibilityDTO {
	dto := EligibilityDTO{
		Date:       date.Format("2006-01-02"),
		IsEligible: result.IsEligible,
		Amount:     result.Amount.StringFixed(2),
		RuleUsed:   string(result.RuleUsed),
	}
	for _, u := range result.UnmetReasons {
		dto.UnmetReasons = append(dto.UnmetReasons, UnmetCriterionDTO{
			Name:      u.Name,
			Measured:  u.Measured,
			Required:  u.Required,
			Shortfall: u.Shortfall,
		})
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
