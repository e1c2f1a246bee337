/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts cross the wire as decimal strings ("35.00"), never floats.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Route definitions
*/
package api

// =============================================================================
// SESSION TYPES
// =============================================================================

// StartSessionRequest begins distance tracking for an employee.
type StartSessionRequest struct {
	EmployeeID    string  `json:"employee_id"`
	Purpose       string  `json:"purpose,omitempty"`
	StartOdometer float64 `json:"start_odometer,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// SampleRequest feeds one position fix into an active session.
type SampleRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"` // RFC3339
}

// SessionDTO represents a tracking session in API responses.
type SessionDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time,omitempty"`
	StartLocation string  `json:"start_location"`
	EndLocation   string  `json:"end_location,omitempty"`
	DistanceMiles float64 `json:"distance_miles"`
	IsActive      bool    `json:"is_active"`
	Purpose       string  `json:"purpose,omitempty"`
	Stationary    bool    `json:"stationary,omitempty"`
}

// =============================================================================
// TRIP TYPES
// =============================================================================

// TripDTO represents a saved trip record.
type TripDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	Date          string  `json:"date"`
	StartLocation string  `json:"start_location"`
	EndLocation   string  `json:"end_location"`
	Purpose       string  `json:"purpose,omitempty"`
	Miles         float64 `json:"miles"`
	HoursWorked   float64 `json:"hours_worked,omitempty"`
	CostCenter    string  `json:"cost_center,omitempty"`
}

// CreateTripRequest saves a trip entered manually or from a stopped
// session.
type CreateTripRequest struct {
	ID            string  `json:"id,omitempty"`
	EmployeeID    string  `json:"employee_id"`
	Date          string  `json:"date"` // RFC3339
	StartLocation string  `json:"start_location"`
	EndLocation   string  `json:"end_location"`
	Purpose       string  `json:"purpose,omitempty"`
	Miles         float64 `json:"miles"`
	HoursWorked   float64 `json:"hours_worked,omitempty"`
	CostCenter    string  `json:"cost_center,omitempty"`
}

// DuplicateCheckRequest asks whether a candidate entry duplicates an
// existing same-day entry.
type DuplicateCheckRequest struct {
	Entry CreateTripRequest `json:"entry"`
	Mode  string            `json:"mode,omitempty"` // "strict" (default) or "lenient"
}

// DuplicateCheckDTO is the advisory duplicate verdict.
type DuplicateCheckDTO struct {
	IsDuplicate    bool     `json:"is_duplicate"`
	Score          float64  `json:"score"`
	MatchedFactors []string `json:"matched_factors"`
	MatchedTripID  string   `json:"matched_trip_id,omitempty"`
}

// =============================================================================
// PER-DIEM TYPES
// =============================================================================

// EvaluateDayRequest evaluates one day's activity against a cost
// center's rule.
type EvaluateDayRequest struct {
	CostCenter       string  `json:"cost_center"`
	Date             string  `json:"date"` // YYYY-MM-DD
	HoursWorked      float64 `json:"hours_worked"`
	MilesDriven      float64 `json:"miles_driven"`
	DistanceFromBase float64 `json:"distance_from_base,omitempty"`
}

// UnmetCriterionDTO describes one failed eligibility threshold.
type UnmetCriterionDTO struct {
	Name      string  `json:"name"`
	Measured  float64 `json:"measured"`
	Required  float64 `json:"required"`
	Shortfall float64 `json:"shortfall"`
}

// EligibilityDTO is the per-day verdict.
type EligibilityDTO struct {
	Date         string              `json:"date,omitempty"`
	IsEligible   bool                `json:"is_eligible"`
	Amount       string              `json:"amount"`
	UnmetReasons []UnmetCriterionDTO `json:"unmet_reasons,omitempty"`
	RuleUsed     string              `json:"rule_used"`
}

// MonthSummaryDTO reports a month of per-diem evaluation with both the
// earned and the cap-clamped totals.
type MonthSummaryDTO struct {
	Month         string           `json:"month"`
	Days          []EligibilityDTO `json:"days"`
	UncappedTotal string           `json:"uncapped_total"`
	CappedTotal   string           `json:"capped_total"`
	MonthlyCap    string           `json:"monthly_cap"`
}

// =============================================================================
// COST CENTER TYPES
// =============================================================================

// SuggestCostCenterRequest asks for a cost center suggestion for an
// entry being composed.
type SuggestCostCenterRequest struct {
	EmployeeID      string `json:"employee_id"`
	Destination     string `json:"destination,omitempty"`
	Purpose         string `json:"purpose,omitempty"`
	ReceiptCategory string `json:"receipt_category,omitempty"`
	Screen          string `json:"screen,omitempty"`
}

// SuggestionDTO is the advisory cost center suggestion.
type SuggestionDTO struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// RecordUseRequest reports that the caller committed an entry with a
// cost center, feeding the screen-recency signal.
type RecordUseRequest struct {
	EmployeeID string `json:"employee_id"`
	Screen     string `json:"screen"`
	CostCenter string `json:"cost_center"`
}

// =============================================================================
// BASE ADDRESS TYPES
// =============================================================================

// BaseAddressDTO reports the dominant start location and whether the
// client should surface an update prompt now.
type BaseAddressDTO struct {
	ShouldSuggest bool    `json:"should_suggest"`
	ShouldPrompt  bool    `json:"should_prompt"`
	TopLocation   string  `json:"top_location,omitempty"`
	Count         int     `json:"count"`
	TotalTrips    int     `json:"total_trips"`
	Frequency     float64 `json:"frequency"`
	Reasoning     string  `json:"reasoning"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
