/*
engine.go - Per-diem eligibility evaluation

PURPOSE:
  Determines whether a worked day qualifies for a per-diem allowance and
  how much is payable across a month. Pure functions over aggregated day
  inputs and a resolved rule; safe for concurrent use.

ELIGIBILITY:
  A day qualifies when ALL of:
    hours >= rule.MinHours
    AND (miles >= rule.MinMiles OR distanceFromBase >= rule.MinDistanceFromBase)
  An ineligible day enumerates EVERY unmet criterion with its measured and
  required values, never a single generic failure.

MONTHLY CAP:
  The month summary reports both the uncapped sum of eligible day amounts
  ("earned") and the cap-clamped total ("payable"). Day amounts are never
  retroactively reduced; only the reported total is clamped.

SEE ALSO:
  - rules.go: PerDiemRule and RuleStore
*/
package perdiem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// INPUTS AND RESULTS
// =============================================================================

// DayInput is one day's aggregated activity.
type DayInput struct {
	Date             time.Time
	HoursWorked      float64
	MilesDriven      float64
	DistanceFromBase float64
}

// UnmetCriterion describes one failed threshold with its measured and
// required values.
type UnmetCriterion struct {
	Name      string
	Measured  float64
	Required  float64
	Shortfall float64
}

func (u UnmetCriterion) String() string {
	return fmt.Sprintf("%s: %.1f measured, %.1f required (short %.1f)",
		u.Name, u.Measured, u.Required, u.Shortfall)
}

// EligibilityResult is the verdict for a single day.
type EligibilityResult struct {
	IsEligible   bool
	Amount       decimal.Decimal
	UnmetReasons []UnmetCriterion
	RuleUsed     trips.CostCenter // which rule applied (default rule: its own cost center)
}

// DayResult pairs a day with its verdict inside a month summary.
type DayResult struct {
	Date   time.Time
	Result EligibilityResult
}

// MonthSummary reports a month of per-diem evaluation. UncappedTotal is
// what was earned; CappedTotal is what is payable after the monthly cap.
type MonthSummary struct {
	Days          []DayResult
	UncappedTotal decimal.Decimal
	CappedTotal   decimal.Decimal
	MonthlyCap    decimal.Decimal
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine evaluates per-diem eligibility against a rule store.
type Engine struct {
	rules RuleStore
}

// NewEngine creates an engine over the given rule store.
func NewEngine(rules RuleStore) *Engine {
	return &Engine{rules: rules}
}

// EvaluateDay resolves the cost center's rule (default when none matches)
// and evaluates one day against it.
func (e *Engine) EvaluateDay(ctx context.Context, cc trips.CostCenter, day DayInput) (EligibilityResult, error) {
	rule, err := e.resolveRule(ctx, cc)
	if err != nil {
		return EligibilityResult{}, err
	}
	return EvaluateAgainst(rule, day), nil
}

// EvaluateMonth evaluates every day against the cost center's rule and
// aggregates the totals under the monthly cap. Days are evaluated in
// date order.
func (e *Engine) EvaluateMonth(ctx context.Context, cc trips.CostCenter, days []DayInput) (MonthSummary, error) {
	rule, err := e.resolveRule(ctx, cc)
	if err != nil {
		return MonthSummary{}, err
	}

	ordered := make([]DayInput, len(days))
	copy(ordered, days)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	summary := MonthSummary{MonthlyCap: rule.MonthlyCap}
	uncapped := decimal.Zero
	for _, day := range ordered {
		r := EvaluateAgainst(rule, day)
		if r.IsEligible {
			uncapped = uncapped.Add(r.Amount)
		}
		summary.Days = append(summary.Days, DayResult{Date: day.Date, Result: r})
	}

	summary.UncappedTotal = uncapped
	summary.CappedTotal = uncapped
	if rule.MonthlyCap.IsPositive() && uncapped.GreaterThan(rule.MonthlyCap) {
		summary.CappedTotal = rule.MonthlyCap
	}
	return summary, nil
}

// resolveRule looks up the cost center's rule, falling back to the
// designated default when none matches.
func (e *Engine) resolveRule(ctx context.Context, cc trips.CostCenter) (PerDiemRule, error) {
	rule, ok, err := e.rules.Rule(ctx, cc)
	if err != nil {
		return PerDiemRule{}, err
	}
	if ok {
		return rule, nil
	}
	return e.rules.DefaultRule(ctx)
}

// =============================================================================
// PURE EVALUATION
// =============================================================================

// EvaluateAgainst applies one rule to one day. Pure; exported so callers
// holding a rule can evaluate without a store.
func EvaluateAgainst(rule PerDiemRule, day DayInput) EligibilityResult {
	var unmet []UnmetCriterion

	if day.HoursWorked < rule.MinHours {
		unmet = append(unmet, UnmetCriterion{
			Name:      "hours_worked",
			Measured:  day.HoursWorked,
			Required:  rule.MinHours,
			Shortfall: rule.MinHours - day.HoursWorked,
		})
	}

	milesMet := day.MilesDriven >= rule.MinMiles
	distanceMet := day.DistanceFromBase >= rule.MinDistanceFromBase
	if !milesMet && !distanceMet {
		// Either alternative would have satisfied the rule, so both are
		// reported.
		unmet = append(unmet,
			UnmetCriterion{
				Name:      "miles_driven",
				Measured:  day.MilesDriven,
				Required:  rule.MinMiles,
				Shortfall: rule.MinMiles - day.MilesDriven,
			},
			UnmetCriterion{
				Name:      "distance_from_base",
				Measured:  day.DistanceFromBase,
				Required:  rule.MinDistanceFromBase,
				Shortfall: rule.MinDistanceFromBase - day.DistanceFromBase,
			},
		)
	}

	if len(unmet) > 0 {
		return EligibilityResult{
			IsEligible:   false,
			Amount:       decimal.Zero,
			UnmetReasons: unmet,
			RuleUsed:     rule.CostCenter,
		}
	}
	return EligibilityResult{
		IsEligible: true,
		Amount:     rule.MaxAmountPerDay,
		RuleUsed:   rule.CostCenter,
	}
}

// DayInputsFromTrips aggregates trip records into per-day inputs: hours
// and miles sum per calendar day. DistanceFromBase is left zero; deriving
// it requires geometry the historical record does not carry, so callers
// with a base-distance source fill it in afterwards.
func DayInputsFromTrips(records []trips.TripRecord) []DayInput {
	byDay := make(map[string]*DayInput)
	var order []string
	for _, rec := range records {
		day := rec.Date.UTC().Format("2006-01-02")
		in, ok := byDay[day]
		if !ok {
			start := rec.Date.UTC().Truncate(24 * time.Hour)
			in = &DayInput{Date: start}
			byDay[day] = in
			order = append(order, day)
		}
		in.HoursWorked += rec.HoursWorked
		in.MilesDriven += rec.Miles
	}

	sort.Strings(order)
	out := make([]DayInput, 0, len(order))
	for _, day := range order {
		out = append(out, *byDay[day])
	}
	return out
}
