/*
Package factory provides JSON to Go per-diem rule conversion.

PURPOSE:
  Converts JSON rule definitions into perdiem.PerDiemRule values. This
  enables rule configuration without code changes - finance can define
  cost-center rules in JSON, and the factory creates the proper Go
  structs.

JSON SCHEMA:
  {
    "default_rule": "CC-STANDARD",
    "rules": [
      {
        "cost_center": "CC-STANDARD",
        "max_amount_per_day": "35.00",
        "min_hours": 8,
        "min_miles": 100,
        "min_distance_from_base": 50,
        "monthly_cap": "350.00"
      }
    ]
  }

  Money fields are JSON strings and parsed as decimals; a money field in
  binary floating point would be rejected in review, so the schema never
  allows one.

KEY FEATURES:
  - Validates structure (default rule must exist in the rule list)
  - Money parsed via decimal.NewFromString, errors surfaced per field

USAGE:
  f := factory.NewRuleFactory()
  set, err := f.ParseRuleSet(jsonBytes)
  // set.Rules, set.Default ready for a RuleStore

SEE ALSO:
  - perdiem/rules.go: PerDiemRule type and RuleStore contract
  - store/memory.go: Accepts a parsed RuleSet directly
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/trip-insight-engine/perdiem"
	"github.com/warp/trip-insight-engine/trips"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleSetJSON is the JSON representation of a complete rule configuration.
type RuleSetJSON struct {
	DefaultRule string     `json:"default_rule"`
	Rules       []RuleJSON `json:"rules"`
}

// RuleJSON is the JSON representation of one per-diem rule.
type RuleJSON struct {
	CostCenter          string  `json:"cost_center"`
	MaxAmountPerDay     string  `json:"max_amount_per_day"`
	MinHours            float64 `json:"min_hours"`
	MinMiles            float64 `json:"min_miles"`
	MinDistanceFromBase float64 `json:"min_distance_from_base"`
	MonthlyCap          string  `json:"monthly_cap"`
}

// RuleSet is the parsed configuration.
type RuleSet struct {
	Rules   map[trips.CostCenter]perdiem.PerDiemRule
	Default perdiem.PerDiemRule
}

// =============================================================================
// FACTORY
// =============================================================================

// RuleFactory converts JSON rule configurations.
type RuleFactory struct{}

// NewRuleFactory creates a rule factory.
func NewRuleFactory() *RuleFactory { return &RuleFactory{} }

// ParseRuleSet converts a JSON document into a RuleSet.
func (f *RuleFactory) ParseRuleSet(data []byte) (*RuleSet, error) {
	var doc RuleSetJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid rule set JSON: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rule set defines no rules")
	}
	if doc.DefaultRule == "" {
		return nil, fmt.Errorf("rule set missing default_rule")
	}

	set := &RuleSet{Rules: make(map[trips.CostCenter]perdiem.PerDiemRule, len(doc.Rules))}
	for i, rj := range doc.Rules {
		rule, err := f.parseRule(rj)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rj.CostCenter, err)
		}
		set.Rules[rule.CostCenter] = rule
	}

	def, ok := set.Rules[trips.CostCenter(doc.DefaultRule)]
	if !ok {
		return nil, fmt.Errorf("default_rule %q is not in the rule list", doc.DefaultRule)
	}
	set.Default = def
	return set, nil
}

func (f *RuleFactory) parseRule(rj RuleJSON) (perdiem.PerDiemRule, error) {
	if rj.CostCenter == "" {
		return perdiem.PerDiemRule{}, fmt.Errorf("missing cost_center")
	}
	daily, err := decimal.NewFromString(rj.MaxAmountPerDay)
	if err != nil {
		return perdiem.PerDiemRule{}, fmt.Errorf("max_amount_per_day: %w", err)
	}
	monthlyCap, err := decimal.NewFromString(rj.MonthlyCap)
	if err != nil {
		return perdiem.PerDiemRule{}, fmt.Errorf("monthly_cap: %w", err)
	}
	return perdiem.PerDiemRule{
		CostCenter:          trips.CostCenter(rj.CostCenter),
		MaxAmountPerDay:     daily,
		MinHours:            rj.MinHours,
		MinMiles:            rj.MinMiles,
		MinDistanceFromBase: rj.MinDistanceFromBase,
		MonthlyCap:          monthlyCap,
	}, nil
}
