/*
rules.go - Per-diem rule configuration

PURPOSE:
  A PerDiemRule is the per-cost-center contract for daily allowances:
  the thresholds a day must clear and the daily/monthly money limits.
  Rules are configuration data looked up by cost center; a designated
  default rule applies when a cost center has no rule of its own, so a
  missing rule is never an error.

MONEY:
  Amounts use decimal.Decimal. Allowances are payroll figures; binary
  floating point is not acceptable for them.

SEE ALSO:
  - engine.go: Evaluates days and months against these rules
  - factory/rules.go: Builds rule sets from JSON
*/
package perdiem

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warp/trip-insight-engine/trips"
)

// ErrNoDefaultRule is returned by rule stores that have not been
// configured with a designated default rule.
var ErrNoDefaultRule = errors.New("no default per-diem rule configured")

// PerDiemRule holds the eligibility thresholds and money limits for one
// cost center.
type PerDiemRule struct {
	CostCenter trips.CostCenter

	// MaxAmountPerDay is both the daily allowance and its ceiling.
	MaxAmountPerDay decimal.Decimal

	// Eligibility thresholds. Hours must always be met; miles and
	// distance-from-base are alternatives (either satisfies the rule).
	MinHours            float64
	MinMiles            float64
	MinDistanceFromBase float64

	// MonthlyCap clamps the payable total across a month. Individual day
	// amounts are never retroactively reduced.
	MonthlyCap decimal.Decimal
}

// RuleStore resolves per-diem rules by cost center.
type RuleStore interface {
	// Rule returns the rule for a cost center; ok=false when the cost
	// center has no dedicated rule.
	Rule(ctx context.Context, cc trips.CostCenter) (PerDiemRule, bool, error)

	// DefaultRule returns the designated default rule.
	DefaultRule(ctx context.Context) (PerDiemRule, error)
}
