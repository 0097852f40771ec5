// Package riskpolicy validates strategy configuration before a run starts:
// per-position sizing/rebalance/hard-stop bounds and overall allocation
// sanity, surfaced as typed Violations rather than ad-hoc error strings.
package riskpolicy

import (
	"fmt"
	"strings"
)

// ViolationCode is a machine-readable identifier for a specific
// configuration breach.
type ViolationCode string

const (
	ViolationPctPortfolioOutOfRange ViolationCode = "PCT_PORTFOLIO_OUT_OF_RANGE"
	ViolationNegativeRebalance      ViolationCode = "NEGATIVE_REBALANCE"
	ViolationHardStopOutOfRange     ViolationCode = "HARD_STOP_OUT_OF_RANGE"
	ViolationAllocationNonPositive  ViolationCode = "ALLOCATION_NON_POSITIVE"
	ViolationEmptySymbol            ViolationCode = "EMPTY_SYMBOL"
)

// Violation describes a single configuration breach.
type Violation struct {
	Code     ViolationCode
	Message  string
	Limit    float64
	Observed float64
}

func (v Violation) Error() string {
	return fmt.Sprintf("riskpolicy violation [%s]: %s (limit=%.4f, observed=%.4f)", v.Code, v.Message, v.Limit, v.Observed)
}

// Violations is a slice of Violation that also satisfies the error
// interface, so a validation pass can return one value whether it found
// zero, one, or many breaches.
type Violations []Violation

func (vs Violations) Error() string {
	msgs := make([]string, len(vs))
	for i, v := range vs {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, " | ")
}

// IsEmpty reports whether there are no violations.
func (vs Violations) IsEmpty() bool { return len(vs) == 0 }

// CheckPosition validates one symbol's position sizing config: pct of
// portfolio in (0, 1], rebalance interval non-negative, hard stop in
// [0, 1), symbol non-empty.
func CheckPosition(symbol string, pctPortfolio float64, rebalance int, hardStop float64) Violations {
	var vs Violations

	if symbol == "" {
		vs = append(vs, Violation{Code: ViolationEmptySymbol, Message: "position symbol must not be empty"})
	}
	if pctPortfolio <= 0 || pctPortfolio > 1 {
		vs = append(vs, Violation{Code: ViolationPctPortfolioOutOfRange, Message: fmt.Sprintf("%s: pct_portfolio must be in (0, 1]", symbol), Limit: 1, Observed: pctPortfolio})
	}
	if rebalance < 0 {
		vs = append(vs, Violation{Code: ViolationNegativeRebalance, Message: fmt.Sprintf("%s: rebalance must be >= 0", symbol), Observed: float64(rebalance)})
	}
	if hardStop < 0 || hardStop >= 1 {
		vs = append(vs, Violation{Code: ViolationHardStopOutOfRange, Message: fmt.Sprintf("%s: hard_stop must be in [0, 1)", symbol), Limit: 1, Observed: hardStop})
	}
	return vs
}

// CheckAllocation validates the strategy's total dollar allocation.
func CheckAllocation(allocation float64) Violations {
	if allocation <= 0 {
		return Violations{{Code: ViolationAllocationNonPositive, Message: "allocation must be > 0", Observed: allocation}}
	}
	return nil
}
