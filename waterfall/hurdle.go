package waterfall

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HURDLE EVALUATOR
// =============================================================================

// irrHurdleTolerance absorbs solver noise when the LP sits exactly on a hurdle.
const irrHurdleTolerance = 1e-5

// HurdleEvaluator tests promote tier thresholds against the LP's position.
//
// The LP position is modelled as a two-point cash flow: -lpEquity at time 0
// and +cumulativeLP at holdYears.
type HurdleEvaluator struct {
	Solver IRRSolver
}

func NewHurdleEvaluator(solver IRRSolver) HurdleEvaluator {
	return HurdleEvaluator{Solver: solver}
}

// IsMet reports whether the LP has reached the tier's threshold.
// Tiers without a threshold, and deals without LP equity, are always met.
func (h HurdleEvaluator) IsMet(tier PromoteTier, cumulativeLP, lpEquity decimal.Decimal, holdYears float64) bool {
	irrSet, multSet := tier.usesIRR(), tier.usesMultiple()
	if !irrSet && !multSet {
		return true
	}
	if !lpEquity.IsPositive() {
		return true
	}

	irrOK := irrSet && h.irrMet(*tier.IRRHurdle, cumulativeLP, lpEquity, holdYears)
	multOK := multSet && ratio(cumulativeLP, lpEquity).GreaterThanOrEqual(*tier.MultipleHurdle)

	switch {
	case irrSet && multSet:
		if tier.HurdleLogic == LogicOr {
			return irrOK || multOK
		}
		return irrOK && multOK
	case irrSet:
		return irrOK
	default:
		return multOK
	}
}

func (h HurdleEvaluator) irrMet(hurdle float64, cumulativeLP, lpEquity decimal.Decimal, holdYears float64) bool {
	if !cumulativeLP.IsPositive() {
		return hurdle <= -1
	}
	if holdYears <= 0 {
		// No time has passed: only the return of capital is measurable.
		return cumulativeLP.GreaterThanOrEqual(lpEquity)
	}
	irr, err := h.Solver.Solve(twoPointFlows(lpEquity, cumulativeLP, holdYears))
	if err != nil {
		return false
	}
	return irr >= hurdle-irrHurdleTolerance
}

// AmountToReachHurdle returns the pool amount that, split at tierLPShare,
// lifts the LP to the target tier's threshold. The result is clamped to
// [0, remainingPool].
func (h HurdleEvaluator) AmountToReachHurdle(target PromoteTier, cumulativeLP, lpEquity decimal.Decimal, holdYears float64, remainingPool, tierLPShare decimal.Decimal) decimal.Decimal {
	if !remainingPool.IsPositive() {
		return decimal.Zero
	}
	irrSet, multSet := target.usesIRR(), target.usesMultiple()
	if (!irrSet && !multSet) || !lpEquity.IsPositive() {
		return decimal.Zero
	}

	var needs []decimal.Decimal
	if irrSet {
		needs = append(needs, lpNeedForIRR(*target.IRRHurdle, cumulativeLP, lpEquity, holdYears))
	}
	if multSet {
		needs = append(needs, lpEquity.Mul(*target.MultipleHurdle).Sub(cumulativeLP))
	}

	need := needs[0]
	if len(needs) == 2 {
		if target.HurdleLogic == LogicOr {
			need = decimal.Min(needs[0], needs[1])
		} else {
			need = decimal.Max(needs[0], needs[1])
		}
	}

	if !need.IsPositive() {
		return decimal.Zero
	}
	if !tierLPShare.IsPositive() {
		// The LP never receives anything from this tier, so the hurdle is
		// unreachable and the tier absorbs the pool.
		return remainingPool
	}
	return clampDec(need.Div(tierLPShare), decimal.Zero, remainingPool)
}

// lpNeedForIRR inverts the two-point IRR: the LP needs
// lpEquity*(1+r)^T in total to earn r over T years.
func lpNeedForIRR(rate float64, cumulativeLP, lpEquity decimal.Decimal, holdYears float64) decimal.Decimal {
	growth := math.Pow(1+rate, holdYears)
	required := lpEquity.Mul(decimal.NewFromFloat(growth))
	return required.Sub(cumulativeLP)
}

func twoPointFlows(equity, distributed decimal.Decimal, holdYears float64) []CashFlowPoint {
	return []CashFlowPoint{
		{Period: 0, Amount: equity.Neg()},
		{Period: holdYears, Amount: distributed},
	}
}
