package waterfall

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALLOCATION STATE - Threaded between tier processors
// =============================================================================

// allocationState is the running position of the waterfall. Each processor
// receives a copy and returns the next state; nothing is shared.
type allocationState struct {
	remaining decimal.Decimal
	cumLP     decimal.Decimal
	cumGP     decimal.Decimal
	rocLP     decimal.Decimal
	rocGP     decimal.Decimal
}

func newState(total decimal.Decimal) allocationState {
	return allocationState{
		remaining: total,
		cumLP:     decimal.Zero,
		cumGP:     decimal.Zero,
		rocLP:     decimal.Zero,
		rocGP:     decimal.Zero,
	}
}

// pay moves lp and gp out of the pool.
func (s allocationState) pay(lp, gp decimal.Decimal) allocationState {
	s.remaining = s.remaining.Sub(lp).Sub(gp)
	s.cumLP = s.cumLP.Add(lp)
	s.cumGP = s.cumGP.Add(gp)
	return s
}

// profit is what has been paid beyond returned capital.
func (s allocationState) profit() (lp, gp decimal.Decimal) {
	return s.cumLP.Sub(s.rocLP), s.cumGP.Sub(s.rocGP)
}

// =============================================================================
// TIER PROCESSORS
// =============================================================================

// tierProcessor is one state of the waterfall. It consumes part of the pool
// and reports what it paid. Cumulative figures, IRRs and multiples are filled
// in by the engine when the result is recorded.
type tierProcessor interface {
	allocate(rc *runContext, st allocationState) (TierResult, allocationState)
}

// splitResult builds the common fields of a tier result.
func splitResult(kind TierKind, name string, lp, gp decimal.Decimal) TierResult {
	amount := lp.Add(gp)
	return TierResult{
		Kind:                kind,
		Name:                name,
		DistributableAmount: amount,
		LPDistribution:      lp,
		GPDistribution:      gp,
		LPSplit:             ratio(lp, amount),
		GPSplit:             ratio(gp, amount),
		GPPromote:           decimal.Zero,
	}
}

// returnOfCapital pays each class pro-rata, capped at its contributed equity.
// A pool covering total equity repays both classes exactly.
type returnOfCapital struct{}

func (returnOfCapital) allocate(rc *runContext, st allocationState) (TierResult, allocationState) {
	capital := rc.input.Capital
	total := capital.TotalEquity()

	lp, gp := capital.LPEquity, capital.GPEquity
	if st.remaining.LessThan(total) {
		// Multiply before dividing so the quotient is the only rounding.
		lp = st.remaining.Mul(capital.LPEquity).Div(total)
		gp = decimal.Min(st.remaining.Sub(lp), capital.GPEquity)
	}

	next := st.pay(lp, gp)
	next.rocLP = next.rocLP.Add(lp)
	next.rocGP = next.rocGP.Add(gp)

	res := splitResult(TierReturnOfCapital, "Return of Capital", lp, gp)
	res.HurdleMet = true
	return res, next
}

// preferredReturn pays accrued pref, split by each class's owed amount.
type preferredReturn struct{}

func (preferredReturn) allocate(rc *runContext, st allocationState) (TierResult, allocationState) {
	lpOwed, gpOwed := prefOwed(rc.pref, rc.input.Capital, rc.input.HoldYears)
	owed := lpOwed.Add(gpOwed)

	lp, gp := decimal.Zero, decimal.Zero
	switch {
	case !owed.IsPositive():
	case st.remaining.GreaterThanOrEqual(owed):
		lp, gp = lpOwed, gpOwed
	default:
		lp = st.remaining.Mul(lpOwed).Div(owed)
		gp = st.remaining.Sub(lp)
	}

	res := splitResult(TierPreferredReturn, "Preferred Return", lp, gp)
	res.HurdleMet = st.remaining.GreaterThanOrEqual(owed)
	return res, st.pay(lp, gp)
}

// gpCatchUp pays the tranche X that lifts the GP to the target share of
// total profit, with p = catchUpGPPercent going to the GP:
//
//	(gpProfit + p*X) / (profit + X) = T  =>  X = (T*profit - gpProfit) / (p - T)
type gpCatchUp struct{}

func (gpCatchUp) allocate(rc *runContext, st allocationState) (TierResult, allocationState) {
	target := rc.pref.CatchUpTargetShare
	gpPct := rc.pref.CatchUpGPPercent

	lpProfit, gpProfit := st.profit()
	required := target.Mul(lpProfit.Add(gpProfit))

	var tranche decimal.Decimal
	switch {
	case gpProfit.GreaterThanOrEqual(required):
		tranche = decimal.Zero
	case gpPct.LessThanOrEqual(target):
		// The GP's marginal share never exceeds the target, so the share
		// only approaches it. The catch-up absorbs the pool.
		tranche = st.remaining
	default:
		tranche = required.Sub(gpProfit).Div(gpPct.Sub(target))
	}
	tranche = decimal.Min(tranche, st.remaining)

	gp := tranche.Mul(gpPct)
	lp := tranche.Sub(gp)

	res := splitResult(TierCatchUp, "GP Catch-Up", lp, gp)
	res.LPSplit = one.Sub(gpPct)
	res.GPSplit = gpPct
	res.GPPromote = gp
	next := st.pay(lp, gp)
	lpAfter, gpAfter := next.profit()
	res.HurdleMet = gpAfter.GreaterThanOrEqual(target.Mul(lpAfter.Add(gpAfter)).Sub(splitTolerance))
	return res, next
}

// promote pays a hurdle-gated split until the next tier's hurdle is reached.
// The last tier takes everything left.
type promote struct {
	tier preparedTier
	next *preparedTier
}

func (p promote) allocate(rc *runContext, st allocationState) (TierResult, allocationState) {
	capital := rc.input.Capital
	hold := rc.input.HoldYears

	amount := st.remaining
	if p.next != nil {
		amount = rc.hurdles.AmountToReachHurdle(p.next.PromoteTier, st.cumLP, capital.LPEquity, hold, st.remaining, p.tier.LPShare)
	}

	lp := amount.Mul(p.tier.LPShare)
	gp := amount.Sub(lp)

	res := splitResult(TierPromote, tierName(p.tier.PromoteTier), lp, gp)
	res.TierNumber = p.tier.TierNumber
	res.LPSplit = p.tier.LPShare
	res.GPSplit = p.tier.GPShare
	res.GPPromote = gp.Sub(amount.Mul(capital.GPShare()))
	res.HurdleMet = rc.hurdles.IsMet(p.tier.PromoteTier, st.cumLP, capital.LPEquity, hold)
	res.SplitNormalized = p.tier.normalized
	return res, st.pay(lp, gp)
}

// residual distributes whatever is left pro-rata when no promote tier exists.
type residual struct{}

func (residual) allocate(rc *runContext, st allocationState) (TierResult, allocationState) {
	lp := st.remaining.Mul(rc.input.Capital.LPShare())
	gp := st.remaining.Sub(lp)

	res := splitResult(TierResidual, "Residual", lp, gp)
	res.HurdleMet = true
	return res, st.pay(lp, gp)
}

func tierName(t PromoteTier) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("Tier %d", t.TierNumber)
}
