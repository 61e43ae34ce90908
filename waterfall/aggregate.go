package waterfall

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT AGGREGATOR
// =============================================================================

// ResultAggregator rolls the tier ledger up into LP, GP and project views.
// Every figure is derived from the ledger and the input; nothing is stored.
type ResultAggregator struct {
	Solver IRRSolver
}

// Aggregate builds the Result for a finished ledger.
func (a ResultAggregator) Aggregate(in Input, tiers []TierResult) *Result {
	ledger := &TierLedger{entries: tiers}
	lpDist, gpDist := ledger.Distributed()

	lpSeries := PartySeries(in.Capital.LPEquity, lpDist, in.HoldYears, in.CashFlows)
	gpSeries := PartySeries(in.Capital.GPEquity, gpDist, in.HoldYears, in.CashFlows)
	projectSeries := mergeSeries(lpSeries, gpSeries)

	result := &Result{Tiers: tiers}

	result.LPSummary = a.party(in.Capital.LPEquity, lpDist, lpSeries, in.HoldYears, "lp", &result.Warnings)
	result.GPSummary = a.party(in.Capital.GPEquity, gpDist, gpSeries, in.HoldYears, "gp", &result.Warnings)

	result.LPSummary.ReturnOfCapital, result.GPSummary.ReturnOfCapital = ledger.TotalByKind(TierReturnOfCapital)
	result.LPSummary.PreferredReturn, result.GPSummary.PreferredReturn = ledger.TotalByKind(TierPreferredReturn)
	result.LPSummary.CatchUp, result.GPSummary.CatchUp = ledger.TotalByKind(TierCatchUp)
	result.GPSummary.Promote = ledger.TotalPromote()

	result.ProjectSummary = a.project(in, result.LPSummary, result.GPSummary, projectSeries, &result.Warnings)
	result.DistributionSchedule = schedule(lpSeries, gpSeries)
	return result
}

func (a ResultAggregator) party(equity, distributed decimal.Decimal, series []CashFlowPoint, hold float64, class string, warnings *[]Warning) PartySummary {
	s := PartySummary{
		Invested:        equity,
		Distributed:     distributed,
		Profit:          distributed.Sub(equity),
		EquityMultiple:  ratio(distributed, equity),
		ReturnOfCapital: decimal.Zero,
		PreferredReturn: decimal.Zero,
		CatchUp:         decimal.Zero,
		Promote:         decimal.Zero,
		PaybackPeriod:   PaybackPeriod(series, equity),
	}
	if equity.IsPositive() {
		s.IRR = a.seriesIRR(series, class+" summary irr", warnings)
	}
	return s
}

func (a ResultAggregator) project(in Input, lp, gp PartySummary, series []CashFlowPoint, warnings *[]Warning) ProjectSummary {
	invested := lp.Invested.Add(gp.Invested)
	distributed := lp.Distributed.Add(gp.Distributed)
	profit := distributed.Sub(invested)

	ps := ProjectSummary{
		TotalInvested:    invested,
		TotalDistributed: distributed,
		TotalProfit:      profit,
		EquityMultiple:   ratio(distributed, invested),
		TotalPromote:     gp.Promote,
		LPProfitShare:    decimal.Zero,
		GPProfitShare:    decimal.Zero,
	}
	if profit.IsPositive() {
		ps.LPProfitShare = lp.Profit.Div(profit)
		ps.GPProfitShare = one.Sub(ps.LPProfitShare)
	}
	if invested.IsPositive() {
		ps.IRR = a.seriesIRR(series, "project irr", warnings)
	}
	return ps
}

// seriesIRR solves a summary series. Series collapsed onto a single period
// have no rate and report nil.
func (a ResultAggregator) seriesIRR(series []CashFlowPoint, what string, warnings *[]Warning) *float64 {
	if !spansTime(series) {
		return nil
	}
	irr, err := solveOrNil(a.Solver.withDefaults(), series)
	if err != nil {
		*warnings = append(*warnings, Warning{Code: WarnNoConvergence, Message: fmt.Sprintf("%s: %v", what, err)})
	}
	return irr
}

func spansTime(series []CashFlowPoint) bool {
	for _, cf := range series {
		if cf.Period != series[0].Period {
			return true
		}
	}
	return false
}

// =============================================================================
// CASH FLOW SERIES
// =============================================================================

// PartySeries builds one class's cash flows.
//
// Without project flows: -equity at 0 and +distributed at holdYears.
// With project flows: the equity is spread over the contributions and the
// distributions over the positive flows, each in proportion to its weight.
// Missing sides fall back to the two-point placement.
func PartySeries(equity, distributed decimal.Decimal, holdYears float64, project []CashFlowPoint) []CashFlowPoint {
	var contributions, distributions []CashFlowPoint
	for _, cf := range project {
		switch {
		case cf.Amount.IsNegative():
			contributions = append(contributions, CashFlowPoint{Period: cf.Period, Amount: cf.Amount.Neg()})
		case cf.Amount.IsPositive():
			distributions = append(distributions, cf)
		}
	}

	var series []CashFlowPoint
	if equity.IsPositive() {
		if len(contributions) == 0 {
			contributions = []CashFlowPoint{{Period: 0, Amount: one}}
		}
		for _, cf := range apportion(equity, contributions) {
			series = append(series, CashFlowPoint{Period: cf.Period, Amount: cf.Amount.Neg()})
		}
	}
	if distributed.IsPositive() {
		if len(distributions) == 0 {
			distributions = []CashFlowPoint{{Period: holdYears, Amount: one}}
		}
		series = append(series, apportion(distributed, distributions)...)
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Period < series[j].Period })
	return series
}

// apportion spreads total over weights. The last point takes the remainder
// so the parts sum to total exactly.
func apportion(total decimal.Decimal, weights []CashFlowPoint) []CashFlowPoint {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w.Amount)
	}
	out := make([]CashFlowPoint, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		part := total.Sub(allocated)
		if i < len(weights)-1 {
			part = total.Mul(w.Amount).Div(sum)
		}
		allocated = allocated.Add(part)
		out[i] = CashFlowPoint{Period: w.Period, Amount: part}
	}
	return out
}

func mergeSeries(a, b []CashFlowPoint) []CashFlowPoint {
	out := make([]CashFlowPoint, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// PaybackPeriod returns the first period at which cumulative distributions
// cover invested. Between two distribution points the crossing is linearly
// interpolated; a crossing on the first distribution is that point's period.
// Nil when the capital is never recovered.
func PaybackPeriod(series []CashFlowPoint, invested decimal.Decimal) *float64 {
	if !invested.IsPositive() {
		return nil
	}
	cum := decimal.Zero
	var prev *float64
	for _, cf := range series {
		if !cf.Amount.IsPositive() {
			continue
		}
		next := cum.Add(cf.Amount)
		if next.GreaterThanOrEqual(invested) {
			if prev == nil {
				return floatPtr(cf.Period)
			}
			frac := invested.Sub(cum).Div(cf.Amount).InexactFloat64()
			return floatPtr(*prev + frac*(cf.Period-*prev))
		}
		cum = next
		prev = floatPtr(cf.Period)
	}
	return nil
}

// schedule groups LP and GP distributions by period.
func schedule(lp, gp []CashFlowPoint) []ScheduleEntry {
	byPeriod := make(map[float64]*ScheduleEntry)
	var periods []float64
	entry := func(period float64) *ScheduleEntry {
		e, ok := byPeriod[period]
		if !ok {
			e = &ScheduleEntry{Period: period, LP: decimal.Zero, GP: decimal.Zero, Total: decimal.Zero}
			byPeriod[period] = e
			periods = append(periods, period)
		}
		return e
	}
	for _, cf := range lp {
		if cf.Amount.IsPositive() {
			e := entry(cf.Period)
			e.LP = e.LP.Add(cf.Amount)
			e.Total = e.Total.Add(cf.Amount)
		}
	}
	for _, cf := range gp {
		if cf.Amount.IsPositive() {
			e := entry(cf.Period)
			e.GP = e.GP.Add(cf.Amount)
			e.Total = e.Total.Add(cf.Amount)
		}
	}

	sort.Float64s(periods)
	out := make([]ScheduleEntry, 0, len(periods))
	for _, p := range periods {
		out = append(out, *byPeriod[p])
	}
	return out
}
