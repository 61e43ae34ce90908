package waterfall

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// splitTolerance is how far lpShare+gpShare may drift from 1 before the
// split is normalized and flagged.
var splitTolerance = decimal.New(1, -9)

// preparedTier is a promote tier with a resolved hurdle type and a split
// that sums to exactly one.
type preparedTier struct {
	PromoteTier
	normalized bool
}

// prepared is a validated Input ready for the tier walk.
type prepared struct {
	input    Input
	pref     PreferredReturnConfig
	tiers    []preparedTier
	warnings []Warning
}

// Validate checks in without running the waterfall. It returns the same
// fatal errors Run would, and the warnings normalization would record.
func Validate(in Input) ([]Warning, error) {
	p, err := prepare(in)
	if err != nil {
		return nil, err
	}
	return p.warnings, nil
}

// prepare validates in and returns a normalized copy. It never mutates in.
func prepare(in Input) (*prepared, error) {
	if err := validateCapital(in.Capital); err != nil {
		return nil, err
	}
	if in.TotalDistributable.IsNegative() {
		return nil, &ValidationError{Field: "total_distributable", Reason: "must not be negative"}
	}
	if math.IsNaN(in.HoldYears) || math.IsInf(in.HoldYears, 0) || in.HoldYears < 0 {
		return nil, &ValidationError{Field: "hold_years", Reason: "must be a finite, non-negative number of years"}
	}
	for i, cf := range in.CashFlows {
		if math.IsNaN(cf.Period) || math.IsInf(cf.Period, 0) || cf.Period < 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("cash_flows[%d].period", i), Reason: "must be a finite, non-negative number of years"}
		}
	}

	pref, err := preparePref(in.Structure.PreferredReturn)
	if err != nil {
		return nil, err
	}

	p := &prepared{input: in, pref: pref}
	if err := p.prepareTiers(in.Structure.Tiers); err != nil {
		return nil, err
	}
	return p, nil
}

func validateCapital(c CapitalStructure) error {
	if c.LPEquity.IsNegative() || c.GPEquity.IsNegative() || !c.TotalEquity().IsPositive() {
		return &CapitalStructureError{LPEquity: c.LPEquity, GPEquity: c.GPEquity}
	}
	return nil
}

func preparePref(cfg PreferredReturnConfig) (PreferredReturnConfig, error) {
	rates := []struct {
		field string
		rate  float64
	}{
		{"preferred_return.lp_pref_rate", cfg.LPPrefRate},
		{"preferred_return.gp_pref_rate", cfg.GPPrefRate},
	}
	for _, r := range rates {
		if math.IsNaN(r.rate) || math.IsInf(r.rate, 0) || r.rate < 0 {
			return cfg, &ValidationError{Field: r.field, Reason: "must be a finite, non-negative rate"}
		}
	}

	switch cfg.AccrualType {
	case "":
		cfg.AccrualType = AccrualCumulative
	case AccrualCumulative, AccrualSimple:
	default:
		return cfg, &ValidationError{Field: "preferred_return.accrual_type", Reason: fmt.Sprintf("unknown accrual type %q", cfg.AccrualType)}
	}

	switch cfg.CompoundingFrequency {
	case "":
		cfg.CompoundingFrequency = CompoundAnnual
	case CompoundAnnual, CompoundQuarterly, CompoundMonthly:
	default:
		return cfg, &ValidationError{Field: "preferred_return.compounding_frequency", Reason: fmt.Sprintf("unknown frequency %q", cfg.CompoundingFrequency)}
	}

	if !isFraction(cfg.CatchUpTargetShare) {
		return cfg, &ValidationError{Field: "preferred_return.catch_up_target_share", Reason: "must be within [0, 1]"}
	}
	if !isFraction(cfg.CatchUpGPPercent) {
		return cfg, &ValidationError{Field: "preferred_return.catch_up_gp_percent", Reason: "must be within [0, 1]"}
	}
	return cfg, nil
}

func (p *prepared) prepareTiers(tiers []PromoteTier) error {
	sorted := make([]PromoteTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TierNumber < sorted[j].TierNumber })

	var lastIRR, lastMult *preparedTier
	seen := make(map[int]bool, len(sorted))
	for _, t := range sorted {
		if seen[t.TierNumber] {
			return &ValidationError{Field: "tiers", Reason: fmt.Sprintf("duplicate tier number %d", t.TierNumber)}
		}
		seen[t.TierNumber] = true

		pt, err := p.prepareTier(t)
		if err != nil {
			return err
		}

		if pt.usesIRR() {
			if lastIRR != nil && *pt.IRRHurdle < *lastIRR.IRRHurdle {
				return &HurdleOrderError{Metric: string(HurdleIRR), Previous: lastIRR.TierNumber, Current: pt.TierNumber}
			}
			lastIRR = &pt
		}
		if pt.usesMultiple() {
			if lastMult != nil && pt.MultipleHurdle.LessThan(*lastMult.MultipleHurdle) {
				return &HurdleOrderError{Metric: string(HurdleEquityMultiple), Previous: lastMult.TierNumber, Current: pt.TierNumber}
			}
			lastMult = &pt
		}
		p.tiers = append(p.tiers, pt)
	}
	return nil
}

func (p *prepared) prepareTier(t PromoteTier) (preparedTier, error) {
	if t.HurdleType == "" {
		t.HurdleType = inferHurdleType(t)
	}
	switch t.HurdleType {
	case HurdleNone, HurdleIRR, HurdleEquityMultiple, HurdleBoth:
	default:
		return preparedTier{}, &ValidationError{Field: fmt.Sprintf("tier_%d.hurdle_type", t.TierNumber), Reason: fmt.Sprintf("unknown hurdle type %q", t.HurdleType)}
	}
	if t.HurdleLogic == "" {
		t.HurdleLogic = LogicAnd
	}
	if t.HurdleLogic != LogicAnd && t.HurdleLogic != LogicOr {
		return preparedTier{}, &ValidationError{Field: fmt.Sprintf("tier_%d.hurdle_logic", t.TierNumber), Reason: fmt.Sprintf("unknown hurdle logic %q", t.HurdleLogic)}
	}
	if t.IRRHurdle != nil && (math.IsNaN(*t.IRRHurdle) || math.IsInf(*t.IRRHurdle, 0) || *t.IRRHurdle <= -1) {
		return preparedTier{}, &ValidationError{Field: fmt.Sprintf("tier_%d.irr_hurdle", t.TierNumber), Reason: "must be a finite rate above -100%"}
	}
	if t.MultipleHurdle != nil && t.MultipleHurdle.IsNegative() {
		return preparedTier{}, &ValidationError{Field: fmt.Sprintf("tier_%d.multiple_hurdle", t.TierNumber), Reason: "must not be negative"}
	}

	if t.LPShare.IsNegative() || t.GPShare.IsNegative() {
		return preparedTier{}, &TierSplitError{TierNumber: t.TierNumber, LPShare: t.LPShare, GPShare: t.GPShare}
	}
	sum := t.LPShare.Add(t.GPShare)
	if !sum.IsPositive() {
		return preparedTier{}, &TierSplitError{TierNumber: t.TierNumber, LPShare: t.LPShare, GPShare: t.GPShare}
	}

	pt := preparedTier{PromoteTier: t}
	if sum.Sub(one).Abs().GreaterThan(splitTolerance) {
		pt.LPShare = t.LPShare.Div(sum)
		pt.GPShare = one.Sub(pt.LPShare)
		pt.normalized = true
		p.warnings = append(p.warnings, Warning{
			Code:       WarnMalformedTierSplit,
			Message:    fmt.Sprintf("tier split %s/%s sums to %s; normalized to %s/%s", t.LPShare, t.GPShare, sum, pt.LPShare.StringFixed(6), pt.GPShare.StringFixed(6)),
			TierNumber: t.TierNumber,
		})
	} else {
		// Within tolerance: make the complement exact so the split conserves cash.
		pt.GPShare = one.Sub(pt.LPShare)
	}
	return pt, nil
}

func inferHurdleType(t PromoteTier) HurdleType {
	switch {
	case t.IRRHurdle != nil && t.MultipleHurdle != nil:
		return HurdleBoth
	case t.IRRHurdle != nil:
		return HurdleIRR
	case t.MultipleHurdle != nil:
		return HurdleEquityMultiple
	default:
		return HurdleNone
	}
}

func isFraction(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one)
}
