/*
Package waterfall provides the LP/GP distribution waterfall engine.

PURPOSE:
  Allocates a pool of realized proceeds ("distributable cash") between the
  Limited Partner and General Partner capital classes, walking an ordered
  list of tiers: Return of Capital, Preferred Return, GP Catch-Up, and any
  number of hurdle-gated Promote tiers.

KEY CONCEPTS IN THIS FILE (types.go):
  - CapitalStructure: LP and GP contributed equity, pro-rata shares
  - PreferredReturnConfig: pref rates, accrual style, catch-up settings
  - PromoteTier: a hurdle-gated profit split
  - Structure: the full waterfall agreement
  - CashFlowPoint: a signed cash amount at a (fractional) year offset
  - TierResult: one immutable line of the tier ledger
  - Result: ledger plus LP, GP and project summaries

DESIGN PRINCIPLES:
  1. Purity: Run is a function of its Input. No globals, no I/O.
  2. Precision: Money is decimal.Decimal. Rates and IRRs are float64.
  3. Append-only: TierResults are produced once, in order, and never edited.

USAGE:
  result, err := waterfall.Run(waterfall.Input{
      Structure:          structure,
      TotalDistributable: decimal.NewFromInt(1400),
      HoldYears:          5,
      Capital:            waterfall.NewCapital(800, 200),
  })

SEE ALSO:
  - engine.go: Tier walk
  - irr.go: IRR solver
  - aggregate.go: Summary metrics
*/
package waterfall

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CAPITAL STRUCTURE
// =============================================================================

// CapitalStructure holds the equity each class contributed.
type CapitalStructure struct {
	LPEquity decimal.Decimal `json:"lp_equity"`
	GPEquity decimal.Decimal `json:"gp_equity"`
}

func NewCapital(lpEquity, gpEquity float64) CapitalStructure {
	return CapitalStructure{
		LPEquity: decimal.NewFromFloat(lpEquity),
		GPEquity: decimal.NewFromFloat(gpEquity),
	}
}

func (c CapitalStructure) TotalEquity() decimal.Decimal { return c.LPEquity.Add(c.GPEquity) }

// LPShare is the LP's pro-rata ownership fraction. Zero when there is no equity.
func (c CapitalStructure) LPShare() decimal.Decimal {
	total := c.TotalEquity()
	if !total.IsPositive() {
		return decimal.Zero
	}
	return c.LPEquity.Div(total)
}

// GPShare is the exact complement of LPShare so pro-rata splits conserve cash.
func (c CapitalStructure) GPShare() decimal.Decimal {
	if !c.TotalEquity().IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(c.LPShare())
}

// =============================================================================
// PREFERRED RETURN
// =============================================================================

type AccrualType string

const (
	AccrualCumulative AccrualType = "cumulative" // compounding
	AccrualSimple     AccrualType = "simple"
)

type CompoundingFrequency string

const (
	CompoundAnnual    CompoundingFrequency = "annual"
	CompoundQuarterly CompoundingFrequency = "quarterly"
	CompoundMonthly   CompoundingFrequency = "monthly"
)

// PeriodsPerYear returns the compounding periods in one year.
// Unknown frequencies compound annually.
func (f CompoundingFrequency) PeriodsPerYear() int {
	switch f {
	case CompoundQuarterly:
		return 4
	case CompoundMonthly:
		return 12
	default:
		return 1
	}
}

// PreferredReturnConfig configures the pref and catch-up tiers.
type PreferredReturnConfig struct {
	Enabled              bool                 `json:"enabled"`
	LPPrefRate           float64              `json:"lp_pref_rate"`
	GPPrefRate           float64              `json:"gp_pref_rate"`
	AccrualType          AccrualType          `json:"accrual_type"`
	CompoundingFrequency CompoundingFrequency `json:"compounding_frequency"`

	CatchUpEnabled     bool            `json:"catch_up_enabled"`
	CatchUpTargetShare decimal.Decimal `json:"catch_up_target_share"` // GP share of total profit to reach
	CatchUpGPPercent   decimal.Decimal `json:"catch_up_gp_percent"`   // marginal GP fraction of the tranche
}

// =============================================================================
// PROMOTE TIERS
// =============================================================================

type HurdleType string

const (
	HurdleNone           HurdleType = "none"
	HurdleIRR            HurdleType = "irr"
	HurdleEquityMultiple HurdleType = "equity_multiple"
	HurdleBoth           HurdleType = "both"
)

type HurdleLogic string

const (
	LogicAnd HurdleLogic = "and"
	LogicOr  HurdleLogic = "or"
)

// PromoteTier is a profit split that applies once its hurdle is reached.
type PromoteTier struct {
	TierNumber     int              `json:"tier_number"`
	Name           string           `json:"name"`
	HurdleType     HurdleType       `json:"hurdle_type"`
	IRRHurdle      *float64         `json:"irr_hurdle,omitempty"`
	MultipleHurdle *decimal.Decimal `json:"multiple_hurdle,omitempty"`
	HurdleLogic    HurdleLogic      `json:"hurdle_logic,omitempty"`
	LPShare        decimal.Decimal  `json:"lp_share"`
	GPShare        decimal.Decimal  `json:"gp_share"`
}

// usesIRR reports whether the tier carries an IRR threshold.
func (t PromoteTier) usesIRR() bool {
	return (t.HurdleType == HurdleIRR || t.HurdleType == HurdleBoth) && t.IRRHurdle != nil
}

// usesMultiple reports whether the tier carries an equity multiple threshold.
func (t PromoteTier) usesMultiple() bool {
	return (t.HurdleType == HurdleEquityMultiple || t.HurdleType == HurdleBoth) && t.MultipleHurdle != nil
}

// Structure is the full waterfall agreement.
type Structure struct {
	PreferredReturn PreferredReturnConfig `json:"preferred_return"`
	Tiers           []PromoteTier         `json:"tiers"`
}

// =============================================================================
// CASH FLOWS
// =============================================================================

// CashFlowPoint is a signed amount at a period measured in years.
// Negative amounts are contributions, positive amounts are distributions.
type CashFlowPoint struct {
	Period float64         `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// TIER LEDGER
// =============================================================================

type TierKind string

const (
	TierReturnOfCapital TierKind = "return_of_capital"
	TierPreferredReturn TierKind = "preferred_return"
	TierCatchUp         TierKind = "catch_up"
	TierPromote         TierKind = "promote"
	TierResidual        TierKind = "residual"
)

// TierResult is one line of the tier ledger.
type TierResult struct {
	Index      int      `json:"index"`
	Kind       TierKind `json:"kind"`
	TierNumber int      `json:"tier_number,omitempty"`
	Name       string   `json:"name"`

	DistributableAmount decimal.Decimal `json:"distributable_amount"`
	LPDistribution      decimal.Decimal `json:"lp_distribution"`
	GPDistribution      decimal.Decimal `json:"gp_distribution"`
	LPSplit             decimal.Decimal `json:"lp_split"`
	GPSplit             decimal.Decimal `json:"gp_split"`
	GPPromote           decimal.Decimal `json:"gp_promote"`

	CumulativeLP   decimal.Decimal `json:"cumulative_lp"`
	CumulativeGP   decimal.Decimal `json:"cumulative_gp"`
	RemainingAfter decimal.Decimal `json:"remaining_after"`

	// Evaluated at the tier boundary. A nil IRR means the solver did not converge.
	LPIRR      *float64        `json:"lp_irr"`
	GPIRR      *float64        `json:"gp_irr"`
	LPMultiple decimal.Decimal `json:"lp_multiple"`
	GPMultiple decimal.Decimal `json:"gp_multiple"`

	HurdleMet       bool `json:"hurdle_met"`
	SplitNormalized bool `json:"split_normalized,omitempty"`
}

// =============================================================================
// RESULT
// =============================================================================

// PartySummary rolls the ledger up for one capital class.
type PartySummary struct {
	Invested        decimal.Decimal `json:"invested"`
	Distributed     decimal.Decimal `json:"distributed"`
	Profit          decimal.Decimal `json:"profit"`
	EquityMultiple  decimal.Decimal `json:"equity_multiple"`
	IRR             *float64        `json:"irr"`
	ReturnOfCapital decimal.Decimal `json:"return_of_capital"`
	PreferredReturn decimal.Decimal `json:"preferred_return"`
	CatchUp         decimal.Decimal `json:"catch_up"`
	Promote         decimal.Decimal `json:"promote"`
	PaybackPeriod   *float64        `json:"payback_period"`
}

// ProjectSummary combines LP and GP totals.
type ProjectSummary struct {
	TotalInvested    decimal.Decimal `json:"total_invested"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	EquityMultiple   decimal.Decimal `json:"equity_multiple"`
	IRR              *float64        `json:"irr"`
	TotalPromote     decimal.Decimal `json:"total_promote"`
	LPProfitShare    decimal.Decimal `json:"lp_profit_share"`
	GPProfitShare    decimal.Decimal `json:"gp_profit_share"`
}

// ScheduleEntry is the cash paid to each class in one period.
type ScheduleEntry struct {
	Period float64         `json:"period"`
	LP     decimal.Decimal `json:"lp"`
	GP     decimal.Decimal `json:"gp"`
	Total  decimal.Decimal `json:"total"`
}

// Warning records a recovered numeric or configuration issue.
type Warning struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	TierNumber int    `json:"tier_number,omitempty"`
}

const (
	WarnMalformedTierSplit = "malformed_tier_split"
	WarnNegativeRemaining  = "negative_remaining"
	WarnNoConvergence      = "no_convergence"
)

// Result is the output of one waterfall run.
type Result struct {
	Tiers                []TierResult    `json:"tier_results"`
	LPSummary            PartySummary    `json:"lp_summary"`
	GPSummary            PartySummary    `json:"gp_summary"`
	ProjectSummary       ProjectSummary  `json:"project_summary"`
	DistributionSchedule []ScheduleEntry `json:"distribution_schedule"`
	Warnings             []Warning       `json:"warnings,omitempty"`
}

// Input is everything a run depends on.
type Input struct {
	Structure          Structure        `json:"structure"`
	CashFlows          []CashFlowPoint  `json:"cash_flows,omitempty"`
	TotalDistributable decimal.Decimal  `json:"total_distributable"`
	HoldYears          float64          `json:"hold_years"`
	Capital            CapitalStructure `json:"capital"`
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var one = decimal.NewFromInt(1)

// clampDec bounds d to [lo, hi].
func clampDec(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// ratio returns num/den, or zero when den is not positive.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den)
}

func floatPtr(f float64) *float64 { return &f }
