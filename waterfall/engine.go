/*
engine.go - Tier allocation engine

PURPOSE:
  Walks the waterfall as an ordered list of tier processors:

    ReturnOfCapital -> PreferredReturn -> GPCatchUp -> Promote[1..N]

  Each processor takes the running allocationState and returns a TierResult
  plus the next state. The walk stops as soon as nothing remains.

STATES:
  ReturnOfCapital  always
  PreferredReturn  when preferred_return.enabled
  GPCatchUp        when preferred_return.catch_up_enabled
  Promote[i]       one per configured tier, ordered by tier_number
  Residual         only when no promote tier is configured

FAILURE SEMANTICS:
  Fatal (returned, no ledger): invalid capital structure, unrecoverable tier
  split, inverted hurdles, out-of-range inputs.
  Recovered (warnings): normalized splits, IRR non-convergence, negative
  remaining from numeric drift.

SEE ALSO:
  - tiers.go: Tier processors
  - validate.go: Input validation and split normalization
  - aggregate.go: Summaries built from the ledger
*/
package waterfall

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Engine runs waterfalls. The zero value is usable.
type Engine struct {
	Solver IRRSolver
	Logger *slog.Logger
}

// NewEngine creates an engine with the default solver.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{Solver: DefaultSolver(), Logger: logger}
}

// Run executes the waterfall with a default engine.
func Run(in Input) (*Result, error) {
	return NewEngine(nil).Run(in)
}

// runContext carries the per-run collaborators. It lives for one Run call.
type runContext struct {
	input    Input
	pref     PreferredReturnConfig
	hurdles  HurdleEvaluator
	solver   IRRSolver
	ledger   *TierLedger
	warnings []Warning
	logger   *slog.Logger
}

// Run executes the waterfall described by in.
func (e *Engine) Run(in Input) (*Result, error) {
	p, err := prepare(in)
	if err != nil {
		return nil, err
	}

	solver := e.Solver.withDefaults()
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rc := &runContext{
		input:    p.input,
		pref:     p.pref,
		hurdles:  NewHurdleEvaluator(solver),
		solver:   solver,
		ledger:   &TierLedger{},
		warnings: append([]Warning(nil), p.warnings...),
		logger:   logger,
	}
	for _, w := range p.warnings {
		logger.Warn("tier split normalized", "tier", w.TierNumber, "detail", w.Message)
	}

	st := newState(in.TotalDistributable)
	for _, proc := range processors(p) {
		if !st.remaining.IsPositive() {
			break
		}
		res, next := proc.allocate(rc, st)
		st = rc.record(res, next)
	}

	result := ResultAggregator{Solver: solver}.Aggregate(rc.input, rc.ledger.Entries())
	result.Warnings = append(rc.warnings, result.Warnings...)
	return result, nil
}

// processors builds the ordered tier walk for p.
func processors(p *prepared) []tierProcessor {
	procs := []tierProcessor{returnOfCapital{}}
	if p.pref.Enabled {
		procs = append(procs, preferredReturn{})
	}
	if p.pref.CatchUpEnabled {
		procs = append(procs, gpCatchUp{})
	}
	for i := range p.tiers {
		step := promote{tier: p.tiers[i]}
		if i+1 < len(p.tiers) {
			next := p.tiers[i+1]
			step.next = &next
		}
		procs = append(procs, step)
	}
	if len(p.tiers) == 0 {
		procs = append(procs, residual{})
	}
	return procs
}

// record completes res with boundary metrics, appends it to the ledger and
// returns the state the next processor starts from.
func (rc *runContext) record(res TierResult, next allocationState) allocationState {
	if next.remaining.IsNegative() {
		rc.logger.Warn("remaining distributable below zero, clamping",
			"tier", res.Name, "remaining", next.remaining.String())
		rc.warnings = append(rc.warnings, Warning{
			Code:       WarnNegativeRemaining,
			Message:    fmt.Sprintf("%v after %s: %s clamped to zero", ErrNegativeRemaining, res.Name, next.remaining),
			TierNumber: res.TierNumber,
		})
		next.remaining = decimal.Zero
	}

	capital := rc.input.Capital
	res.CumulativeLP = next.cumLP
	res.CumulativeGP = next.cumGP
	res.RemainingAfter = next.remaining
	res.LPMultiple = ratio(next.cumLP, capital.LPEquity)
	res.GPMultiple = ratio(next.cumGP, capital.GPEquity)
	res.LPIRR = rc.boundaryIRR(res, capital.LPEquity, next.cumLP, "lp")
	res.GPIRR = rc.boundaryIRR(res, capital.GPEquity, next.cumGP, "gp")

	rc.ledger.Append(res)
	return next
}

// boundaryIRR is the two-point IRR of one class at a tier boundary. It is nil
// when the class has no equity, the hold period is zero, or the solver fails.
func (rc *runContext) boundaryIRR(res TierResult, equity, distributed decimal.Decimal, class string) *float64 {
	if !equity.IsPositive() || rc.input.HoldYears <= 0 {
		return nil
	}
	irr, err := solveOrNil(rc.solver, twoPointFlows(equity, distributed, rc.input.HoldYears))
	if err != nil {
		rc.noteConvergence(err, fmt.Sprintf("%s irr at %s", class, res.Name), res.TierNumber)
	}
	return irr
}

func (rc *runContext) noteConvergence(err error, what string, tier int) {
	if !errors.Is(err, ErrNoConvergence) {
		return
	}
	rc.logger.Warn("irr did not converge", "what", what, "error", err)
	rc.warnings = append(rc.warnings, Warning{
		Code:       WarnNoConvergence,
		Message:    fmt.Sprintf("%s: %v", what, err),
		TierNumber: tier,
	})
}
