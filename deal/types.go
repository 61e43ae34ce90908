/*
Package deal hosts waterfall structures and their runs.

PURPOSE:
  A Deal pins a waterfall Structure to a capital stack, a hold period and
  optional project cash flows. Running a deal evaluates the waterfall for a
  distributable total and records the Result as an append-only Run.

KEY CONCEPTS:
  - Deal: the persistent agreement (structure + capital + timing)
  - Run: one evaluation of a deal, never edited after it is stored
  - Store: persistence for deals and runs (sqlite or memory)
  - Service: memoized evaluation, persisted runs, parallel sweeps

SEE ALSO:
  - waterfall/: The pure allocation engine
  - store/sqlite/sqlite.go: Production Store
  - deal/store/memory.go: In-memory Store for tests and dev
*/
package deal

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/waterfall"
)

// =============================================================================
// DEAL
// =============================================================================

// Deal is a waterfall agreement applied to one capital stack.
type Deal struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Structure waterfall.Structure        `json:"structure"`
	Capital   waterfall.CapitalStructure `json:"capital"`
	HoldYears float64                    `json:"hold_years"`
	CashFlows []waterfall.CashFlowPoint  `json:"cash_flows,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// Input builds the engine input for distributing total.
func (d Deal) Input(total decimal.Decimal) waterfall.Input {
	return waterfall.Input{
		Structure:          d.Structure,
		CashFlows:          d.CashFlows,
		TotalDistributable: total,
		HoldYears:          d.HoldYears,
		Capital:            d.Capital,
	}
}

// =============================================================================
// RUN - Append-only evaluation record
// =============================================================================

// Run is one stored evaluation of a deal.
type Run struct {
	ID                 string            `json:"id"`
	DealID             string            `json:"deal_id"`
	TotalDistributable decimal.Decimal   `json:"total_distributable"`
	Result             *waterfall.Result `json:"result"`
	CreatedAt          time.Time         `json:"created_at"`
}

// SweepPoint is one scenario of a sweep. Sweeps are not persisted.
type SweepPoint struct {
	TotalDistributable decimal.Decimal   `json:"total_distributable"`
	Result             *waterfall.Result `json:"result"`
}
