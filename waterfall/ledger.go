/*
ledger.go - Append-only tier ledger

PURPOSE:
  Collects TierResults as the engine walks the waterfall. The ledger is the
  source of truth for the summaries: every figure in aggregate.go is derived
  by replaying these lines.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. ORDERED: Index is assigned on append and matches position.
  3. COPY-OUT: Entries returns a copy so callers cannot edit history.

SEE ALSO:
  - engine.go: The only writer
  - aggregate.go: Reads the ledger
*/
package waterfall

import "github.com/shopspring/decimal"

// TierLedger is an append-only list of tier results.
type TierLedger struct {
	entries []TierResult
}

// Append assigns the next index and records r.
func (l *TierLedger) Append(r TierResult) TierResult {
	r.Index = len(l.entries)
	l.entries = append(l.entries, r)
	return r
}

// Entries returns a copy of the ledger in append order.
func (l *TierLedger) Entries() []TierResult {
	out := make([]TierResult, len(l.entries))
	copy(out, l.entries)
	return out
}

// TotalByKind sums LP and GP distributions of every tier of the given kind.
func (l *TierLedger) TotalByKind(kind TierKind) (lp, gp decimal.Decimal) {
	lp, gp = decimal.Zero, decimal.Zero
	for _, e := range l.entries {
		if e.Kind == kind {
			lp = lp.Add(e.LPDistribution)
			gp = gp.Add(e.GPDistribution)
		}
	}
	return lp, gp
}

// TotalPromote sums the GP promote across the ledger.
func (l *TierLedger) TotalPromote() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.GPPromote)
	}
	return total
}

// Distributed returns the cumulative LP and GP distributions.
func (l *TierLedger) Distributed() (lp, gp decimal.Decimal) {
	if len(l.entries) == 0 {
		return decimal.Zero, decimal.Zero
	}
	last := l.entries[len(l.entries)-1]
	return last.CumulativeLP, last.CumulativeGP
}
