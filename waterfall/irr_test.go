package waterfall_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/distribution-engine/waterfall"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func ratePtr(v float64) *float64 { return &v }

func flow(period, amount float64) waterfall.CashFlowPoint {
	return waterfall.CashFlowPoint{Period: period, Amount: dec(amount)}
}

func assertDec(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want, got.InexactFloat64(), 1e-6, msgAndArgs...)
}

// =============================================================================
// IRR SOLVER
// =============================================================================

func TestIRR_TwoPointRoundTrip(t *testing.T) {
	// GIVEN: -100 today, +200 in two years
	// WHEN: Solving
	// THEN: 100*(1+r)^2 = 200, so r = sqrt(2)-1 and NPV at r is ~0

	flows := []waterfall.CashFlowPoint{flow(0, -100), flow(2, 200)}

	r, err := waterfall.DefaultSolver().Solve(flows)
	require.NoError(t, err)

	assert.InDelta(t, 0.41421356, r, 1e-4)
	assert.InDelta(t, 0, waterfall.NPV(flows, r), 1e-4)
}

func TestIRR_IrregularSeries(t *testing.T) {
	flows := []waterfall.CashFlowPoint{
		flow(0, -1000),
		flow(1, 300),
		flow(2, 400),
		flow(3, 500),
	}

	r, err := waterfall.DefaultSolver().Solve(flows)
	require.NoError(t, err)
	assert.InDelta(t, 0.088963, r, 1e-5)
}

func TestIRR_FractionalPeriods(t *testing.T) {
	// Half-year hold doubling the money: (1+r)^0.5 = 2 => r = 3
	flows := []waterfall.CashFlowPoint{flow(0, -50), flow(0.5, 100)}

	r, err := waterfall.DefaultSolver().Solve(flows)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, r, 1e-4)
}

func TestIRR_NegativeReturn(t *testing.T) {
	flows := []waterfall.CashFlowPoint{flow(0, -1000), flow(2, 810)}

	r, err := waterfall.DefaultSolver().Solve(flows)
	require.NoError(t, err)
	assert.InDelta(t, -0.1, r, 1e-4)
}

func TestIRR_DegenerateInputsReturnSentinel(t *testing.T) {
	solver := waterfall.DefaultSolver()

	cases := map[string][]waterfall.CashFlowPoint{
		"empty":        nil,
		"all negative": {flow(0, -100), flow(1, -50)},
		"all positive": {flow(1, 100), flow(2, 50)},
		"zeros":        {flow(0, 0), flow(1, 0)},
	}
	for name, flows := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, waterfall.IsSolvable(flows))
			r, err := solver.Solve(flows)
			assert.NoError(t, err)
			assert.Equal(t, 0.0, r)
		})
	}
}

func TestIRR_NoConvergenceOutsideBracket(t *testing.T) {
	// GIVEN: A loss so deep the root sits below the -99% bracket
	// WHEN: Solving
	// THEN: Newton leaves the domain, bisection finds no sign change

	flows := []waterfall.CashFlowPoint{flow(0, -100), flow(1, 0.5)}

	_, err := waterfall.DefaultSolver().Solve(flows)
	require.Error(t, err)
	assert.ErrorIs(t, err, waterfall.ErrNoConvergence)

	var convErr *waterfall.ConvergenceError
	assert.ErrorAs(t, err, &convErr)
}

func TestIRR_ZeroValueSolverUsesDefaults(t *testing.T) {
	var solver waterfall.IRRSolver

	r, err := solver.Solve([]waterfall.CashFlowPoint{flow(0, -100), flow(1, 110)})
	require.NoError(t, err)
	assert.InDelta(t, 0.10, r, 1e-5)
}
