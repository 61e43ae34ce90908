package waterfall

import (
	"math"
)

// =============================================================================
// IRR SOLVER
// =============================================================================

const (
	irrInitialGuess   = 0.1
	irrMaxIterations  = 200
	irrToleranceScale = 1e-6 // relative to the largest cash flow magnitude
	irrLowerBracket   = -0.99
	irrUpperBracket   = 10.0
	irrMinDerivative  = 1e-12
	irrBisectionSteps = 300
)

// IRRSolver finds the rate r where NPV(flows, r) == 0.
//
// Newton-Raphson runs first. If it leaves the domain (r <= -1), produces a
// non-finite value, hits a flat derivative, or exhausts its iterations, the
// solver bisects [LowerBracket, UpperBracket] before giving up.
type IRRSolver struct {
	MaxIterations int
	LowerBracket  float64
	UpperBracket  float64
}

// DefaultSolver returns a solver with the standard bounds.
func DefaultSolver() IRRSolver {
	return IRRSolver{
		MaxIterations: irrMaxIterations,
		LowerBracket:  irrLowerBracket,
		UpperBracket:  irrUpperBracket,
	}
}

// Solve returns the internal rate of return for flows.
//
// Empty input and input without both a negative and a positive flow have no
// root; Solve returns the sentinel 0 with a nil error because callers treat
// "no IRR yet" as a valid intermediate state.
func (s IRRSolver) Solve(flows []CashFlowPoint) (float64, error) {
	if !IsSolvable(flows) {
		return 0, nil
	}
	s = s.withDefaults()

	points := toFloatFlows(flows)
	tol := irrToleranceScale * maxMagnitude(points)

	r := irrInitialGuess
	iter := 0
	for ; iter < s.MaxIterations; iter++ {
		f, df := npvAndDerivative(points, r)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			break
		}
		if math.Abs(f) < tol {
			return r, nil
		}
		if math.Abs(df) < irrMinDerivative || math.IsNaN(df) || math.IsInf(df, 0) {
			break
		}
		next := r - f/df
		if next <= -1 || math.IsNaN(next) || math.IsInf(next, 0) {
			break
		}
		r = next
	}

	return s.bisect(points, tol, iter)
}

func (s IRRSolver) withDefaults() IRRSolver {
	if s.MaxIterations <= 0 {
		s.MaxIterations = irrMaxIterations
	}
	if s.LowerBracket == 0 && s.UpperBracket == 0 {
		s.LowerBracket, s.UpperBracket = irrLowerBracket, irrUpperBracket
	}
	return s
}

// bisect searches the bracket for a sign change of NPV.
func (s IRRSolver) bisect(points []floatFlow, tol float64, newtonIters int) (float64, error) {
	lo, hi := s.LowerBracket, s.UpperBracket
	fLo := npv(points, lo)
	fHi := npv(points, hi)

	if math.Abs(fLo) < tol {
		return lo, nil
	}
	if math.Abs(fHi) < tol {
		return hi, nil
	}
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return 0, &ConvergenceError{Iterations: newtonIters, LastRate: lo, Residual: fLo}
	}

	mid, fMid := lo, fLo
	for i := 0; i < irrBisectionSteps; i++ {
		mid = (lo + hi) / 2
		fMid = npv(points, mid)
		if math.Abs(fMid) < tol || (hi-lo)/2 < 1e-12 {
			return mid, nil
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return 0, &ConvergenceError{Iterations: newtonIters + irrBisectionSteps, LastRate: mid, Residual: fMid}
}

// IsSolvable reports whether flows contain both a contribution and a distribution.
func IsSolvable(flows []CashFlowPoint) bool {
	var neg, pos bool
	for _, cf := range flows {
		if cf.Amount.IsNegative() {
			neg = true
		} else if cf.Amount.IsPositive() {
			pos = true
		}
	}
	return neg && pos
}

// NPV discounts flows at rate, with periods in years.
func NPV(flows []CashFlowPoint, rate float64) float64 {
	return npv(toFloatFlows(flows), rate)
}

// =============================================================================
// FLOAT HELPERS
// =============================================================================

type floatFlow struct {
	t   float64
	amt float64
}

func toFloatFlows(flows []CashFlowPoint) []floatFlow {
	out := make([]floatFlow, 0, len(flows))
	for _, cf := range flows {
		out = append(out, floatFlow{t: cf.Period, amt: cf.Amount.InexactFloat64()})
	}
	return out
}

func maxMagnitude(points []floatFlow) float64 {
	m := 0.0
	for _, p := range points {
		if a := math.Abs(p.amt); a > m {
			m = a
		}
	}
	return m
}

//	f(r)  = Σ a_i / (1+r)^t_i
//	f'(r) = Σ -t_i · a_i / (1+r)^(t_i+1)
func npvAndDerivative(points []floatFlow, r float64) (float64, float64) {
	var f, df float64
	base := 1 + r
	for _, p := range points {
		disc := math.Pow(base, p.t)
		f += p.amt / disc
		df += -p.t * p.amt / (disc * base)
	}
	return f, df
}

func npv(points []floatFlow, r float64) float64 {
	f, _ := npvAndDerivative(points, r)
	return f
}

// solveOrNil runs the solver and maps a convergence failure to nil.
func solveOrNil(s IRRSolver, flows []CashFlowPoint) (*float64, error) {
	r, err := s.Solve(flows)
	if err != nil {
		return nil, err
	}
	return floatPtr(r), nil
}
