/*
errors.go - Centralized error types for the waterfall engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Fatal structural errors - abort the run, no partial ledger
     (ErrInvalidCapitalStructure, ErrMalformedTierSplit, ErrHurdleOrder,
     ErrInvalidInput)
  2. Recovered numeric errors - reflected in the Result as warnings
     (ErrNoConvergence, ErrNegativeRemaining)

SEE ALSO:
  - validate.go: Produces the structural errors
  - irr.go: Produces ConvergenceError
*/
package waterfall

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidCapitalStructure is returned when total equity is zero or
	// either class has negative equity.
	ErrInvalidCapitalStructure = errors.New("invalid capital structure")

	// ErrMalformedTierSplit is returned when a tier split cannot be normalized
	// (negative shares or a zero sum).
	ErrMalformedTierSplit = errors.New("malformed tier split")

	// ErrNoConvergence is returned by the IRR solver when neither Newton-Raphson
	// nor bisection finds a root.
	ErrNoConvergence = errors.New("irr did not converge")

	// ErrNegativeRemaining marks floating drift below zero. It is logged and
	// recorded as a warning, never returned from Run.
	ErrNegativeRemaining = errors.New("negative remaining distributable")

	// ErrHurdleOrder is returned when promote tier thresholds decrease.
	ErrHurdleOrder = errors.New("promote tier hurdles out of order")

	// ErrInvalidInput is returned for out-of-range scalar inputs.
	ErrInvalidInput = errors.New("invalid waterfall input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CapitalStructureError describes the rejected equity amounts.
type CapitalStructureError struct {
	LPEquity decimal.Decimal
	GPEquity decimal.Decimal
}

func (e *CapitalStructureError) Error() string {
	return fmt.Sprintf("invalid capital structure: lp equity %s, gp equity %s (total must be positive)",
		e.LPEquity, e.GPEquity)
}

func (e *CapitalStructureError) Unwrap() error { return ErrInvalidCapitalStructure }

// TierSplitError describes a split that cannot be distributed.
type TierSplitError struct {
	TierNumber int
	LPShare    decimal.Decimal
	GPShare    decimal.Decimal
}

func (e *TierSplitError) Error() string {
	return fmt.Sprintf("malformed tier split: tier %d lp %s gp %s",
		e.TierNumber, e.LPShare, e.GPShare)
}

func (e *TierSplitError) Unwrap() error { return ErrMalformedTierSplit }

// ConvergenceError carries the solver state at failure.
type ConvergenceError struct {
	Iterations int
	LastRate   float64
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("irr did not converge after %d iterations (rate %g, npv %g)",
		e.Iterations, e.LastRate, e.Residual)
}

func (e *ConvergenceError) Unwrap() error { return ErrNoConvergence }

// HurdleOrderError names the tiers whose thresholds are inverted.
type HurdleOrderError struct {
	Metric   string // "irr" or "equity_multiple"
	Previous int
	Current  int
}

func (e *HurdleOrderError) Error() string {
	return fmt.Sprintf("%s hurdle of tier %d is below tier %d", e.Metric, e.Current, e.Previous)
}

func (e *HurdleOrderError) Unwrap() error { return ErrHurdleOrder }

// ValidationError describes one rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return ErrorCode(err) != ""
}

// ErrorCode returns the machine-readable code of a client error, or "" when
// err is not one.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCapitalStructure):
		return "invalid_capital_structure"
	case errors.Is(err, ErrMalformedTierSplit):
		return "malformed_tier_split"
	case errors.Is(err, ErrHurdleOrder):
		return "hurdle_order"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return ""
	}
}
