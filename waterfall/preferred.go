package waterfall

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PREFERRED RETURN ACCRUAL
// =============================================================================

// Accrue returns the preferred return owed on principal over years.
//
//	cumulative: principal * ((1 + rate/n)^(years*n) - 1), n from frequency
//	simple:     principal * rate * years
//
// The accrual is a single lump over the full hold period. It does not follow
// actual contribution or distribution dates.
func Accrue(principal decimal.Decimal, rate, years float64, accrual AccrualType, freq CompoundingFrequency) decimal.Decimal {
	if !principal.IsPositive() || rate <= 0 || years <= 0 {
		return decimal.Zero
	}

	if accrual == AccrualSimple {
		return principal.Mul(decimal.NewFromFloat(rate * years))
	}

	n := float64(freq.PeriodsPerYear())
	growth := math.Pow(1+rate/n, years*n) - 1
	return principal.Mul(decimal.NewFromFloat(growth))
}

// prefOwed returns the LP and GP pref obligations for cfg.
func prefOwed(cfg PreferredReturnConfig, capital CapitalStructure, years float64) (decimal.Decimal, decimal.Decimal) {
	lp := Accrue(capital.LPEquity, cfg.LPPrefRate, years, cfg.AccrualType, cfg.CompoundingFrequency)
	gp := Accrue(capital.GPEquity, cfg.GPPrefRate, years, cfg.AccrualType, cfg.CompoundingFrequency)
	return lp, gp
}
