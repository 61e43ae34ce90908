package waterfall_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/distribution-engine/waterfall"
)

func multipleTier(m float64) waterfall.PromoteTier {
	return waterfall.PromoteTier{
		TierNumber:     2,
		HurdleType:     waterfall.HurdleEquityMultiple,
		MultipleHurdle: decPtr(m),
		LPShare:        dec(0.8),
		GPShare:        dec(0.2),
	}
}

func irrTier(r float64) waterfall.PromoteTier {
	return waterfall.PromoteTier{
		TierNumber: 2,
		HurdleType: waterfall.HurdleIRR,
		IRRHurdle:  ratePtr(r),
		LPShare:    dec(0.8),
		GPShare:    dec(0.2),
	}
}

func TestHurdle_IsMet_Multiple(t *testing.T) {
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())
	tier := multipleTier(1.5)

	assert.False(t, h.IsMet(tier, dec(1400), dec(1000), 3))
	assert.True(t, h.IsMet(tier, dec(1500), dec(1000), 3))
	assert.True(t, h.IsMet(tier, dec(1600), dec(1000), 3))
}

func TestHurdle_IsMet_IRR(t *testing.T) {
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())
	tier := irrTier(0.10)

	// 1000 -> 1210 over two years is exactly 10%
	assert.True(t, h.IsMet(tier, dec(1210), dec(1000), 2))
	assert.False(t, h.IsMet(tier, dec(1150), dec(1000), 2))
	assert.False(t, h.IsMet(tier, dec(0), dec(1000), 2), "nothing distributed is a -100% return")
}

func TestHurdle_IsMet_Both(t *testing.T) {
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())
	tier := waterfall.PromoteTier{
		TierNumber:     2,
		HurdleType:     waterfall.HurdleBoth,
		IRRHurdle:      ratePtr(0.10),
		MultipleHurdle: decPtr(1.5),
		LPShare:        dec(0.7),
		GPShare:        dec(0.3),
	}

	// 1300 over 2 years: IRR ~14% (met), multiple 1.3x (not met)
	tier.HurdleLogic = waterfall.LogicAnd
	assert.False(t, h.IsMet(tier, dec(1300), dec(1000), 2))

	tier.HurdleLogic = waterfall.LogicOr
	assert.True(t, h.IsMet(tier, dec(1300), dec(1000), 2))

	// 1500 over 2 years: both met
	tier.HurdleLogic = waterfall.LogicAnd
	assert.True(t, h.IsMet(tier, dec(1500), dec(1000), 2))
}

func TestHurdle_IsMet_NoThresholdOrNoEquity(t *testing.T) {
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())

	open := waterfall.PromoteTier{TierNumber: 1, HurdleType: waterfall.HurdleNone, LPShare: dec(1)}
	assert.True(t, h.IsMet(open, dec(0), dec(1000), 3))

	assert.True(t, h.IsMet(multipleTier(2), dec(0), dec(0), 3), "no LP capital means nothing to clear")
}

func TestHurdle_AmountToReach_Multiple(t *testing.T) {
	// GIVEN: LP has 1200 back on 1000, next hurdle is 1.5x, tier pays LP 80%
	// THEN: LP needs 300 more, which takes 375 of pool

	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())
	amount := h.AmountToReachHurdle(multipleTier(1.5), dec(1200), dec(1000), 3, dec(10000), dec(0.8))
	assertDec(t, 375, amount)
}

func TestHurdle_AmountToReach_IRR(t *testing.T) {
	// LP needs 1000*(1.1)^2 = 1210 in total; has 1000, tier pays LP 80%
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())
	amount := h.AmountToReachHurdle(irrTier(0.10), dec(1000), dec(1000), 2, dec(10000), dec(0.8))

	want := (1000*math.Pow(1.1, 2) - 1000) / 0.8
	assertDec(t, want, amount)
}

func TestHurdle_AmountToReach_BothCombinesByLogic(t *testing.T) {
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())
	tier := waterfall.PromoteTier{
		TierNumber:     2,
		HurdleType:     waterfall.HurdleBoth,
		IRRHurdle:      ratePtr(0.10), // needs 210 more
		MultipleHurdle: decPtr(1.5),   // needs 500 more
		LPShare:        dec(1),
		GPShare:        dec(0),
	}

	tier.HurdleLogic = waterfall.LogicAnd
	assertDec(t, 500, h.AmountToReachHurdle(tier, dec(1000), dec(1000), 2, dec(10000), dec(1)))

	tier.HurdleLogic = waterfall.LogicOr
	assertDec(t, 1000*math.Pow(1.1, 2)-1000, h.AmountToReachHurdle(tier, dec(1000), dec(1000), 2, dec(10000), dec(1)))
}

func TestHurdle_AmountToReach_Clamped(t *testing.T) {
	h := waterfall.NewHurdleEvaluator(waterfall.DefaultSolver())

	// Already above the hurdle
	assert.True(t, h.AmountToReachHurdle(multipleTier(1.5), dec(2000), dec(1000), 3, dec(500), dec(0.8)).IsZero())

	// Pool too small
	assertDec(t, 100, h.AmountToReachHurdle(multipleTier(1.5), dec(1000), dec(1000), 3, dec(100), dec(0.8)))

	// LP gets nothing from the tier: unreachable, take the pool
	assertDec(t, 250, h.AmountToReachHurdle(multipleTier(1.5), dec(1000), dec(1000), 3, dec(250), dec(0)))

	// Empty pool
	assert.True(t, h.AmountToReachHurdle(multipleTier(1.5), dec(1000), dec(1000), 3, dec(0), dec(0.8)).IsZero())
}
