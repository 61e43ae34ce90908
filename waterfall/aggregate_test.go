package waterfall_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/distribution-engine/waterfall"
)

func TestPartySeries_TwoPointFallback(t *testing.T) {
	series := waterfall.PartySeries(dec(1000), dec(1500), 4, nil)

	require.Len(t, series, 2)
	assert.Equal(t, 0.0, series[0].Period)
	assertDec(t, -1000, series[0].Amount)
	assert.Equal(t, 4.0, series[1].Period)
	assertDec(t, 1500, series[1].Amount)
}

func TestPartySeries_ApportionsOverProjectFlows(t *testing.T) {
	// GIVEN: Project calls 600 then 400, and distributes 500 then 1500
	// WHEN: Building a class series for 100 equity and 300 distributed
	// THEN: Each side is spread by weight and sums exactly

	project := []waterfall.CashFlowPoint{
		flow(0, -600),
		flow(1, -400),
		flow(3, 500),
		flow(5, 1500),
	}
	series := waterfall.PartySeries(dec(100), dec(300), 5, project)

	require.Len(t, series, 4)
	assertDec(t, -60, series[0].Amount)
	assertDec(t, -40, series[1].Amount)
	assertDec(t, 75, series[2].Amount)
	assertDec(t, 225, series[3].Amount)

	sum := decimal.Zero
	for _, cf := range series {
		sum = sum.Add(cf.Amount)
	}
	assert.True(t, sum.Equal(dec(200)))

	for i := 1; i < len(series); i++ {
		assert.LessOrEqual(t, series[i-1].Period, series[i].Period)
	}
}

func TestPartySeries_NoEquity(t *testing.T) {
	series := waterfall.PartySeries(decimal.Zero, dec(50), 3, nil)

	require.Len(t, series, 1, "no contribution without equity")
	assertDec(t, 50, series[0].Amount)
}

func TestPaybackPeriod(t *testing.T) {
	series := []waterfall.CashFlowPoint{
		flow(0, -1000),
		flow(1, 400),
		flow(2, 400),
		flow(3, 400),
	}

	// 800 back by year 2, the remaining 200 is half of year 3's 400
	p := waterfall.PaybackPeriod(series, dec(1000))
	require.NotNil(t, p)
	assert.InDelta(t, 2.5, *p, 1e-9)
}

func TestPaybackPeriod_FirstDistributionCovers(t *testing.T) {
	series := []waterfall.CashFlowPoint{flow(0, -1000), flow(4, 1400)}

	p := waterfall.PaybackPeriod(series, dec(1000))
	require.NotNil(t, p)
	assert.Equal(t, 4.0, *p)
}

func TestPaybackPeriod_NeverRecovered(t *testing.T) {
	series := []waterfall.CashFlowPoint{flow(0, -1000), flow(2, 300), flow(4, 300)}

	assert.Nil(t, waterfall.PaybackPeriod(series, dec(1000)))
	assert.Nil(t, waterfall.PaybackPeriod(series, decimal.Zero), "nothing invested")
}

func TestAggregate_WithProjectCashFlows(t *testing.T) {
	// GIVEN: A 900/100 deal with project flows spread over five years
	// WHEN: Running a 90/10 single tier on 2000
	// THEN: Summaries use the apportioned series and the schedule follows it

	in := waterfall.Input{
		Structure: waterfall.Structure{Tiers: []waterfall.PromoteTier{splitTier(1, 0.9, 0.1)}},
		CashFlows: []waterfall.CashFlowPoint{
			flow(0, -1000),
			flow(2, 500),
			flow(5, 1500),
		},
		TotalDistributable: dec(2000),
		HoldYears:          5,
		Capital:            waterfall.NewCapital(900, 100),
	}
	res := run(t, in)

	require.Len(t, res.DistributionSchedule, 2)
	early, late := res.DistributionSchedule[0], res.DistributionSchedule[1]
	assert.Equal(t, 2.0, early.Period)
	assertDec(t, 450, early.LP)
	assertDec(t, 50, early.GP)
	assertDec(t, 500, early.Total)
	assert.Equal(t, 5.0, late.Period)
	assertDec(t, 1500, late.Total)

	// LP recovers 900 after 450 at year 2 and 1350 at year 5
	require.NotNil(t, res.LPSummary.PaybackPeriod)
	assert.InDelta(t, 2+(450.0/1350.0)*3, *res.LPSummary.PaybackPeriod, 1e-9)

	require.NotNil(t, res.LPSummary.IRR)
	require.NotNil(t, res.ProjectSummary.IRR)
	assert.InDelta(t, *res.ProjectSummary.IRR, *res.LPSummary.IRR, 1e-6, "pro-rata split gives the same rate")

	assertDec(t, 1000, res.ProjectSummary.TotalInvested)
	assertDec(t, 2000, res.ProjectSummary.TotalDistributed)
	assertDec(t, 2.0, res.ProjectSummary.EquityMultiple)
	assertDec(t, 0, res.ProjectSummary.TotalPromote)
}

func TestAggregate_ZeroHoldHasNoIRR(t *testing.T) {
	in := waterfall.Input{
		Structure:          waterfall.Structure{Tiers: []waterfall.PromoteTier{splitTier(1, 0.8, 0.2)}},
		TotalDistributable: dec(1200),
		HoldYears:          0,
		Capital:            waterfall.NewCapital(800, 200),
	}
	res := run(t, in)

	assert.Nil(t, res.LPSummary.IRR)
	assert.Nil(t, res.ProjectSummary.IRR)
	for _, tr := range res.Tiers {
		assert.Nil(t, tr.LPIRR)
	}
	assertDec(t, 1.2, res.LPSummary.EquityMultiple)
}
