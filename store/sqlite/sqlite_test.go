package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/store/sqlite"
	"github.com/warp/distribution-engine/waterfall"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDeal(id string) deal.Deal {
	irr := 0.12
	mult := decimal.NewFromFloat(1.5)
	return deal.Deal{
		ID:   id,
		Name: "Fund " + id,
		Structure: waterfall.Structure{
			PreferredReturn: waterfall.PreferredReturnConfig{
				Enabled:            true,
				LPPrefRate:         0.08,
				GPPrefRate:         0.08,
				AccrualType:        waterfall.AccrualCumulative,
				CatchUpEnabled:     true,
				CatchUpTargetShare: decimal.NewFromFloat(0.2),
				CatchUpGPPercent:   decimal.NewFromInt(1),
			},
			Tiers: []waterfall.PromoteTier{
				{TierNumber: 1, HurdleType: waterfall.HurdleBoth, IRRHurdle: &irr, MultipleHurdle: &mult,
					HurdleLogic: waterfall.LogicOr, LPShare: decimal.NewFromFloat(0.8), GPShare: decimal.NewFromFloat(0.2)},
			},
		},
		Capital:   waterfall.NewCapital(9000, 1000),
		HoldYears: 5,
		CashFlows: []waterfall.CashFlowPoint{
			{Period: 0, Amount: decimal.NewFromInt(-10000)},
			{Period: 5, Amount: decimal.NewFromInt(18000)},
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_DealRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testDeal("a")
	require.NoError(t, store.SaveDeal(ctx, want))

	got, err := store.GetDeal(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.HoldYears, got.HoldYears)
	assert.True(t, got.Capital.LPEquity.Equal(want.Capital.LPEquity))
	assert.True(t, got.Capital.GPEquity.Equal(want.Capital.GPEquity))
	assert.True(t, got.CreatedAt.Equal(want.CreatedAt))

	require.Len(t, got.Structure.Tiers, 1)
	tier := got.Structure.Tiers[0]
	assert.Equal(t, waterfall.LogicOr, tier.HurdleLogic)
	require.NotNil(t, tier.IRRHurdle)
	assert.Equal(t, 0.12, *tier.IRRHurdle)
	require.NotNil(t, tier.MultipleHurdle)
	assert.True(t, tier.MultipleHurdle.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, got.Structure.PreferredReturn.CatchUpTargetShare.Equal(decimal.NewFromFloat(0.2)))

	require.Len(t, got.CashFlows, 2)
	assert.True(t, got.CashFlows[1].Amount.Equal(decimal.NewFromInt(18000)))
}

func TestStore_DuplicateDeal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDeal(ctx, testDeal("a")))
	assert.ErrorIs(t, store.SaveDeal(ctx, testDeal("a")), deal.ErrDuplicateDeal)
}

func TestStore_GetDeal_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDeal(context.Background(), "missing")
	assert.ErrorIs(t, err, deal.ErrDealNotFound)
}

func TestStore_ListDeals_OldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	later := testDeal("later")
	later.CreatedAt = later.CreatedAt.Add(time.Hour)
	require.NoError(t, store.SaveDeal(ctx, later))
	require.NoError(t, store.SaveDeal(ctx, testDeal("earlier")))

	deals, err := store.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "earlier", deals[0].ID)
	assert.Equal(t, "later", deals[1].ID)
}

func TestStore_RunRoundTrip(t *testing.T) {
	// GIVEN: A stored deal and a computed result
	// WHEN: The run is appended and read back
	// THEN: Decimal figures come back exactly

	store := newTestStore(t)
	ctx := context.Background()

	d := testDeal("a")
	require.NoError(t, store.SaveDeal(ctx, d))

	total := decimal.NewFromInt(18000)
	result, err := waterfall.Run(d.Input(total))
	require.NoError(t, err)

	run := deal.Run{ID: "run-1", DealID: "a", TotalDistributable: total, Result: result, CreatedAt: d.CreatedAt}
	require.NoError(t, store.AppendRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, got.TotalDistributable.Equal(total))
	require.Len(t, got.Result.Tiers, len(result.Tiers))
	for i := range result.Tiers {
		assert.True(t, got.Result.Tiers[i].LPDistribution.Equal(result.Tiers[i].LPDistribution), "tier %d", i)
		assert.Equal(t, result.Tiers[i].Kind, got.Result.Tiers[i].Kind)
	}
	assert.True(t, got.Result.GPSummary.Promote.Equal(result.GPSummary.Promote))
	require.NotNil(t, got.Result.LPSummary.IRR)
	assert.InDelta(t, *result.LPSummary.IRR, *got.Result.LPSummary.IRR, 1e-12)
}

func TestStore_AppendRun_AppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDeal(ctx, testDeal("a")))

	run := deal.Run{ID: "run-1", DealID: "a", TotalDistributable: decimal.NewFromInt(1), Result: &waterfall.Result{}}
	require.NoError(t, store.AppendRun(ctx, run))
	assert.ErrorIs(t, store.AppendRun(ctx, run), deal.ErrDuplicateRun)

	run.ID = "run-2"
	run.DealID = "missing"
	assert.ErrorIs(t, store.AppendRun(ctx, run), deal.ErrDealNotFound)
}

func TestStore_ListRuns_AppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDeal(ctx, testDeal("a")))
	require.NoError(t, store.SaveDeal(ctx, testDeal("b")))

	for i, id := range []string{"r3", "r1", "r2"} {
		require.NoError(t, store.AppendRun(ctx, deal.Run{
			ID:                 id,
			DealID:             "a",
			TotalDistributable: decimal.NewFromInt(int64(i)),
			Result:             &waterfall.Result{},
		}))
	}

	runs, err := store.ListRuns(ctx, "a")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r1", runs[1].ID)
	assert.Equal(t, "r2", runs[2].ID)

	empty, err := store.ListRuns(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.ListRuns(ctx, "missing")
	assert.ErrorIs(t, err, deal.ErrDealNotFound)
}

func TestStore_WithService(t *testing.T) {
	store := newTestStore(t)
	svc := deal.NewService(store, deal.Options{})
	ctx := context.Background()

	d := testDeal("")
	d.CashFlows = nil
	created, err := svc.CreateDeal(ctx, d)
	require.NoError(t, err)

	run, err := svc.RunDeal(ctx, created.ID, decimal.NewFromInt(15000))
	require.NoError(t, err)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.DealID)
	assert.True(t, got.Result.ProjectSummary.TotalDistributed.Equal(decimal.NewFromInt(15000)))
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDeal(ctx, testDeal("a")))
	require.NoError(t, store.AppendRun(ctx, deal.Run{ID: "r", DealID: "a", TotalDistributable: decimal.Zero, Result: &waterfall.Result{}}))

	require.NoError(t, store.Reset(ctx))

	deals, err := store.ListDeals(ctx)
	require.NoError(t, err)
	assert.Empty(t, deals)
	assert.NoError(t, store.Ping(ctx))
}
