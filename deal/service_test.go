package deal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/deal/store"
	"github.com/warp/distribution-engine/waterfall"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestService(t *testing.T) (*deal.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	clock := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := deal.NewService(mem, deal.Options{
		SweepConcurrency: 2,
		Now:              func() time.Time { return clock },
	})
	return svc, mem
}

func eightyTwenty(id string) deal.Deal {
	return deal.Deal{
		ID:   id,
		Name: "80/20 split",
		Structure: waterfall.Structure{Tiers: []waterfall.PromoteTier{{
			TierNumber: 1,
			LPShare:    decimal.NewFromFloat(0.8),
			GPShare:    decimal.NewFromFloat(0.2),
		}}},
		Capital:   waterfall.NewCapital(800, 200),
		HoldYears: 5,
	}
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// =============================================================================
// DEALS
// =============================================================================

func TestService_CreateDeal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.CreateDeal(ctx, eightyTwenty("fund-a"))
	require.NoError(t, err)
	assert.Equal(t, "fund-a", d.ID)
	assert.Equal(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), d.CreatedAt)

	got, err := svc.GetDeal(ctx, "fund-a")
	require.NoError(t, err)
	assert.Equal(t, "80/20 split", got.Name)
}

func TestService_CreateDeal_AssignsID(t *testing.T) {
	svc, _ := newTestService(t)

	d := eightyTwenty("")
	created, err := svc.CreateDeal(context.Background(), d)
	require.NoError(t, err)
	assert.Len(t, created.ID, 36, "uuid")
}

func TestService_CreateDeal_Duplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDeal(ctx, eightyTwenty("fund-a"))
	require.NoError(t, err)

	_, err = svc.CreateDeal(ctx, eightyTwenty("fund-a"))
	assert.ErrorIs(t, err, deal.ErrDuplicateDeal)
}

func TestService_CreateDeal_RejectsInvalidStructure(t *testing.T) {
	svc, _ := newTestService(t)

	d := eightyTwenty("broken")
	d.Capital = waterfall.NewCapital(0, 0)

	_, err := svc.CreateDeal(context.Background(), d)
	assert.ErrorIs(t, err, waterfall.ErrInvalidCapitalStructure)
	assert.True(t, waterfall.IsClientError(err))

	deals, err := svc.ListDeals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deals, "nothing stored")
}

func TestService_GetDeal_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetDeal(context.Background(), "missing")
	assert.ErrorIs(t, err, deal.ErrDealNotFound)
	assert.True(t, deal.IsNotFound(err))
}

// =============================================================================
// EVALUATION
// =============================================================================

func TestService_Evaluate_Memoized(t *testing.T) {
	// GIVEN: The same input evaluated twice
	// THEN: The second call is served from cache (same pointer)

	svc, _ := newTestService(t)
	in := eightyTwenty("x").Input(money(1400))

	first, err := svc.Evaluate(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.Evaluate(context.Background(), in)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, svc.CachedResults())

	_, err = svc.Evaluate(context.Background(), eightyTwenty("x").Input(money(1500)))
	require.NoError(t, err)
	assert.Equal(t, 2, svc.CachedResults())
}

func TestService_Evaluate_ErrorsNotCached(t *testing.T) {
	svc, _ := newTestService(t)
	in := eightyTwenty("x").Input(money(-1))

	_, err := svc.Evaluate(context.Background(), in)
	assert.ErrorIs(t, err, waterfall.ErrInvalidInput)
	assert.Equal(t, 0, svc.CachedResults())
}

func TestService_Evaluate_CanceledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Evaluate(ctx, eightyTwenty("x").Input(money(1400)))
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// RUNS
// =============================================================================

func TestService_RunDeal_PersistsRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateDeal(ctx, eightyTwenty("fund-a"))
	require.NoError(t, err)

	run, err := svc.RunDeal(ctx, "fund-a", money(1400))
	require.NoError(t, err)
	assert.Equal(t, "fund-a", run.DealID)
	assert.True(t, run.Result.LPSummary.Distributed.Equal(money(1120)))

	stored, err := svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)

	_, err = svc.RunDeal(ctx, "fund-a", money(2000))
	require.NoError(t, err)

	runs, err := svc.ListRuns(ctx, "fund-a")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].TotalDistributable.Equal(money(1400)), "append order")
	assert.True(t, runs[1].TotalDistributable.Equal(money(2000)))
}

func TestService_RunDeal_UnknownDeal(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RunDeal(context.Background(), "missing", money(100))
	assert.ErrorIs(t, err, deal.ErrDealNotFound)
}

func TestService_GetRun_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, deal.ErrRunNotFound)

	var nf *deal.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "run", nf.Kind)
}

// =============================================================================
// SWEEPS
// =============================================================================

func TestService_Sweep_PreservesOrder(t *testing.T) {
	// GIVEN: Five totals evaluated with concurrency 2
	// THEN: Output order matches input order and nothing is persisted

	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateDeal(ctx, eightyTwenty("fund-a"))
	require.NoError(t, err)

	totals := []decimal.Decimal{money(2000), money(500), money(1400), money(0), money(1000)}
	points, err := svc.Sweep(ctx, "fund-a", totals)
	require.NoError(t, err)
	require.Len(t, points, len(totals))

	for i, p := range points {
		assert.True(t, p.TotalDistributable.Equal(totals[i]))
		assert.True(t, p.Result.ProjectSummary.TotalDistributed.Equal(totals[i]))
	}
	assert.True(t, points[2].Result.LPSummary.Distributed.Equal(money(1120)))

	runs, err := svc.ListRuns(ctx, "fund-a")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestService_Sweep_FailsOnInvalidScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateDeal(ctx, eightyTwenty("fund-a"))
	require.NoError(t, err)

	_, err = svc.Sweep(ctx, "fund-a", []decimal.Decimal{money(1000), money(-5)})
	assert.ErrorIs(t, err, waterfall.ErrInvalidInput)
}

func TestService_Sweep_UnknownDeal(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Sweep(context.Background(), "missing", []decimal.Decimal{money(1)})
	assert.ErrorIs(t, err, deal.ErrDealNotFound)
}
