package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/deal/store"
	"github.com/warp/distribution-engine/waterfall"
)

func TestMemory_Deals(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveDeal(ctx, deal.Deal{ID: "b", Capital: waterfall.NewCapital(1, 0)}))
	require.NoError(t, m.SaveDeal(ctx, deal.Deal{ID: "a", Capital: waterfall.NewCapital(1, 0)}))
	assert.ErrorIs(t, m.SaveDeal(ctx, deal.Deal{ID: "a"}), deal.ErrDuplicateDeal)

	deals, err := m.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 2)
	assert.Equal(t, "b", deals[0].ID, "insertion order")

	_, err = m.GetDeal(ctx, "missing")
	assert.ErrorIs(t, err, deal.ErrDealNotFound)
}

func TestMemory_RunsAreAppendOnly(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveDeal(ctx, deal.Deal{ID: "a"}))

	run := deal.Run{ID: "r1", DealID: "a", TotalDistributable: decimal.NewFromInt(100), Result: &waterfall.Result{}}
	require.NoError(t, m.AppendRun(ctx, run))
	require.NoError(t, m.AppendRun(ctx, deal.Run{ID: "r2", DealID: "a", Result: &waterfall.Result{}}))

	run.TotalDistributable = decimal.NewFromInt(999)
	assert.ErrorIs(t, m.AppendRun(ctx, run), deal.ErrDuplicateRun)

	got, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.TotalDistributable.Equal(decimal.NewFromInt(100)))

	runs, err := m.ListRuns(ctx, "a")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
}

func TestMemory_RunNeedsDeal(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	err := m.AppendRun(ctx, deal.Run{ID: "r1", DealID: "ghost"})
	assert.ErrorIs(t, err, deal.ErrDealNotFound)

	_, err = m.ListRuns(ctx, "ghost")
	assert.True(t, deal.IsNotFound(err))

	_, err = m.GetRun(ctx, "r1")
	assert.ErrorIs(t, err, deal.ErrRunNotFound)
}
