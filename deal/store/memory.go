// Package store provides in-memory deal.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/distribution-engine/deal"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	deals     map[string]deal.Deal
	dealOrder []string
	runs      map[string]deal.Run
	runsBy    map[string][]string // dealID -> run IDs in append order
}

func NewMemory() *Memory {
	return &Memory{
		deals:  make(map[string]deal.Deal),
		runs:   make(map[string]deal.Run),
		runsBy: make(map[string][]string),
	}
}

func (m *Memory) SaveDeal(_ context.Context, d deal.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deals[d.ID]; ok {
		return deal.ErrDuplicateDeal
	}
	m.deals[d.ID] = d
	m.dealOrder = append(m.dealOrder, d.ID)
	return nil
}

func (m *Memory) GetDeal(_ context.Context, id string) (*deal.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deals[id]
	if !ok {
		return nil, &deal.NotFoundError{Kind: "deal", ID: id}
	}
	return &d, nil
}

func (m *Memory) ListDeals(_ context.Context) ([]deal.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]deal.Deal, 0, len(m.dealOrder))
	for _, id := range m.dealOrder {
		result = append(result, m.deals[id])
	}
	return result, nil
}

// AppendRun adds a run. Append-only.
func (m *Memory) AppendRun(_ context.Context, r deal.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deals[r.DealID]; !ok {
		return &deal.NotFoundError{Kind: "deal", ID: r.DealID}
	}
	if _, ok := m.runs[r.ID]; ok {
		return deal.ErrDuplicateRun
	}
	m.runs[r.ID] = r
	m.runsBy[r.DealID] = append(m.runsBy[r.DealID], r.ID)
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*deal.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, &deal.NotFoundError{Kind: "run", ID: id}
	}
	return &r, nil
}

func (m *Memory) ListRuns(_ context.Context, dealID string) ([]deal.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.deals[dealID]; !ok {
		return nil, &deal.NotFoundError{Kind: "deal", ID: dealID}
	}
	ids := m.runsBy[dealID]
	result := make([]deal.Run, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.runs[id])
	}
	return result, nil
}

var _ deal.Store = (*Memory)(nil)
