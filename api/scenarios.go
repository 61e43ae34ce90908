/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	deals for demos. Each scenario creates one or more deals from the
	built-in presets and runs them, so the run history is populated.

AVAILABLE SCENARIOS:

	pe-fund:          8% pref, full catch-up, 80/20 carry on a 2.0x fund
	re-development:   IRR-hurdle promote with a dated project cash flow series
	multiple-hurdles: Equity multiple gated promote, several exit totals
	distressed:       Exit below invested capital, no profit to split

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create deals via the deal service (validated like any API deal)
 3. Run each deal for its exit totals

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "pe-fund"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its deals to 'scenarioDeals'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared helpers
  - factory/presets.go: Structure definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/factory"
	"github.com/warp/distribution-engine/logger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "pe-fund",
		Name:        "PE Fund",
		Description: "8% compounding pref, 100% GP catch-up, 80/20 carry, 2.0x exit",
		Category:    "fund",
	},
	{
		ID:          "re-development",
		Name:        "Real Estate Development",
		Description: "IRR hurdles at 12% and 18% with yearly project cash flows",
		Category:    "real_estate",
	},
	{
		ID:          "multiple-hurdles",
		Name:        "Multiple Hurdles",
		Description: "Promote stepping up at 1.5x and 2.0x equity multiple",
		Category:    "real_estate",
	},
	{
		ID:          "distressed",
		Name:        "Distressed Exit",
		Description: "Proceeds below invested capital, returned pro rata",
		Category:    "fund",
	},
}

// scenarioDeal is a deal to create and the totals to run it for.
type scenarioDeal struct {
	deal   factory.DealJSON
	totals []float64
}

var scenarioDeals = map[string][]scenarioDeal{
	"pe-fund": {
		{
			deal: factory.DealJSON{
				ID:        "fund-i",
				Name:      "Fund I",
				Preset:    "pref-8-catchup-20",
				LPEquity:  9_000_000,
				GPEquity:  1_000_000,
				HoldYears: 5,
			},
			totals: []float64{18_000_000},
		},
	},
	"re-development": {
		{
			deal: factory.DealJSON{
				ID:        "harbor-view",
				Name:      "Harbor View Development",
				Preset:    "irr-hurdles",
				LPEquity:  4_500_000,
				GPEquity:  500_000,
				HoldYears: 5,
				CashFlows: []factory.CashFlowJSON{
					{Period: 0, Amount: -5_000_000},
					{Period: 2, Amount: 400_000},
					{Period: 3, Amount: 600_000},
					{Period: 4, Amount: 800_000},
					{Period: 5, Amount: 7_200_000},
				},
			},
			totals: []float64{9_000_000},
		},
	},
	"multiple-hurdles": {
		{
			deal: factory.DealJSON{
				ID:        "main-street",
				Name:      "Main Street Retail",
				Preset:    "multiple-hurdles",
				LPEquity:  900_000,
				GPEquity:  100_000,
				HoldYears: 4,
			},
			totals: []float64{1_400_000, 1_800_000, 2_500_000},
		},
	},
	"distressed": {
		{
			deal: factory.DealJSON{
				ID:        "office-park",
				Name:      "Office Park",
				Structure: ptr(factory.SimpleSplitJSON(0.8)),
				LPEquity:  800_000,
				GPEquity:  200_000,
				HoldYears: 3,
			},
			totals: []float64{700_000},
		},
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}

	deals, ok := scenarioDeals[req.ScenarioID]
	if !ok {
		writeErrorCode(w, http.StatusBadRequest, "Unknown scenario", "invalid_input", nil)
		return
	}

	ctx := r.Context()

	// Loads are serialized so two requests cannot interleave their resets.
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	runs := 0
	for _, sd := range deals {
		n, err := h.loadDeal(ctx, sd)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
			return
		}
		runs += n
	}

	h.currentScenario = req.ScenarioID
	logger.FromContext(ctx).Info("scenario loaded", "scenario", req.ScenarioID, "deals", len(deals), "runs", runs)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"deals":    len(deals),
		"runs":     runs,
	})
}

// loadDeal creates a scenario deal and runs it for each of its totals.
func (h *Handler) loadDeal(ctx context.Context, sd scenarioDeal) (int, error) {
	df, err := factory.DealFromJSON(sd.deal)
	if err != nil {
		return 0, err
	}

	d, err := h.Service.CreateDeal(ctx, df.Deal)
	if err != nil {
		return 0, err
	}

	for _, total := range sd.totals {
		if _, err := h.Service.RunDeal(ctx, d.ID, decimal.NewFromFloat(total)); err != nil {
			return 0, err
		}
	}
	return len(sd.totals), nil
}

func ptr[T any](v T) *T {
	return &v
}
