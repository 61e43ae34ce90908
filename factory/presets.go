package factory

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRESET STRUCTURES
// =============================================================================
//
// Common private-equity and real-estate waterfall shapes. Each preset is a
// StructureJSON so it can be served as-is by the API, referenced from a deal
// file, or converted with FromJSON.

// Preset is a named, ready-to-use structure.
type Preset struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Structure   StructureJSON `json:"structure"`
}

// SimpleSplitJSON is a single pro-rata style split with no pref.
func SimpleSplitJSON(lpShare float64) StructureJSON {
	return StructureJSON{
		ID:          "simple-split",
		Name:        "Simple Split",
		Description: "Return of capital, then a single LP/GP split with no hurdle",
		Tiers: []TierJSON{
			{TierNumber: 1, Name: "Profit Split", LPShare: lpShare, GPShare: 1 - lpShare},
		},
	}
}

// PrefCatchUpJSON is a compounding pref, a GP catch-up to carry, then an
// LP/GP split matching that carry.
func PrefCatchUpJSON(prefRate, carry float64) StructureJSON {
	pref, gp := percent(prefRate), percent(carry)
	lp := decimal.NewFromInt(100).Sub(gp)
	return StructureJSON{
		ID:          fmt.Sprintf("pref-%s-catchup-%s", pref, gp),
		Name:        fmt.Sprintf("%s%% Pref, 100%% Catch-Up, %s/%s", pref, lp, gp),
		Description: "Classic PE fund waterfall: compounding pref, full GP catch-up to carry, then carry split",
		PreferredReturn: &PreferredReturnJSON{
			LPPrefRate:           prefRate,
			GPPrefRate:           prefRate,
			AccrualType:          "cumulative",
			CompoundingFrequency: "annual",
			CatchUp:              &CatchUpJSON{TargetShare: carry, GPPercent: 1},
		},
		Tiers: []TierJSON{
			{TierNumber: 1, Name: "Carried Interest", LPShare: 1 - carry, GPShare: carry},
		},
	}
}

// percent renders a fraction as a whole-number percentage, so 0.08 is "8".
func percent(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Shift(2)
}

// IRRHurdlesJSON is an 8% pref followed by promotes stepping up at 12% and
// 18% LP IRR.
func IRRHurdlesJSON() StructureJSON {
	irr12, irr18 := 0.12, 0.18
	return StructureJSON{
		ID:          "irr-hurdles",
		Name:        "IRR Hurdles 12% / 18%",
		Description: "Real estate style: 8% pref, 80/20 to a 12% IRR, 70/30 to 18%, 60/40 above",
		PreferredReturn: &PreferredReturnJSON{
			LPPrefRate:           0.08,
			GPPrefRate:           0.08,
			AccrualType:          "cumulative",
			CompoundingFrequency: "annual",
		},
		Tiers: []TierJSON{
			{TierNumber: 1, Name: "Tier 1", HurdleType: "none", LPShare: 0.8, GPShare: 0.2},
			{TierNumber: 2, Name: "Tier 2", HurdleType: "irr", IRRHurdle: &irr12, LPShare: 0.7, GPShare: 0.3},
			{TierNumber: 3, Name: "Tier 3", HurdleType: "irr", IRRHurdle: &irr18, LPShare: 0.6, GPShare: 0.4},
		},
	}
}

// MultipleHurdlesJSON is a promote stepping up at 1.5x and 2.0x LP equity
// multiple.
func MultipleHurdlesJSON() StructureJSON {
	m15, m20 := 1.5, 2.0
	return StructureJSON{
		ID:          "multiple-hurdles",
		Name:        "Equity Multiple Hurdles 1.5x / 2.0x",
		Description: "90/10 to a 1.5x LP multiple, 80/20 to 2.0x, 70/30 above",
		Tiers: []TierJSON{
			{TierNumber: 1, Name: "Base", HurdleType: "none", LPShare: 0.9, GPShare: 0.1},
			{TierNumber: 2, Name: "1.5x", HurdleType: "equity_multiple", MultipleHurdle: &m15, LPShare: 0.8, GPShare: 0.2},
			{TierNumber: 3, Name: "2.0x", HurdleType: "equity_multiple", MultipleHurdle: &m20, LPShare: 0.7, GPShare: 0.3},
		},
	}
}

// Presets returns the built-in structures in display order.
func Presets() []Preset {
	structures := []StructureJSON{
		SimpleSplitJSON(0.8),
		PrefCatchUpJSON(0.08, 0.2),
		IRRHurdlesJSON(),
		MultipleHurdlesJSON(),
	}
	presets := make([]Preset, 0, len(structures))
	for _, s := range structures {
		presets = append(presets, Preset{ID: s.ID, Name: s.Name, Description: s.Description, Structure: s})
	}
	return presets
}

// PresetByID looks up a built-in structure.
func PresetByID(id string) (Preset, bool) {
	for _, p := range Presets() {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
