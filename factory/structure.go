/*
Package factory provides JSON/YAML to Go waterfall conversion.

PURPOSE:
  Converts structure and deal definitions written as JSON or YAML into
  waterfall.Structure and deal.Deal values. Rates, shares and money are
  plain numbers in the documents; the factory turns money and fractions
  into decimals.

JSON SCHEMA (structure):
  {
    "id": "pref-8-catchup-20",
    "name": "8% Pref, 100% Catch-Up, 80/20",
    "preferred_return": {
      "lp_pref_rate": 0.08,
      "gp_pref_rate": 0.08,
      "accrual_type": "cumulative",
      "compounding_frequency": "annual",
      "catch_up": {"target_share": 0.2, "gp_percent": 1.0}
    },
    "tiers": [
      {"tier_number": 1, "lp_share": 0.8, "gp_share": 0.2}
    ]
  }

DEAL FILES:
  A deal wraps a structure (inline or by preset ID) with the capital stack:

    name: Fund I
    preset: pref-8-catchup-20
    lp_equity: 9000000
    gp_equity: 1000000
    hold_years: 5
    total_distributable: 18000000

KEY FEATURES:
  - A present preferred_return block enables the pref unless "enabled" is false
  - A present catch_up block enables the catch-up
  - Hurdle type is inferred from which thresholds are set
  - Structural validation is left to the engine

SEE ALSO:
  - presets.go: Built-in structures
  - waterfall/types.go: Target types
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/waterfall"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPreset is returned when a deal references a preset that doesn't exist.
var ErrUnknownPreset = errors.New("unknown preset")

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// StructureJSON is the document form of a waterfall structure.
type StructureJSON struct {
	ID              string               `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string               `json:"name,omitempty" yaml:"name,omitempty"`
	Description     string               `json:"description,omitempty" yaml:"description,omitempty"`
	PreferredReturn *PreferredReturnJSON `json:"preferred_return,omitempty" yaml:"preferred_return,omitempty"`
	Tiers           []TierJSON           `json:"tiers" yaml:"tiers"`
}

// PreferredReturnJSON represents pref and catch-up settings.
type PreferredReturnJSON struct {
	Enabled              *bool        `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	LPPrefRate           float64      `json:"lp_pref_rate" yaml:"lp_pref_rate"`
	GPPrefRate           float64      `json:"gp_pref_rate" yaml:"gp_pref_rate"`
	AccrualType          string       `json:"accrual_type,omitempty" yaml:"accrual_type,omitempty"`                   // cumulative, simple
	CompoundingFrequency string       `json:"compounding_frequency,omitempty" yaml:"compounding_frequency,omitempty"` // annual, quarterly, monthly
	CatchUp              *CatchUpJSON `json:"catch_up,omitempty" yaml:"catch_up,omitempty"`
}

// CatchUpJSON represents the GP catch-up.
type CatchUpJSON struct {
	TargetShare float64 `json:"target_share" yaml:"target_share"`
	GPPercent   float64 `json:"gp_percent" yaml:"gp_percent"`
}

// TierJSON represents a promote tier.
type TierJSON struct {
	TierNumber     int      `json:"tier_number" yaml:"tier_number"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	HurdleType     string   `json:"hurdle_type,omitempty" yaml:"hurdle_type,omitempty"` // none, irr, equity_multiple, both
	IRRHurdle      *float64 `json:"irr_hurdle,omitempty" yaml:"irr_hurdle,omitempty"`
	MultipleHurdle *float64 `json:"multiple_hurdle,omitempty" yaml:"multiple_hurdle,omitempty"`
	HurdleLogic    string   `json:"hurdle_logic,omitempty" yaml:"hurdle_logic,omitempty"` // and, or
	LPShare        float64  `json:"lp_share" yaml:"lp_share"`
	GPShare        float64  `json:"gp_share" yaml:"gp_share"`
}

// CashFlowJSON is a signed project cash flow at a year offset.
type CashFlowJSON struct {
	Period float64 `json:"period" yaml:"period"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// DealJSON is the document form of a deal.
type DealJSON struct {
	ID                 string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string         `json:"name" yaml:"name"`
	Preset             string         `json:"preset,omitempty" yaml:"preset,omitempty"`
	Structure          *StructureJSON `json:"structure,omitempty" yaml:"structure,omitempty"`
	LPEquity           float64        `json:"lp_equity" yaml:"lp_equity"`
	GPEquity           float64        `json:"gp_equity" yaml:"gp_equity"`
	HoldYears          float64        `json:"hold_years" yaml:"hold_years"`
	CashFlows          []CashFlowJSON `json:"cash_flows,omitempty" yaml:"cash_flows,omitempty"`
	TotalDistributable *float64       `json:"total_distributable,omitempty" yaml:"total_distributable,omitempty"`
}

// DealFile is a parsed deal document. Total is set when the document
// carries a distributable total.
type DealFile struct {
	Deal  deal.Deal
	Total *decimal.Decimal
}

// =============================================================================
// STRUCTURE CONVERSION
// =============================================================================

// FromJSON converts StructureJSON to a waterfall.Structure.
func FromJSON(sj StructureJSON) waterfall.Structure {
	var s waterfall.Structure

	if pj := sj.PreferredReturn; pj != nil {
		s.PreferredReturn = waterfall.PreferredReturnConfig{
			Enabled:              pj.Enabled == nil || *pj.Enabled,
			LPPrefRate:           pj.LPPrefRate,
			GPPrefRate:           pj.GPPrefRate,
			AccrualType:          waterfall.AccrualType(pj.AccrualType),
			CompoundingFrequency: waterfall.CompoundingFrequency(pj.CompoundingFrequency),
		}
		if cj := pj.CatchUp; cj != nil {
			s.PreferredReturn.CatchUpEnabled = true
			s.PreferredReturn.CatchUpTargetShare = decimal.NewFromFloat(cj.TargetShare)
			s.PreferredReturn.CatchUpGPPercent = decimal.NewFromFloat(cj.GPPercent)
		}
	}

	for _, tj := range sj.Tiers {
		s.Tiers = append(s.Tiers, parseTier(tj))
	}
	return s
}

func parseTier(tj TierJSON) waterfall.PromoteTier {
	t := waterfall.PromoteTier{
		TierNumber:  tj.TierNumber,
		Name:        tj.Name,
		HurdleType:  waterfall.HurdleType(tj.HurdleType),
		HurdleLogic: waterfall.HurdleLogic(tj.HurdleLogic),
		LPShare:     decimal.NewFromFloat(tj.LPShare),
		GPShare:     decimal.NewFromFloat(tj.GPShare),
	}
	if tj.IRRHurdle != nil {
		r := *tj.IRRHurdle
		t.IRRHurdle = &r
	}
	if tj.MultipleHurdle != nil {
		m := decimal.NewFromFloat(*tj.MultipleHurdle)
		t.MultipleHurdle = &m
	}
	return t
}

// ToJSON converts a waterfall.Structure to StructureJSON.
func ToJSON(s waterfall.Structure) StructureJSON {
	var sj StructureJSON

	pref := s.PreferredReturn
	if pref.Enabled || pref.CatchUpEnabled {
		enabled := pref.Enabled
		sj.PreferredReturn = &PreferredReturnJSON{
			Enabled:              &enabled,
			LPPrefRate:           pref.LPPrefRate,
			GPPrefRate:           pref.GPPrefRate,
			AccrualType:          string(pref.AccrualType),
			CompoundingFrequency: string(pref.CompoundingFrequency),
		}
		if pref.CatchUpEnabled {
			sj.PreferredReturn.CatchUp = &CatchUpJSON{
				TargetShare: pref.CatchUpTargetShare.InexactFloat64(),
				GPPercent:   pref.CatchUpGPPercent.InexactFloat64(),
			}
		}
	}

	sj.Tiers = make([]TierJSON, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		tj := TierJSON{
			TierNumber:  t.TierNumber,
			Name:        t.Name,
			HurdleType:  string(t.HurdleType),
			HurdleLogic: string(t.HurdleLogic),
			LPShare:     t.LPShare.InexactFloat64(),
			GPShare:     t.GPShare.InexactFloat64(),
		}
		if t.IRRHurdle != nil {
			r := *t.IRRHurdle
			tj.IRRHurdle = &r
		}
		if t.MultipleHurdle != nil {
			m := t.MultipleHurdle.InexactFloat64()
			tj.MultipleHurdle = &m
		}
		sj.Tiers = append(sj.Tiers, tj)
	}
	return sj
}

// =============================================================================
// DEAL CONVERSION
// =============================================================================

// ParseDealJSON parses a JSON deal document.
func ParseDealJSON(data []byte) (*DealFile, error) {
	var dj DealJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return nil, fmt.Errorf("failed to parse deal JSON: %w", err)
	}
	return DealFromJSON(dj)
}

// ParseDealYAML parses a YAML deal document.
func ParseDealYAML(data []byte) (*DealFile, error) {
	var dj DealJSON
	if err := yaml.Unmarshal(data, &dj); err != nil {
		return nil, fmt.Errorf("failed to parse deal YAML: %w", err)
	}
	return DealFromJSON(dj)
}

// DealFromJSON converts a DealJSON to a deal. An inline structure wins over
// a preset; a deal with neither gets a pro-rata residual split.
func DealFromJSON(dj DealJSON) (*DealFile, error) {
	var structure waterfall.Structure
	switch {
	case dj.Structure != nil:
		structure = FromJSON(*dj.Structure)
	case dj.Preset != "":
		p, ok := PresetByID(dj.Preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, dj.Preset)
		}
		structure = FromJSON(p.Structure)
	}

	df := &DealFile{
		Deal: deal.Deal{
			ID:        dj.ID,
			Name:      dj.Name,
			Structure: structure,
			Capital:   waterfall.NewCapital(dj.LPEquity, dj.GPEquity),
			HoldYears: dj.HoldYears,
		},
	}
	for _, cf := range dj.CashFlows {
		df.Deal.CashFlows = append(df.Deal.CashFlows, waterfall.CashFlowPoint{
			Period: cf.Period,
			Amount: decimal.NewFromFloat(cf.Amount),
		})
	}
	if dj.TotalDistributable != nil {
		total := decimal.NewFromFloat(*dj.TotalDistributable)
		df.Total = &total
	}
	return df, nil
}
