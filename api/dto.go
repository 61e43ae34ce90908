/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Money, shares
  and multiples are JSON numbers here; the domain keeps them as decimals.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Results:
    ResultDTO, TierResultDTO, PartySummaryDTO, ProjectSummaryDTO,
    ScheduleEntryDTO, WarningDTO

  Deals:
    DealDTO, RunDTO, RunDealRequest (create uses factory.DealJSON)

  Sweeps:
    SweepRequest, SweepPointDTO

  Scenarios:
    ScenarioDTO

VALIDATION:
  Validation is done by the engine, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/structure.go: StructureJSON and DealJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/factory"
	"github.com/warp/distribution-engine/waterfall"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// TierResultDTO is one line of the tier ledger.
type TierResultDTO struct {
	Index               int      `json:"index"`
	Kind                string   `json:"kind"`
	TierNumber          int      `json:"tier_number,omitempty"`
	Name                string   `json:"name"`
	DistributableAmount float64  `json:"distributable_amount"`
	LPDistribution      float64  `json:"lp_distribution"`
	GPDistribution      float64  `json:"gp_distribution"`
	LPSplit             float64  `json:"lp_split"`
	GPSplit             float64  `json:"gp_split"`
	GPPromote           float64  `json:"gp_promote"`
	CumulativeLP        float64  `json:"cumulative_lp"`
	CumulativeGP        float64  `json:"cumulative_gp"`
	RemainingAfter      float64  `json:"remaining_after"`
	LPIRR               *float64 `json:"lp_irr"`
	GPIRR               *float64 `json:"gp_irr"`
	LPMultiple          float64  `json:"lp_multiple"`
	GPMultiple          float64  `json:"gp_multiple"`
	HurdleMet           bool     `json:"hurdle_met"`
	SplitNormalized     bool     `json:"split_normalized,omitempty"`
}

// PartySummaryDTO rolls the ledger up for LP or GP.
type PartySummaryDTO struct {
	Invested        float64  `json:"invested"`
	Distributed     float64  `json:"distributed"`
	Profit          float64  `json:"profit"`
	EquityMultiple  float64  `json:"equity_multiple"`
	IRR             *float64 `json:"irr"`
	ReturnOfCapital float64  `json:"return_of_capital"`
	PreferredReturn float64  `json:"preferred_return"`
	CatchUp         float64  `json:"catch_up"`
	Promote         float64  `json:"promote"`
	PaybackPeriod   *float64 `json:"payback_period"`
}

// ProjectSummaryDTO combines LP and GP.
type ProjectSummaryDTO struct {
	TotalInvested    float64  `json:"total_invested"`
	TotalDistributed float64  `json:"total_distributed"`
	TotalProfit      float64  `json:"total_profit"`
	EquityMultiple   float64  `json:"equity_multiple"`
	IRR              *float64 `json:"irr"`
	TotalPromote     float64  `json:"total_promote"`
	LPProfitShare    float64  `json:"lp_profit_share"`
	GPProfitShare    float64  `json:"gp_profit_share"`
}

// ScheduleEntryDTO is the cash paid in one period.
type ScheduleEntryDTO struct {
	Period float64 `json:"period"`
	LP     float64 `json:"lp"`
	GP     float64 `json:"gp"`
	Total  float64 `json:"total"`
}

// WarningDTO is a recovered issue reported with a result.
type WarningDTO struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	TierNumber int    `json:"tier_number,omitempty"`
}

// ResultDTO is a full waterfall result.
type ResultDTO struct {
	TierResults          []TierResultDTO    `json:"tier_results"`
	LPSummary            PartySummaryDTO    `json:"lp_summary"`
	GPSummary            PartySummaryDTO    `json:"gp_summary"`
	ProjectSummary       ProjectSummaryDTO  `json:"project_summary"`
	DistributionSchedule []ScheduleEntryDTO `json:"distribution_schedule"`
	Warnings             []WarningDTO       `json:"warnings"`
}

// =============================================================================
// DEAL TYPES
// =============================================================================

// DealDTO represents a stored deal.
type DealDTO struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Structure factory.StructureJSON  `json:"structure"`
	LPEquity  float64                `json:"lp_equity"`
	GPEquity  float64                `json:"gp_equity"`
	HoldYears float64                `json:"hold_years"`
	CashFlows []factory.CashFlowJSON `json:"cash_flows,omitempty"`
	CreatedAt string                 `json:"created_at,omitempty"`
}

// RunDealRequest asks for a deal to be run for a distributable total. The
// total is required; an explicit 0 is a valid run.
type RunDealRequest struct {
	TotalDistributable *float64 `json:"total_distributable"`
}

// RunDTO represents a stored run.
type RunDTO struct {
	ID                 string    `json:"id"`
	DealID             string    `json:"deal_id"`
	TotalDistributable float64   `json:"total_distributable"`
	Result             ResultDTO `json:"result"`
	CreatedAt          string    `json:"created_at,omitempty"`
}

// RunSummaryDTO is a run without its tier ledger, for listings.
type RunSummaryDTO struct {
	ID                 string            `json:"id"`
	DealID             string            `json:"deal_id"`
	TotalDistributable float64           `json:"total_distributable"`
	Project            ProjectSummaryDTO `json:"project_summary"`
	CreatedAt          string            `json:"created_at,omitempty"`
}

// =============================================================================
// SWEEP TYPES
// =============================================================================

// SweepRequest lists totals explicitly, or as Steps evenly spaced points
// from Min to Max inclusive.
type SweepRequest struct {
	Totals []float64 `json:"totals,omitempty"`
	Min    float64   `json:"min,omitempty"`
	Max    float64   `json:"max,omitempty"`
	Steps  int       `json:"steps,omitempty"`
}

// SweepPointDTO summarizes one sweep scenario.
type SweepPointDTO struct {
	TotalDistributable float64  `json:"total_distributable"`
	LPDistributed      float64  `json:"lp_distributed"`
	GPDistributed      float64  `json:"gp_distributed"`
	LPIRR              *float64 `json:"lp_irr"`
	GPIRR              *float64 `json:"gp_irr"`
	LPMultiple         float64  `json:"lp_multiple"`
	GPMultiple         float64  `json:"gp_multiple"`
	GPPromote          float64  `json:"gp_promote"`
	GPProfitShare      float64  `json:"gp_profit_share"`
}

// =============================================================================
// MISC
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"` // "fund" or "real_estate"
}

// HealthDTO reports service health.
type HealthDTO struct {
	Status        string `json:"status"`
	CachedResults int    `json:"cached_results"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toResultDTO(r *waterfall.Result) ResultDTO {
	dto := ResultDTO{
		TierResults:          make([]TierResultDTO, len(r.Tiers)),
		LPSummary:            toPartyDTO(r.LPSummary),
		GPSummary:            toPartyDTO(r.GPSummary),
		ProjectSummary:       toProjectDTO(r.ProjectSummary),
		DistributionSchedule: make([]ScheduleEntryDTO, len(r.DistributionSchedule)),
		Warnings:             make([]WarningDTO, len(r.Warnings)),
	}
	for i, t := range r.Tiers {
		dto.TierResults[i] = TierResultDTO{
			Index:               t.Index,
			Kind:                string(t.Kind),
			TierNumber:          t.TierNumber,
			Name:                t.Name,
			DistributableAmount: f64(t.DistributableAmount),
			LPDistribution:      f64(t.LPDistribution),
			GPDistribution:      f64(t.GPDistribution),
			LPSplit:             f64(t.LPSplit),
			GPSplit:             f64(t.GPSplit),
			GPPromote:           f64(t.GPPromote),
			CumulativeLP:        f64(t.CumulativeLP),
			CumulativeGP:        f64(t.CumulativeGP),
			RemainingAfter:      f64(t.RemainingAfter),
			LPIRR:               t.LPIRR,
			GPIRR:               t.GPIRR,
			LPMultiple:          f64(t.LPMultiple),
			GPMultiple:          f64(t.GPMultiple),
			HurdleMet:           t.HurdleMet,
			SplitNormalized:     t.SplitNormalized,
		}
	}
	for i, e := range r.DistributionSchedule {
		dto.DistributionSchedule[i] = ScheduleEntryDTO{Period: e.Period, LP: f64(e.LP), GP: f64(e.GP), Total: f64(e.Total)}
	}
	for i, w := range r.Warnings {
		dto.Warnings[i] = WarningDTO{Code: w.Code, Message: w.Message, TierNumber: w.TierNumber}
	}
	return dto
}

func toPartyDTO(s waterfall.PartySummary) PartySummaryDTO {
	return PartySummaryDTO{
		Invested:        f64(s.Invested),
		Distributed:     f64(s.Distributed),
		Profit:          f64(s.Profit),
		EquityMultiple:  f64(s.EquityMultiple),
		IRR:             s.IRR,
		ReturnOfCapital: f64(s.ReturnOfCapital),
		PreferredReturn: f64(s.PreferredReturn),
		CatchUp:         f64(s.CatchUp),
		Promote:         f64(s.Promote),
		PaybackPeriod:   s.PaybackPeriod,
	}
}

func toProjectDTO(s waterfall.ProjectSummary) ProjectSummaryDTO {
	return ProjectSummaryDTO{
		TotalInvested:    f64(s.TotalInvested),
		TotalDistributed: f64(s.TotalDistributed),
		TotalProfit:      f64(s.TotalProfit),
		EquityMultiple:   f64(s.EquityMultiple),
		IRR:              s.IRR,
		TotalPromote:     f64(s.TotalPromote),
		LPProfitShare:    f64(s.LPProfitShare),
		GPProfitShare:    f64(s.GPProfitShare),
	}
}

func toDealDTO(d deal.Deal) DealDTO {
	dto := DealDTO{
		ID:        d.ID,
		Name:      d.Name,
		Structure: factory.ToJSON(d.Structure),
		LPEquity:  f64(d.Capital.LPEquity),
		GPEquity:  f64(d.Capital.GPEquity),
		HoldYears: d.HoldYears,
		CreatedAt: formatTime(d.CreatedAt),
	}
	for _, cf := range d.CashFlows {
		dto.CashFlows = append(dto.CashFlows, factory.CashFlowJSON{Period: cf.Period, Amount: f64(cf.Amount)})
	}
	return dto
}

func toRunDTO(r deal.Run) RunDTO {
	return RunDTO{
		ID:                 r.ID,
		DealID:             r.DealID,
		TotalDistributable: f64(r.TotalDistributable),
		Result:             toResultDTO(r.Result),
		CreatedAt:          formatTime(r.CreatedAt),
	}
}

func toRunSummaryDTO(r deal.Run) RunSummaryDTO {
	return RunSummaryDTO{
		ID:                 r.ID,
		DealID:             r.DealID,
		TotalDistributable: f64(r.TotalDistributable),
		Project:            toProjectDTO(r.Result.ProjectSummary),
		CreatedAt:          formatTime(r.CreatedAt),
	}
}

func toSweepPointDTO(p deal.SweepPoint) SweepPointDTO {
	r := p.Result
	return SweepPointDTO{
		TotalDistributable: f64(p.TotalDistributable),
		LPDistributed:      f64(r.LPSummary.Distributed),
		GPDistributed:      f64(r.GPSummary.Distributed),
		LPIRR:              r.LPSummary.IRR,
		GPIRR:              r.GPSummary.IRR,
		LPMultiple:         f64(r.LPSummary.EquityMultiple),
		GPMultiple:         f64(r.GPSummary.EquityMultiple),
		GPPromote:          f64(r.GPSummary.Promote),
		GPProfitShare:      f64(r.ProjectSummary.GPProfitShare),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
