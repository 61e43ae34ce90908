/*
handlers.go - HTTP API handlers for the distribution waterfall engine

PURPOSE:
  Exposes the waterfall engine and the deal service via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Waterfall:
    POST   /api/waterfall/run          Run an ad-hoc deal document
    POST   /api/waterfall/validate     Validate a deal document, return warnings

  Presets:
    GET    /api/presets                List built-in structures
    GET    /api/presets/{id}           Get one structure

  Deals:
    GET    /api/deals                  List deals
    POST   /api/deals                  Create deal from a deal document
    GET    /api/deals/{id}             Get deal
    GET    /api/deals/{id}/runs        Run history (summaries)
    POST   /api/deals/{id}/runs        Run deal and store the result
    POST   /api/deals/{id}/sweep       Evaluate many totals, not stored

  Runs:
    GET    /api/runs/{id}              Get a stored run with its tier ledger

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    GET    /api/scenarios/current      Currently loaded scenario
    POST   /api/scenarios/load         Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: Deal lifecycle, memoized evaluation, sweeps
  - Store: Database access for health checks and scenario resets

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid capital structure, malformed split, hurdle order, bad input
  - 404: Deal or run not found
  - 409: Duplicate deal or run ID
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/factory"
	"github.com/warp/distribution-engine/logger"
	"github.com/warp/distribution-engine/store/sqlite"
	"github.com/warp/distribution-engine/waterfall"
)

// MaxSweepPoints bounds the scenarios one sweep request may evaluate.
const MaxSweepPoints = 200

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *deal.Service
	Store   *sqlite.Store

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, svc *deal.Service) *Handler {
	return &Handler{
		Service: svc,
		Store:   store,
	}
}

// =============================================================================
// WATERFALL HANDLERS
// =============================================================================

// RunWaterfall evaluates a deal document without storing it.
func (h *Handler) RunWaterfall(w http.ResponseWriter, r *http.Request) {
	df, ok := decodeDeal(w, r)
	if !ok {
		return
	}
	if df.Total == nil {
		writeErrorCode(w, http.StatusBadRequest, "total_distributable is required", "invalid_input", nil)
		return
	}

	result, err := h.Service.Evaluate(r.Context(), df.Deal.Input(*df.Total))
	if err != nil {
		writeDomainError(w, r, "Failed to run waterfall", err)
		return
	}

	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// ValidateWaterfall checks a deal document and reports recovered issues.
func (h *Handler) ValidateWaterfall(w http.ResponseWriter, r *http.Request) {
	df, ok := decodeDeal(w, r)
	if !ok {
		return
	}
	total := decimal.Zero
	if df.Total != nil {
		total = *df.Total
	}

	warnings, err := waterfall.Validate(df.Deal.Input(total))
	if err != nil {
		writeDomainError(w, r, "Invalid waterfall", err)
		return
	}

	dtos := make([]WarningDTO, len(warnings))
	for i, wn := range warnings {
		dtos[i] = WarningDTO{Code: wn.Code, Message: wn.Message, TierNumber: wn.TierNumber}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"warnings": dtos,
	})
}

// =============================================================================
// PRESET HANDLERS
// =============================================================================

// ListPresets returns the built-in structures.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.Presets())
}

// GetPreset returns one built-in structure.
func (h *Handler) GetPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := factory.PresetByID(id)
	if !ok {
		writeErrorCode(w, http.StatusNotFound, "Preset not found", "not_found", nil)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// DEAL HANDLERS
// =============================================================================

// ListDeals returns all deals.
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.Service.ListDeals(r.Context())
	if err != nil {
		writeDomainError(w, r, "Failed to list deals", err)
		return
	}

	dtos := make([]DealDTO, len(deals))
	for i, d := range deals {
		dtos[i] = toDealDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDeal stores a deal document. A total in the document is ignored;
// totals are supplied per run.
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	df, ok := decodeDeal(w, r)
	if !ok {
		return
	}

	d, err := h.Service.CreateDeal(r.Context(), df.Deal)
	if err != nil {
		writeDomainError(w, r, "Failed to create deal", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDealDTO(*d))
}

// GetDeal returns a single deal.
func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := h.Service.GetDeal(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "Failed to get deal", err)
		return
	}

	writeJSON(w, http.StatusOK, toDealDTO(*d))
}

// RunDeal runs a stored deal and appends the run to its history.
func (h *Handler) RunDeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RunDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}
	if req.TotalDistributable == nil {
		writeErrorCode(w, http.StatusBadRequest, "total_distributable is required", "invalid_input", nil)
		return
	}

	run, err := h.Service.RunDeal(r.Context(), id, decimal.NewFromFloat(*req.TotalDistributable))
	if err != nil {
		writeDomainError(w, r, "Failed to run deal", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRunDTO(*run))
}

// ListRuns returns the run history of a deal, oldest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	runs, err := h.Service.ListRuns(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "Failed to list runs", err)
		return
	}

	dtos := make([]RunSummaryDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunSummaryDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns a stored run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Service.GetRun(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "Failed to get run", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// SweepDeal evaluates a deal across many totals.
func (h *Handler) SweepDeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}

	totals, err := sweepTotals(req)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "Invalid sweep", "invalid_input", err)
		return
	}

	points, err := h.Service.Sweep(r.Context(), id, totals)
	if err != nil {
		writeDomainError(w, r, "Failed to sweep deal", err)
		return
	}

	dtos := make([]SweepPointDTO, len(points))
	for i, p := range points {
		dtos[i] = toSweepPointDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// sweepTotals expands a sweep request into the totals to evaluate.
func sweepTotals(req SweepRequest) ([]decimal.Decimal, error) {
	if len(req.Totals) > 0 {
		if len(req.Totals) > MaxSweepPoints {
			return nil, fmt.Errorf("at most %d totals per sweep, got %d", MaxSweepPoints, len(req.Totals))
		}
		totals := make([]decimal.Decimal, len(req.Totals))
		for i, t := range req.Totals {
			totals[i] = decimal.NewFromFloat(t)
		}
		return totals, nil
	}

	switch {
	case req.Steps < 1:
		return nil, errors.New("either totals or steps must be given")
	case req.Steps > MaxSweepPoints:
		return nil, fmt.Errorf("at most %d steps per sweep, got %d", MaxSweepPoints, req.Steps)
	case req.Max < req.Min:
		return nil, fmt.Errorf("max %v is below min %v", req.Max, req.Min)
	}

	lo := decimal.NewFromFloat(req.Min)
	if req.Steps == 1 {
		return []decimal.Decimal{lo}, nil
	}
	span := decimal.NewFromFloat(req.Max).Sub(lo)
	last := decimal.NewFromInt(int64(req.Steps - 1))

	totals := make([]decimal.Decimal, req.Steps)
	for i := range totals {
		totals[i] = lo.Add(span.Mul(decimal.NewFromInt(int64(i))).Div(last)).Round(2)
	}
	return totals, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports database reachability and the memo cache size.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeErrorCode(w, http.StatusServiceUnavailable, "Database unavailable", "unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", CachedResults: h.Service.CachedResults()})
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeDeal reads a factory.DealJSON body. On failure it writes the
// response and returns false.
func decodeDeal(w http.ResponseWriter, r *http.Request) (*factory.DealFile, bool) {
	var dj factory.DealJSON
	if err := json.NewDecoder(r.Body).Decode(&dj); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return nil, false
	}

	df, err := factory.DealFromJSON(dj)
	if err != nil {
		writeDomainError(w, r, "Invalid deal", err)
		return nil, false
	}
	return df, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, message, "", err)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps service and engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(message, "error", err, "path", r.URL.Path)
	}
	writeErrorCode(w, status, message, code, err)
}

func errorStatus(err error) (int, string) {
	switch {
	case waterfall.IsClientError(err):
		return http.StatusBadRequest, waterfall.ErrorCode(err)
	case errors.Is(err, factory.ErrUnknownPreset):
		return http.StatusBadRequest, "unknown_preset"
	case deal.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, deal.ErrDuplicateDeal), errors.Is(err, deal.ErrDuplicateRun):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
