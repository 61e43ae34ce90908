/*
service.go - Deal orchestration: create, evaluate, run, sweep

PURPOSE:
  Wraps the pure waterfall engine with persistence and caching.

MEMOIZATION:
  waterfall.Run depends on nothing but its Input, so results are cached by
  a SHA-256 of the JSON-encoded input. Cached results are shared; callers
  must treat them as read-only.

SWEEPS:
  Sweep evaluates one deal against many distributable totals in parallel.
  Output order matches the input order. A failed scenario cancels the rest.

SEE ALSO:
  - store.go: Persistence boundary
  - waterfall/engine.go: The engine being wrapped
*/
package deal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/logger"
	"github.com/warp/distribution-engine/waterfall"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCacheTTL         = 10 * time.Minute
	DefaultSweepConcurrency = 4
)

// Options tunes a Service. Zero values take the defaults.
type Options struct {
	CacheTTL         time.Duration
	SweepConcurrency int
	Logger           *slog.Logger
	Now              func() time.Time
}

// Service is the entry point for deal operations.
type Service struct {
	store      Store
	engine     *waterfall.Engine
	cache      *cache.Cache
	sweepLimit int
	now        func() time.Time
}

// NewService creates a deal service backed by store.
func NewService(store Store, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.SweepConcurrency <= 0 {
		opts.SweepConcurrency = DefaultSweepConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = logger.L
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      store,
		engine:     waterfall.NewEngine(opts.Logger),
		cache:      cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		sweepLimit: opts.SweepConcurrency,
		now:        opts.Now,
	}
}

// =============================================================================
// DEALS
// =============================================================================

// CreateDeal validates d and stores it. An empty ID is assigned a UUID.
// Validation runs the same checks as the engine with nothing to distribute.
func (s *Service) CreateDeal(ctx context.Context, d Deal) (*Deal, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if _, err := waterfall.Validate(d.Input(decimal.Zero)); err != nil {
		return nil, fmt.Errorf("deal %s: %w", d.ID, err)
	}
	d.CreatedAt = s.now().UTC()

	if err := s.store.SaveDeal(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save deal %s: %w", d.ID, err)
	}
	logger.FromContext(ctx).Info("deal created", "deal_id", d.ID, "tiers", len(d.Structure.Tiers))
	return &d, nil
}

func (s *Service) GetDeal(ctx context.Context, id string) (*Deal, error) {
	return s.store.GetDeal(ctx, id)
}

func (s *Service) ListDeals(ctx context.Context) ([]Deal, error) {
	return s.store.ListDeals(ctx)
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate runs the waterfall for in, serving repeated inputs from cache.
func (s *Service) Evaluate(ctx context.Context, in waterfall.Input) (*waterfall.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := inputKey(in)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*waterfall.Result), nil
	}

	result, err := s.engine.Run(in)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, result)
	return result, nil
}

// CachedResults reports how many results are memoized.
func (s *Service) CachedResults() int {
	return s.cache.ItemCount()
}

// inputKey hashes the canonical JSON encoding of in.
func inputKey(in waterfall.Input) (string, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to encode waterfall input: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// =============================================================================
// RUNS
// =============================================================================

// RunDeal evaluates a stored deal for total and appends the run.
func (s *Service) RunDeal(ctx context.Context, dealID string, total decimal.Decimal) (*Run, error) {
	d, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	result, err := s.Evaluate(ctx, d.Input(total))
	if err != nil {
		return nil, fmt.Errorf("deal %s: %w", dealID, err)
	}

	r := Run{
		ID:                 uuid.New().String(),
		DealID:             d.ID,
		TotalDistributable: total,
		Result:             result,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.store.AppendRun(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to append run for deal %s: %w", dealID, err)
	}

	logger.FromContext(ctx).Info("deal run recorded",
		"deal_id", d.ID,
		"run_id", r.ID,
		"total", total.String(),
		"warnings", len(result.Warnings))
	return &r, nil
}

func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.store.GetRun(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, dealID string) ([]Run, error) {
	return s.store.ListRuns(ctx, dealID)
}

// =============================================================================
// SWEEPS
// =============================================================================

// Sweep evaluates a deal for each total in parallel. Results are returned in
// the order of totals and are not persisted.
func (s *Service) Sweep(ctx context.Context, dealID string, totals []decimal.Decimal) ([]SweepPoint, error) {
	d, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, len(totals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.sweepLimit)

	for i, total := range totals {
		g.Go(func() error {
			result, err := s.Evaluate(gctx, d.Input(total))
			if err != nil {
				return fmt.Errorf("sweep total %s: %w", total, err)
			}
			points[i] = SweepPoint{TotalDistributable: total, Result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("sweep complete", "deal_id", dealID, "scenarios", len(totals))
	return points, nil
}
