/*
Package sqlite provides a SQLite-backed implementation of deal.Store.

PURPOSE:
  Persists deals and their waterfall runs. Money is stored as decimal
  strings and run results as JSON, so a stored Result reads back exactly
  as it was computed.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on runs
  - No DELETE statements on runs (outside Reset, which is for demos)
  - A run ID can be written once; a retry returns deal.ErrDuplicateRun

KEY TABLES:
  deals: Structure, capital stack, hold period, optional project flows
  runs:  Immutable evaluation records, one per RunDeal call

INDEXES:
  - idx_runs_deal: Run history per deal (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection so every query sees the same database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/waterfall.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := deal.NewService(store, deal.Options{})

SEE ALSO:
  - deal/store.go: Interface definition
  - deal/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/distribution-engine/deal"
	"github.com/warp/distribution-engine/waterfall"
)

// Store implements deal.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ deal.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Deals
	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		structure_json TEXT NOT NULL,
		lp_equity TEXT NOT NULL,
		gp_equity TEXT NOT NULL,
		hold_years REAL NOT NULL,
		cash_flows_json TEXT,
		created_at TEXT NOT NULL
	);

	-- Runs (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		deal_id TEXT NOT NULL REFERENCES deals(id),
		total_distributable TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_deal
		ON runs(deal_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DEAL STORE
// =============================================================================

// SaveDeal inserts a deal. Deals are written once.
func (s *Store) SaveDeal(ctx context.Context, d deal.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	structureJSON, err := json.Marshal(d.Structure)
	if err != nil {
		return fmt.Errorf("failed to encode structure: %w", err)
	}
	var cashFlowsJSON sql.NullString
	if len(d.CashFlows) > 0 {
		b, err := json.Marshal(d.CashFlows)
		if err != nil {
			return fmt.Errorf("failed to encode cash flows: %w", err)
		}
		cashFlowsJSON = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO deals
		(id, name, structure_json, lp_equity, gp_equity, hold_years, cash_flows_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		string(structureJSON),
		d.Capital.LPEquity.String(),
		d.Capital.GPEquity.String(),
		d.HoldYears,
		cashFlowsJSON,
		formatTime(d.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
			return deal.ErrDuplicateDeal
		}
		return fmt.Errorf("failed to save deal: %w", err)
	}
	return nil
}

// GetDeal returns a deal by ID.
func (s *Store) GetDeal(ctx context.Context, id string) (*deal.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, structure_json, lp_equity, gp_equity, hold_years, cash_flows_json, created_at
		FROM deals WHERE id = ?
	`, id)

	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &deal.NotFoundError{Kind: "deal", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeals returns every deal, oldest first.
func (s *Store) ListDeals(ctx context.Context) ([]deal.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, structure_json, lp_equity, gp_equity, hold_years, cash_flows_json, created_at
		FROM deals ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var result []deal.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeal(row scanner) (deal.Deal, error) {
	var (
		d                  deal.Deal
		structureJSON      string
		lpEquity, gpEquity string
		cashFlowsJSON      sql.NullString
		createdAt          string
	)
	if err := row.Scan(&d.ID, &d.Name, &structureJSON, &lpEquity, &gpEquity, &d.HoldYears, &cashFlowsJSON, &createdAt); err != nil {
		return d, err
	}

	if err := json.Unmarshal([]byte(structureJSON), &d.Structure); err != nil {
		return d, fmt.Errorf("failed to decode structure of deal %s: %w", d.ID, err)
	}
	if cashFlowsJSON.Valid {
		if err := json.Unmarshal([]byte(cashFlowsJSON.String), &d.CashFlows); err != nil {
			return d, fmt.Errorf("failed to decode cash flows of deal %s: %w", d.ID, err)
		}
	}
	d.Capital = waterfall.CapitalStructure{
		LPEquity: decimal.RequireFromString(lpEquity),
		GPEquity: decimal.RequireFromString(gpEquity),
	}
	d.CreatedAt = parseTime(createdAt)
	return d, nil
}

// =============================================================================
// RUN STORE (append-only)
// =============================================================================

// AppendRun records a run.
func (s *Store) AppendRun(ctx context.Context, r deal.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultJSON, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}

	query := `
		INSERT INTO runs (id, deal_id, total_distributable, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.DealID,
		r.TotalDistributable.String(),
		string(resultJSON),
		formatTime(r.CreatedAt),
	)
	if err != nil {
		switch {
		case isConstraintError(err, sqlite3.ErrConstraintForeignKey):
			return &deal.NotFoundError{Kind: "deal", ID: r.DealID}
		case isConstraintError(err, sqlite3.ErrConstraintUnique):
			return deal.ErrDuplicateRun
		}
		return fmt.Errorf("failed to append run: %w", err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*deal.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, deal_id, total_distributable, result_json, created_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &deal.NotFoundError{Kind: "run", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns a deal's runs in append order.
func (s *Store) ListRuns(ctx context.Context, dealID string) ([]deal.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM deals WHERE id = ?", dealID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, &deal.NotFoundError{Kind: "deal", ID: dealID}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, deal_id, total_distributable, result_json, created_at
		FROM runs WHERE deal_id = ? ORDER BY seq ASC
	`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var result []deal.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRun(row scanner) (deal.Run, error) {
	var (
		r          deal.Run
		total      string
		resultJSON string
		createdAt  string
	)
	if err := row.Scan(&r.ID, &r.DealID, &total, &resultJSON, &createdAt); err != nil {
		return r, err
	}

	r.TotalDistributable = decimal.RequireFromString(total)
	r.Result = &waterfall.Result{}
	if err := json.Unmarshal([]byte(resultJSON), r.Result); err != nil {
		return r, fmt.Errorf("failed to decode result of run %s: %w", r.ID, err)
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"runs", "deals"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// isConstraintError reports whether err is a SQLite constraint violation
// with one of the given extended codes.
func isConstraintError(err error, codes ...sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return false
	}
	for _, c := range codes {
		if sqliteErr.ExtendedCode == c {
			return true
		}
	}
	return false
}
