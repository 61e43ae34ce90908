/*
store.go - Persistence interface for deals and runs

PURPOSE:
  Defines the boundary between the deal service and the database.

APPEND-ONLY CONTRACT:
  Runs are never updated or deleted. A run ID that already exists is
  rejected with ErrDuplicateRun. Deals are written once; a second SaveDeal
  with the same ID returns ErrDuplicateDeal.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - deal/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: The only writer
*/
package deal

import "context"

// Store handles persistence of deals and runs.
type Store interface {
	SaveDeal(ctx context.Context, d Deal) error
	GetDeal(ctx context.Context, id string) (*Deal, error)
	// ListDeals returns every deal, oldest first.
	ListDeals(ctx context.Context) ([]Deal, error)

	// AppendRun persists a run. This is the only run write.
	AppendRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns a deal's runs in the order they were appended.
	ListRuns(ctx context.Context, dealID string) ([]Run, error)
}
