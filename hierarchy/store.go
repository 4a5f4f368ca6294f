/*
store.go - Persistence interface for sessions, catalogs and allocations

PURPOSE:
  Defines the interface between the allocation workflow and the database.
  The engine never touches the Store; the planner loads state, runs the
  engine, and writes the result back.

REPLACE SEMANTICS:
  Allocations are never updated row by row. ReplaceAllocations swaps the
  whole set for one (session, period) atomically: delete, then bulk insert.
  Two racing saves resolve as last-write-wins.

  ReplaceCatalog is the full re-import: hierarchy columns, SKUs and every
  allocation of the session (all periods) are replaced in one transaction.

PERIODS:
  Period "" is the default scenario and always exists. ListPeriods returns it
  first, then the named periods that have allocations, in ascending order.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - hierarchy/store/memory.go: In-memory for testing
*/
package hierarchy

import "context"

// Store persists sessions, their catalog and their allocations.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	// GetSession returns ErrSessionNotFound when id is unknown.
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	UpdateBudget(ctx context.Context, id string, totalBudget int64) error
	DeleteSession(ctx context.Context, id string) error

	// ReplaceCatalog atomically replaces columns and SKUs and drops every
	// allocation of the session.
	ReplaceCatalog(ctx context.Context, sessionID string, columns []Column, skus []Sku) error
	// LoadColumns returns columns ordered by level.
	LoadColumns(ctx context.Context, sessionID string) ([]Column, error)
	// LoadSkus returns SKUs in import order.
	LoadSkus(ctx context.Context, sessionID string) ([]Sku, error)

	LoadAllocations(ctx context.Context, sessionID, period string) ([]Allocation, error)
	// ReplaceAllocations atomically swaps the allocation set of one period.
	ReplaceAllocations(ctx context.Context, sessionID, period string, allocations []Allocation) error
	ListPeriods(ctx context.Context, sessionID string) ([]string, error)
}
