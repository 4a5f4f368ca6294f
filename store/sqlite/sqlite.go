/*
Package sqlite provides a SQLite-backed implementation of hierarchy.Store.

PURPOSE:
  Persists sessions, their imported catalog (hierarchy columns + SKUs) and
  their allocation sets. The allocation engine never sees this package; the
  planner loads from it, runs the engine and writes the result back.

REPLACE-ONLY ALLOCATIONS:
  Allocations are never updated row by row:
  - ReplaceAllocations: DELETE the (session, period) set, bulk INSERT the new one
  - ReplaceCatalog:     DELETE columns, SKUs and every allocation, bulk INSERT
  Both run inside one SQL transaction, so readers see the old or the new set,
  never a mix.

KEY TABLES:
  sessions:          Named workspace with its total budget
  hierarchy_columns: Ordered attribute columns (level 1..L)
  skus:              Catalog, attribute values as JSON, import order kept
  allocations:       One row per (session, path, period); NULL period = default

INDEXES:
  - idx_allocations_unique: (session_id, hierarchy_path, IFNULL(period, ''))
    enforces one record per path and period, NULL included
  - idx_allocations_session_period: hot path for LoadAllocations

QUERY BUILDING:
  Bulk inserts and period listing are built with squirrel; fixed single-row
  statements stay as plain SQL strings.

CONCURRENCY:
  Uses sync.RWMutex plus a single open connection. ":memory:" databases are
  per-connection in SQLite, so one connection also keeps tests coherent.

USAGE:
  store, err := sqlite.New("./data/allocator.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
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

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/sku-allocator/hierarchy"
)

// insertChunk keeps bulk statements under SQLite's bound-variable limit.
const insertChunk = 200

// Store implements hierarchy.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ hierarchy.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		total_budget INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hierarchy_columns (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		level INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		PRIMARY KEY (session_id, level)
	);

	CREATE TABLE IF NOT EXISTS skus (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		sku_code TEXT NOT NULL,
		position INTEGER NOT NULL,
		unit_price INTEGER NOT NULL,
		values_json TEXT NOT NULL,
		PRIMARY KEY (session_id, sku_code)
	);

	CREATE INDEX IF NOT EXISTS idx_skus_session_position
		ON skus(session_id, position);

	-- Allocations: full-set replacement only, never updated in place
	CREATE TABLE IF NOT EXISTS allocations (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		hierarchy_path TEXT NOT NULL,
		level INTEGER NOT NULL,
		percentage TEXT NOT NULL,
		amount INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		period TEXT,
		position INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_allocations_unique
		ON allocations(session_id, hierarchy_path, IFNULL(period, ''));

	CREATE INDEX IF NOT EXISTS idx_allocations_session_period
		ON allocations(session_id, period, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSIONS
// =============================================================================

func (s *Store) CreateSession(ctx context.Context, session hierarchy.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	query := `
		INSERT INTO sessions (id, name, total_budget, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			total_budget = excluded.total_budget,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.Name, session.TotalBudget,
		session.CreatedAt.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (hierarchy.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var session hierarchy.Session
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, total_budget, created_at, updated_at FROM sessions WHERE id = ?",
		id,
	).Scan(&session.ID, &session.Name, &session.TotalBudget, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return hierarchy.Session{}, hierarchy.ErrSessionNotFound
	}
	if err != nil {
		return hierarchy.Session{}, err
	}

	session.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	session.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]hierarchy.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, total_budget, created_at, updated_at FROM sessions ORDER BY created_at, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []hierarchy.Session
	for rows.Next() {
		var session hierarchy.Session
		var createdAt, updatedAt string
		if err := rows.Scan(&session.ID, &session.Name, &session.TotalBudget, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		session.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		session.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Store) UpdateBudget(ctx context.Context, id string, totalBudget int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET total_budget = ?, updated_at = ? WHERE id = ?",
		totalBudget, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// =============================================================================
// CATALOG
// =============================================================================

// ReplaceCatalog is the full re-import: columns, SKUs and all allocations of
// the session are replaced in one transaction.
func (s *Store) ReplaceCatalog(ctx context.Context, sessionID string, columns []hierarchy.Column, skus []hierarchy.Sku) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}
	for _, table := range []string{"allocations", "skus", "hierarchy_columns"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", sessionID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if len(columns) > 0 {
		insert := sq.Insert("hierarchy_columns").Columns("session_id", "level", "column_name")
		for _, c := range columns {
			insert = insert.Values(sessionID, c.Level, c.Name)
		}
		if err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert columns: %w", err)
		}
	}

	for start := 0; start < len(skus); start += insertChunk {
		end := min(start+insertChunk, len(skus))
		insert := sq.Insert("skus").Columns("session_id", "sku_code", "position", "unit_price", "values_json")
		for i, sku := range skus[start:end] {
			values, err := json.Marshal(sku.Values)
			if err != nil {
				return fmt.Errorf("failed to encode values of %s: %w", sku.Code, err)
			}
			insert = insert.Values(sessionID, sku.Code, start+i, sku.UnitPrice, string(values))
		}
		if err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert skus: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) LoadColumns(ctx context.Context, sessionID string) ([]hierarchy.Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT level, column_name FROM hierarchy_columns WHERE session_id = ? ORDER BY level",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []hierarchy.Column
	for rows.Next() {
		var c hierarchy.Column
		if err := rows.Scan(&c.Level, &c.Name); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (s *Store) LoadSkus(ctx context.Context, sessionID string) ([]hierarchy.Sku, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT sku_code, unit_price, values_json FROM skus WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skus []hierarchy.Sku
	for rows.Next() {
		var sku hierarchy.Sku
		var valuesJSON string
		if err := rows.Scan(&sku.Code, &sku.UnitPrice, &valuesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(valuesJSON), &sku.Values); err != nil {
			return nil, fmt.Errorf("corrupt values for sku %s: %w", sku.Code, err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (s *Store) LoadAllocations(ctx context.Context, sessionID, period string) ([]hierarchy.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := sq.Select("hierarchy_path", "level", "percentage", "amount", "quantity").
		From("allocations").
		Where(sq.Eq{"session_id": sessionID, "period": nullPeriod(period)}).
		OrderBy("position")
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []hierarchy.Allocation
	for rows.Next() {
		var a hierarchy.Allocation
		var pct string
		if err := rows.Scan(&a.Path, &a.Level, &pct, &a.Amount, &a.Quantity); err != nil {
			return nil, err
		}
		a.Percentage, err = decimal.NewFromString(pct)
		if err != nil {
			return nil, fmt.Errorf("corrupt percentage at %s: %w", a.Path, err)
		}
		a.Period = period
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// ReplaceAllocations deletes the (session, period) set and bulk-inserts the
// new one in a single transaction. Duplicate paths collapse to the last one.
func (s *Store) ReplaceAllocations(ctx context.Context, sessionID, period string, allocations []hierarchy.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}

	del := sq.Delete("allocations").Where(sq.Eq{"session_id": sessionID, "period": nullPeriod(period)})
	if err := execBuilder(ctx, tx, del); err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}

	set := dedupeByPath(allocations)
	for start := 0; start < len(set); start += insertChunk {
		end := min(start+insertChunk, len(set))
		insert := sq.Insert("allocations").
			Columns("session_id", "hierarchy_path", "level", "percentage", "amount", "quantity", "period", "position")
		for i, a := range set[start:end] {
			insert = insert.Values(sessionID, a.Path, a.Level, a.Percentage.String(), a.Amount, a.Quantity, nullPeriod(period), start+i)
		}
		if err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert allocations: %w", err)
		}
	}

	return tx.Commit()
}

// ListPeriods returns the default period first, then named periods that have
// allocations in ascending order.
func (s *Store) ListPeriods(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sqlStr, args, err := sq.Select("DISTINCT period").
		From("allocations").
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.NotEq{"period": nil}).
		OrderBy("period").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := []string{""}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type sqlizer interface {
	ToSql() (string, []any, error)
}

func execBuilder(ctx context.Context, tx *sql.Tx, b sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func sessionExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return hierarchy.ErrSessionNotFound
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hierarchy.ErrSessionNotFound
	}
	return nil
}

// nullPeriod maps the default period to NULL.
func nullPeriod(period string) any {
	if period == "" {
		return nil
	}
	return period
}

func dedupeByPath(allocations []hierarchy.Allocation) []hierarchy.Allocation {
	pos := make(map[string]int, len(allocations))
	set := make([]hierarchy.Allocation, 0, len(allocations))
	for _, a := range allocations {
		if i, dup := pos[a.Path]; dup {
			set[i] = a
			continue
		}
		pos[a.Path] = len(set)
		set = append(set, a)
	}
	return set
}
