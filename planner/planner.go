/*
Package planner runs the allocation workflow for a session.

PURPOSE:
  The engine in package hierarchy is pure: slices in, slices out. The planner
  is the only place it meets I/O. Every operation follows the same shape:

    1. Load session, columns, SKUs and the period's allocations
    2. Build a Scope and an Engine
    3. Run the engine operation
    4. Auto-fill singleton groups
    5. Replace the period's allocation set if anything changed

PERIODS:
  Every allocation operation takes a period. "" is the default scenario.
  Named periods are independent allocation sets over the same catalog and
  budget; a period starts to exist when its first allocation is saved.
  Viewing a named period that has nothing saved does not save anything.

BUDGET CHANGES:
  SetBudget re-propagates every period so stored amounts and quantities
  stay consistent with the new total.

LOGGING:
  Mutations are logged at Info with session_id, period and path fields.
  Auto-fill saves on read are logged at Debug.

SEE ALSO:
  - hierarchy/engine.go: SetPercentage, Propagate
  - hierarchy/autofill.go: Rebuild
  - api/handlers.go: HTTP surface over these methods
*/
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/sku-allocator/factory"
	"github.com/warp/sku-allocator/hierarchy"
)

// Planner coordinates store and engine for session-level operations.
type Planner struct {
	Store   hierarchy.Store
	Log     *logrus.Logger
	catalog *factory.CatalogFactory
}

// New returns a Planner. A nil logger falls back to logrus' standard logger.
func New(store hierarchy.Store, log *logrus.Logger) *Planner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Planner{Store: store, Log: log, catalog: factory.NewCatalogFactory()}
}

// View is the state of one period as shown to the user.
type View struct {
	Session  hierarchy.Session
	Period   string
	Columns  []hierarchy.Column
	Tree     []*hierarchy.Node
	Warnings []hierarchy.GroupWarning
}

// ImportResult summarizes a catalog import.
type ImportResult struct {
	Columns  []hierarchy.Column
	Skus     int
	Warnings []string
}

// workspace is everything loaded for one (session, period).
type workspace struct {
	session     hierarchy.Session
	columns     []hierarchy.Column
	engine      *hierarchy.Engine
	allocations []hierarchy.Allocation
}

// =============================================================================
// SESSIONS
// =============================================================================

func (p *Planner) CreateSession(ctx context.Context, name string, totalBudget int64) (hierarchy.Session, error) {
	if err := hierarchy.ValidateBudget(totalBudget); err != nil {
		return hierarchy.Session{}, err
	}

	session := hierarchy.Session{ID: uuid.NewString(), Name: name, TotalBudget: totalBudget}
	if err := p.Store.CreateSession(ctx, session); err != nil {
		return hierarchy.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	p.Log.WithFields(logrus.Fields{"session_id": session.ID, "total_budget": totalBudget}).Info("session created")
	return p.Store.GetSession(ctx, session.ID)
}

func (p *Planner) GetSession(ctx context.Context, id string) (hierarchy.Session, error) {
	return p.Store.GetSession(ctx, id)
}

func (p *Planner) ListSessions(ctx context.Context) ([]hierarchy.Session, error) {
	return p.Store.ListSessions(ctx)
}

func (p *Planner) DeleteSession(ctx context.Context, id string) error {
	if err := p.Store.DeleteSession(ctx, id); err != nil {
		return err
	}
	p.Log.WithField("session_id", id).Info("session deleted")
	return nil
}

func (p *Planner) ListPeriods(ctx context.Context, id string) ([]string, error) {
	if _, err := p.Store.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return p.Store.ListPeriods(ctx, id)
}

// SetBudget changes the total budget and re-propagates every period. A
// period that fails to save does not stop the others; the failures are
// returned together. View re-propagates on read, so such a period is
// repaired the next time it is viewed.
func (p *Planner) SetBudget(ctx context.Context, id string, totalBudget int64) (hierarchy.Session, error) {
	if err := hierarchy.ValidateBudget(totalBudget); err != nil {
		return hierarchy.Session{}, err
	}
	if err := p.Store.UpdateBudget(ctx, id, totalBudget); err != nil {
		return hierarchy.Session{}, err
	}

	periods, err := p.Store.ListPeriods(ctx, id)
	if err != nil {
		return hierarchy.Session{}, err
	}
	var failed []error
	for _, period := range periods {
		if err := p.repropagate(ctx, id, period); err != nil {
			p.Log.WithError(err).WithFields(logrus.Fields{
				"session_id": id,
				"period":     period,
			}).Warn("period not re-propagated")
			failed = append(failed, fmt.Errorf("period %q: %w", period, err))
		}
	}
	if len(failed) > 0 {
		return hierarchy.Session{}, errors.Join(failed...)
	}

	p.Log.WithFields(logrus.Fields{
		"session_id":   id,
		"total_budget": totalBudget,
		"periods":      len(periods),
	}).Info("budget updated")
	return p.Store.GetSession(ctx, id)
}

func (p *Planner) repropagate(ctx context.Context, id, period string) error {
	ws, err := p.load(ctx, id, period)
	if err != nil {
		return err
	}
	return p.save(ctx, ws, period, ws.engine.Propagate(ws.allocations))
}

// =============================================================================
// CATALOG
// =============================================================================

// ImportCatalog replaces the session's columns and SKUs. Every existing
// allocation, in every period, is dropped.
func (p *Planner) ImportCatalog(ctx context.Context, id string, header []string, rows [][]string, spec factory.ImportSpec) (ImportResult, error) {
	if _, err := p.Store.GetSession(ctx, id); err != nil {
		return ImportResult{}, err
	}

	catalog, warnings, err := p.catalog.Parse(header, rows, spec)
	if err != nil {
		return ImportResult{Warnings: warnings}, err
	}
	if err := p.Store.ReplaceCatalog(ctx, id, catalog.Columns, catalog.Skus); err != nil {
		return ImportResult{}, fmt.Errorf("failed to store catalog: %w", err)
	}

	p.Log.WithFields(logrus.Fields{
		"session_id": id,
		"columns":    len(catalog.Columns),
		"skus":       len(catalog.Skus),
		"skipped":    len(warnings),
	}).Info("catalog imported")

	return ImportResult{Columns: catalog.Columns, Skus: len(catalog.Skus), Warnings: warnings}, nil
}

// =============================================================================
// ALLOCATION
// =============================================================================

// View loads the period, re-propagates it, auto-fills singleton groups and
// persists the result when anything changed. A named period with no stored
// allocations is shown but not saved, so reading it does not create it.
func (p *Planner) View(ctx context.Context, id, period string) (View, error) {
	ws, err := p.load(ctx, id, period)
	if err != nil {
		return View{}, err
	}
	if period != "" && len(ws.allocations) == 0 {
		roots, _ := ws.engine.Rebuild(nil)
		return ws.view(period, roots), nil
	}
	return p.commit(ctx, ws, period, ws.engine.Propagate(ws.allocations))
}

// SetPercentage assigns pct to the node at path.
func (p *Planner) SetPercentage(ctx context.Context, id, period, path string, pct decimal.Decimal) (View, error) {
	if err := hierarchy.ValidatePercentage(pct); err != nil {
		return View{}, err
	}
	ws, err := p.load(ctx, id, period)
	if err != nil {
		return View{}, err
	}
	if hierarchy.FindNode(ws.engine.Tree(ws.allocations), path) == nil {
		return View{}, fmt.Errorf("%w: %s", hierarchy.ErrNodeNotFound, path)
	}

	next := ws.engine.SetPercentage(path, pct, ws.allocations)

	p.Log.WithFields(logrus.Fields{
		"session_id": id,
		"period":     period,
		"path":       path,
		"percentage": pct.String(),
	}).Info("percentage set")
	return p.commit(ctx, ws, period, next)
}

// DistributeEqually splits 100% across the children of parent at level.
// An empty parent targets the roots. A zero level means the level directly
// below parent.
func (p *Planner) DistributeEqually(ctx context.Context, id, period, parent string, level int) (View, error) {
	ws, err := p.load(ctx, id, period)
	if err != nil {
		return View{}, err
	}

	roots := ws.engine.Tree(ws.allocations)
	if parent != "" && hierarchy.FindNode(roots, parent) == nil {
		return View{}, fmt.Errorf("%w: %s", hierarchy.ErrNodeNotFound, parent)
	}
	if level == 0 {
		level = hierarchy.PathLevel(parent) + 1
	}

	next := ws.engine.DistributeEqually(parent, level, roots, ws.allocations)

	p.Log.WithFields(logrus.Fields{
		"session_id": id,
		"period":     period,
		"path":       parent,
		"level":      level,
	}).Info("distributed equally")
	return p.commit(ctx, ws, period, next)
}

// Export composes the export for a period. Singleton groups are auto-filled
// first so the rows match what View shows.
func (p *Planner) Export(ctx context.Context, id, period string) ([]string, []hierarchy.ExportRow, error) {
	ws, err := p.load(ctx, id, period)
	if err != nil {
		return nil, nil, err
	}

	filled := ws.engine.AutoFill(ws.allocations)
	scope := ws.engine.Scope()
	return hierarchy.ExportHeader(scope.Columns), hierarchy.ExportRows(ws.engine.Skus(), scope, filled), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (p *Planner) load(ctx context.Context, id, period string) (workspace, error) {
	session, err := p.Store.GetSession(ctx, id)
	if err != nil {
		return workspace{}, err
	}
	columns, err := p.Store.LoadColumns(ctx, id)
	if err != nil {
		return workspace{}, fmt.Errorf("failed to load columns: %w", err)
	}
	skus, err := p.Store.LoadSkus(ctx, id)
	if err != nil {
		return workspace{}, fmt.Errorf("failed to load skus: %w", err)
	}
	allocations, err := p.Store.LoadAllocations(ctx, id, period)
	if err != nil {
		return workspace{}, fmt.Errorf("failed to load allocations: %w", err)
	}

	return workspace{
		session:     session,
		columns:     columns,
		engine:      hierarchy.NewEngine(session.Scope(columns, period), skus),
		allocations: allocations,
	}, nil
}

// commit auto-fills next, saves it when it differs from what was loaded and
// returns the resulting view.
func (p *Planner) commit(ctx context.Context, ws workspace, period string, next []hierarchy.Allocation) (View, error) {
	roots, filled := ws.engine.Rebuild(next)
	if err := p.save(ctx, ws, period, filled); err != nil {
		return View{}, err
	}
	return ws.view(period, roots), nil
}

func (ws workspace) view(period string, roots []*hierarchy.Node) View {
	return View{
		Session:  ws.session,
		Period:   period,
		Columns:  ws.columns,
		Tree:     roots,
		Warnings: hierarchy.IncompleteGroups(roots),
	}
}

func (p *Planner) save(ctx context.Context, ws workspace, period string, next []hierarchy.Allocation) error {
	if hierarchy.AllocationsEqual(ws.allocations, next) {
		return nil
	}
	if err := p.Store.ReplaceAllocations(ctx, ws.session.ID, period, next); err != nil {
		return fmt.Errorf("failed to save allocations: %w", err)
	}
	p.Log.WithFields(logrus.Fields{
		"session_id":  ws.session.ID,
		"period":      period,
		"allocations": len(next),
	}).Debug("allocations saved")
	return nil
}
