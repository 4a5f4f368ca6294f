/*
engine.go - Percentage entry and propagation

PURPOSE:
  Turns a percentage entered at one node into an amount and a quantity, and
  recomputes every stored descendant whose amount depends on it.

FORMULAS:
  amount   = floor(parentAmount × percentage / 100)
  quantity = floor(amount / Σ unitPrice of the SKUs under the node), 0 if Σ is 0

  parentAmount is the amount of the nearest ancestor that has an allocation,
  or the total budget when no ancestor has one (level-1 nodes always use the
  total budget).

PROPAGATION:
  After an edit, allocations are swept top-down ordered by depth. A node only
  depends on its nearest allocated ancestor, which an earlier position in the
  sweep has already settled, so one sweep reaches the fixed point. The sweep
  is repeated until nothing changes, bounded by Scope.Depth() passes.

TOLERANCE:
  Nothing here rejects input. Negative or >100 percentages, empty SKU sets and
  dangling paths all compute deterministically. Range checks live in
  validate.go and are applied by callers at the edit boundary.

SEE ALSO:
  - distribute.go: Equal distribution across siblings
  - autofill.go: Single-child auto-fill
  - export.go: Independent recomputation from raw percentages
*/
package hierarchy

import (
	"sort"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Engine computes allocations for one catalog under one Scope.
// It holds no allocation state; every operation takes the current list and
// returns a new one.
type Engine struct {
	scope Scope
	skus  []Sku

	// unit price totals keyed by every node path a SKU sits under,
	// including its own terminal path
	unitTotals map[string]int64
	skuPrices  map[string]int64
}

// NewEngine indexes skus for the given scope.
func NewEngine(scope Scope, skus []Sku) *Engine {
	e := &Engine{
		scope:      Scope{TotalBudget: scope.TotalBudget, Columns: orderedColumns(scope.Columns), Period: scope.Period},
		skus:       skus,
		unitTotals: make(map[string]int64),
		skuPrices:  make(map[string]int64, len(skus)),
	}
	for _, sku := range skus {
		e.skuPrices[sku.Code] = sku.UnitPrice
		for _, p := range PathPrefixes(SkuPath(sku, e.scope.Columns)) {
			e.unitTotals[p] += sku.UnitPrice
		}
	}
	return e
}

// Scope returns the engine parameters.
func (e *Engine) Scope() Scope { return e.scope }

// Skus returns the catalog the engine was built with.
func (e *Engine) Skus() []Sku { return e.skus }

// =============================================================================
// SET PERCENTAGE
// =============================================================================

// SetPercentage assigns pct to the node at path, recomputes its amount and
// quantity, and propagates the new amount to every stored descendant.
// Stored percentages of descendants are never altered.
func (e *Engine) SetPercentage(path string, pct decimal.Decimal, allocations []Allocation) []Allocation {
	out := cloneAllocations(allocations)
	idx := indexAllocations(out)
	out = e.assign(out, idx, path, pct)
	out, _ = e.propagate(out, descendantsOf([]string{path}))
	return out
}

// Propagate recomputes every allocation from its nearest ancestor, top-down.
// Use it to restore the amount invariant before a save, or after the total
// budget changed.
func (e *Engine) Propagate(allocations []Allocation) []Allocation {
	out, _ := e.propagate(cloneAllocations(allocations), func(string) bool { return true })
	return out
}

// Amount resolves what the node at path would receive at pct, given the
// current allocations.
func (e *Engine) Amount(path string, pct decimal.Decimal, allocations []Allocation) int64 {
	return allocate(e.parentAmount(path, indexAllocations(allocations), allocations), pct)
}

// Quantity returns floor(amount / Σ unitPrice) for the SKUs under path.
func (e *Engine) Quantity(path string, amount int64) int64 {
	return quantityFor(amount, e.unitPriceTotal(path))
}

// assign upserts the allocation for path at pct. idx is kept in sync with
// the returned slice.
func (e *Engine) assign(allocations []Allocation, idx map[string]int, path string, pct decimal.Decimal) []Allocation {
	amount := allocate(e.parentAmount(path, idx, allocations), pct)
	rec := Allocation{
		Path:       path,
		Level:      PathLevel(path),
		Percentage: pct,
		Amount:     amount,
		Quantity:   quantityFor(amount, e.unitPriceTotal(path)),
		Period:     e.scope.Period,
	}

	if i, ok := idx[path]; ok {
		rec.Period = allocations[i].Period
		allocations[i] = rec
		return allocations
	}
	idx[path] = len(allocations)
	return append(allocations, rec)
}

// parentAmount walks up from path to the nearest allocated ancestor.
func (e *Engine) parentAmount(path string, idx map[string]int, allocations []Allocation) int64 {
	for p := ParentPath(path); p != ""; p = ParentPath(p) {
		if i, ok := idx[p]; ok {
			return allocations[i].Amount
		}
	}
	return e.scope.TotalBudget
}

// unitPriceTotal sums the unit prices of the SKUs the node owns. A
// SKU-level path that is not in the catalog index falls back to matching
// its last segment against SKU codes.
func (e *Engine) unitPriceTotal(path string) int64 {
	if total, ok := e.unitTotals[path]; ok {
		return total
	}
	if PathLevel(path) == e.scope.Depth() {
		return e.skuPrices[PathName(path)]
	}
	return 0
}

// =============================================================================
// PROPAGATION
// =============================================================================

// propagate recomputes the allocations selected by dirty, shallowest first,
// until a sweep changes nothing or Scope.Depth() sweeps have run. It returns
// the number of sweeps performed.
func (e *Engine) propagate(allocations []Allocation, dirty func(path string) bool) ([]Allocation, int) {
	if len(allocations) == 0 {
		return allocations, 0
	}

	order := make([]int, len(allocations))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return PathLevel(allocations[order[a]].Path) < PathLevel(allocations[order[b]].Path)
	})

	idx := indexAllocations(allocations)
	passes := 0
	for passes < e.scope.Depth() {
		passes++
		changed := false
		for _, i := range order {
			a := &allocations[i]
			if !dirty(a.Path) {
				continue
			}
			amount := allocate(e.parentAmount(a.Path, idx, allocations), a.Percentage)
			quantity := quantityFor(amount, e.unitPriceTotal(a.Path))
			if amount != a.Amount || quantity != a.Quantity {
				a.Amount = amount
				a.Quantity = quantity
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return allocations, passes
}

// descendantsOf matches paths strictly below any of the given roots.
func descendantsOf(roots []string) func(string) bool {
	set := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		set[r] = struct{}{}
	}
	return func(path string) bool {
		for p := ParentPath(path); p != ""; p = ParentPath(p) {
			if _, ok := set[p]; ok {
				return true
			}
		}
		return false
	}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func allocate(parentAmount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(parentAmount).Mul(pct).Shift(-2).Floor().IntPart()
}

func quantityFor(amount, unitPriceTotal int64) int64 {
	if unitPriceTotal <= 0 {
		return 0
	}
	return floorDiv(amount, unitPriceTotal)
}

// floorDiv rounds toward negative infinity; b must be positive.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func cloneAllocations(allocations []Allocation) []Allocation {
	return append(make([]Allocation, 0, len(allocations)+1), allocations...)
}

// AllocationsEqual reports whether two lists hold the same records in the
// same order.
func AllocationsEqual(a, b []Allocation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Path != y.Path || x.Level != y.Level || x.Amount != y.Amount ||
			x.Quantity != y.Quantity || x.Period != y.Period || !x.Percentage.Equal(y.Percentage) {
			return false
		}
	}
	return true
}
