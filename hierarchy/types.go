/*
Package hierarchy provides the hierarchical budget allocation engine.

PURPOSE:
  Groups a flat list of SKUs into a tree by shared attribute-value prefixes
  and distributes a fixed budget down that tree. Users enter percentages at
  any node; the engine turns them into money amounts and unit quantities that
  stay consistent from the roots down to individual SKUs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Column: One hierarchy attribute (category, material, year...) with its level
  - Sku: A purchasable item with a unit price and one value per column
  - Allocation: The persisted (path, percentage, amount, quantity) record
  - Node: A derived tree node, rebuilt from SKUs + allocations on every change
  - Scope: Total budget + columns, passed explicitly into every engine call

DESIGN PRINCIPLES:
  1. Flat source of truth: only allocations are stored; the tree is a view
  2. Precision: Percentages use decimal.Decimal so floor() math is exact
  3. Copy-then-replace: engine operations return new slices, never mutate input
  4. Tolerance: the engine computes through malformed input; validation
     belongs to the import/edit boundary

USAGE:
  scope := hierarchy.Scope{TotalBudget: 10000, Columns: columns}
  engine := hierarchy.NewEngine(scope, skus)
  allocs = engine.SetPercentage("A", decimal.NewFromInt(100), allocs)
  roots, allocs := engine.Rebuild(allocs)

SEE ALSO:
  - path.go: Path string construction
  - tree.go: Tree builder
  - engine.go: Percentage propagation
  - export.go: Cumulative export rows
*/
package hierarchy

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLUMNS AND SKUS - Imported catalog, immutable until the next import
// =============================================================================

// Column defines one hierarchy attribute. Level is 1-based.
type Column struct {
	Level int
	Name  string
}

// Sku is one purchasable item.
type Sku struct {
	Code      string
	UnitPrice int64
	Values    map[string]string // column name -> attribute value
}

// =============================================================================
// SCOPE - Explicit session parameters
// =============================================================================

// Scope carries the parameters every engine computation depends on.
// Period tags allocations the engine creates.
type Scope struct {
	TotalBudget int64
	Columns     []Column
	Period      string
}

// Depth returns the number of tree levels: one per column plus the SKU level.
func (s Scope) Depth() int {
	return len(s.Columns) + 1
}

// =============================================================================
// ALLOCATION - Persisted per-node record
// =============================================================================

// Allocation is the stored state of one node for one period.
// Period "" is the default scenario.
type Allocation struct {
	Path       string
	Level      int
	Percentage decimal.Decimal
	Amount     int64
	Quantity   int64
	Period     string
}

// IsSet reports whether the allocation carries a non-zero percentage.
func (a Allocation) IsSet() bool {
	return !a.Percentage.IsZero()
}

// =============================================================================
// NODE - Derived tree view
// =============================================================================

// Node is one node of the derived hierarchy tree. It is never the source of
// truth; BuildTree recreates it from SKUs and allocations.
type Node struct {
	Path       string
	Name       string
	Level      int
	Percentage decimal.Decimal
	Amount     int64
	Quantity   int64
	UnitPrice  *int64 // SKU level only
	Children   []*Node
}

// IsSku reports whether the node is a terminal SKU node.
func (n *Node) IsSku() bool {
	return n.UnitPrice != nil
}

// Walk visits n and every descendant depth-first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// =============================================================================
// EXPORT ROW
// =============================================================================

// ExportRow is one SKU line of the allocation export. Blank strings in
// CumulativePercentage, FinalAmount and FinalQuantity mean "not allocated",
// which is different from an allocation of zero.
type ExportRow struct {
	Values               []string // hierarchy values in column order
	SkuCode              string
	CumulativePercentage string
	UnitPrice            int64
	FinalAmount          string
	FinalQuantity        string
}

// Cells flattens the row in header order.
func (r ExportRow) Cells() []string {
	cells := make([]string, 0, len(r.Values)+5)
	cells = append(cells, r.Values...)
	return append(cells,
		r.SkuCode,
		r.CumulativePercentage,
		formatInt(r.UnitPrice),
		r.FinalAmount,
		r.FinalQuantity,
	)
}

// =============================================================================
// SESSION - Persisted planning session
// =============================================================================

// Session is a named allocation workspace owning one catalog and one budget.
type Session struct {
	ID          string
	Name        string
	TotalBudget int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Scope builds the engine parameters for the session and period.
func (s Session) Scope(columns []Column, period string) Scope {
	return Scope{TotalBudget: s.TotalBudget, Columns: columns, Period: period}
}
