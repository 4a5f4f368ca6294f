package hierarchy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateColumns checks that levels run 1..L without gaps or repeats and
// that names are non-empty and unique.
func ValidateColumns(columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: at least one column is required", ErrInvalidColumns)
	}

	cols := append([]Column(nil), columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Level < cols[j].Level })

	names := make(map[string]bool, len(cols))
	for i, c := range cols {
		switch {
		case c.Name == "":
			return &ColumnError{Level: c.Level, Name: c.Name, Reason: "empty name"}
		case names[c.Name]:
			return &ColumnError{Level: c.Level, Name: c.Name, Reason: "duplicate name"}
		case c.Level != i+1:
			return &ColumnError{Level: c.Level, Name: c.Name, Reason: fmt.Sprintf("expected level %d", i+1)}
		}
		names[c.Name] = true
	}
	return nil
}

// ValidateSku rejects a SKU whose code or any attribute value for columns
// contains PathSeparator. Such a value would add a segment to the path and
// move the node to a deeper level than its column.
func ValidateSku(sku Sku, columns []Column) error {
	if strings.Contains(sku.Code, PathSeparator) {
		return fmt.Errorf("%w: sku code %q contains %q", ErrInvalidSegment, sku.Code, PathSeparator)
	}
	for _, col := range orderedColumns(columns) {
		if v := sku.Values[col.Name]; strings.Contains(v, PathSeparator) {
			return fmt.Errorf("%w: %s value %q contains %q", ErrInvalidSegment, col.Name, v, PathSeparator)
		}
	}
	return nil
}

// ValidatePercentage rejects values outside [0, 100].
func ValidatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return fmt.Errorf("%w: got %s", ErrInvalidPercentage, pct)
	}
	return nil
}

// ValidateBudget rejects non-positive budgets.
func ValidateBudget(budget int64) error {
	if budget <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBudget, budget)
	}
	return nil
}

// =============================================================================
// ADVISORY CHECKS
// =============================================================================

// GroupWarning flags a sibling group whose percentages do not add up to 100.
// It is informational; saves are never blocked on it.
type GroupWarning struct {
	ParentPath string // "" for the root group
	Level      int
	Siblings   int
	Sum        decimal.Decimal
}

// Unset reports whether no sibling in the group has a percentage yet.
func (w GroupWarning) Unset() bool {
	return w.Sum.IsZero()
}

// IncompleteGroups lists every sibling group, roots included, whose
// percentages do not sum to exactly 100.
func IncompleteGroups(roots []*Node) []GroupWarning {
	var warnings []GroupWarning
	check := func(parent string, level int, group []*Node) {
		if len(group) == 0 {
			return
		}
		sum := decimal.Zero
		for _, n := range group {
			sum = sum.Add(n.Percentage)
		}
		if !sum.Equal(hundred) {
			warnings = append(warnings, GroupWarning{
				ParentPath: parent,
				Level:      level,
				Siblings:   len(group),
				Sum:        sum,
			})
		}
	}

	check("", 1, roots)
	for _, n := range Flatten(roots) {
		check(n.Path, n.Level+1, n.Children)
	}
	return warnings
}
