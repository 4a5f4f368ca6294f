package hierarchy_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sku-allocator/hierarchy"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sku(code string, price int64, values ...string) hierarchy.Sku {
	names := []string{"category", "material", "size"}
	v := make(map[string]string)
	for i, val := range values {
		v[names[i]] = val
	}
	return hierarchy.Sku{Code: code, UnitPrice: price, Values: v}
}

func twoLevelColumns() []hierarchy.Column {
	return []hierarchy.Column{{Level: 1, Name: "category"}, {Level: 2, Name: "material"}}
}

func threeLevelColumns() []hierarchy.Column {
	return append(twoLevelColumns(), hierarchy.Column{Level: 3, Name: "size"})
}

// roundTripCatalog is the two-SKU catalog from the allocation walkthrough:
// A/X/S1 at 100 and A/Y/S2 at 200, budget 10000.
func roundTripCatalog() (hierarchy.Scope, []hierarchy.Sku) {
	scope := hierarchy.Scope{TotalBudget: 10000, Columns: twoLevelColumns()}
	skus := []hierarchy.Sku{
		sku("S1", 100, "A", "X"),
		sku("S2", 200, "A", "Y"),
	}
	return scope, skus
}

func find(t *testing.T, allocations []hierarchy.Allocation, path string) hierarchy.Allocation {
	t.Helper()
	for _, a := range allocations {
		if a.Path == path {
			return a
		}
	}
	require.Failf(t, "allocation not found", "path %q", path)
	return hierarchy.Allocation{}
}

func hasAllocation(allocations []hierarchy.Allocation, path string) bool {
	for _, a := range allocations {
		if a.Path == path {
			return true
		}
	}
	return false
}

func assertPct(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, pct(want).Equal(got), "want %s, got %s", want, got)
}

// assertAmountInvariant checks amount == floor(ancestorAmount × pct / 100)
// for every record, ancestorAmount being the nearest allocated ancestor or
// the total budget.
func assertAmountInvariant(t *testing.T, budget int64, allocations []hierarchy.Allocation) {
	t.Helper()
	byPath := make(map[string]hierarchy.Allocation, len(allocations))
	for _, a := range allocations {
		byPath[a.Path] = a
	}
	for _, a := range allocations {
		parent := budget
		for p := hierarchy.ParentPath(a.Path); p != ""; p = hierarchy.ParentPath(p) {
			if anc, ok := byPath[p]; ok {
				parent = anc.Amount
				break
			}
		}
		want := decimal.NewFromInt(parent).Mul(a.Percentage).Div(decimal.NewFromInt(100)).Floor().IntPart()
		assert.Equal(t, want, a.Amount, "amount invariant broken at %s", a.Path)
	}
}
