package hierarchy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Propagation is a bounded iteration: never more sweeps than tree levels,
// and a settled list needs exactly one confirming sweep.
func TestPropagate_SweepsBoundedByDepth(t *testing.T) {
	scope := Scope{
		TotalBudget: 10000,
		Columns:     []Column{{Level: 1, Name: "category"}, {Level: 2, Name: "material"}},
	}
	skus := []Sku{{Code: "S1", UnitPrice: 100, Values: map[string]string{"category": "A", "material": "X"}}}
	e := NewEngine(scope, skus)

	stale := []Allocation{
		{Path: "A/X/S1", Percentage: decimal.NewFromInt(100)},
		{Path: "A/X", Percentage: decimal.NewFromInt(40)},
		{Path: "A", Percentage: decimal.NewFromInt(50)},
	}
	all := func(string) bool { return true }

	settled, passes := e.propagate(cloneAllocations(stale), all)
	assert.LessOrEqual(t, passes, scope.Depth())
	assert.Equal(t, 2, passes, "one settling sweep plus one confirming sweep")
	assert.Equal(t, int64(2000), settled[0].Amount)

	_, passes = e.propagate(settled, all)
	assert.Equal(t, 1, passes)

	_, passes = e.propagate(nil, all)
	assert.Zero(t, passes)
}

func TestDescendantsOf(t *testing.T) {
	match := descendantsOf([]string{"A", "B/Y"})

	assert.True(t, match("A/X"))
	assert.True(t, match("A/X/S1"))
	assert.True(t, match("B/Y/S2"))
	assert.False(t, match("A"))
	assert.False(t, match("B/X"))
	assert.False(t, match("AB"))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(3), floorDiv(7, 2))
	assert.Equal(t, int64(-4), floorDiv(-7, 2))
	assert.Equal(t, int64(-3), floorDiv(-6, 2))
	assert.Equal(t, int64(0), floorDiv(0, 5))
}
