package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sku-allocator/hierarchy"
)

// =============================================================================
// SET PERCENTAGE
// =============================================================================

func TestSetPercentage_RoundTrip(t *testing.T) {
	// GIVEN: category/material columns, S1 (A/X, 100) and S2 (A/Y, 200), budget 10000
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)

	// WHEN: A=100%, A/X=40%, A/Y=60%
	var allocs []hierarchy.Allocation
	allocs = engine.SetPercentage("A", pct("100"), allocs)
	allocs = engine.SetPercentage("A/X", pct("40"), allocs)
	allocs = engine.SetPercentage("A/Y", pct("60"), allocs)

	// THEN: Amounts follow the parents
	assert.Equal(t, int64(10000), find(t, allocs, "A").Amount)
	assert.Equal(t, int64(4000), find(t, allocs, "A/X").Amount)
	assert.Equal(t, int64(6000), find(t, allocs, "A/Y").Amount)
	assert.Equal(t, int64(33), find(t, allocs, "A").Quantity, "10000 / (100+200)")
	assert.Equal(t, int64(40), find(t, allocs, "A/X").Quantity)
	assert.Equal(t, int64(30), find(t, allocs, "A/Y").Quantity)

	// AND: SKU levels stay unset
	assert.False(t, hasAllocation(allocs, "A/X/S1"))
	assert.False(t, hasAllocation(allocs, "A/Y/S2"))

	// WHEN: Both SKU levels get 100%
	allocs = engine.SetPercentage("A/X/S1", pct("100"), allocs)
	allocs = engine.SetPercentage("A/Y/S2", pct("100"), allocs)

	s1 := find(t, allocs, "A/X/S1")
	assert.Equal(t, 3, s1.Level)
	assert.Equal(t, int64(4000), s1.Amount)
	assert.Equal(t, int64(40), s1.Quantity)
	s2 := find(t, allocs, "A/Y/S2")
	assert.Equal(t, int64(6000), s2.Amount)
	assert.Equal(t, int64(30), s2.Quantity)

	assertAmountInvariant(t, scope.TotalBudget, allocs)
}

func TestSetPercentage_UpsertReplacesInPlace(t *testing.T) {
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)

	allocs := engine.SetPercentage("A", pct("100"), nil)
	allocs = engine.SetPercentage("A", pct("25.5"), allocs)

	require.Len(t, allocs, 1, "one record per path")
	assertPct(t, "25.5", allocs[0].Percentage)
	assert.Equal(t, int64(2550), allocs[0].Amount)
}

func TestSetPercentage_DoesNotMutateInput(t *testing.T) {
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)

	before := engine.SetPercentage("A", pct("100"), nil)
	before = engine.SetPercentage("A/X", pct("40"), before)
	snapshot := append([]hierarchy.Allocation(nil), before...)

	after := engine.SetPercentage("A", pct("50"), before)

	assert.True(t, hierarchy.AllocationsEqual(snapshot, before), "input slice untouched")
	assert.False(t, hierarchy.AllocationsEqual(before, after))
}

func TestSetPercentage_ParentChangePropagatesWithoutTouchingPercentages(t *testing.T) {
	// GIVEN: A fully allocated tree
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)
	var allocs []hierarchy.Allocation
	for _, step := range []struct{ path, pct string }{
		{"A", "100"}, {"A/X", "40"}, {"A/Y", "60"}, {"A/X/S1", "100"}, {"A/Y/S2", "50"},
	} {
		allocs = engine.SetPercentage(step.path, pct(step.pct), allocs)
	}

	// WHEN: The root drops to 50%
	allocs = engine.SetPercentage("A", pct("50"), allocs)

	// THEN: Every descendant amount is recomputed, percentages unchanged
	assert.Equal(t, int64(5000), find(t, allocs, "A").Amount)
	assert.Equal(t, int64(2000), find(t, allocs, "A/X").Amount)
	assert.Equal(t, int64(3000), find(t, allocs, "A/Y").Amount)
	assert.Equal(t, int64(2000), find(t, allocs, "A/X/S1").Amount)
	assert.Equal(t, int64(20), find(t, allocs, "A/X/S1").Quantity)
	assert.Equal(t, int64(1500), find(t, allocs, "A/Y/S2").Amount)
	assert.Equal(t, int64(7), find(t, allocs, "A/Y/S2").Quantity, "floor(1500/200)")

	assertPct(t, "40", find(t, allocs, "A/X").Percentage)
	assertPct(t, "60", find(t, allocs, "A/Y").Percentage)
	assertPct(t, "50", find(t, allocs, "A/Y/S2").Percentage)
	assertAmountInvariant(t, scope.TotalBudget, allocs)
}

func TestSetPercentage_MissingAncestorDefaultsToBudget(t *testing.T) {
	// GIVEN: Nothing allocated above A/X
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)

	// WHEN: Setting A/X directly
	allocs := engine.SetPercentage("A/X", pct("50"), nil)

	// THEN: The parent amount bottoms out at the total budget
	assert.Equal(t, int64(5000), find(t, allocs, "A/X").Amount)
}

func TestSetPercentage_NearestAllocatedAncestorWins(t *testing.T) {
	// GIVEN: A allocated, A/X not
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)
	allocs := engine.SetPercentage("A", pct("20"), nil)

	// WHEN: The SKU level under the unallocated A/X is set
	allocs = engine.SetPercentage("A/X/S1", pct("50"), allocs)

	// THEN: It reads A's amount
	assert.Equal(t, int64(1000), find(t, allocs, "A/X/S1").Amount)
}

func TestSetPercentage_ExactDecimalFloor(t *testing.T) {
	// 33.33% of 10000 must be 3333, not 3332 from binary rounding
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)

	allocs := engine.SetPercentage("A", pct("33.33"), nil)
	assert.Equal(t, int64(3333), allocs[0].Amount)

	allocs = engine.SetPercentage("A", pct("0.07"), allocs)
	assert.Equal(t, int64(7), allocs[0].Amount)
}

func TestSetPercentage_ToleratesMalformedInput(t *testing.T) {
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)

	t.Run("negative percentage computes through", func(t *testing.T) {
		allocs := engine.SetPercentage("A", pct("-10"), nil)
		assert.Equal(t, int64(-1000), allocs[0].Amount)
		assert.Equal(t, int64(-4), allocs[0].Quantity, "floor(-1000/300)")
	})

	t.Run("over one hundred computes through", func(t *testing.T) {
		allocs := engine.SetPercentage("A", pct("150"), nil)
		assert.Equal(t, int64(15000), allocs[0].Amount)
	})

	t.Run("unknown path has quantity zero", func(t *testing.T) {
		allocs := engine.SetPercentage("Z", pct("10"), nil)
		assert.Equal(t, int64(1000), allocs[0].Amount)
		assert.Zero(t, allocs[0].Quantity)
	})

	t.Run("zero-priced SKUs have quantity zero", func(t *testing.T) {
		free := hierarchy.NewEngine(scope, []hierarchy.Sku{sku("F1", 0, "A", "X")})
		allocs := free.SetPercentage("A", pct("100"), nil)
		assert.Zero(t, allocs[0].Quantity)
	})
}

func TestSetPercentage_SkuLevelQuantityUsesOwnPrice(t *testing.T) {
	scope := hierarchy.Scope{TotalBudget: 9000, Columns: twoLevelColumns()}
	skus := []hierarchy.Sku{
		sku("S1", 100, "A", "X"),
		sku("S2", 200, "A", "X"),
	}
	engine := hierarchy.NewEngine(scope, skus)

	allocs := engine.SetPercentage("A/X", pct("100"), nil)
	assert.Equal(t, int64(30), find(t, allocs, "A/X").Quantity, "9000 / (100+200)")

	allocs = engine.SetPercentage("A/X/S2", pct("100"), allocs)
	assert.Equal(t, int64(45), find(t, allocs, "A/X/S2").Quantity, "9000 / 200")
}

func TestSetPercentage_TruncatedPathQuantityCountsSkusBelowNode(t *testing.T) {
	// GIVEN: S3 has no material, so it sits at Shoes/42/S3 next to Shoes/Leather/42/S1
	scope := hierarchy.Scope{TotalBudget: 9000, Columns: threeLevelColumns()}
	skus := []hierarchy.Sku{
		sku("S1", 100, "Shoes", "Leather", "42"),
		sku("S3", 300, "Shoes", "", "42"),
	}
	engine := hierarchy.NewEngine(scope, skus)

	// WHEN: Allocating the truncated node
	allocs := engine.SetPercentage("Shoes/42", pct("100"), nil)

	// THEN: It owns the SKU below it by path prefix
	assert.Equal(t, int64(9000), find(t, allocs, "Shoes/42").Amount)
	assert.Equal(t, int64(30), find(t, allocs, "Shoes/42").Quantity, "9000 / 300")

	// AND: The root owns both SKUs
	allocs = engine.SetPercentage("Shoes", pct("100"), allocs)
	assert.Equal(t, int64(22), find(t, allocs, "Shoes").Quantity, "9000 / (100+300)")
	assert.Equal(t, int64(30), find(t, allocs, "Shoes/42").Quantity)
}

func TestSetPercentage_TagsNewRecordsWithScopePeriod(t *testing.T) {
	scope, skus := roundTripCatalog()
	scope.Period = "2026-SS"
	engine := hierarchy.NewEngine(scope, skus)

	allocs := engine.SetPercentage("A", pct("100"), nil)
	assert.Equal(t, "2026-SS", allocs[0].Period)
}

// =============================================================================
// FULL PROPAGATION
// =============================================================================

func TestPropagate_RepairsStaleAmounts(t *testing.T) {
	// GIVEN: Percentages stored without amounts (e.g. a hand-edited import)
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)
	stale := []hierarchy.Allocation{
		{Path: "A/X/S1", Level: 3, Percentage: pct("100")},
		{Path: "A/X", Level: 2, Percentage: pct("40")},
		{Path: "A", Level: 1, Percentage: pct("100")},
	}

	// WHEN: Propagating
	fixed := engine.Propagate(stale)

	// THEN: Every record satisfies the invariant, regardless of input order
	assertAmountInvariant(t, scope.TotalBudget, fixed)
	assert.Equal(t, int64(4000), find(t, fixed, "A/X/S1").Amount)
	assert.Equal(t, int64(40), find(t, fixed, "A/X/S1").Quantity)
	assert.Zero(t, stale[0].Amount, "input untouched")
}

func TestPropagate_BudgetChange(t *testing.T) {
	scope, skus := roundTripCatalog()
	allocs := hierarchy.NewEngine(scope, skus).SetPercentage("A", pct("100"), nil)
	allocs = hierarchy.NewEngine(scope, skus).SetPercentage("A/Y", pct("60"), allocs)

	scope.TotalBudget = 20000
	allocs = hierarchy.NewEngine(scope, skus).Propagate(allocs)

	assert.Equal(t, int64(20000), find(t, allocs, "A").Amount)
	assert.Equal(t, int64(12000), find(t, allocs, "A/Y").Amount)
	assert.Equal(t, int64(60), find(t, allocs, "A/Y").Quantity)
}

func TestEngine_AmountAndQuantityPreview(t *testing.T) {
	scope, skus := roundTripCatalog()
	engine := hierarchy.NewEngine(scope, skus)
	allocs := engine.SetPercentage("A", pct("50"), nil)

	assert.Equal(t, int64(1000), engine.Amount("A/X", pct("20"), allocs))
	assert.Equal(t, int64(10), engine.Quantity("A/X", 1000))
	assert.Equal(t, int64(16), engine.Quantity("A", 5000), "floor(5000/300)")
}
