/*
autofill.go - Single-child auto-fill

PURPOSE:
  A node that is the only child of its parent has no real choice to make: it
  must receive the whole parent amount. Whenever the tree is rebuilt, such a
  child gets 100% if it has no allocation yet or a stored 0%.

ORDER:
  Filling a node changes the amounts below it, and a filled node can itself
  be the parent of another singleton. Levels are therefore processed top-down
  (2 through L+1), propagating after each level, so every level reads parent
  amounts that are already final. One pass per level bounds the work by the
  hierarchy depth.

  Level-1 roots are never filled, even when there is only one root.
*/
package hierarchy

// AutoFill assigns 100% to every singleton child that is unset or at 0%.
// Running it again on its own output changes nothing.
func (e *Engine) AutoFill(allocations []Allocation) []Allocation {
	out := cloneAllocations(allocations)
	roots := BuildTree(e.skus, e.scope.Columns, out)

	singletons := make(map[int][]string)
	for _, n := range Flatten(roots) {
		if len(n.Children) == 1 {
			c := n.Children[0]
			singletons[c.Level] = append(singletons[c.Level], c.Path)
		}
	}

	idx := indexAllocations(out)
	for level := 2; level <= e.scope.Depth(); level++ {
		var filled []string
		for _, path := range singletons[level] {
			if i, ok := idx[path]; ok && out[i].IsSet() {
				continue
			}
			out = e.assign(out, idx, path, hundred)
			filled = append(filled, path)
		}
		if len(filled) > 0 {
			out, _ = e.propagate(out, descendantsOf(filled))
		}
	}
	return out
}

// Rebuild applies auto-fill and builds the tree from the result. Callers use
// it on every catalog or allocation change.
func (e *Engine) Rebuild(allocations []Allocation) ([]*Node, []Allocation) {
	filled := e.AutoFill(allocations)
	return BuildTree(e.skus, e.scope.Columns, filled), filled
}

// Tree builds the tree for allocations without auto-fill.
func (e *Engine) Tree(allocations []Allocation) []*Node {
	return BuildTree(e.skus, e.scope.Columns, allocations)
}
