package hierarchy

import "github.com/shopspring/decimal"

// DistributeEqually splits 100% across a sibling group. An empty parent
// selects the level-1 roots; otherwise the children of parent at the given
// level are selected. Each sibling receives 100/n truncated to two decimals
// and the first one also takes the remainder, so the group sums to exactly
// 100. Descendants are propagated once after the whole group is assigned.
func (e *Engine) DistributeEqually(parent string, level int, roots []*Node, allocations []Allocation) []Allocation {
	targets := siblingTargets(parent, level, roots)
	out := cloneAllocations(allocations)
	if len(targets) == 0 {
		return out
	}

	shares := EqualShares(len(targets))
	idx := indexAllocations(out)
	updated := make([]string, 0, len(targets))
	for i, n := range targets {
		out = e.assign(out, idx, n.Path, shares[i])
		updated = append(updated, n.Path)
	}

	out, _ = e.propagate(out, descendantsOf(updated))
	return out
}

// EqualShares returns n percentages summing to exactly 100, the rounding
// remainder on the first: EqualShares(3) = [33.34 33.33 33.33].
func EqualShares(n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	count := decimal.NewFromInt(int64(n))
	share := hundred.Div(count).Truncate(2)
	remainder := hundred.Sub(share.Mul(count))

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = share
	}
	shares[0] = share.Add(remainder)
	return shares
}

func siblingTargets(parent string, level int, roots []*Node) []*Node {
	if parent == "" {
		var out []*Node
		for _, r := range roots {
			if r.Level == 1 {
				out = append(out, r)
			}
		}
		return out
	}

	p := FindNode(roots, parent)
	if p == nil {
		return nil
	}
	var out []*Node
	for _, c := range p.Children {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}
