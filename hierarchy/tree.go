/*
tree.go - Builds the display tree from SKUs and allocations

PURPOSE:
  The tree is a derived view. It is rebuilt in full from the flat SKU list
  and the flat allocation list whenever either changes; nothing is diffed.

ALGORITHM:
  For each SKU, for each level 1..L:
    - build the SKU's path at that level
    - create the node the first time the path is seen, pulling percentage,
      amount and quantity from the allocation with the same path (zero if none)
    - attach it under the node of the previous level, or as a root
  Then add the terminal SKU node at parentPath/skuCode carrying the unit price.

  Paths are looked up in a map, so the build is O(N·L) for N SKUs and L levels.
  Children keep first-seen order.

SEE ALSO:
  - path.go: BuildPath
  - autofill.go: Rebuild runs auto-fill before building
*/
package hierarchy

// BuildTree groups skus into a tree by shared attribute prefixes and merges
// allocations onto matching nodes.
func BuildTree(skus []Sku, columns []Column, allocations []Allocation) []*Node {
	byPath := indexAllocations(allocations)
	cols := orderedColumns(columns)

	nodes := make(map[string]*Node)
	var roots []*Node

	attach := func(path, parent string) *Node {
		if n, ok := nodes[path]; ok {
			return n
		}
		n := &Node{Path: path, Name: PathName(path), Level: PathLevel(path)}
		if i, ok := byPath[path]; ok {
			a := allocations[i]
			n.Percentage = a.Percentage
			n.Amount = a.Amount
			n.Quantity = a.Quantity
		}
		nodes[path] = n
		if p, ok := nodes[parent]; ok && parent != "" {
			p.Children = append(p.Children, n)
		} else {
			roots = append(roots, n)
		}
		return n
	}

	for _, sku := range skus {
		parent := ""
		for level := 1; level <= len(cols); level++ {
			path := BuildPath(sku, cols, level)
			if path == "" || path == parent {
				// empty value at this level; the path did not grow
				continue
			}
			attach(path, parent)
			parent = path
		}

		leaf := attach(JoinPath(parent, sku.Code), parent)
		if leaf.UnitPrice == nil {
			price := sku.UnitPrice
			leaf.UnitPrice = &price
		}
	}

	return roots
}

// FindNode returns the node at path, or nil.
func FindNode(roots []*Node, path string) *Node {
	var found *Node
	for _, r := range roots {
		r.Walk(func(n *Node) {
			if found == nil && n.Path == path {
				found = n
			}
		})
		if found != nil {
			break
		}
	}
	return found
}

// Flatten lists every node of the forest, parents before children.
func Flatten(roots []*Node) []*Node {
	var out []*Node
	for _, r := range roots {
		r.Walk(func(n *Node) { out = append(out, n) })
	}
	return out
}

// indexAllocations maps path -> slice index. A later duplicate wins.
func indexAllocations(allocations []Allocation) map[string]int {
	idx := make(map[string]int, len(allocations))
	for i, a := range allocations {
		idx[a.Path] = i
	}
	return idx
}
