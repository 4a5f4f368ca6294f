package hierarchy

import (
	"sort"
	"strconv"
	"strings"
)

// PathSeparator joins attribute values into a hierarchy path.
const PathSeparator = "/"

// BuildPath joins the non-empty attribute values of sku for levels
// 1..depth in column order. A missing intermediate value is skipped, so two
// SKUs that differ only by that value share the resulting path.
func BuildPath(sku Sku, columns []Column, depth int) string {
	if depth <= 0 {
		return ""
	}
	cols := orderedColumns(columns)
	if depth > len(cols) {
		depth = len(cols)
	}

	segments := make([]string, 0, depth)
	for _, col := range cols[:depth] {
		if v := sku.Values[col.Name]; v != "" {
			segments = append(segments, v)
		}
	}
	return strings.Join(segments, PathSeparator)
}

// SkuPath returns the terminal path of sku: its full attribute path with the
// SKU code appended.
func SkuPath(sku Sku, columns []Column) string {
	return JoinPath(BuildPath(sku, columns, len(columns)), sku.Code)
}

// JoinPath appends name to parent. An empty parent yields name alone.
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + PathSeparator + name
}

// ParentPath strips the last segment. Level-1 paths have parent "".
func ParentPath(path string) string {
	i := strings.LastIndex(path, PathSeparator)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// PathName returns the last segment of path.
func PathName(path string) string {
	return path[strings.LastIndex(path, PathSeparator)+1:]
}

// PathLevel returns the segment count of path (0 for "").
func PathLevel(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, PathSeparator) + 1
}

// PathPrefixes returns every ancestor path of path followed by path itself,
// shallowest first: "A/X/S1" -> ["A", "A/X", "A/X/S1"].
func PathPrefixes(path string) []string {
	if path == "" {
		return nil
	}
	segments := strings.Split(path, PathSeparator)
	prefixes := make([]string, len(segments))
	for i := range segments {
		prefixes[i] = strings.Join(segments[:i+1], PathSeparator)
	}
	return prefixes
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(path, ancestor string) bool {
	return len(path) > len(ancestor)+len(PathSeparator) &&
		strings.HasPrefix(path, ancestor+PathSeparator)
}

// orderedColumns returns columns sorted by level without touching the input.
func orderedColumns(columns []Column) []Column {
	if sort.SliceIsSorted(columns, func(i, j int) bool { return columns[i].Level < columns[j].Level }) {
		return columns
	}
	cols := append([]Column(nil), columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Level < cols[j].Level })
	return cols
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
