/*
export.go - Cumulative per-SKU export

PURPOSE:
  Produces one row per SKU with its share of the total budget. The share is
  recomputed from raw stored percentages along the SKU's path, not read from
  stored amounts, so the export is correct even when propagation has not run.

RULES:
  - A SKU is allocated only if every prefix of its path, SKU level included,
    has a stored allocation with a non-zero percentage. Otherwise its
    percentage, amount and quantity cells are blank (not "0").
  - cumulative fraction = Π (percentage / 100) over the path
  - finalAmount   = floor(totalBudget × fraction)
  - finalQuantity = floor(finalAmount / unitPrice), 0 if unitPrice <= 0
  - The cumulative percentage is written with four decimals ("40.0000").

  On a fully propagated list finalAmount equals the SKU-level allocation
  amount whenever no intermediate level floors away a fraction; otherwise it
  can exceed it by the accumulated flooring, since it floors once.
*/
package hierarchy

import "github.com/shopspring/decimal"

// Fixed trailing export columns, after the hierarchy columns.
const (
	HeaderSkuCode              = "sku_code"
	HeaderCumulativePercentage = "cumulative_percentage"
	HeaderUnitPrice            = "unit_price"
	HeaderFinalAmount          = "final_amount"
	HeaderFinalQuantity        = "final_quantity"
)

// ExportHeader returns the header row matching ExportRow.Cells.
func ExportHeader(columns []Column) []string {
	cols := orderedColumns(columns)
	header := make([]string, 0, len(cols)+5)
	for _, c := range cols {
		header = append(header, c.Name)
	}
	return append(header,
		HeaderSkuCode,
		HeaderCumulativePercentage,
		HeaderUnitPrice,
		HeaderFinalAmount,
		HeaderFinalQuantity,
	)
}

// ExportRows computes one row per SKU in catalog order.
func ExportRows(skus []Sku, scope Scope, allocations []Allocation) []ExportRow {
	cols := orderedColumns(scope.Columns)
	idx := indexAllocations(allocations)

	rows := make([]ExportRow, 0, len(skus))
	for _, sku := range skus {
		row := ExportRow{
			Values:    make([]string, len(cols)),
			SkuCode:   sku.Code,
			UnitPrice: sku.UnitPrice,
		}
		for i, c := range cols {
			row.Values[i] = sku.Values[c.Name]
		}

		fraction, ok := cumulativeFraction(SkuPath(sku, cols), idx, allocations)
		if ok {
			amount := decimal.NewFromInt(scope.TotalBudget).Mul(fraction).Floor().IntPart()
			var quantity int64
			if sku.UnitPrice > 0 {
				quantity = floorDiv(amount, sku.UnitPrice)
			}
			row.CumulativePercentage = fraction.Shift(2).StringFixed(4)
			row.FinalAmount = formatInt(amount)
			row.FinalQuantity = formatInt(quantity)
		}
		rows = append(rows, row)
	}
	return rows
}

// CumulativePercentage returns the product of percentages along path,
// expressed as a percentage, and whether every level is allocated.
func CumulativePercentage(path string, allocations []Allocation) (decimal.Decimal, bool) {
	fraction, ok := cumulativeFraction(path, indexAllocations(allocations), allocations)
	if !ok {
		return decimal.Zero, false
	}
	return fraction.Shift(2), true
}

func cumulativeFraction(path string, idx map[string]int, allocations []Allocation) (decimal.Decimal, bool) {
	// the SKU level decides first; an unset leaf never needs the walk
	leaf, ok := idx[path]
	if !ok || !allocations[leaf].IsSet() {
		return decimal.Zero, false
	}

	fraction := one
	for _, p := range PathPrefixes(path) {
		i, ok := idx[p]
		if !ok || !allocations[i].IsSet() {
			return decimal.Zero, false
		}
		fraction = fraction.Mul(allocations[i].Percentage.Shift(-2))
	}
	return fraction, true
}
