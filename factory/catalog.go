/*
Package factory converts tabular imports into a hierarchy catalog.

PURPOSE:
  A merchandiser uploads a sheet (CSV or XLSX) with one row per SKU. The
  factory maps the chosen columns onto hierarchy.Column definitions and
  hierarchy.Sku records so the engine can build a tree from them.

IMPORT SPEC:
  {
    "sku_column": "sku",
    "price_column": "unit_price",
    "hierarchy_columns": ["category", "material", "size"]
  }

  hierarchy_columns are listed top-down; position 0 becomes level 1.

ROW RULES:
  - Empty SKU code:          skipped with a warning
  - Duplicate SKU code:      first row wins, later rows warned and skipped
  - Price not a whole number
    or not positive:         skipped with a warning
  - "/" in code or value:    skipped with a warning
  - Missing hierarchy value: kept; the path stops at the last non-empty level

  Rows are never fatal. A spec that names a column absent from the header
  is, and so is an import that leaves no SKU.

USAGE:
  header, rows, err := factory.ReadCSV(r)
  catalog, warnings, err := factory.NewCatalogFactory().Parse(header, rows, spec)

SEE ALSO:
  - hierarchy/path.go: how Values become paths
  - planner/planner.go: ImportCatalog stores the result
*/
package factory

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/sku-allocator/hierarchy"
)

// ImportSpec names the header columns that carry the SKU code, the unit
// price and the hierarchy attributes.
type ImportSpec struct {
	SkuColumn        string   `json:"sku_column" validate:"required"`
	PriceColumn      string   `json:"price_column" validate:"required"`
	HierarchyColumns []string `json:"hierarchy_columns" validate:"required,min=1,dive,required"`
}

// Catalog is the parsed result of one import.
type Catalog struct {
	Columns []hierarchy.Column
	Skus    []hierarchy.Sku
}

// CatalogFactory parses imports. It is safe for concurrent use.
type CatalogFactory struct {
	validate *validator.Validate
}

func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{validate: validator.New()}
}

// Parse maps header + rows onto a catalog. Per-row problems are returned as
// warnings; the error is reserved for problems with the ImportSpec or the header.
func (f *CatalogFactory) Parse(header []string, rows [][]string, spec ImportSpec) (Catalog, []string, error) {
	if err := f.validate.Struct(spec); err != nil {
		return Catalog{}, nil, fmt.Errorf("%w: %s", hierarchy.ErrInvalidColumns, describe(err))
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, bom))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	lookup := func(level int, name string) (int, error) {
		i, ok := index[strings.TrimSpace(name)]
		if !ok {
			return 0, &hierarchy.ColumnError{Level: level, Name: name, Reason: "not found in header"}
		}
		return i, nil
	}

	skuIdx, err := lookup(0, spec.SkuColumn)
	if err != nil {
		return Catalog{}, nil, err
	}
	priceIdx, err := lookup(0, spec.PriceColumn)
	if err != nil {
		return Catalog{}, nil, err
	}

	columns := make([]hierarchy.Column, len(spec.HierarchyColumns))
	valueIdx := make([]int, len(spec.HierarchyColumns))
	for i, name := range spec.HierarchyColumns {
		level := i + 1
		if valueIdx[i], err = lookup(level, name); err != nil {
			return Catalog{}, nil, err
		}
		columns[i] = hierarchy.Column{Level: level, Name: strings.TrimSpace(name)}
	}
	if err := hierarchy.ValidateColumns(columns); err != nil {
		return Catalog{}, nil, err
	}

	var warnings []string
	seen := make(map[string]int)
	skus := make([]hierarchy.Sku, 0, len(rows))

	for n, row := range rows {
		line := n + 2 // header is line 1
		if blank(row) {
			continue
		}

		code := cell(row, skuIdx)
		if code == "" {
			warnings = append(warnings, fmt.Sprintf("row %d: missing sku code, skipped", line))
			continue
		}
		if first, dup := seen[code]; dup {
			warnings = append(warnings, fmt.Sprintf("row %d: duplicate sku %q (first on row %d), skipped", line, code, first))
			continue
		}

		price, err := parsePrice(cell(row, priceIdx))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: sku %q: %v, skipped", line, code, err))
			continue
		}

		values := make(map[string]string, len(columns))
		for i, c := range columns {
			if v := cell(row, valueIdx[i]); v != "" {
				values[c.Name] = v
			}
		}

		sku := hierarchy.Sku{Code: code, UnitPrice: price, Values: values}
		if err := hierarchy.ValidateSku(sku, columns); err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: sku %q: %v, skipped", line, code, err))
			continue
		}

		seen[code] = line
		skus = append(skus, sku)
	}

	if len(skus) == 0 {
		return Catalog{}, warnings, hierarchy.ErrEmptyCatalog
	}
	return Catalog{Columns: columns, Skus: skus}, warnings, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePrice(raw string) (int64, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, fmt.Errorf("missing unit price")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid unit price %q", raw)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("unit price %s is not a whole amount", raw)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("unit price %s must be positive", raw)
	}
	return d.IntPart(), nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// describe flattens validator errors into "field:tag" pairs.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		parts = append(parts, ve.Field()+":"+ve.Tag())
	}
	return strings.Join(parts, ", ")
}
