package factory_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/sku-allocator/factory"
	"github.com/warp/sku-allocator/hierarchy"
	"github.com/xuri/excelize/v2"
)

func spec() factory.ImportSpec {
	return factory.ImportSpec{
		SkuColumn:        "sku",
		PriceColumn:      "unit_price",
		HierarchyColumns: []string{"category", "material"},
	}
}

func TestParse_BuildsColumnsAndSkus(t *testing.T) {
	// GIVEN: A sheet with an unrelated column and columns in any order
	header := []string{"material", "note", "sku", "category", "unit_price"}
	rows := [][]string{
		{"X", "n/a", "S1", "A", "100"},
		{"Y", "", "S2", "A", "1,200"},
		{"", "", "S3", "B", "50"},
	}

	// WHEN: Parsing
	catalog, warnings, err := factory.NewCatalogFactory().Parse(header, rows, spec())

	// THEN: Levels follow the hierarchy_columns order, SKUs keep row order
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []hierarchy.Column{{Level: 1, Name: "category"}, {Level: 2, Name: "material"}}, catalog.Columns)
	require.Len(t, catalog.Skus, 3)
	assert.Equal(t, hierarchy.Sku{Code: "S1", UnitPrice: 100, Values: map[string]string{"category": "A", "material": "X"}}, catalog.Skus[0])
	assert.Equal(t, int64(1200), catalog.Skus[1].UnitPrice)
	assert.Equal(t, map[string]string{"category": "B"}, catalog.Skus[2].Values, "missing values stay absent")
}

func TestParse_BadRowsAreWarnedAndSkipped(t *testing.T) {
	header := []string{"sku", "unit_price", "category", "material"}
	rows := [][]string{
		{"S1", "100", "A", "X"},
		{"", "100", "A", "X"},
		{"S1", "90", "A", "Y"},
		{"S2", "abc", "A", "X"},
		{"S3", "12.5", "A", "X"},
		{"S4", "0", "A", "X"},
		{"", "", "", ""},
		{"S5"},
	}

	catalog, warnings, err := factory.NewCatalogFactory().Parse(header, rows, spec())

	require.NoError(t, err)
	require.Len(t, catalog.Skus, 1)
	assert.Equal(t, "S1", catalog.Skus[0].Code)
	require.Len(t, warnings, 6)
	assert.Contains(t, warnings[0], "row 3")
	assert.Contains(t, warnings[1], "duplicate")
	assert.Contains(t, warnings[4], "positive")
	assert.Contains(t, warnings[5], "missing unit price")
}

func TestParse_PathSeparatorInValuesIsSkipped(t *testing.T) {
	// GIVEN: One category and one SKU code that would split into two segments
	header := []string{"sku", "unit_price", "category", "material"}
	rows := [][]string{
		{"S1", "100", "A", "X"},
		{"S2", "100", "A/B", "Y"},
		{"S/3", "100", "C", "Z"},
		{"S4", "100", "C", "Z"},
	}

	// WHEN: Parsing
	catalog, warnings, err := factory.NewCatalogFactory().Parse(header, rows, spec())

	// THEN: Both rows are warned and skipped, the rest stay
	require.NoError(t, err)
	require.Len(t, catalog.Skus, 2)
	assert.Equal(t, "S1", catalog.Skus[0].Code)
	assert.Equal(t, "S4", catalog.Skus[1].Code)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "row 3")
	assert.Contains(t, warnings[0], `"A/B"`)
	assert.Contains(t, warnings[1], "row 4")

	// AND: Every SKU path has one segment per level
	for _, s := range catalog.Skus {
		assert.Equal(t, 3, hierarchy.PathLevel(hierarchy.SkuPath(s, catalog.Columns)))
	}
}

func TestParse_Errors(t *testing.T) {
	f := factory.NewCatalogFactory()
	header := []string{"sku", "unit_price", "category"}
	rows := [][]string{{"S1", "10", "A"}}

	t.Run("invalid spec", func(t *testing.T) {
		_, _, err := f.Parse(header, rows, factory.ImportSpec{SkuColumn: "sku"})
		assert.ErrorIs(t, err, hierarchy.ErrInvalidColumns)
	})

	t.Run("column missing from header", func(t *testing.T) {
		_, _, err := f.Parse(header, rows, spec())
		var colErr *hierarchy.ColumnError
		require.ErrorAs(t, err, &colErr)
		assert.Equal(t, "material", colErr.Name)
		assert.Equal(t, 2, colErr.Level)
	})

	t.Run("duplicate hierarchy column", func(t *testing.T) {
		s := spec()
		s.HierarchyColumns = []string{"category", "category"}
		_, _, err := f.Parse(header, rows, s)
		assert.ErrorIs(t, err, hierarchy.ErrInvalidColumns)
	})

	t.Run("no usable rows", func(t *testing.T) {
		s := spec()
		s.HierarchyColumns = []string{"category"}
		_, warnings, err := f.Parse(header, [][]string{{"", "10", "A"}}, s)
		assert.ErrorIs(t, err, hierarchy.ErrEmptyCatalog)
		assert.Len(t, warnings, 1)
	})
}

func TestReadCSV(t *testing.T) {
	input := "\uFEFF\"sku\",unit_price,category\nS1,100,A\nS2,\"1,200\",\"B, C\"\n"

	header, rows, err := factory.ReadCSV(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "unit_price", "category"}, header)
	assert.Equal(t, [][]string{{"S1", "100", "A"}, {"S2", "1,200", "B, C"}}, rows)

	_, _, err = factory.ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, factory.ErrNoHeader)
	assert.True(t, hierarchy.IsClientError(err))
}

func TestReadXLSX(t *testing.T) {
	// GIVEN: A workbook built in memory
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"sku", "unit_price", "category"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"S1", 100, "A"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	// WHEN: Reading it back and parsing
	header, rows, err := factory.ReadXLSX(&buf, "")
	require.NoError(t, err)
	s := spec()
	s.HierarchyColumns = []string{"category"}
	catalog, _, err := factory.NewCatalogFactory().Parse(header, rows, s)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, []hierarchy.Sku{{Code: "S1", UnitPrice: 100, Values: map[string]string{"category": "A"}}}, catalog.Skus)
}
