package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/warp/sku-allocator/hierarchy"
	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet WriteXLSX writes to.
const SheetName = "Allocation"

// WriteXLSX writes the rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, header []string, rows []hierarchy.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := xlsxValues(row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// xlsxValues keeps numeric columns numeric. Blank strings become nil so the
// cell stays empty instead of holding "".
func xlsxValues(row hierarchy.ExportRow) []any {
	values := make([]any, 0, len(row.Values)+5)
	for _, v := range row.Values {
		values = append(values, v)
	}
	values = append(values,
		row.SkuCode,
		textCell(row.CumulativePercentage),
		row.UnitPrice,
		integerCell(row.FinalAmount),
		integerCell(row.FinalQuantity),
	)
	return values
}

func integerCell(s string) any {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return n
}

func textCell(s string) any {
	if s == "" {
		return nil
	}
	return s
}
