package factory

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/warp/sku-allocator/hierarchy"
	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is returned when an upload has no header row.
var ErrNoHeader = fmt.Errorf("%w: missing header row", hierarchy.ErrEmptyCatalog)

const bom = "\uFEFF"

// ReadCSV returns the first record as header and the rest as rows. A leading
// UTF-8 BOM is dropped and rows may have differing lengths.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && string(head) == bom {
		br.Discard(len(bom))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrNoHeader
	}
	return records[0], records[1:], nil
}

// ReadXLSX reads the first sheet of a workbook. sheet selects another one by
// name when non-empty.
func ReadXLSX(r io.Reader, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet %q is empty", ErrNoHeader, sheet)
	}
	return records[0], records[1:], nil
}
