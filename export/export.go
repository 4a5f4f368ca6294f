/*
Package export serializes allocation export rows.

PURPOSE:
  hierarchy.ExportRows composes one row per SKU; this package only writes
  them out. No arithmetic happens here.

FORMATS:
  CSV:  UTF-8 BOM, RFC 4180 quoting, blank cells for unallocated SKUs
  XLSX: One "Allocation" sheet, bold header, numeric cells for unit price,
        final amount and final quantity, blank cells left empty

USAGE:
  header, rows, err := planner.Export(ctx, sessionID, period)
  err = export.WriteCSV(w, header, rows)
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/warp/sku-allocator/hierarchy"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV when raw is empty.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write dispatches to the writer for f.
func Write(w io.Writer, f Format, header []string, rows []hierarchy.ExportRow) error {
	if f == FormatXLSX {
		return WriteXLSX(w, header, rows)
	}
	return WriteCSV(w, header, rows)
}

// WriteCSV writes a BOM, the header and one record per row.
func WriteCSV(w io.Writer, header []string, rows []hierarchy.ExportRow) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Cells()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
