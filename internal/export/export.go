// Package export writes an aggregate result as an xlsx workbook.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/compulsa/internal/types"
)

// Sheet is the worksheet the records are written to.
const Sheet = "Sheet1"

// DefaultFileName is the export file name used when none is given.
const DefaultFileName = "datos_extraidos.xlsx"

// Headers returns the column headers for result: the fixed columns followed
// by any extra record keys in first-seen order.
func Headers(result *types.AggregateResult) []string {
	headers := append([]string{}, types.Columns...)
	return append(headers, result.ExtraColumns()...)
}

// Workbook builds the workbook for result. The caller closes it.
func Workbook(result *types.AggregateResult) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("no result to export")
	}

	f := excelize.NewFile()
	headers := Headers(result)

	if err := f.SetSheetRow(Sheet, "A1", &headers); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write headers: %w", err)
	}

	fecha := result.Fecha()
	for i, rec := range result.Records {
		row := make([]any, len(headers))
		for col, h := range headers {
			v := rec.Text(h)
			if h == types.FieldFecha && v == "" {
				v = fecha
			}
			row[col] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(Sheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(Sheet, "A", "A", 48) // articulo
	_ = f.SetColWidth(Sheet, "B", "B", 14) // precio
	_ = f.SetColWidth(Sheet, "C", "C", 20) // proveedor
	_ = f.SetColWidth(Sheet, "D", "D", 12) // fecha

	return f, nil
}

// XLSX returns the workbook bytes for result.
func XLSX(result *types.AggregateResult) ([]byte, error) {
	f, err := Workbook(result)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the workbook for result to path, creating parent
// directories.
func WriteXLSX(path string, result *types.AggregateResult) error {
	if path == "" {
		path = DefaultFileName
	}
	data, err := XLSX(result)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
