package core

// export.go writes a reviewed dataset back out as CSV or XLSX.
//
// Both formats use the grid labels from Columns as the header row, so an
// exported CSV can be imported again.

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name used for XLSX exports.
const ExportSheet = "Review"

// exportHeader returns the header row in grid order.
func exportHeader() []string {
	header := make([]string, len(Columns))
	for i, col := range Columns {
		header[i] = col.Label
	}
	return header
}

// exportRecord returns one row's values in grid order.
func exportRecord(r Row) []string {
	record := make([]string, len(Columns))
	for i, col := range Columns {
		record[i] = r.Value(col.Field)
	}
	return record
}

// WriteCSV writes ds as CSV with the grid header.
func WriteCSV(w io.Writer, ds Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range ds {
		if err := cw.Write(exportRecord(r)); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes ds as a single-sheet workbook with the grid header.
func WriteXLSX(w io.Writer, ds Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with Sheet1; rename it rather than adding a second sheet.
	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range exportHeader() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(ExportSheet, cell, h); err != nil {
			return fmt.Errorf("write xlsx header: %w", err)
		}
	}

	for r, row := range ds {
		for c, v := range exportRecord(row) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			// SetCellStr keeps values like "4" or "=1+1" as literal text.
			if err := f.SetCellStr(ExportSheet, cell, v); err != nil {
				return fmt.Errorf("write xlsx row %d: %w", row.ID, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
