package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/prep/internal/dataset"
)

const sheetName = "cleaned_data"

// WriteXLSX writes the frame to a single-sheet workbook. Numbers and
// booleans keep their cell types; dates are written as text in the same
// format as the CSV export.
func WriteXLSX(w io.Writer, f *dataset.Frame) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := book.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}

	header := make([]interface{}, f.Width())
	for i, name := range f.Names() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r := 0; r < f.Rows(); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		row := make([]interface{}, f.Width())
		for i, v := range f.Row(r) {
			row[i] = xlsxValue(v)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxValue(v dataset.Value) interface{} {
	if !v.Valid {
		return nil
	}
	switch v.Kind {
	case dataset.KindNumeric:
		return v.Num
	case dataset.KindBool:
		return v.Bool
	default:
		return v.String()
	}
}
