// Package export serializes a dataset frame for download or loading into
// another system.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// Download file names.
const (
	CSVFileName  = "cleaned_data.csv"
	XLSXFileName = "cleaned_data.xlsx"
)

// Content types for the download formats.
const (
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// FileName returns the download name for the format.
func (f Format) FileName() string {
	if f == FormatXLSX {
		return XLSXFileName
	}
	return CSVFileName
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return XLSXContentType
	}
	return CSVContentType
}

// Write serializes f in the given format.
func Write(w io.Writer, f *dataset.Frame, format Format) error {
	if format == FormatXLSX {
		return WriteXLSX(w, f)
	}
	return WriteCSV(w, f)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a header row and every record, prefixed with a UTF-8 BOM
// so spreadsheet tools detect the encoding. Nulls are written as empty fields.
func WriteCSV(w io.Writer, f *dataset.Frame) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, rec := range f.Records() {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
