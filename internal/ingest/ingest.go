// Package ingest turns uploaded delimited-text bytes into a dataset frame.
//
// Bytes are decoded as UTF-8 (with an optional BOM) and, when that fails, as
// Shift_JIS. Parsing is lenient about quoting and short rows; rows longer
// than the header are a structural error.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// Encodings reported in Result.Encoding.
const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

// ctxCheckEvery is how many records are parsed between context checks.
const ctxCheckEvery = 1000

// Error is an ingestion failure. The session that requested the ingestion is
// left without a dataset.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "ingest: " + e.Reason + ": " + e.Err.Error()
	}
	return "ingest: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinel causes wrapped by Error.
var (
	ErrNoData       = errors.New("no rows found")
	ErrUndecodable  = errors.New("bytes are neither UTF-8 nor Shift_JIS")
	ErrRaggedRecord = errors.New("row has more fields than the header")
)

// Options controls parsing.
type Options struct {
	// Delimiter separates fields. Zero means a comma.
	Delimiter rune
	// NoHeader names columns "0", "1", ... instead of using the first row.
	NoHeader bool
	// MaxBytes bounds the input size. Zero means unbounded.
	MaxBytes int64
}

// Result is a successfully ingested frame.
type Result struct {
	Frame    *dataset.Frame
	Encoding string
	Bytes    int64
	Warnings []string
}

// Read decodes and parses r.
func Read(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	counter := NewCountingReader(NewBOMSkippingReader(r), opts.MaxBytes)
	raw, err := io.ReadAll(counter)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, &Error{Reason: fmt.Sprintf("limit is %d bytes", opts.MaxBytes), Err: err}
		}
		return nil, &Error{Reason: "read failed", Err: err}
	}

	text, encoding, err := Decode(raw)
	if err != nil {
		return nil, &Error{Reason: "cannot decode file", Err: err}
	}

	res := &Result{Encoding: encoding, Bytes: counter.BytesRead}
	if encoding != EncodingUTF8 {
		res.Warnings = append(res.Warnings, "file is not valid UTF-8; it was decoded as Shift_JIS")
	}

	res.Frame, err = Parse(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Decode returns the text of raw, trying UTF-8 first and Shift_JIS second.
// A leading BOM is dropped.
func Decode(raw []byte) (string, string, error) {
	raw = trimBOM(raw)
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, nil
	}

	out, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	// The decoder substitutes U+FFFD for byte sequences it cannot map.
	if strings.ContainsRune(string(out), utf8.RuneError) {
		return "", "", ErrUndecodable
	}
	return string(out), EncodingShiftJIS, nil
}

func trimBOM(b []byte) []byte {
	if len(b) >= len(utf8BOM) && string(b[:len(utf8BOM)]) == string(utf8BOM) {
		return b[len(utf8BOM):]
	}
	return b
}

// Parse splits decoded text into records and builds a frame.
func Parse(ctx context.Context, text string, opts Options) (*dataset.Frame, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ','
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var records [][]string
	for {
		if len(records)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &Error{Reason: "cancelled", Err: err}
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Error{Reason: "malformed delimited text", Err: err}
		}
		if isBlankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, &Error{Reason: "file is empty", Err: ErrNoData}
	}

	var header []string
	body := records
	if opts.NoHeader {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		header = dataset.PositionalNames(width)
	} else {
		header, body = records[0], records[1:]
		for i, rec := range body {
			if len(rec) > len(header) {
				return nil, &Error{
					Reason: fmt.Sprintf("line %d has %d fields, header has %d", i+2, len(rec), len(header)),
					Err:    ErrRaggedRecord,
				}
			}
		}
	}

	f, err := dataset.FromRecords(header, body)
	if err != nil {
		return nil, &Error{Reason: "invalid table", Err: err}
	}
	return f, nil
}

// isBlankRecord matches the single empty field encoding/csv yields for a line
// holding only whitespace.
func isBlankRecord(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

// ParseDelimiter accepts a literal single character or one of the names
// "comma", "tab", "semicolon" and "pipe".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "comma", ",":
		return ',', nil
	case "tab", "\\t", "\t":
		return '\t', nil
	case "semicolon", ";":
		return ';', nil
	case "pipe", "|":
		return '|', nil
	}
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unsupported delimiter %q", s)
}
