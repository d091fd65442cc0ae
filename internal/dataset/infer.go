package dataset

// infer.go turns raw delimited-text cells into typed columns.
//
// A column is numeric when every non-missing cell parses as a float, bool when
// every non-missing cell is a true/false literal, and text otherwise. Dates are
// never inferred; they are produced only by an explicit date conversion.

import (
	"strconv"
	"strings"
)

// missingTokens are treated as null on ingestion, matched exactly after trimming.
var missingTokens = map[string]bool{
	"":        true,
	"NA":      true,
	"N/A":     true,
	"n/a":     true,
	"NaN":     true,
	"nan":     true,
	"-NaN":    true,
	"-nan":    true,
	"NULL":    true,
	"null":    true,
	"None":    true,
	"#N/A":    true,
	"<NA>":    true,
	"#NA":     true,
	"1.#IND":  true,
	"1.#QNAN": true,
}

// IsMissingToken reports whether a raw cell denotes a missing value.
func IsMissingToken(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// ParseBool accepts the literals pandas recognises as booleans.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// ParseNumber parses a plain float literal after trimming.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// InferKind picks the narrowest kind that fits every non-missing raw cell.
func InferKind(raw []string) Kind {
	numeric, boolean, seen := true, true, false
	for _, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		seen = true
		if numeric {
			if _, ok := ParseNumber(s); !ok {
				numeric = false
			}
		}
		if boolean {
			if _, ok := ParseBool(s); !ok {
				boolean = false
			}
		}
		if !numeric && !boolean {
			return KindText
		}
	}
	if !seen {
		// A column with nothing but missing cells holds numeric nulls.
		return KindNumeric
	}
	if boolean {
		return KindBool
	}
	return KindNumeric
}

// ParseCell converts one raw cell to a value of the given kind.
// Unparseable cells become null.
func ParseCell(s string, k Kind) Value {
	if IsMissingToken(s) {
		return Null(k)
	}
	switch k {
	case KindNumeric:
		if f, ok := ParseNumber(s); ok {
			return Number(f)
		}
		return Null(k)
	case KindBool:
		if b, ok := ParseBool(s); ok {
			return Boolean(b)
		}
		return Null(k)
	case KindCategorical:
		return Category(s)
	default:
		return Text(s)
	}
}

// BuildColumn infers a kind for raw cells and parses them.
func BuildColumn(name string, raw []string) Column {
	k := InferKind(raw)
	vals := make([]Value, len(raw))
	for i, s := range raw {
		vals[i] = ParseCell(s, k)
	}
	return Column{Name: name, Kind: k, Values: vals}
}

// FromRecords builds a frame from a header and rows of raw cells.
// Short rows are padded with missing cells and long rows are truncated to
// the header width.
func FromRecords(header []string, rows [][]string) (*Frame, error) {
	names := DisambiguateNames(header)
	cols := make([]Column, len(names))
	for i, name := range names {
		raw := make([]string, len(rows))
		for r, row := range rows {
			if i < len(row) {
				raw[r] = row[i]
			}
		}
		cols[i] = BuildColumn(name, raw)
	}
	return New(cols...)
}

// DisambiguateNames trims header cells, names blank ones "Unnamed: i" and
// suffixes repeats with .1, .2, ...
func DisambiguateNames(header []string) []string {
	taken := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := UniqueName(h, taken)
		taken[name] = true
		out[i] = name
	}
	return out
}

// Reinfer re-parses a text column whose cells may now fit a narrower kind.
// Columns of any other kind are returned unchanged.
func Reinfer(c Column) Column {
	if c.Kind != KindText {
		return c
	}
	raw := make([]string, len(c.Values))
	for i, v := range c.Values {
		if v.Valid {
			raw[i] = v.String()
		}
	}
	return BuildColumn(c.Name, raw)
}
