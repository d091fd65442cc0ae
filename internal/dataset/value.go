// Package dataset defines the in-memory table model shared by ingestion,
// operations, sessions and exporters.
//
// A [Frame] is an ordered list of uniquely named [Column]s of equal length.
// Every column declares a [Kind]; every cell is a [Value] that carries its own
// kind so that a cell left untouched by a scoped operation keeps its original
// type even after the column has been re-declared.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared semantic type of a column or cell.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindBool
	KindDate
	KindCategorical
)

// String returns the lowercase name used in JSON payloads and logs.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindCategorical:
		return "categorical"
	default:
		return "text"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "str":
		return KindText, nil
	case "numeric", "number", "float":
		return KindNumeric, nil
	case "bool", "boolean":
		return KindBool, nil
	case "date", "datetime":
		return KindDate, nil
	case "categorical", "category":
		return KindCategorical, nil
	}
	return KindText, fmt.Errorf("unknown kind %q", s)
}

// TextLike reports whether values of this kind are strings.
func (k Kind) TextLike() bool {
	return k == KindText || k == KindCategorical
}

// NullMarker is what a null becomes when a column is stringified.
const NullMarker = "nan"

// Value is a single cell. The zero Value is a null text cell.
type Value struct {
	Kind  Kind
	Valid bool
	Num   float64
	Str   string
	Bool  bool
	Time  time.Time
}

// Null returns an invalid cell of the given kind.
func Null(k Kind) Value { return Value{Kind: k} }

// Number returns a numeric cell. NaN is stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Null(KindNumeric)
	}
	return Value{Kind: KindNumeric, Valid: true, Num: f}
}

// Text returns a text cell.
func Text(s string) Value { return Value{Kind: KindText, Valid: true, Str: s} }

// Category returns a categorical cell.
func Category(s string) Value { return Value{Kind: KindCategorical, Valid: true, Str: s} }

// Boolean returns a bool cell.
func Boolean(b bool) Value { return Value{Kind: KindBool, Valid: true, Bool: b} }

// Date returns a date cell.
func Date(t time.Time) Value { return Value{Kind: KindDate, Valid: true, Time: t} }

// IsNull reports whether the cell is missing.
func (v Value) IsNull() bool { return !v.Valid }

// String formats the cell the way it is written on export.
// Nulls format as the empty string.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	switch v.Kind {
	case KindNumeric:
		return FormatNumber(v.Num)
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindDate:
		return FormatDate(v.Time)
	default:
		return v.Str
	}
}

// Stringify is String with nulls rendered as NullMarker.
func (v Value) Stringify() string {
	if !v.Valid {
		return NullMarker
	}
	return v.String()
}

// Equal compares kind, validity and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Valid != o.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	switch v.Kind {
	case KindNumeric:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindDate:
		return v.Time.Equal(o.Time)
	default:
		return v.Str == o.Str
	}
}

// Key returns a string usable as a map key for duplicate and category detection.
func (v Value) Key() string {
	if !v.Valid {
		return "\x00null"
	}
	return v.Kind.String() + "\x00" + v.String()
}

// Less orders two valid cells of the same kind. Cells of different kinds
// order by kind.
func (v Value) Less(o Value) bool {
	if v.Kind != o.Kind {
		return v.Kind < o.Kind
	}
	switch v.Kind {
	case KindNumeric:
		return v.Num < o.Num
	case KindBool:
		return !v.Bool && o.Bool
	case KindDate:
		return v.Time.Before(o.Time)
	default:
		return v.Str < o.Str
	}
}

// FormatNumber renders a float without a trailing exponent for ordinary values.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatDate renders midnight timestamps as dates and everything else with
// the time of day.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
