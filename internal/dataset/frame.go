package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrColumnNotFound is returned when a named column does not exist.
var ErrColumnNotFound = errors.New("column not found")

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// Len returns the number of rows.
func (c Column) Len() int { return len(c.Values) }

// Clone returns a deep copy.
func (c Column) Clone() Column {
	vals := make([]Value, len(c.Values))
	copy(vals, c.Values)
	return Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

// NullCount counts missing cells.
func (c Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if !v.Valid {
			n++
		}
	}
	return n
}

// Floats returns the valid numeric payloads, skipping nulls and cells of
// other kinds.
func (c Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Valid && v.Kind == KindNumeric {
			out = append(out, v.Num)
		}
	}
	return out
}

// Frame is an ordered collection of equal-length columns with unique names.
type Frame struct {
	Columns []Column
}

// New builds a frame and checks the row-count and name invariants.
func New(cols ...Column) (*Frame, error) {
	f := &Frame{Columns: cols}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}

// Check verifies uniform row counts and unique column names.
func (f *Frame) Check() error {
	seen := make(map[string]bool, len(f.Columns))
	rows := -1
	for _, c := range f.Columns {
		if seen[c.Name] {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if rows >= 0 && c.Len() != rows {
			return fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), rows)
		}
		rows = c.Len()
	}
	return nil
}

// Rows returns the row count.
func (f *Frame) Rows() int {
	if f == nil || len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Width returns the column count.
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.Columns)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of a column or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool { return f.Index(name) >= 0 }

// Column returns a column by name.
func (f *Frame) Column(name string) (Column, error) {
	i := f.Index(name)
	if i < 0 {
		return Column{}, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return f.Columns[i], nil
}

// Clone returns a fully independent copy.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	cols := make([]Column, len(f.Columns))
	for i, c := range f.Columns {
		cols[i] = c.Clone()
	}
	return &Frame{Columns: cols}
}

// WithColumn returns a shallow copy of the frame with the named column
// replaced. Untouched columns share backing arrays with f; callers never
// write through them.
func (f *Frame) WithColumn(col Column) (*Frame, error) {
	i := f.Index(col.Name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, col.Name)
	}
	if col.Len() != f.Rows() {
		return nil, fmt.Errorf("column %q has %d rows, expected %d", col.Name, col.Len(), f.Rows())
	}
	cols := make([]Column, len(f.Columns))
	copy(cols, f.Columns)
	cols[i] = col
	return &Frame{Columns: cols}, nil
}

// SelectRows returns a new frame holding only the rows whose keep flag is set.
func (f *Frame) SelectRows(keep []bool) *Frame {
	cols := make([]Column, len(f.Columns))
	for i, c := range f.Columns {
		vals := make([]Value, 0, len(c.Values))
		for r, v := range c.Values {
			if keep[r] {
				vals = append(vals, v)
			}
		}
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Values: vals}
	}
	return &Frame{Columns: cols}
}

// Row returns the cells of row r in column order.
func (f *Frame) Row(r int) []Value {
	row := make([]Value, len(f.Columns))
	for i, c := range f.Columns {
		row[i] = c.Values[r]
	}
	return row
}

// Records renders every row as strings for export, nulls as empty strings.
func (f *Frame) Records() [][]string {
	out := make([][]string, f.Rows())
	for r := range out {
		rec := make([]string, len(f.Columns))
		for i, c := range f.Columns {
			rec[i] = c.Values[r].String()
		}
		out[r] = rec
	}
	return out
}

// Head returns a copy of the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.Rows() {
		n = f.Rows()
	}
	keep := make([]bool, f.Rows())
	for i := 0; i < n; i++ {
		keep[i] = true
	}
	return f.SelectRows(keep)
}

// Equal reports structural equality: names, kinds and every cell.
func (f *Frame) Equal(o *Frame) bool {
	if f.Width() != o.Width() || f.Rows() != o.Rows() {
		return false
	}
	for i, c := range f.Columns {
		oc := o.Columns[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for r := range c.Values {
			if !c.Values[r].Equal(oc.Values[r]) {
				return false
			}
		}
	}
	return true
}

// UniqueName returns base if it is not taken, otherwise base.1, base.2, ...
func UniqueName(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		name := base + "." + strconv.Itoa(i)
		if !taken[name] {
			return name
		}
	}
}

// PositionalNames returns "0", "1", ... for headerless ingestion.
func PositionalNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}
