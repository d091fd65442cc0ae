package ops

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/prep/internal/dataset"
)

func init() {
	Register(Definition{
		Info: Info{
			Key:        "drop_columns",
			Group:      "structure",
			Label:      "Drop columns",
			MinColumns: 1,
		},
		Frame: dropColumns,
		Check: func(f *dataset.Frame, req Request) error {
			if len(req.Columns) >= f.Width() {
				return invalid(req.Op, "cannot drop every column")
			}
			return nil
		},
	})
	Register(Definition{
		Info: Info{
			Key:   "drop_duplicates",
			Group: "structure",
			Label: "Drop duplicate rows",
		},
		Frame: dropDuplicates,
	})
}

func dropColumns(f *dataset.Frame, req Request) (*dataset.Frame, []string, error) {
	drop := make(map[string]bool, len(req.Columns))
	for _, name := range req.Columns {
		drop[name] = true
	}
	cols := make([]dataset.Column, 0, f.Width()-len(drop))
	for _, c := range f.Columns {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	return &dataset.Frame{Columns: cols}, nil, nil
}

// dropDuplicates keeps the first occurrence of every row. When columns are
// given only those columns are compared.
func dropDuplicates(f *dataset.Frame, req Request) (*dataset.Frame, []string, error) {
	keep, dupes := DuplicateMask(f, req.Columns)
	if dupes == 0 {
		return nil, nil, invalid(req.Op, "no duplicate rows")
	}
	return f.SelectRows(keep), []string{fmt.Sprintf("dropped %d duplicate rows", dupes)}, nil
}

// DuplicateMask marks the first occurrence of each distinct row as kept and
// returns how many rows are repeats.
func DuplicateMask(f *dataset.Frame, subset []string) ([]bool, int) {
	idx := make([]int, 0, f.Width())
	if len(subset) == 0 {
		for i := range f.Columns {
			idx = append(idx, i)
		}
	} else {
		for _, name := range subset {
			if i := f.Index(name); i >= 0 {
				idx = append(idx, i)
			}
		}
	}

	keep := make([]bool, f.Rows())
	seen := make(map[string]bool, f.Rows())
	dupes := 0
	var b strings.Builder
	for r := range keep {
		b.Reset()
		for _, i := range idx {
			b.WriteString(f.Columns[i].Values[r].Key())
			b.WriteByte(0x1f)
		}
		k := b.String()
		if seen[k] {
			dupes++
			continue
		}
		seen[k] = true
		keep[r] = true
	}
	return keep, dupes
}
