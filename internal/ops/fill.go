package ops

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/dateparse"
)

const (
	FillMean     = "mean"
	FillMedian   = "median"
	FillMode     = "mode"
	FillConstant = "constant"
)

func init() {
	Register(Definition{
		Info: Info{
			Key:        "fill_missing",
			Group:      "missing",
			Label:      "Fill missing values",
			Methods:    []string{FillMean, FillMedian, FillMode, FillConstant},
			MinColumns: 1,
			Scoped:     true,
		},
		Column: fillMissing,
		Check:  checkFill,
	})
	Register(Definition{
		Info: Info{
			Key:        "drop_missing",
			Group:      "missing",
			Label:      "Drop rows with missing values",
			MinColumns: 1,
			Scoped:     true,
		},
		Frame: dropMissing,
	})
}

func checkFill(f *dataset.Frame, req Request) error {
	switch req.Method {
	case FillMean, FillMedian:
		for _, name := range req.Columns {
			col, _ := f.Column(name)
			if col.Kind != dataset.KindNumeric {
				return invalid(req.Op, "%s needs a numeric column; %q is %s", req.Method, name, col.Kind)
			}
		}
	case FillConstant:
		if strings.TrimSpace(req.Value) == "" {
			return invalid(req.Op, "a fill value is required")
		}
		for _, name := range req.Columns {
			col, _ := f.Column(name)
			if _, ok := constantFor(col.Kind, req.Value); !ok {
				return invalid(req.Op, "%q is not a valid %s value for column %q", req.Value, col.Kind, name)
			}
		}
	}
	return nil
}

func fillMissing(col dataset.Column, req Request) (dataset.Column, []string, error) {
	if col.NullCount() == 0 {
		return col, nil, nothingToDo("column %q has no missing values", col.Name)
	}

	var fill dataset.Value
	switch req.Method {
	case FillMean:
		xs := col.Floats()
		if len(xs) == 0 {
			return col, nil, nothingToDo("column %q has no values to average", col.Name)
		}
		fill = dataset.Number(stat.Mean(xs, nil))
	case FillMedian:
		xs := col.Floats()
		if len(xs) == 0 {
			return col, nil, nothingToDo("column %q has no values to take a median of", col.Name)
		}
		fill = dataset.Number(median(xs))
	case FillMode:
		v, ok := mode(col.Values, col.Kind)
		if !ok {
			return col, nil, nothingToDo("column %q has no values to take a mode of", col.Name)
		}
		fill = v
	case FillConstant:
		fill, _ = constantFor(col.Kind, req.Value)
	}

	out := col.Clone()
	for i, v := range out.Values {
		if !v.Valid {
			out.Values[i] = fill
		}
	}
	return out, nil, nil
}

// median averages the two middle values of an even-length sample.
func median(xs []float64) float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// mode returns the most frequent valid value of kind k. Ties go to the
// smallest value. Cells of another kind, such as a label row kept by a scoped
// coercion, are not candidates.
func mode(vals []dataset.Value, k dataset.Kind) (dataset.Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	for _, v := range vals {
		if !v.Valid || v.Kind != k {
			continue
		}
		k := v.Key()
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return dataset.Value{}, false
	}

	var best dataset.Value
	bestN := 0
	for k, n := range counts {
		v := first[k]
		if n > bestN || (n == bestN && v.Less(best)) {
			best, bestN = v, n
		}
	}
	return best, true
}

// constantFor parses a user-supplied fill value into the column's kind.
func constantFor(k dataset.Kind, s string) (dataset.Value, bool) {
	switch k {
	case dataset.KindNumeric:
		f, ok := dataset.ParseNumber(s)
		if !ok {
			return dataset.Value{}, false
		}
		return dataset.Number(f), true
	case dataset.KindBool:
		b, ok := dataset.ParseBool(s)
		if !ok {
			return dataset.Value{}, false
		}
		return dataset.Boolean(b), true
	case dataset.KindDate:
		t, ok := dateparse.ParseGeneric(s)
		if !ok {
			return dataset.Value{}, false
		}
		return dataset.Date(t), true
	case dataset.KindCategorical:
		return dataset.Category(s), true
	default:
		return dataset.Text(s), true
	}
}

// dropMissing removes every row where any selected column is null. Under
// ScopeExcludeFirst row 0 is always kept.
func dropMissing(f *dataset.Frame, req Request) (*dataset.Frame, []string, error) {
	keep := make([]bool, f.Rows())
	dropped := 0
	for r := range keep {
		keep[r] = true
		if !req.Scope.Contains(r) {
			continue
		}
		for _, name := range req.Columns {
			col, _ := f.Column(name)
			if !col.Values[r].Valid {
				keep[r] = false
				dropped++
				break
			}
		}
	}
	if dropped == 0 {
		return nil, nil, invalid(req.Op, "no rows with missing values in the selected columns")
	}

	return f.SelectRows(keep), []string{fmt.Sprintf("dropped %d of %d rows", dropped, f.Rows())}, nil
}
