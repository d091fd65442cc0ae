package ops

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/prep/internal/dataset"
)

const (
	ScaleMinMax   = "minmax"
	ScaleStandard = "standard"
)

func init() {
	Register(Definition{
		Info: Info{
			Key:        "scale",
			Group:      "features",
			Label:      "Scale",
			Methods:    []string{ScaleMinMax, ScaleStandard},
			MinColumns: 1,
			Scoped:     true,
		},
		Kinds:  []dataset.Kind{dataset.KindNumeric},
		Column: scale,
	})
}

// scale rescales one column using only its own in-scope values. A column
// with zero range or zero variance maps every value to 0.
func scale(col dataset.Column, req Request) (dataset.Column, []string, error) {
	xs := col.Floats()
	if len(xs) == 0 {
		return col, nil, nothingToDo("column %q has no numeric values to scale", col.Name)
	}

	var shift, div float64
	switch req.Method {
	case ScaleMinMax:
		lo, hi := floats.Min(xs), floats.Max(xs)
		shift, div = lo, hi-lo
	default:
		mean, std := stat.PopMeanStdDev(xs, nil)
		shift, div = mean, std
	}

	var warnings []string
	if div == 0 {
		div = 1
		warnings = append(warnings, fmt.Sprintf("column %q is constant; every value was scaled to 0", col.Name))
	}

	out := col.Clone()
	for i, v := range out.Values {
		if v.Valid && v.Kind == dataset.KindNumeric {
			out.Values[i] = dataset.Number((v.Num - shift) / div)
		}
	}
	return out, warnings, nil
}
