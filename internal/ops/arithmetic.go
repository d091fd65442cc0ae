package ops

import (
	"strings"

	"github.com/JonMunkholm/prep/internal/dataset"
)

const (
	ArithSum        = "sum"
	ArithProduct    = "product"
	ArithDifference = "difference"
	ArithQuotient   = "quotient"
)

func init() {
	Register(Definition{
		Info: Info{
			Key:         "arithmetic",
			Group:       "features",
			Label:       "Row arithmetic",
			Methods:     []string{ArithSum, ArithProduct, ArithDifference, ArithQuotient},
			MinColumns:  2,
			Scoped:      true,
			NeedsColumn: true,
		},
		Kinds: []dataset.Kind{dataset.KindNumeric},
		Frame: arithmetic,
		Check: checkArithmetic,
	})
}

func checkArithmetic(f *dataset.Frame, req Request) error {
	if (req.Method == ArithDifference || req.Method == ArithQuotient) && len(req.Columns) != 2 {
		return invalid(req.Op, "%s needs exactly 2 columns, got %d", req.Method, len(req.Columns))
	}
	name := strings.TrimSpace(req.NewColumn)
	if f.Has(name) {
		return invalid(req.Op, "a column named %q already exists", name)
	}
	if req.Method == ArithQuotient {
		divisor, _ := f.Column(req.Columns[1])
		for r, v := range divisor.Values {
			if req.Scope.Contains(r) && numeric(v) && v.Num == 0 {
				return uncomputable(req.Op, "column %q has a zero at position %d; division rejected", divisor.Name, r)
			}
		}
	}
	return nil
}

// arithmetic appends one new numeric column computed row by row. Sum and
// product skip nulls, so a row with no values gives 0 and 1; difference and
// quotient are null when either operand is. Rows outside the scope are null.
func arithmetic(f *dataset.Frame, req Request) (*dataset.Frame, []string, error) {
	operands := make([]dataset.Column, len(req.Columns))
	for i, name := range req.Columns {
		operands[i], _ = f.Column(name)
	}

	vals := make([]dataset.Value, f.Rows())
	for r := range vals {
		if !req.Scope.Contains(r) {
			vals[r] = dataset.Null(dataset.KindNumeric)
			continue
		}
		vals[r] = combine(req.Method, operands, r)
	}

	cols := make([]dataset.Column, len(f.Columns), len(f.Columns)+1)
	copy(cols, f.Columns)
	cols = append(cols, dataset.Column{
		Name:   strings.TrimSpace(req.NewColumn),
		Kind:   dataset.KindNumeric,
		Values: vals,
	})
	return &dataset.Frame{Columns: cols}, nil, nil
}

func combine(method string, operands []dataset.Column, r int) dataset.Value {
	switch method {
	case ArithDifference, ArithQuotient:
		a, b := operands[0].Values[r], operands[1].Values[r]
		if !numeric(a) || !numeric(b) {
			return dataset.Null(dataset.KindNumeric)
		}
		if method == ArithDifference {
			return dataset.Number(a.Num - b.Num)
		}
		return dataset.Number(a.Num / b.Num)
	default:
		acc := 0.0
		if method == ArithProduct {
			acc = 1
		}
		for _, c := range operands {
			v := c.Values[r]
			if !numeric(v) {
				continue
			}
			if method == ArithProduct {
				acc *= v.Num
			} else {
				acc += v.Num
			}
		}
		return dataset.Number(acc)
	}
}

func numeric(v dataset.Value) bool {
	return v.Valid && v.Kind == dataset.KindNumeric
}
