package ops

import (
	"math"
	"regexp"
	"strconv"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/dateparse"
)

const (
	CoerceNumeric  = "numeric"
	CoerceInteger  = "integer"
	CoerceText     = "text"
	CoerceCategory = "category"
)

// nonNumeric matches everything a numeric coercion throws away, so that
// "$1,200" and "1,200円" both become 1200.
var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

func init() {
	Register(Definition{
		Info: Info{
			Key:        "coerce",
			Group:      "types",
			Label:      "Convert type",
			Methods:    []string{CoerceNumeric, CoerceInteger, CoerceText, CoerceCategory},
			MinColumns: 1,
			Scoped:     true,
		},
		Column:   coerce,
		Converts: true,
	})

	policies := make([]string, len(dateparse.Policies))
	for i, p := range dateparse.Policies {
		policies[i] = string(p)
	}
	Register(Definition{
		Info: Info{
			Key:        "parse_dates",
			Group:      "types",
			Label:      "Convert to date",
			Methods:    policies,
			MinColumns: 1,
			Scoped:     true,
		},
		Column:   parseDates,
		Converts: true,
	})
}

func coerce(col dataset.Column, req Request) (dataset.Column, []string, error) {
	switch req.Method {
	case CoerceNumeric:
		return toNumeric(col), nil, nil
	case CoerceInteger:
		out := toNumeric(col)
		for i, v := range out.Values {
			if v.Valid && v.Num != math.Trunc(v.Num) {
				return col, nil, uncomputable(req.Op, "column %q: %s at position %d is not a whole number",
					col.Name, dataset.FormatNumber(v.Num), i)
			}
		}
		return out, nil, nil
	case CoerceText:
		out := dataset.Column{Name: col.Name, Kind: dataset.KindText, Values: make([]dataset.Value, col.Len())}
		for i, v := range col.Values {
			out.Values[i] = dataset.Text(v.Stringify())
		}
		return out, nil, nil
	default:
		out := dataset.Column{Name: col.Name, Kind: dataset.KindCategorical, Values: make([]dataset.Value, col.Len())}
		for i, v := range col.Values {
			if v.Valid {
				out.Values[i] = dataset.Category(v.String())
			} else {
				out.Values[i] = dataset.Null(dataset.KindCategorical)
			}
		}
		return out, nil, nil
	}
}

// toNumeric strips non-numeric characters from every cell and parses the rest.
// Cells that still do not parse become null.
func toNumeric(col dataset.Column) dataset.Column {
	out := dataset.Column{Name: col.Name, Kind: dataset.KindNumeric, Values: make([]dataset.Value, col.Len())}
	for i, v := range col.Values {
		switch {
		case !v.Valid:
			out.Values[i] = dataset.Null(dataset.KindNumeric)
		case v.Kind == dataset.KindNumeric:
			out.Values[i] = v
		default:
			out.Values[i] = parseStripped(v.String())
		}
	}
	return out
}

func parseStripped(s string) dataset.Value {
	f, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(s, ""), 64)
	if err != nil || math.IsInf(f, 0) {
		return dataset.Null(dataset.KindNumeric)
	}
	return dataset.Number(f)
}

func parseDates(col dataset.Column, req Request) (dataset.Column, []string, error) {
	vals, _ := dateparse.Convert(col.Values, dateparse.Policy(req.Method))
	return dataset.Column{Name: col.Name, Kind: dataset.KindDate, Values: vals}, nil, nil
}
