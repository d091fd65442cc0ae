package ops

import (
	"strings"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/textnorm"
)

var textKinds = []dataset.Kind{dataset.KindText, dataset.KindCategorical}

func init() {
	for _, op := range []struct {
		key, label string
		fn         func(string) string
	}{
		{"lower", "Lowercase", strings.ToLower},
		{"upper", "Uppercase", strings.ToUpper},
		{"trim", "Trim surrounding whitespace", strings.TrimSpace},
		{"normalize_width", "Full-width to half-width", textnorm.FoldWidth},
	} {
		Register(Definition{
			Info: Info{
				Key:        op.key,
				Group:      "text",
				Label:      op.label,
				MinColumns: 1,
				Scoped:     true,
			},
			Kinds:  textKinds,
			Column: mapText(op.fn),
		})
	}
}

// mapText applies fn to every valid text-like cell. Nulls and cells of other
// kinds pass through.
func mapText(fn func(string) string) ColumnFunc {
	return func(col dataset.Column, _ Request) (dataset.Column, []string, error) {
		out := col.Clone()
		for i, v := range out.Values {
			if v.Valid && v.Kind.TextLike() {
				out.Values[i].Str = fn(v.Str)
			}
		}
		return out, nil, nil
	}
}
