package ops

import (
	"fmt"
	"sort"

	"github.com/JonMunkholm/prep/internal/dataset"
)

func init() {
	Register(Definition{
		Info: Info{
			Key:        "one_hot",
			Group:      "features",
			Label:      "One-hot encode",
			MinColumns: 1,
		},
		Kinds: textKinds,
		Frame: oneHot,
	})
}

// oneHot replaces each selected column with one bool column per observed
// category, appended after the remaining columns in selection order.
// Categories are sorted; nulls are false in every indicator column.
func oneHot(f *dataset.Frame, req Request) (*dataset.Frame, []string, error) {
	selected := make(map[string]bool, len(req.Columns))
	for _, name := range req.Columns {
		selected[name] = true
	}

	taken := make(map[string]bool, f.Width())
	cols := make([]dataset.Column, 0, f.Width())
	for _, c := range f.Columns {
		if !selected[c.Name] {
			cols = append(cols, c)
			taken[c.Name] = true
		}
	}

	var warnings []string
	for _, name := range req.Columns {
		src, _ := f.Column(name)
		cats := categories(src)
		if len(cats) == 0 {
			warnings = append(warnings, fmt.Sprintf("column %q has no values; it was removed without adding indicators", name))
		}
		for _, cat := range cats {
			base := name + "_" + cat
			colName := dataset.UniqueName(base, taken)
			if colName != base {
				warnings = append(warnings, fmt.Sprintf("indicator %q renamed to %q", base, colName))
			}
			taken[colName] = true

			vals := make([]dataset.Value, src.Len())
			for r, v := range src.Values {
				vals[r] = dataset.Boolean(v.Valid && v.String() == cat)
			}
			cols = append(cols, dataset.Column{Name: colName, Kind: dataset.KindBool, Values: vals})
		}
	}

	return &dataset.Frame{Columns: cols}, warnings, nil
}

func categories(c dataset.Column) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range c.Values {
		if !v.Valid {
			continue
		}
		s := v.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
