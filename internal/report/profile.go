// Package report computes read-only summaries of a frame: the profile shown
// before cleaning and the descriptive analysis report.
//
// Nothing here mutates its input; every result is plain data ready to be
// rendered as JSON or HTML.
package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/prep/internal/dataset"
	"github.com/JonMunkholm/prep/internal/ops"
)

// TopValues is how many categories a value-count distribution keeps.
const TopValues = 20

// Profile is the health check of a frame.
type Profile struct {
	Rows       int            `json:"rows"`
	Columns    int            `json:"columns"`
	Missing    []MissingCount `json:"missing"`
	Stats      []ColumnStats  `json:"stats"`
	Duplicates int            `json:"duplicates"`
}

// MissingCount is the number of nulls in one column.
type MissingCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// ColumnStats are describe-style statistics. Numeric columns fill the
// moments and quantiles; every other kind fills Unique, Top and Freq.
type ColumnStats struct {
	Column string       `json:"column"`
	Kind   dataset.Kind `json:"kind"`
	Count  int          `json:"count"`

	Unique int    `json:"unique,omitempty"`
	Top    string `json:"top,omitempty"`
	Freq   int    `json:"freq,omitempty"`

	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Q25    *float64 `json:"q25,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Q75    *float64 `json:"q75,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// NewProfile profiles f. Only columns with at least one null appear in
// Missing, largest count first.
func NewProfile(f *dataset.Frame) *Profile {
	p := &Profile{
		Rows:    f.Rows(),
		Columns: f.Width(),
		Stats:   make([]ColumnStats, 0, f.Width()),
	}

	for _, c := range f.Columns {
		if n := c.NullCount(); n > 0 {
			p.Missing = append(p.Missing, MissingCount{Column: c.Name, Count: n})
		}
		p.Stats = append(p.Stats, Describe(c))
	}
	sort.SliceStable(p.Missing, func(i, j int) bool {
		return p.Missing[i].Count > p.Missing[j].Count
	})

	_, p.Duplicates = ops.DuplicateMask(f, nil)
	return p
}

// Describe computes the statistics of one column.
func Describe(c dataset.Column) ColumnStats {
	s := ColumnStats{Column: c.Name, Kind: c.Kind}

	if c.Kind == dataset.KindNumeric {
		xs := c.Floats()
		s.Count = len(xs)
		if len(xs) == 0 {
			return s
		}
		sort.Float64s(xs)
		s.Mean = ptr(stat.Mean(xs, nil))
		if len(xs) > 1 {
			s.Std = ptr(stat.StdDev(xs, nil))
		}
		s.Min = ptr(xs[0])
		s.Q25 = ptr(quantile(xs, 0.25))
		s.Median = ptr(quantile(xs, 0.5))
		s.Q75 = ptr(quantile(xs, 0.75))
		s.Max = ptr(xs[len(xs)-1])
		return s
	}

	counts := ValueCounts(c.Values)
	for _, vc := range counts {
		s.Count += vc.Count
	}
	s.Unique = len(counts)
	if len(counts) > 0 {
		s.Top, s.Freq = counts[0].Value, counts[0].Count
	}
	return s
}

// quantile interpolates linearly between the closest ranks of sorted xs,
// position (n-1)*p.
func quantile(sorted []float64, p float64) float64 {
	pos := float64(len(sorted)-1) * p
	lo := math.Floor(pos)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (pos-lo)*(sorted[i+1]-sorted[i])
}

// ValueCount is how often one value occurs.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts the valid values of vals, most frequent first. Ties
// are ordered by value.
func ValueCounts(vals []dataset.Value) []ValueCount {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	for _, v := range vals {
		if !v.Valid {
			continue
		}
		k := v.Key()
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return first[keys[i]].Less(first[keys[j]])
	})

	out := make([]ValueCount, len(keys))
	for i, k := range keys {
		out[i] = ValueCount{Value: first[k].String(), Count: counts[k]}
	}
	return out
}

func ptr(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
