package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// Report is the descriptive analysis of a frame, generated without any
// cleaning steps.
type Report struct {
	Profile       *Profile       `json:"profile"`
	Correlation   *Correlation   `json:"correlation,omitempty"`
	Distributions []Distribution `json:"distributions"`
	Series        []Series       `json:"series,omitempty"`
}

// Correlation is the Pearson correlation matrix of the numeric columns.
// A nil cell means fewer than two complete pairs or a constant side.
type Correlation struct {
	Columns []string     `json:"columns"`
	Matrix  [][]*float64 `json:"matrix"`
}

// Series pairs a date column with a numeric column, sorted by date.
type Series struct {
	Date   string  `json:"date"`
	Value  string  `json:"value"`
	Points []Point `json:"points"`
}

// Point is one observation of a series.
type Point struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// New builds the full report of f.
func New(f *dataset.Frame) *Report {
	r := &Report{
		Profile:       NewProfile(f),
		Correlation:   Correlate(f),
		Distributions: make([]Distribution, 0, f.Width()),
		Series:        TimeSeries(f),
	}
	for _, c := range f.Columns {
		r.Distributions = append(r.Distributions, Distribute(c, DefaultBins))
	}
	return r
}

// Correlate computes pairwise Pearson coefficients over rows where both
// columns hold a number. It returns nil when f has fewer than two numeric
// columns.
func Correlate(f *dataset.Frame) *Correlation {
	var cols []dataset.Column
	for _, c := range f.Columns {
		if c.Kind == dataset.KindNumeric {
			cols = append(cols, c)
		}
	}
	if len(cols) < 2 {
		return nil
	}

	c := &Correlation{
		Columns: make([]string, len(cols)),
		Matrix:  make([][]*float64, len(cols)),
	}
	for i := range cols {
		c.Columns[i] = cols[i].Name
		c.Matrix[i] = make([]*float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			v := pearson(cols[i], cols[j])
			c.Matrix[i][j], c.Matrix[j][i] = v, v
		}
	}
	return c
}

func pearson(a, b dataset.Column) *float64 {
	var xs, ys []float64
	for r := range a.Values {
		x, y := a.Values[r], b.Values[r]
		if numeric(x) && numeric(y) {
			xs = append(xs, x.Num)
			ys = append(ys, y.Num)
		}
	}
	if len(xs) < 2 {
		return nil
	}
	return ptr(stat.Correlation(xs, ys, nil))
}

// TimeSeries returns one series per (date column, numeric column) pair.
func TimeSeries(f *dataset.Frame) []Series {
	var out []Series
	for _, d := range f.Columns {
		if d.Kind != dataset.KindDate {
			continue
		}
		for _, n := range f.Columns {
			if n.Kind != dataset.KindNumeric {
				continue
			}
			s := Series{Date: d.Name, Value: n.Name, Points: []Point{}}
			for r := range d.Values {
				t, x := d.Values[r], n.Values[r]
				if t.Valid && t.Kind == dataset.KindDate && numeric(x) {
					s.Points = append(s.Points, Point{At: t.Time, Value: x.Num})
				}
			}
			sort.SliceStable(s.Points, func(i, j int) bool {
				return s.Points[i].At.Before(s.Points[j].At)
			})
			out = append(out, s)
		}
	}
	return out
}

func numeric(v dataset.Value) bool {
	return v.Valid && v.Kind == dataset.KindNumeric
}
