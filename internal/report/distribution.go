package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/JonMunkholm/prep/internal/dataset"
)

// DefaultBins is the histogram resolution for numeric distributions.
const DefaultBins = 20

// Distribution describes how the values of one column are spread. Numeric
// columns get a histogram, every other kind the most frequent values.
type Distribution struct {
	Column    string       `json:"column"`
	Kind      dataset.Kind `json:"kind"`
	Histogram []Bin        `json:"histogram,omitempty"`
	Counts    []ValueCount `json:"counts,omitempty"`
}

// Bin is a half-open histogram interval [Lower, Upper). The last bin also
// holds its upper bound.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Distribute computes the distribution of c.
func Distribute(c dataset.Column, bins int) Distribution {
	d := Distribution{Column: c.Name, Kind: c.Kind}
	if c.Kind != dataset.KindNumeric {
		d.Counts = ValueCounts(c.Values)
		if len(d.Counts) > TopValues {
			d.Counts = d.Counts[:TopValues]
		}
		return d
	}
	d.Histogram = Histogram(c.Floats(), bins)
	return d
}

// Histogram buckets xs into equal-width bins spanning its range. A constant
// sample yields a single bin.
func Histogram(xs []float64, bins int) []Bin {
	if len(xs) == 0 {
		return nil
	}
	if bins < 1 {
		bins = DefaultBins
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		bins = 1
	}

	dividers := make([]float64, bins+1)
	if bins == 1 {
		dividers[0], dividers[1] = lo, hi
	} else {
		floats.Span(dividers, lo, hi)
	}
	// stat.Histogram needs the maximum strictly inside the last bin.
	upper := dividers[bins]
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	dividers[bins] = upper

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: dividers[i], Upper: dividers[i+1], Count: int(counts[i])}
	}
	return out
}
