package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/prep/internal/dataset"
)

func frame(t *testing.T, header []string, rows [][]string) *dataset.Frame {
	t.Helper()
	f, err := dataset.FromRecords(header, rows)
	require.NoError(t, err)
	return f
}

func TestNewProfile(t *testing.T) {
	f := frame(t,
		[]string{"x", "color", "note"},
		[][]string{
			{"1", "red", ""},
			{"2", "blue", ""},
			{"3", "red", "a"},
			{"4", "", ""},
			{"4", "", ""},
		},
	)

	p := NewProfile(f)
	assert.Equal(t, 5, p.Rows)
	assert.Equal(t, 3, p.Columns)
	assert.Equal(t, 1, p.Duplicates)
	assert.Equal(t, []MissingCount{{Column: "note", Count: 4}, {Column: "color", Count: 2}}, p.Missing)

	x := p.Stats[0]
	assert.Equal(t, 5, x.Count)
	require.NotNil(t, x.Mean)
	assert.InDelta(t, 2.8, *x.Mean, 1e-9)
	assert.InDelta(t, 1.0, *x.Min, 1e-9)
	assert.InDelta(t, 2.0, *x.Q25, 1e-9)
	assert.InDelta(t, 3.0, *x.Median, 1e-9)
	assert.InDelta(t, 4.0, *x.Q75, 1e-9)
	assert.InDelta(t, 4.0, *x.Max, 1e-9)
	require.NotNil(t, x.Std)
	assert.InDelta(t, 1.3038404810405297, *x.Std, 1e-9)

	color := p.Stats[1]
	assert.Equal(t, 3, color.Count)
	assert.Equal(t, 2, color.Unique)
	assert.Equal(t, "red", color.Top)
	assert.Equal(t, 2, color.Freq)
	assert.Nil(t, color.Mean)
}

func TestQuantileInterpolates(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, quantile(xs, 0.5), 1e-9)
	assert.InDelta(t, 1.75, quantile(xs, 0.25), 1e-9)
	assert.InDelta(t, 4.0, quantile(xs, 1), 1e-9)
	assert.InDelta(t, 7.0, quantile([]float64{7}, 0.75), 1e-9)
}

func TestValueCountsOrdering(t *testing.T) {
	vals := []dataset.Value{
		dataset.Text("b"), dataset.Text("a"), dataset.Text("c"),
		dataset.Text("c"), dataset.Null(dataset.KindText), dataset.Text("b"),
	}
	assert.Equal(t, []ValueCount{{"b", 2}, {"c", 2}, {"a", 1}}, ValueCounts(vals))
}

func TestDistributeTruncatesCategories(t *testing.T) {
	vals := make([]dataset.Value, 0, 30)
	for i := 0; i < 30; i++ {
		vals = append(vals, dataset.Text(string(rune('A'+i))))
	}
	d := Distribute(dataset.Column{Name: "c", Kind: dataset.KindText, Values: vals}, DefaultBins)
	assert.Len(t, d.Counts, TopValues)
	assert.Nil(t, d.Histogram)
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4, 10}, 5)
	require.Len(t, bins, 5)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 6, total)
	assert.Equal(t, 2, bins[0].Count, "[0,2) holds 0 and 1")
	assert.Equal(t, 2, bins[1].Count)
	assert.Equal(t, 0, bins[3].Count)
	assert.InDelta(t, 10.0, bins[4].Upper, 1e-9)
	assert.Equal(t, 1, bins[4].Count)

	constant := Histogram([]float64{5, 5, 5}, 10)
	require.Len(t, constant, 1)
	assert.Equal(t, 3, constant[0].Count)

	assert.Nil(t, Histogram(nil, 10))
}

func TestCorrelate(t *testing.T) {
	f := frame(t,
		[]string{"a", "b", "c", "k", "label"},
		[][]string{
			{"1", "2", "3", "1", "x"},
			{"2", "4", "2", "1", "y"},
			{"3", "6", "1", "1", "z"},
			{"", "8", "", "1", "w"},
		},
	)

	c := Correlate(f)
	require.NotNil(t, c)
	assert.Equal(t, []string{"a", "b", "c", "k"}, c.Columns)
	require.NotNil(t, c.Matrix[0][1])
	assert.InDelta(t, 1.0, *c.Matrix[0][1], 1e-9)
	assert.InDelta(t, -1.0, *c.Matrix[0][2], 1e-9)
	assert.Equal(t, c.Matrix[0][2], c.Matrix[2][0])
	assert.Nil(t, c.Matrix[0][3], "constant column has no correlation")

	single := frame(t, []string{"a", "s"}, [][]string{{"1", "x"}})
	assert.Nil(t, Correlate(single))
}

func TestTimeSeries(t *testing.T) {
	day := func(d int) dataset.Value { return dataset.Date(time.Date(2023, 1, d, 0, 0, 0, 0, time.UTC)) }
	f, err := dataset.New(
		dataset.Column{Name: "when", Kind: dataset.KindDate, Values: []dataset.Value{day(3), day(1), dataset.Null(dataset.KindDate), day(2)}},
		dataset.Column{Name: "sales", Kind: dataset.KindNumeric, Values: []dataset.Value{dataset.Number(30), dataset.Number(10), dataset.Number(99), dataset.Null(dataset.KindNumeric)}},
		dataset.Column{Name: "store", Kind: dataset.KindText, Values: []dataset.Value{dataset.Text("a"), dataset.Text("b"), dataset.Text("c"), dataset.Text("d")}},
	)
	require.NoError(t, err)

	series := TimeSeries(f)
	require.Len(t, series, 1)
	assert.Equal(t, "when", series[0].Date)
	assert.Equal(t, "sales", series[0].Value)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, 10.0, series[0].Points[0].Value)
	assert.Equal(t, 30.0, series[0].Points[1].Value)
}

func TestNewReport(t *testing.T) {
	f := frame(t, []string{"a", "b"}, [][]string{{"1", "x"}, {"2", "y"}})
	r := New(f)
	assert.Equal(t, 2, r.Profile.Rows)
	assert.Len(t, r.Distributions, 2)
	assert.Nil(t, r.Correlation)
	assert.Empty(t, r.Series)
}
