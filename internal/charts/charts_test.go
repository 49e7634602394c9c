package charts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

func load(t *testing.T, s string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(s), dataset.DefaultLoadOptions())
	require.NoError(t, err)
	return ds
}

func TestScatterFitsTrendOverCompleteRows(t *testing.T) {
	ds := load(t, "age,spend,flat\n20,100,1\n30,200,1\n40,,1\n50,400,1\n")
	sc, err := Scatter(ds, "age", "spend")
	require.NoError(t, err)
	assert.Equal(t, []Point{{20, 100}, {30, 200}, {50, 400}}, sc.Points)
	require.NotNil(t, sc.Trend)
	assert.InDelta(t, 10.0, sc.Trend.Slope, 1e-9)
	assert.InDelta(t, -100.0, sc.Trend.Intercept, 1e-9)
	assert.InDelta(t, 300.0, sc.Trend.At(40), 1e-9)

	flat, err := Scatter(ds, "flat", "spend")
	require.NoError(t, err)
	assert.Nil(t, flat.Trend, "constant x has no trend line")

	_, err = Scatter(ds, "age", "age")
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))
	_, err = Scatter(ds, "age", "nope")
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))
}

func TestScatterSinglePointHasNoTrend(t *testing.T) {
	ds := load(t, "a,b\n1,\n2,5\n")
	sc, err := Scatter(ds, "a", "b")
	require.NoError(t, err)
	assert.Len(t, sc.Points, 1)
	assert.Nil(t, sc.Trend)
}

func TestHistogramBinsCoverRange(t *testing.T) {
	ds := load(t, "v\n0\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n")
	h, err := Histogram(ds, "v", 5)
	require.NoError(t, err)
	require.Len(t, h.Bins, 5)
	assert.Equal(t, 0.0, h.Min)
	assert.Equal(t, 10.0, h.Max)
	assert.Equal(t, 0.0, h.Bins[0].Lo)
	assert.Equal(t, 10.0, h.Bins[4].Hi)

	counts := make([]int, len(h.Bins))
	total := 0
	for i, b := range h.Bins {
		counts[i] = b.Count
		total += b.Count
	}
	assert.Equal(t, []int{2, 2, 2, 2, 3}, counts, "max lands in the last bin")
	assert.Equal(t, 11, total)

	def, err := Histogram(ds, "v", 0)
	require.NoError(t, err)
	assert.Len(t, def.Bins, DefaultBins)
}

func TestHistogramConstantColumn(t *testing.T) {
	ds := load(t, "v\n3\n3\n3\n")
	h, err := Histogram(ds, "v", 4)
	require.NoError(t, err)
	assert.Equal(t, 2.5, h.Min)
	assert.Equal(t, 3.5, h.Max)
	sum := 0
	for _, b := range h.Bins {
		sum += b.Count
	}
	assert.Equal(t, 3, sum)
	assert.Equal(t, 3, h.Bins[2].Count)

	_, err = Histogram(load(t, "v,w\n,1\n"), "v", 10)
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
}

func TestHistogramRejectsUnbinnableRanges(t *testing.T) {
	ds := load(t, "v\n1\n2\ninf\n")
	_, err := Histogram(ds, "v", 30)
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err), "inf makes the column categorical")

	ds = load(t, "v\n-1e308\n1e308\n")
	var h *HistogramData
	require.NotPanics(t, func() { h, err = Histogram(ds, "v", 30) })
	assert.Nil(t, h)
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))

	h, err = Histogram(load(t, "v\n-1e307\n1e307\n"), "v", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Bins[0].Count)
	assert.Equal(t, 1, h.Bins[3].Count)
}

func TestBoxplotFromStats(t *testing.T) {
	st := analysis.Summarize("v", []float64{1, 2, 3, 4})
	bp, err := Boxplot(st)
	require.NoError(t, err)
	assert.Equal(t, 1.0, bp.Min)
	assert.InDelta(t, 1.75, bp.Q1, 1e-12)
	assert.InDelta(t, 2.5, bp.Median, 1e-12)
	assert.InDelta(t, 3.25, bp.Q3, 1e-12)
	assert.Equal(t, 4.0, bp.Max)
	assert.InDelta(t, 1.5, bp.IQR, 1e-12)

	_, err = Boxplot(analysis.Summarize("e", nil))
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
}

func TestBarsAndPieFollowFrequencyOrder(t *testing.T) {
	ds := load(t, "region\nN\nS\nN\nE\n")
	ft, err := analysis.Frequencies(ds, "region")
	require.NoError(t, err)

	bars, err := Bars(ft)
	require.NoError(t, err)
	assert.Equal(t, []Bar{{"N", 2}, {"S", 1}, {"E", 1}}, bars.Bars)

	pie, err := Pie(ft)
	require.NoError(t, err)
	assert.Equal(t, 4, pie.Total)
	sum := 0.0
	for _, s := range pie.Slices {
		sum += s.Fraction
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Equal(t, 0.5, pie.Slices[0].Fraction)

	_, err = Pie(&analysis.FrequencyTable{Column: "x"})
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
}

func TestHeatmapMarksUndefinedCells(t *testing.T) {
	ds := load(t, "a,b,c\n1,2,7\n2,4,7\n3,5,7\n")
	m, err := analysis.FullMatrix(ds, nil)
	require.NoError(t, err)
	hm := Heatmap(m, analysis.DefaultThresholds())
	require.Len(t, hm.Cells, 3)
	assert.Equal(t, "1.00", hm.Cells[0][0].Label)
	assert.Equal(t, analysis.StrengthStrong, hm.Cells[0][1].Strength)
	assert.Nil(t, hm.Cells[0][2].Value)
	assert.Equal(t, "n/a", hm.Cells[0][2].Label)
	assert.Equal(t, analysis.StrengthUndefined, hm.Cells[2][0].Strength)

	b, err := json.Marshal(hm)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"value":null`)
}

func TestCorrelationBarsSeparatesUndefined(t *testing.T) {
	ds := load(t, "t,a,c\n1,2,7\n2,4,7\n3,5,7\n")
	res, err := analysis.Correlate(ds, "t", []string{"c", "a"}, analysis.DefaultOptions())
	require.NoError(t, err)
	cb := CorrelationBars(res)
	require.Len(t, cb.Bars, 1)
	assert.Equal(t, "a", cb.Bars[0].Variable)
	assert.Equal(t, []string{"c"}, cb.Undefined)
}
