package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/charts"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func requirePNG(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	require.Greater(t, buf.Len(), len(pngMagic))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "output is not a PNG")
}

func TestScatterPNG(t *testing.T) {
	d := &charts.ScatterData{
		X: "age", Y: "spend",
		Points: []charts.Point{{X: 20, Y: 100}, {X: 30, Y: 200}, {X: 50, Y: 400}},
		Trend:  &charts.Trend{Slope: 10, Intercept: -100},
	}
	var buf bytes.Buffer
	require.NoError(t, Scatter(&buf, d, Size{}))
	requirePNG(t, &buf)

	single := &charts.ScatterData{X: "a", Y: "b", Points: []charts.Point{{X: 1, Y: 1}}}
	buf.Reset()
	require.NoError(t, Scatter(&buf, single, Size{Width: 300, Height: 200}))
	requirePNG(t, &buf)

	err := Scatter(&buf, &charts.ScatterData{X: "a", Y: "b"}, Size{})
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
}

func TestHistogramAndBoxplotPNG(t *testing.T) {
	h := &charts.HistogramData{Column: "v", Min: 0, Max: 4, N: 5, Bins: []charts.Bin{
		{Lo: 0, Hi: 2, Count: 2}, {Lo: 2, Hi: 4, Count: 3},
	}}
	var buf bytes.Buffer
	require.NoError(t, Histogram(&buf, h, Size{}))
	requirePNG(t, &buf)

	bp, err := charts.Boxplot(analysis.Summarize("v", []float64{1, 2, 3, 4, 10}))
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, Boxplot(&buf, bp, Size{}))
	requirePNG(t, &buf)
}

func TestCategoricalPNG(t *testing.T) {
	ft := &analysis.FrequencyTable{Column: "region", Total: 4, Entries: []analysis.CategoryCount{
		{Value: "N", Count: 2}, {Value: "S", Count: 1}, {Value: "E", Count: 1},
	}}
	bars, err := charts.Bars(ft)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Bars(&buf, bars, Size{}))
	requirePNG(t, &buf)

	pie, err := charts.Pie(ft)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, Pie(&buf, pie, Size{}))
	requirePNG(t, &buf)
}

func TestCorrelationBarsPNG(t *testing.T) {
	d := &charts.CorrelationBarsData{Target: "spend", Bars: []charts.CorrBar{
		{Variable: "age", R: 0.82, Label: "0.820", Strength: analysis.StrengthStrong},
		{Variable: "visits", R: -0.31, Label: "-0.310", Strength: analysis.StrengthWeak},
	}}
	var buf bytes.Buffer
	require.NoError(t, CorrelationBars(&buf, d, Size{}))
	requirePNG(t, &buf)

	err := CorrelationBars(&buf, &charts.CorrelationBarsData{Target: "x", Undefined: []string{"c"}}, Size{})
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
}

func TestStrengthColor(t *testing.T) {
	assert.Equal(t, "#2166ac", StrengthColor(analysis.StrengthStrong, false))
	assert.Equal(t, "#b2182b", StrengthColor(analysis.StrengthStrong, true))
	assert.Equal(t, "#dddddd", StrengthColor(analysis.StrengthUndefined, false))
}
