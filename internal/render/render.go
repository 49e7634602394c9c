// Package render draws chart series as PNG images with go-chart.
package render

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/charts"
)

// Size is the output image size in pixels.
type Size struct {
	Width  int
	Height int
}

// DefaultSize is used for any zero dimension.
var DefaultSize = Size{Width: 800, Height: 480}

func (s Size) orDefault() Size {
	if s.Width <= 0 {
		s.Width = DefaultSize.Width
	}
	if s.Height <= 0 {
		s.Height = DefaultSize.Height
	}
	return s
}

var (
	pointColor    = drawing.ColorFromHex("1f77b4")
	trendColor    = drawing.ColorFromHex("d62728")
	barColor      = drawing.ColorFromHex("4c72b0")
	negativeColor = drawing.ColorFromHex("c44e52")
	boxFill       = drawing.ColorFromHex("a6c8e6")
)

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{StrokeColor: col, StrokeWidth: width}
}

// padded returns a range around [lo, hi] that go-chart accepts even when
// lo == hi.
func padded(lo, hi float64) *chart.ContinuousRange {
	if lo == hi {
		return &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// Scatter draws the points of d and its trend line when present.
func Scatter(w io.Writer, d *charts.ScatterData, size Size) error {
	if len(d.Points) == 0 {
		return apperr.Insufficient("scatter plot", fmt.Sprintf("no rows have both %s and %s", d.X, d.Y))
	}
	size = size.orDefault()
	xs := make([]float64, len(d.Points))
	ys := make([]float64, len(d.Points))
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for i, p := range d.Points {
		xs[i], ys[i] = p.X, p.Y
		xlo, xhi = math.Min(xlo, p.X), math.Max(xhi, p.X)
		ylo, yhi = math.Min(ylo, p.Y), math.Max(yhi, p.Y)
	}
	series := []chart.Series{
		chart.ContinuousSeries{Name: d.Y, XValues: xs, YValues: ys, Style: pointStyle(pointColor)},
	}
	if d.Trend != nil {
		y0, y1 := d.Trend.At(xlo), d.Trend.At(xhi)
		series = append(series, chart.ContinuousSeries{
			Name:    "Trend",
			XValues: []float64{xlo, xhi},
			YValues: []float64{y0, y1},
			Style:   lineStyle(trendColor, 2),
		})
		ylo = math.Min(ylo, math.Min(y0, y1))
		yhi = math.Max(yhi, math.Max(y0, y1))
	}
	ch := chart.Chart{
		Title:  fmt.Sprintf("%s vs %s", d.Y, d.X),
		Width:  size.Width,
		Height: size.Height,
		XAxis:  chart.XAxis{Name: d.X, Range: padded(xlo, xhi)},
		YAxis:  chart.YAxis{Name: d.Y, Range: padded(ylo, yhi)},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// Histogram draws the bins of d as a filled step outline.
func Histogram(w io.Writer, d *charts.HistogramData, size Size) error {
	if len(d.Bins) == 0 {
		return apperr.Insufficient("histogram", "no bins to draw")
	}
	size = size.orDefault()
	xs := make([]float64, 0, len(d.Bins)*4)
	ys := make([]float64, 0, len(d.Bins)*4)
	top := 0
	for _, b := range d.Bins {
		c := float64(b.Count)
		xs = append(xs, b.Lo, b.Lo, b.Hi, b.Hi)
		ys = append(ys, 0, c, c, 0)
		if b.Count > top {
			top = b.Count
		}
	}
	ch := chart.Chart{
		Title:  fmt.Sprintf("Distribution of %s (n=%d)", d.Column, d.N),
		Width:  size.Width,
		Height: size.Height,
		XAxis:  chart.XAxis{Name: d.Column, Range: &chart.ContinuousRange{Min: d.Bins[0].Lo, Max: d.Bins[len(d.Bins)-1].Hi}},
		YAxis:  chart.YAxis{Name: "count", Range: &chart.ContinuousRange{Min: 0, Max: float64(top) + 1}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    d.Column,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: barColor, StrokeWidth: 1, FillColor: barColor.WithAlpha(160)},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

// Boxplot draws a single vertical box with whiskers at min and max.
func Boxplot(w io.Writer, d *charts.BoxplotData, size Size) error {
	size = size.orDefault()
	const left, right, mid = 0.3, 0.7, 0.5
	seg := func(name string, x0, y0, x1, y1 float64, st chart.Style) chart.Series {
		return chart.ContinuousSeries{Name: name, XValues: []float64{x0, x1}, YValues: []float64{y0, y1}, Style: st}
	}
	edge := lineStyle(drawing.ColorBlack, 1.5)
	ch := chart.Chart{
		Title:  fmt.Sprintf("Boxplot of %s (n=%d)", d.Column, d.N),
		Width:  size.Width,
		Height: size.Height,
		XAxis:  chart.XAxis{Style: chart.Style{Hidden: true}, Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		YAxis:  chart.YAxis{Name: d.Column, Range: padded(d.Min, d.Max)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "IQR",
				XValues: []float64{left, right, right, left, left},
				YValues: []float64{d.Q1, d.Q1, d.Q3, d.Q3, d.Q1},
				Style:   chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 1.5, FillColor: boxFill},
			},
			seg("Median", left, d.Median, right, d.Median, lineStyle(trendColor, 2)),
			seg("Lower whisker", mid, d.Min, mid, d.Q1, edge),
			seg("Upper whisker", mid, d.Q3, mid, d.Max, edge),
			seg("Min", 0.4, d.Min, 0.6, d.Min, edge),
			seg("Max", 0.4, d.Max, 0.6, d.Max, edge),
		},
	}
	return ch.Render(chart.PNG, w)
}

func barChart(title, axis string, bars []chart.Value, yr *chart.ContinuousRange, size Size) chart.BarChart {
	size = size.orDefault()
	const barWidth, spacing = 40, 12
	if need := len(bars)*(barWidth+spacing) + 120; need > size.Width {
		size.Width = need
	}
	return chart.BarChart{
		Title:      title,
		Width:      size.Width,
		Height:     size.Height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		YAxis:      chart.YAxis{Name: axis, Range: yr},
		Bars:       bars,
	}
}

// Bars draws one bar per category.
func Bars(w io.Writer, d *charts.BarsData, size Size) error {
	if len(d.Bars) == 0 {
		return apperr.Insufficient("bar chart", "no categories to draw")
	}
	vals := make([]chart.Value, len(d.Bars))
	top := 0
	for i, b := range d.Bars {
		vals[i] = chart.Value{Label: b.Label, Value: float64(b.Count), Style: chart.Style{FillColor: barColor, StrokeColor: barColor}}
		if b.Count > top {
			top = b.Count
		}
	}
	bc := barChart("Frequency of "+d.Column, "count", vals, &chart.ContinuousRange{Min: 0, Max: float64(top) * 1.1}, size)
	return bc.Render(chart.PNG, w)
}

// Pie draws one wedge per category labeled with its share.
func Pie(w io.Writer, d *charts.PieData, size Size) error {
	if d.Total == 0 || len(d.Slices) == 0 {
		return apperr.Insufficient("pie chart", "no categories to draw")
	}
	size = size.orDefault()
	vals := make([]chart.Value, len(d.Slices))
	for i, s := range d.Slices {
		vals[i] = chart.Value{Label: fmt.Sprintf("%s (%.1f%%)", s.Label, s.Fraction*100), Value: float64(s.Count)}
	}
	pc := chart.PieChart{
		Title:  "Share of " + d.Column,
		Width:  size.Width,
		Height: size.Height,
		Values: vals,
	}
	return pc.Render(chart.PNG, w)
}

// CorrelationBars draws defined coefficients on a fixed [-1, 1] axis.
func CorrelationBars(w io.Writer, d *charts.CorrelationBarsData, size Size) error {
	if len(d.Bars) == 0 {
		return apperr.Insufficient("correlation chart", "every selected pair is undefined")
	}
	vals := make([]chart.Value, len(d.Bars))
	for i, b := range d.Bars {
		col := barColor
		if b.R < 0 {
			col = negativeColor
		}
		vals[i] = chart.Value{
			Label: fmt.Sprintf("%s (%s)", b.Variable, b.Label),
			Value: b.R,
			Style: chart.Style{FillColor: col, StrokeColor: col},
		}
	}
	bc := barChart("Correlation with "+d.Target, "Pearson r", vals, &chart.ContinuousRange{Min: -1, Max: 1}, size)
	bc.UseBaseValue = true
	bc.BaseValue = 0
	return bc.Render(chart.PNG, w)
}

// StrengthColor maps a band to a hex color for HTML heatmaps.
func StrengthColor(s analysis.Strength, negative bool) string {
	pos := map[analysis.Strength]string{
		analysis.StrengthStrong:     "#2166ac",
		analysis.StrengthModerate:   "#67a9cf",
		analysis.StrengthWeak:       "#d1e5f0",
		analysis.StrengthNegligible: "#f7f7f7",
	}
	neg := map[analysis.Strength]string{
		analysis.StrengthStrong:     "#b2182b",
		analysis.StrengthModerate:   "#ef8a62",
		analysis.StrengthWeak:       "#fddbc7",
		analysis.StrengthNegligible: "#f7f7f7",
	}
	table := pos
	if negative {
		table = neg
	}
	if c, ok := table[s]; ok {
		return c
	}
	return "#dddddd"
}
