// Package charts reshapes analysis results into renderer-neutral series. It
// performs no statistics of its own beyond binning and a closed-form
// least-squares trend; callers pick how to draw the result.
package charts

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

// DefaultBins is the histogram bin count used when none is given.
const DefaultBins = 30

// Point is one (x, y) observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trend is the ordinary least squares line y = Intercept + Slope*x.
type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at x.
func (t Trend) At(x float64) float64 { return t.Intercept + t.Slope*x }

// ScatterData holds the pairwise-complete rows of two numeric columns.
// Trend is nil with fewer than two points or when x is constant.
type ScatterData struct {
	X      string  `json:"x"`
	Y      string  `json:"y"`
	Points []Point `json:"points"`
	Trend  *Trend  `json:"trend"`
}

// Scatter pairs x and y over rows where both are present and fits a trend.
func Scatter(ds *dataset.Dataset, x, y string) (*ScatterData, error) {
	if x == y {
		return nil, apperr.Invalid("variables", x, "select two different variables")
	}
	roles := dataset.Classify(ds)
	xc, err := numeric(ds, roles, "x", x)
	if err != nil {
		return nil, err
	}
	yc, err := numeric(ds, roles, "y", y)
	if err != nil {
		return nil, err
	}
	xs, ys := dataset.PairedValues(xc, yc)
	out := &ScatterData{X: x, Y: y, Points: make([]Point, len(xs))}
	for i := range xs {
		out.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	if len(xs) >= 2 && stat.Variance(xs, nil) > 0 {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		if !math.IsNaN(alpha) && !math.IsNaN(beta) {
			out.Trend = &Trend{Slope: beta, Intercept: alpha}
		}
	}
	return out, nil
}

// Bin is one histogram interval [Lo, Hi); the last bin also holds Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// HistogramData is a fixed-width binning of one numeric column.
type HistogramData struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	N      int     `json:"n"`
	Bins   []Bin   `json:"bins"`
}

// Histogram splits [min, max] of column into bins equal-width intervals
// (DefaultBins when bins <= 0). A constant column is centered in
// [v-0.5, v+0.5].
func Histogram(ds *dataset.Dataset, column string, bins int) (*HistogramData, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	col, err := numeric(ds, dataset.Classify(ds), "column", column)
	if err != nil {
		return nil, err
	}
	vals := col.Floats()
	if len(vals) == 0 {
		return nil, apperr.Insufficient("histogram", fmt.Sprintf("column %q has no values", column))
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	if w := hi - lo; math.IsInf(w, 0) || math.IsNaN(w) {
		return nil, apperr.Insufficient("histogram", fmt.Sprintf("the range of column %q is too wide to bin", column))
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[0] = lo
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := &HistogramData{Column: column, Min: lo, Max: hi, N: len(sorted), Bins: make([]Bin, bins)}
	for i := range out.Bins {
		b := Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
		if i == bins-1 {
			b.Hi = hi
		}
		out.Bins[i] = b
	}
	return out, nil
}

// BoxplotData is a five-number summary plus the interquartile range.
type BoxplotData struct {
	Column string  `json:"column"`
	N      int     `json:"n"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	IQR    float64 `json:"iqr"`
}

// Boxplot reads the summary straight from describe output.
func Boxplot(s analysis.ColumnStats) (*BoxplotData, error) {
	if s.Count == 0 {
		return nil, apperr.Insufficient("boxplot", fmt.Sprintf("column %q has no values", s.Name))
	}
	return &BoxplotData{
		Column: s.Name, N: s.Count,
		Min: s.Min, Q1: s.Q25, Median: s.Median, Q3: s.Q75, Max: s.Max,
		IQR: s.Q75 - s.Q25,
	}, nil
}

// Bar is one category and its count.
type Bar struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BarsData lists categories in frequency-table order.
type BarsData struct {
	Column string `json:"column"`
	Bars   []Bar  `json:"bars"`
}

// Bars turns a frequency table into a bar series.
func Bars(ft *analysis.FrequencyTable) (*BarsData, error) {
	if ft == nil || len(ft.Entries) == 0 {
		return nil, apperr.Insufficient("bar chart", "the column has no non-missing values")
	}
	out := &BarsData{Column: ft.Column, Bars: make([]Bar, len(ft.Entries))}
	for i, e := range ft.Entries {
		out.Bars[i] = Bar{Label: e.Value, Count: e.Count}
	}
	return out, nil
}

// Slice is one pie wedge; fractions across a pie sum to 1.
type Slice struct {
	Label    string  `json:"label"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// PieData lists wedges in frequency-table order.
type PieData struct {
	Column string  `json:"column"`
	Total  int     `json:"total"`
	Slices []Slice `json:"slices"`
}

// Pie turns a frequency table into wedges with their share of the total.
func Pie(ft *analysis.FrequencyTable) (*PieData, error) {
	if ft == nil || ft.Total == 0 {
		return nil, apperr.Insufficient("pie chart", "the column has no non-missing values")
	}
	out := &PieData{Column: ft.Column, Total: ft.Total, Slices: make([]Slice, len(ft.Entries))}
	for i, e := range ft.Entries {
		out.Slices[i] = Slice{Label: e.Value, Count: e.Count, Fraction: float64(e.Count) / float64(ft.Total)}
	}
	return out, nil
}

// HeatCell is one matrix entry. Value is nil for undefined correlations.
type HeatCell struct {
	Value    *float64          `json:"value"`
	Label    string            `json:"label"`
	Strength analysis.Strength `json:"strength"`
	Negative bool              `json:"negative,omitempty"`
}

// HeatmapData is a square grid of labeled cells, row-major.
type HeatmapData struct {
	Columns []string     `json:"columns"`
	Cells   [][]HeatCell `json:"cells"`
}

// Heatmap labels every cell of m with two decimals and its strength band.
func Heatmap(m *analysis.CorrMatrix, t analysis.Thresholds) *HeatmapData {
	out := &HeatmapData{Columns: append([]string(nil), m.Columns...), Cells: make([][]HeatCell, len(m.Columns))}
	for i := range m.Columns {
		out.Cells[i] = make([]HeatCell, len(m.Columns))
		for j := range m.Columns {
			v, ok := m.Cell(i, j)
			cell := HeatCell{Label: "n/a", Strength: t.Strength(v)}
			if ok {
				cell.Value = &v
				cell.Label = fmt.Sprintf("%.2f", v)
				cell.Negative = v < 0
			}
			out.Cells[i][j] = cell
		}
	}
	return out
}

// CorrBar is one candidate's coefficient against the target.
type CorrBar struct {
	Variable string            `json:"variable"`
	R        float64           `json:"r"`
	Label    string            `json:"label"`
	Strength analysis.Strength `json:"strength"`
}

// CorrelationBarsData plots defined coefficients; undefined candidates are
// listed by name so they are never drawn as zero.
type CorrelationBarsData struct {
	Target    string    `json:"target"`
	Bars      []CorrBar `json:"bars"`
	Undefined []string  `json:"undefined"`
}

// CorrelationBars keeps the candidate order of res.
func CorrelationBars(res *analysis.CorrelationResult) *CorrelationBarsData {
	out := &CorrelationBarsData{Target: res.Target, Bars: []CorrBar{}, Undefined: []string{}}
	for _, c := range res.Coefficients {
		if !c.Defined {
			out.Undefined = append(out.Undefined, c.Variable)
			continue
		}
		out.Bars = append(out.Bars, CorrBar{Variable: c.Variable, R: c.R, Label: analysis.FormatCoefficient(c.R), Strength: c.Strength})
	}
	return out
}

func numeric(ds *dataset.Dataset, roles dataset.Roles, field, name string) (*dataset.Column, error) {
	if name == "" {
		return nil, apperr.Invalid(field, "", "choose a numeric column")
	}
	col, ok := ds.Column(name)
	if !ok {
		return nil, apperr.Invalid(field, name, "no such column")
	}
	if !roles.IsNumeric(name) {
		return nil, apperr.Invalid(field, name, "not a numeric column")
	}
	return col, nil
}
