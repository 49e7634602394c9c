package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

// ColumnStats is the descriptive summary of one numeric column. Statistics
// that cannot be computed (no values, or std with one value) are NaN.
type ColumnStats struct {
	Name   string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// MarshalJSON encodes NaN statistics as null.
func (s ColumnStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string   `json:"name"`
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Q25    *float64 `json:"q25"`
		Median *float64 `json:"median"`
		Q75    *float64 `json:"q75"`
		Max    *float64 `json:"max"`
	}{s.Name, s.Count, finite(s.Mean), finite(s.Std), finite(s.Min), finite(s.Q25),
		finite(s.Median), finite(s.Q75), finite(s.Max)})
}

// Describe computes count, mean, sample standard deviation (n-1), min,
// quartiles (linear interpolation) and max for each named numeric column.
// Missing cells are skipped.
func Describe(ds *dataset.Dataset, columns []string) ([]ColumnStats, error) {
	if len(columns) == 0 {
		return nil, apperr.Insufficient("descriptive statistics", "select at least one numeric column")
	}
	roles := dataset.Classify(ds)
	out := make([]ColumnStats, 0, len(columns))
	for _, name := range columns {
		col, err := numericColumn(ds, roles, "columns", name)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(name, col.Floats()))
	}
	return out, nil
}

// DescribeAll describes every numeric column of ds.
func DescribeAll(ds *dataset.Dataset) ([]ColumnStats, error) {
	roles := dataset.Classify(ds)
	if len(roles.Numeric) == 0 {
		return nil, apperr.Insufficient("descriptive statistics", "the dataset has no numeric columns")
	}
	return Describe(ds, roles.Numeric)
}

// Summarize computes ColumnStats over vals.
func Summarize(name string, vals []float64) ColumnStats {
	nan := math.NaN()
	s := ColumnStats{Name: name, Count: len(vals), Mean: nan, Std: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan}
	if len(vals) == 0 {
		return s
	}
	s.Mean, _ = stats.Mean(vals)
	s.Min, _ = stats.Min(vals)
	s.Max, _ = stats.Max(vals)
	if len(vals) > 1 {
		s.Std, _ = stats.StandardDeviationSample(vals)
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	s.Q25 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	return s
}

// quantile interpolates linearly between the closest ranks at position
// q*(n-1) of an ascending slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func numericColumn(ds *dataset.Dataset, roles dataset.Roles, field, name string) (*dataset.Column, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, apperr.Invalid(field, name, "no such column")
	}
	if !roles.IsNumeric(name) {
		return nil, apperr.Invalid(field, name, "not a numeric column")
	}
	return col, nil
}
