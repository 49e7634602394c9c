package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

// Coefficient is the Pearson correlation between a target and one candidate.
// When Defined is false, R is NaN and must not be shown as a number.
type Coefficient struct {
	Variable string
	R        float64
	N        int
	Defined  bool
	Strength Strength
}

// MarshalJSON encodes an undefined coefficient as r: null.
func (c Coefficient) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Variable string   `json:"variable"`
		R        *float64 `json:"r"`
		N        int      `json:"n"`
		Defined  bool     `json:"defined"`
		Strength Strength `json:"strength"`
	}{c.Variable, finite(c.R), c.N, c.Defined, c.Strength})
}

// CorrelationResult holds coefficients in the order candidates were given.
type CorrelationResult struct {
	Target       string        `json:"target"`
	Coefficients []Coefficient `json:"coefficients"`
}

// Get returns the coefficient for candidate name.
func (r *CorrelationResult) Get(name string) (Coefficient, bool) {
	for _, c := range r.Coefficients {
		if c.Variable == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// Values maps each candidate to r; undefined pairs map to NaN.
func (r *CorrelationResult) Values() map[string]float64 {
	out := make(map[string]float64, len(r.Coefficients))
	for _, c := range r.Coefficients {
		out[c.Variable] = c.R
	}
	return out
}

// Correlate computes Pearson's r between target and each candidate over the
// rows where both are present. Candidates must be 1..opt.MaxCandidates
// distinct numeric columns other than target.
func Correlate(ds *dataset.Dataset, target string, candidates []string, opt Options) (*CorrelationResult, error) {
	roles := dataset.Classify(ds)
	if target == "" {
		return nil, apperr.Invalid("target", "", "choose a target variable")
	}
	tcol, err := numericColumn(ds, roles, "target", target)
	if err != nil {
		return nil, err
	}
	limit := opt.MaxCandidates
	if limit <= 0 {
		limit = DefaultOptions().MaxCandidates
	}
	if len(candidates) < 1 || len(candidates) > limit {
		return nil, apperr.Invalid("candidates", "", fmt.Sprintf("choose between 1 and %d variables to compare (got %d)", limit, len(candidates)))
	}
	seen := make(map[string]struct{}, len(candidates))
	cols := make([]*dataset.Column, len(candidates))
	for i, name := range candidates {
		if name == target {
			return nil, apperr.Invalid("candidates", name, "select two different variables")
		}
		if _, dup := seen[name]; dup {
			return nil, apperr.Invalid("candidates", name, "selected more than once")
		}
		seen[name] = struct{}{}
		col, err := numericColumn(ds, roles, "candidates", name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	res := &CorrelationResult{Target: target, Coefficients: make([]Coefficient, len(cols))}
	for i, col := range cols {
		xs, ys := dataset.PairedValues(tcol, col)
		r, ok := pearson(xs, ys)
		res.Coefficients[i] = Coefficient{
			Variable: col.Name(),
			R:        r,
			N:        len(xs),
			Defined:  ok,
			Strength: opt.thresholds().Strength(r),
		}
	}
	return res, nil
}

// pearson returns r over paired samples, or NaN and false when fewer than two
// pairs exist or either side has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return math.NaN(), false
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN(), false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

func (o Options) thresholds() Thresholds {
	if o.Thresholds == (Thresholds{}) {
		return DefaultThresholds()
	}
	return o.Thresholds
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric
// columns. Undefined cells are NaN; N holds the pairwise row counts.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	N       [][]int
}

// Cell returns Values[i][j] and whether it is defined.
func (m *CorrMatrix) Cell(i, j int) (float64, bool) {
	v := m.Values[i][j]
	return v, !math.IsNaN(v)
}

// MarshalJSON encodes undefined cells as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j, v := range row {
			vals[i][j] = finite(v)
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
		N       [][]int      `json:"n"`
	}{m.Columns, vals, m.N})
}

// FullMatrix correlates every pair of the given numeric columns (all numeric
// columns when columns is empty). The diagonal is 1.0 for columns with at
// least two values.
func FullMatrix(ds *dataset.Dataset, columns []string) (*CorrMatrix, error) {
	roles := dataset.Classify(ds)
	if len(columns) == 0 {
		columns = roles.Numeric
	}
	if len(columns) < 2 {
		return nil, apperr.Insufficient("correlation matrix", "at least two numeric columns are required")
	}
	cols := make([]*dataset.Column, len(columns))
	for i, name := range columns {
		col, err := numericColumn(ds, roles, "columns", name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	n := len(cols)
	m := &CorrMatrix{Columns: append([]string(nil), columns...), Values: make([][]float64, n), N: make([][]int, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.N[i] = make([]int, n)
	}
	for a := 0; a < n; a++ {
		cnt := cols[a].NonMissing()
		m.N[a][a] = cnt
		if cnt >= 2 {
			m.Values[a][a] = 1
		} else {
			m.Values[a][a] = math.NaN()
		}
		for b := a + 1; b < n; b++ {
			xs, ys := dataset.PairedValues(cols[a], cols[b])
			r, _ := pearson(xs, ys)
			m.Values[a][b], m.Values[b][a] = r, r
			m.N[a][b], m.N[b][a] = len(xs), len(xs)
		}
	}
	return m, nil
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A        string   `json:"a"`
	B        string   `json:"b"`
	R        float64  `json:"r"`
	Strength Strength `json:"strength"`
}

// TopPairs lists defined off-diagonal pairs by descending |r|, ties by name.
// limit <= 0 returns every pair.
func (m *CorrMatrix) TopPairs(limit int, t Thresholds) []PairCorr {
	var pairs []PairCorr
	for i := 0; i < len(m.Columns); i++ {
		for j := i + 1; j < len(m.Columns); j++ {
			r, ok := m.Cell(i, j)
			if !ok {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r, Strength: t.Strength(r)})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
