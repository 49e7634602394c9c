package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

const shopCSV = `id,age,spend,visits,region
1,25,100,3,N
2,35,200,1,S
3,45,300,2,N
4,55,,4,E
`

func load(t *testing.T, s string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(strings.NewReader(s), dataset.DefaultLoadOptions())
	require.NoError(t, err)
	return ds
}

func TestCorrelatePerfectLinearIsStrong(t *testing.T) {
	ds := load(t, shopCSV)
	res, err := Correlate(ds, "age", []string{"spend", "visits"}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Coefficients, 2)

	spend, ok := res.Get("spend")
	require.True(t, ok)
	assert.True(t, spend.Defined)
	assert.InDelta(t, 1.0, spend.R, 1e-12)
	assert.Equal(t, 3, spend.N, "row with missing spend is skipped pairwise")
	assert.Equal(t, StrengthStrong, spend.Strength)
	assert.Equal(t, "1.000", FormatCoefficient(spend.R))

	visits, ok := res.Get("visits")
	require.True(t, ok)
	assert.InDelta(t, 0.4, visits.R, 1e-9)
	assert.Equal(t, 4, visits.N)
	assert.Equal(t, []string{"spend", "visits"}, []string{res.Coefficients[0].Variable, res.Coefficients[1].Variable})
}

func TestCorrelateSelectionErrors(t *testing.T) {
	wide := load(t, "a,b,c,d,e,f,g\n1,2,3,4,5,6,x\n2,3,5,7,11,13,y\n3,5,8,1,2,4,z\n")
	opt := DefaultOptions()

	cases := []struct {
		name       string
		target     string
		candidates []string
		field      string
	}{
		{"too many", "a", []string{"b", "c", "d", "e", "f"}, "candidates"},
		{"none", "a", nil, "candidates"},
		{"self", "a", []string{"a"}, "candidates"},
		{"duplicate", "a", []string{"b", "b"}, "candidates"},
		{"categorical candidate", "a", []string{"g"}, "candidates"},
		{"unknown candidate", "a", []string{"zz"}, "candidates"},
		{"empty target", "", []string{"b"}, "target"},
		{"categorical target", "g", []string{"b"}, "target"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Correlate(wide, tc.target, tc.candidates, opt)
			require.Error(t, err)
			var se *apperr.InvalidSelectionError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.field, se.Field)
			assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))
		})
	}

	_, err := Correlate(wide, "a", []string{"a"}, opt)
	assert.Contains(t, err.Error(), "select two different variables")

	res, err := Correlate(wide, "a", []string{"b", "c", "d", "e"}, opt)
	require.NoError(t, err)
	assert.Len(t, res.Coefficients, 4)
}

func TestCorrelateUndefinedPairs(t *testing.T) {
	ds := load(t, "x,const,sparse\n1,5,\n2,5,7\n3,5,\n")
	res, err := Correlate(ds, "x", []string{"const", "sparse"}, DefaultOptions())
	require.NoError(t, err)
	for _, c := range res.Coefficients {
		assert.False(t, c.Defined, c.Variable)
		assert.True(t, math.IsNaN(c.R), c.Variable)
		assert.Equal(t, StrengthUndefined, c.Strength, c.Variable)
		assert.Equal(t, "n/a (undefined)", FormatCoefficient(c.R))
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"r":null`)
}

func TestCorrelationIsSymmetric(t *testing.T) {
	ds := load(t, "p,q\n1.5,2\n2.25,9\n3,4.5\n7,1\n4,4\n")
	pq, err := Correlate(ds, "p", []string{"q"}, DefaultOptions())
	require.NoError(t, err)
	qp, err := Correlate(ds, "q", []string{"p"}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, pq.Coefficients[0].R, qp.Coefficients[0].R)

	m, err := FullMatrix(ds, nil)
	require.NoError(t, err)
	assert.Equal(t, m.Values[0][1], m.Values[1][0])
	assert.Equal(t, 1.0, m.Values[0][0])
	assert.Equal(t, pq.Coefficients[0].R, m.Values[0][1])
}

func TestStrengthBands(t *testing.T) {
	th := DefaultThresholds()
	cases := map[float64]Strength{
		1:      StrengthStrong,
		0.7:    StrengthStrong,
		-0.7:   StrengthStrong,
		0.699:  StrengthModerate,
		0.6999: StrengthModerate,
		0.4:    StrengthModerate,
		-0.45:  StrengthModerate,
		0.399:  StrengthWeak,
		0.3999: StrengthWeak,
		0.2:    StrengthWeak,
		0.199:  StrengthNegligible,
		0.1999: StrengthNegligible,
		0:      StrengthNegligible,
	}
	for r, want := range cases {
		assert.Equal(t, want, th.Strength(r), "r=%v", r)
	}
	assert.Equal(t, StrengthUndefined, th.Strength(math.NaN()))
	assert.Equal(t, "Strong correlation", StrengthOf(0.9).Label())

	assert.NoError(t, th.Validate())
	assert.Error(t, Thresholds{Strong: 0.4, Moderate: 0.7, Weak: 0.2}.Validate())
	assert.Error(t, Thresholds{Strong: 1.2, Moderate: 0.4, Weak: 0.2}.Validate())
	assert.Error(t, Thresholds{}.Validate())
}

func TestFullMatrixNeedsTwoColumns(t *testing.T) {
	ds := load(t, "x,label\n1,a\n2,b\n")
	_, err := FullMatrix(ds, nil)
	var ie *apperr.InsufficientDataError
	require.ErrorAs(t, err, &ie)

	ds = load(t, shopCSV)
	m, err := FullMatrix(ds, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "spend", "visits"}, m.Columns)
	assert.Equal(t, 3, m.N[0][1])

	pairs := m.TopPairs(1, DefaultThresholds())
	require.Len(t, pairs, 1)
	assert.Equal(t, "age", pairs[0].A)
	assert.Equal(t, "spend", pairs[0].B)
	assert.Equal(t, StrengthStrong, pairs[0].Strength)
	assert.Len(t, m.TopPairs(0, DefaultThresholds()), 3)
}

func TestDescribeValues(t *testing.T) {
	ds := load(t, "v,w\n1,\n2,\n3,\n4,9\n")
	st, err := Describe(ds, []string{"v", "w"})
	require.NoError(t, err)
	require.Len(t, st, 2)

	v := st[0]
	assert.Equal(t, 4, v.Count)
	assert.InDelta(t, 2.5, v.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), v.Std, 1e-12)
	assert.Equal(t, 1.0, v.Min)
	assert.InDelta(t, 1.75, v.Q25, 1e-12)
	assert.InDelta(t, 2.5, v.Median, 1e-12)
	assert.InDelta(t, 3.25, v.Q75, 1e-12)
	assert.Equal(t, 4.0, v.Max)

	w := st[1]
	assert.Equal(t, 1, w.Count)
	assert.Equal(t, 9.0, w.Mean)
	assert.True(t, math.IsNaN(w.Std), "std needs two values")
	assert.Equal(t, 9.0, w.Median)

	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"std":null`)

	empty := Summarize("e", nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestDescribeErrors(t *testing.T) {
	ds := load(t, shopCSV)
	_, err := Describe(ds, nil)
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
	_, err = Describe(ds, []string{"region"})
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))
	_, err = Describe(ds, []string{"nope"})
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))

	_, err = DescribeAll(load(t, "a,b\nx,y\n"))
	assert.Equal(t, apperr.KindInsufficientData, apperr.Kind(err))
}

func TestFrequencies(t *testing.T) {
	ds := load(t, shopCSV+"5,60,5,5,\n")
	ft, err := Frequencies(ds, "region")
	require.NoError(t, err)
	assert.Equal(t, []CategoryCount{{"N", 2}, {"S", 1}, {"E", 1}}, ft.Entries)
	assert.Equal(t, 4, ft.Total)
	assert.Equal(t, 1, ft.Missing)
	assert.Equal(t, map[string]int{"N": 2, "S": 1, "E": 1}, ft.Counts())
	assert.Len(t, ft.Top(2), 2)

	_, err = Frequencies(ds, "age")
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))
	_, err = Frequencies(ds, "")
	assert.Equal(t, apperr.KindInvalidSelection, apperr.Kind(err))
}

func TestBuildReportIsDeterministic(t *testing.T) {
	ds := load(t, shopCSV)
	opt := DefaultOptions()
	rep := BuildReport(ds, opt)

	assert.Equal(t, "id", rep.Dropped)
	assert.Len(t, rep.Cols, 4)
	assert.Equal(t, dataset.RoleCategorical, rep.Cols[3].Role)
	assert.Equal(t, 3, rep.Cols[3].Unique)
	assert.Len(t, rep.Stats, 3)
	assert.Len(t, rep.Samples, 4)

	md := rep.Markdown(opt)
	for _, want := range []string{"[DATASET SUMMARY]", "[SCHEMA]", "[DESCRIPTIVE STATISTICS]", "[CORRELATIONS]", "age ~ spend: r=1.000 (strong)", "N(2)", "[NOTES]"} {
		assert.Contains(t, md, want)
	}

	again := BuildReport(ds, opt)
	assert.Equal(t, md, again.Markdown(opt))
	j1, err := json.Marshal(rep)
	require.NoError(t, err)
	j2, err := json.Marshal(again)
	require.NoError(t, err)
	assert.JSONEq(t, string(j1), string(j2))
}

func TestBuildReportNotesMissingSections(t *testing.T) {
	rep := BuildReport(load(t, "name,city\na,b\n"), DefaultOptions())
	assert.Empty(t, rep.Stats)
	assert.Nil(t, rep.Corr)
	assert.Contains(t, strings.Join(rep.Warnings, "\n"), "no numeric columns")
	assert.NotContains(t, rep.Markdown(DefaultOptions()), "[CORRELATIONS]")
}
