package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/csvlens/internal/apperr"
)

const shopCSV = `id,age,spend,visits,region
1,20,100,3,N
2,30,200,1,S
3,40,300,2,N
4,50,400,4,E
`

// resetFlags restores every flag to its default so package-level flag vars
// do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns its combined output.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	require.NoError(t, err, "command %v", args)
	return out
}

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAnalyzeMarkdownJSONAndOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "shop.csv", shopCSV)

	out := mustRun(t, "analyze", path)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "- age ~ spend: r=1.000 (strong)")
	assert.Contains(t, out, "[HEAD AND SAMPLE ROWS]")
	assert.Contains(t, out, `"id"`)

	out = mustRun(t, "analyze", path, "--json", "--sample-rows", "0")
	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.EqualValues(t, 4, rep["rows"])
	assert.Equal(t, "id", rep["dropped_column"])
	assert.Nil(t, rep["samples"])

	dest := filepath.Join(dir, "reports", "shop.md")
	out = mustRun(t, "analyze", path, "--keep-id", "-o", dest)
	assert.Contains(t, out, "✓ Wrote analysis to")
	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "looked like a row identifier")
}

func TestAnalyzeReportsParseErrors(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "bad.csv", "a,b\n1,2,3\n")
	_, err := runCmd(t, "analyze", path)
	require.Error(t, err)
	assert.Equal(t, "parse_error", apperr.Kind(err))
	assert.Contains(t, errorText(err), "could not be read as a CSV table")
	assert.Contains(t, errorText(err), "line 2")
}

func TestAnalyzeBatchOutDirCollisionsAndNoSamples(t *testing.T) {
	home := t.TempDir()
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	for _, d := range []string{"d1", "d2"} {
		require.NoError(t, os.MkdirAll(filepath.Join(home, d), 0o755))
		writeCSV(t, filepath.Join(home, d), "metrics.csv", csv)
	}
	outDir := filepath.Join(home, "summaries")

	out := mustRun(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"),
		"--out-dir", outDir, "--sample-rows", "0", "--jobs", "2")
	assert.Contains(t, out, "[1/2] Processing metrics.csv...")
	assert.Contains(t, out, "[2/2] Processing metrics.csv...")
	assert.Contains(t, out, "metrics__2.summary.md to avoid overwrite")

	for _, name := range []string{"metrics.summary.md", "metrics__2.summary.md"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(body), "[DATASET SUMMARY]")
		assert.NotContains(t, string(body), "[HEAD AND SAMPLE ROWS]", name)
	}

	out = mustRun(t, "analyze-batch", filepath.Join(home, "d1", "metrics.csv"), "--out-dir", outDir, "--quiet")
	assert.Empty(t, out)
	assert.FileExists(t, filepath.Join(outDir, "metrics__3.summary.md"))

	_, err := runCmd(t, "analyze-batch", filepath.Join(home, "nothing*.csv"))
	assert.EqualError(t, err, "no input files matched")
}

func TestAnalyzeBatchStopsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", shopCSV)
	writeCSV(t, dir, "b.csv", "x,y\n1,2,3\n")
	_, err := runCmd(t, "analyze-batch", filepath.Join(dir, "*.csv"), "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.csv")
	assert.Equal(t, "parse_error", apperr.Kind(err))
}

func TestDescribe(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "shop.csv", shopCSV)

	out := mustRun(t, "describe", path, "--columns", "age")
	assert.Contains(t, out, "| age | 4 | 35 |")
	assert.NotContains(t, out, "spend")

	out = mustRun(t, "describe", path)
	assert.Contains(t, out, "| spend | 4 | 250 |")
	assert.Contains(t, out, "| visits |")

	out = mustRun(t, "describe", path, "-c", "visits", "--json")
	var stats []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.EqualValues(t, 2.5, stats[0]["median"])

	_, err := runCmd(t, "describe", path, "--columns", "region")
	assert.Equal(t, "invalid_selection", apperr.Kind(err))
}

func TestLocaleAndDelimiterFlags(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "eu.csv", "a;b\n1,5;1.000\n2,5;2.000\n3,5;3.000\n")
	out := mustRun(t, "describe", path, "--delimiter", ";", "--decimal", "comma", "--thousands", ".")
	assert.Contains(t, out, "| a | 3 | 2.5 |")
	assert.Contains(t, out, "| b | 3 | 2000 |")

	_, err := runCmd(t, "describe", path, "--decimal", ",", "--thousands", ",")
	assert.EqualError(t, err, "--decimal and --thousands must differ")
	_, err = runCmd(t, "describe", path, "--delimiter", "|")
	assert.Error(t, err)
}

func TestCorrelate(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "shop.csv", shopCSV)

	out := mustRun(t, "correlate", path, "--target", "age", "--with", "spend,visits")
	assert.Contains(t, out, "Target: age")
	assert.Contains(t, out, "1.000")
	assert.Contains(t, out, "Strong correlation")

	out = mustRun(t, "correlate", path, "-t", "age", "-w", "spend", "--json")
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	coef := res["coefficients"].([]any)[0].(map[string]any)
	assert.Equal(t, "strong", coef["strength"])

	_, err := runCmd(t, "correlate", path, "--target", "age", "--with", "a,b,c,d,e")
	assert.Equal(t, "invalid_selection", apperr.Kind(err))

	_, err = runCmd(t, "correlate", path, "--target", "age", "--with", "age")
	require.Error(t, err)
	assert.Contains(t, errorText(err), "select two different variables")
}

func TestCorrelateUndefined(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "flat.csv", "x,y\n1,5\n2,5\n3,5\n")
	out := mustRun(t, "correlate", path, "--target", "x", "--with", "y")
	assert.Contains(t, out, "n/a (undefined)")
	assert.Contains(t, out, "Correlation undefined")
}

func TestMatrix(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "shop.csv", shopCSV)
	out := mustRun(t, "matrix", path)
	assert.Contains(t, out, "| | age | spend | visits |")
	assert.Contains(t, out, "Strongest pairs:")
	assert.Contains(t, out, "- age ~ spend: r=1.000 (strong)")

	out = mustRun(t, "matrix", path, "--json", "--top", "1")
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res["top_pairs"], 1)

	_, err := runCmd(t, "matrix", path, "--columns", "age")
	assert.Equal(t, "insufficient_data", apperr.Kind(err))
}

func TestFreq(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "shop.csv", shopCSV)
	out := mustRun(t, "freq", path, "--column", "region")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "25.0%")

	out = mustRun(t, "freq", path, "--column", "region", "--top", "1")
	assert.Contains(t, out, "(2 more)")

	_, err := runCmd(t, "freq", path, "--column", "age")
	assert.Equal(t, "invalid_selection", apperr.Kind(err))
}

func TestChart(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "shop.csv", shopCSV)

	cases := [][]string{
		{"scatter", "--x", "age", "--y", "spend"},
		{"histogram", "--column", "age", "--bins", "3"},
		{"box", "--column", "spend"},
		{"bar", "--column", "region"},
		{"pie", "--column", "region"},
		{"correlation", "--target", "age", "--with", "spend,visits"},
	}
	for _, c := range cases {
		dest := filepath.Join(dir, c[0]+".png")
		args := append([]string{"chart", c[0], path, "--out", dest, "--width", "320", "--height", "200"}, c[1:]...)
		out := mustRun(t, args...)
		assert.Contains(t, out, "✓ Wrote "+c[0]+" chart")
		b, err := os.ReadFile(dest)
		require.NoError(t, err, c[0])
		assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")), c[0])
	}

	out := mustRun(t, "chart", "histogram", path, "--column", "age", "--bins", "2", "--json")
	var hist map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	assert.Len(t, hist["bins"], 2)

	_, err := runCmd(t, "chart", "radar", path, "--out", filepath.Join(dir, "r.png"))
	assert.ErrorContains(t, err, "unknown chart kind")
	_, err = runCmd(t, "chart", "scatter", path, "--x", "age", "--y", "spend")
	assert.ErrorContains(t, err, "--out is required")
	_, err = runCmd(t, "chart", "bar", path, "--column", "age", "--out", filepath.Join(dir, "x.png"))
	assert.Equal(t, "invalid_selection", apperr.Kind(err))
}

func TestConfigSetAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out := mustRun(t, "--config", path, "config", "set", "strong_threshold", "0.8")
	assert.Contains(t, out, "Saved config")
	mustRun(t, "--config", path, "config", "set", "id_column_names", "key, row_id")

	out = mustRun(t, "--config", path, "config", "set", "histogram_bins", "12")
	assert.Contains(t, out, "Saved config")
	out = mustRun(t, "config", "show")
	assert.Contains(t, out, "strong_threshold: 0.700", "show without a loaded config uses defaults")

	_, err := runCmd(t, "--config", path, "config", "set", "weak_threshold", "0.9")
	assert.Error(t, err)
	_, err = runCmd(t, "--config", path, "config", "set", "max_candidates", "many")
	assert.EqualError(t, err, "invalid int for max_candidates: many")
	_, err = runCmd(t, "--config", path, "config", "set", "api_key", "x")
	assert.ErrorContains(t, err, "unknown key: api_key")

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "strong_threshold: 0.8")
	assert.Contains(t, string(body), "histogram_bins: 12")
	assert.Contains(t, string(body), "- row_id")
}
