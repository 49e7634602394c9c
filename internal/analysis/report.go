package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/csvlens/internal/dataset"
)

// Report is a markdown-friendly exploration summary of a dataset.
type Report struct {
	Name        string            `json:"name"`
	Rows        int               `json:"rows"`
	TotalRows   int               `json:"total_rows"`
	Dropped     string            `json:"dropped_column,omitempty"`
	Cols        []ColumnSummary   `json:"columns"`
	Stats       []ColumnStats     `json:"stats"`
	Frequencies []*FrequencyTable `json:"frequencies"`
	Corr        *CorrMatrix       `json:"correlations,omitempty"`
	Pairs       []PairCorr        `json:"top_pairs,omitempty"`
	Samples     [][]string        `json:"samples,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// ColumnSummary captures the role and completeness of one column.
type ColumnSummary struct {
	Name    string       `json:"name"`
	Role    dataset.Role `json:"role"`
	NonNull int          `json:"non_null"`
	Missing int          `json:"missing"`
	Unique  int          `json:"unique,omitempty"`
}

// BuildReport gathers everything the exploration views show for ds. Sections
// that do not apply (no numeric columns, fewer than two for correlations) are
// left empty and noted in Warnings.
func BuildReport(ds *dataset.Dataset, opt Options) *Report {
	rep := &Report{Name: ds.Name(), Rows: ds.NumRows(), TotalRows: ds.TotalRows(), Dropped: ds.DroppedColumn()}
	roles := dataset.Classify(ds)

	for _, c := range ds.Columns() {
		role, _ := roles.Of(c.Name())
		s := ColumnSummary{Name: c.Name(), Role: role, NonNull: c.NonMissing(), Missing: c.Missing()}
		if role == dataset.RoleCategorical {
			ft := countValues(c)
			s.Unique = len(ft.Entries)
			rep.Frequencies = append(rep.Frequencies, ft)
		}
		rep.Cols = append(rep.Cols, s)
	}

	if st, err := Describe(ds, roles.Numeric); err == nil {
		rep.Stats = st
	} else {
		rep.Warnings = append(rep.Warnings, "no numeric columns: descriptive statistics and correlations skipped")
	}
	if m, err := FullMatrix(ds, roles.Numeric); err == nil {
		rep.Corr = m
		rep.Pairs = m.TopPairs(opt.TopPairs, opt.thresholds())
	} else if len(roles.Numeric) == 1 {
		rep.Warnings = append(rep.Warnings, "only one numeric column: correlations skipped")
	}

	sampleRows := opt.SampleRows
	if sampleRows > ds.NumRows() {
		sampleRows = ds.NumRows()
	}
	for i := 0; i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, ds.Row(i))
	}

	if rep.Dropped != "" {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("first column %q looked like a row identifier and was dropped", rep.Dropped))
	}
	if rep.Rows < rep.TotalRows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Rows, rep.TotalRows))
	}
	if rep.Rows == 0 {
		rep.Warnings = append(rep.Warnings, "the file has a header but no data rows")
	}
	return rep
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown(opt Options) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Rows < r.TotalRows {
		b.WriteString(fmt.Sprintf("Rows: ~%d (processed %d)\n", r.TotalRows, r.Rows))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	statsByName := make(map[string]ColumnStats, len(r.Stats))
	for _, s := range r.Stats {
		statsByName[s.Name] = s
	}
	freqByName := make(map[string]*FrequencyTable, len(r.Frequencies))
	for _, f := range r.Frequencies {
		freqByName[f.Column] = f
	}
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Role, c.NonNull, missPct))
		switch c.Role {
		case dataset.RoleNumeric:
			if s, ok := statsByName[c.Name]; ok && s.Count > 0 {
				b.WriteString(fmt.Sprintf("; min %s, max %s, mean %s, std %s",
					num(s.Min), num(s.Max), num(s.Mean), num(s.Std)))
			}
		case dataset.RoleCategorical:
			if f, ok := freqByName[c.Name]; ok && len(f.Entries) > 0 {
				tops := f.Top(opt.TopCategories)
				b.WriteString("; top: ")
				for i, kv := range tops {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(tops) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.Stats) > 0 {
		b.WriteString("\n[DESCRIPTIVE STATISTICS]\n")
		b.WriteString(StatsTable(r.Stats))
	}

	if len(r.Pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%s (%s)\n", p.A, p.B, FormatCoefficient(p.R), p.Strength))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// StatsTable renders describe output as a Markdown table.
func StatsTable(stats []ColumnStats) string {
	var b strings.Builder
	b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
	for _, s := range stats {
		b.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
			safeVal(safeName(s.Name)), s.Count, num(s.Mean), num(s.Std), num(s.Min),
			num(s.Q25), num(s.Median), num(s.Q75), num(s.Max)))
	}
	return b.String()
}

// MatrixTable renders a correlation matrix as a Markdown table.
func MatrixTable(m *CorrMatrix) string {
	var b strings.Builder
	b.WriteString("| |")
	for _, c := range m.Columns {
		b.WriteString(" " + safeVal(c) + " |")
	}
	b.WriteString("\n| --- |")
	for range m.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for i, row := range m.Columns {
		b.WriteString("| " + safeVal(row) + " |")
		for j := range m.Columns {
			v, ok := m.Cell(i, j)
			if ok {
				b.WriteString(fmt.Sprintf(" %.3f |", v))
			} else {
				b.WriteString(" n/a |")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
