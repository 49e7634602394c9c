package analysis

import (
	"sort"

	"github.com/KaramelBytes/csvlens/internal/apperr"
	"github.com/KaramelBytes/csvlens/internal/dataset"
)

// CategoryCount is one value of a categorical column and its occurrences.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FrequencyTable ranks the values of a categorical column by descending
// count; equal counts keep first-seen order. Total is the number of
// non-missing rows and always equals the sum of the counts.
type FrequencyTable struct {
	Column  string          `json:"column"`
	Entries []CategoryCount `json:"entries"`
	Total   int             `json:"total"`
	Missing int             `json:"missing"`
}

// Counts returns the table as a value -> count map.
func (f *FrequencyTable) Counts() map[string]int {
	out := make(map[string]int, len(f.Entries))
	for _, e := range f.Entries {
		out[e.Value] = e.Count
	}
	return out
}

// Top returns at most n leading entries; n <= 0 returns all.
func (f *FrequencyTable) Top(n int) []CategoryCount {
	if n <= 0 || n >= len(f.Entries) {
		return f.Entries
	}
	return f.Entries[:n]
}

// Frequencies counts the values of a categorical column.
func Frequencies(ds *dataset.Dataset, column string) (*FrequencyTable, error) {
	if column == "" {
		return nil, apperr.Invalid("column", "", "choose a categorical column")
	}
	col, ok := ds.Column(column)
	if !ok {
		return nil, apperr.Invalid("column", column, "no such column")
	}
	if !dataset.Classify(ds).IsCategorical(column) {
		return nil, apperr.Invalid("column", column, "not a categorical column")
	}
	return countValues(col), nil
}

func countValues(col *dataset.Column) *FrequencyTable {
	ft := &FrequencyTable{Column: col.Name(), Entries: []CategoryCount{}}
	pos := map[string]int{}
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			ft.Missing++
			continue
		}
		v := col.Text(i)
		ft.Total++
		if idx, ok := pos[v]; ok {
			ft.Entries[idx].Count++
			continue
		}
		pos[v] = len(ft.Entries)
		ft.Entries = append(ft.Entries, CategoryCount{Value: v, Count: 1})
	}
	sort.SliceStable(ft.Entries, func(i, j int) bool {
		return ft.Entries[i].Count > ft.Entries[j].Count
	})
	return ft
}
