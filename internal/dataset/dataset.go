// Package dataset holds an uploaded CSV table in memory and classifies its
// columns. A Dataset is immutable once built; every accessor returns copies
// or scalars so callers cannot mutate shared state.
package dataset

// Dataset is an ordered set of equally long named columns.
type Dataset struct {
	name      string
	columns   []*Column
	index     map[string]int
	rows      int
	totalRows int
	dropped   string
}

// Column is one named column. Each cell is either missing or carries its raw
// text; numeric columns also carry the parsed values.
type Column struct {
	name       string
	raw        []string
	missing    []bool
	nums       []float64
	numeric    bool
	nonMissing int
}

// Name returns the dataset name (usually the uploaded file's base name).
func (d *Dataset) Name() string { return d.name }

// NumRows returns the number of data rows held in memory.
func (d *Dataset) NumRows() int { return d.rows }

// TotalRows returns the number of data rows seen in the input. It exceeds
// NumRows when LoadOptions.MaxRows truncated the load.
func (d *Dataset) TotalRows() int { return d.totalRows }

// NumColumns returns the number of columns kept after loading.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// DroppedColumn names the leading identifier column removed at load, or "".
func (d *Dataset) DroppedColumn() string { return d.dropped }

// Columns returns the columns in file order.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// ColumnNames returns the column names in file order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.name
	}
	return out
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Row returns the raw cell text of row i; missing cells are "".
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.columns))
	for j, c := range d.columns {
		if !c.missing[i] {
			out[j] = c.raw[i]
		}
	}
	return out
}

// Name returns the column header.
func (c *Column) Name() string { return c.name }

// Len returns the number of cells, missing included.
func (c *Column) Len() int { return len(c.raw) }

// Numeric reports whether every non-missing cell parsed as a number.
func (c *Column) Numeric() bool { return c.numeric }

// NonMissing returns the count of non-missing cells.
func (c *Column) NonMissing() int { return c.nonMissing }

// Missing returns the count of missing cells.
func (c *Column) Missing() int { return len(c.raw) - c.nonMissing }

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool { return c.missing[i] }

// Text returns the raw text of cell i ("" when missing).
func (c *Column) Text(i int) string {
	if c.missing[i] {
		return ""
	}
	return c.raw[i]
}

// Float returns the parsed value of cell i. ok is false for missing cells and
// for every cell of a categorical column.
func (c *Column) Float(i int) (v float64, ok bool) {
	if !c.numeric || c.missing[i] {
		return 0, false
	}
	return c.nums[i], true
}

// Floats returns the non-missing values of a numeric column in row order.
// It returns nil for categorical columns.
func (c *Column) Floats() []float64 {
	if !c.numeric {
		return nil
	}
	out := make([]float64, 0, c.nonMissing)
	for i, v := range c.nums {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// PairedValues returns the rows where both a and b hold a number (pairwise
// deletion). Rows missing in either column are skipped; other columns play
// no part.
func PairedValues(a, b *Column) (xs, ys []float64) {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}
	for i := 0; i < n; i++ {
		x, okx := a.Float(i)
		if !okx {
			continue
		}
		y, oky := b.Float(i)
		if !oky {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}
