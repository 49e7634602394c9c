package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvlens/internal/apperr"
)

// LoadOptions controls how raw CSV text becomes a Dataset.
type LoadOptions struct {
	// Name labels the dataset in reports; LoadFile defaults it to the file's base name.
	Name string
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// MaxRows limits rows kept in memory; 0 means unlimited. Remaining rows
	// are still read and validated.
	MaxRows int
	// DropIDColumn removes the first column when its header looks like a row
	// identifier (see IDColumnNames). This is a name heuristic only: a real
	// measurement called "ID" is dropped too, and an identifier column with
	// any other name is kept.
	DropIDColumn bool
	// IDColumnNames are compared case-insensitively after removing spaces,
	// underscores and hyphens, so "rownumber" matches "Row Number" and "row_number".
	IDColumnNames []string
	// MissingTokens are cell values (after trimming) treated as missing in
	// addition to the empty string.
	MissingTokens []string
	// Numeric parsing locale. If DecimalSeparator is 0, '.' is used. If
	// ThousandsSeparator is 0, no grouping separator is accepted.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultIDColumnNames are the identifier headers dropped by default.
var DefaultIDColumnNames = []string{"id", "rownumber"}

// DefaultMissingTokens mirror the usual spreadsheet/pandas NA spellings.
var DefaultMissingTokens = []string{"NA", "N/A", "NaN", "nan", "null", "NULL", "#N/A"}

// DefaultLoadOptions returns the options used by the CLI and the web UI.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter:     ',',
		DropIDColumn:  true,
		IDColumnNames: append([]string(nil), DefaultIDColumnNames...),
		MissingTokens: append([]string(nil), DefaultMissingTokens...),
	}
}

// LoadFile opens path and loads it with opt.
func LoadFile(path string, opt LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Name == "" {
		opt.Name = filepath.Base(path)
	}
	return Load(f, opt)
}

// Load parses CSV text from r. Malformed input yields an *apperr.ParseError.
// Rows shorter than the header are padded with missing cells; longer rows
// are rejected.
func Load(r io.Reader, opt LoadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = opt.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ','
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Parse(0, "the file is empty (no header row)", nil)
		}
		return nil, csvParseError(err)
	}
	ncol := len(header)

	var rows [][]string
	total := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, csvParseError(err)
		}
		total++
		if len(rec) > ncol {
			line, _ := cr.FieldPos(0)
			return nil, apperr.Parse(line, fmt.Sprintf("expected %d fields, saw %d", ncol, len(rec)), nil)
		}
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			continue
		}
		row := make([]string, ncol)
		copy(row, rec)
		rows = append(rows, row)
	}

	ds := FromRecords(opt.Name, header, rows, opt)
	ds.totalRows = total
	return ds, nil
}

// FromRecords builds a Dataset from an already split header and rows. Rows
// must not be longer than the header; shorter rows are padded.
func FromRecords(name string, header []string, rows [][]string, opt LoadOptions) *Dataset {
	names := headerNames(header)
	start := 0
	var dropped string
	if opt.DropIDColumn && len(names) > 1 && isIDColumn(names[0], opt.IDColumnNames) {
		start = 1
		dropped = names[0]
	}

	missing := map[string]struct{}{"": {}}
	for _, tok := range opt.MissingTokens {
		missing[strings.TrimSpace(tok)] = struct{}{}
	}

	ds := &Dataset{
		name:      name,
		index:     make(map[string]int, len(names)-start),
		rows:      len(rows),
		totalRows: len(rows),
		dropped:   dropped,
	}
	for j := start; j < len(names); j++ {
		c := &Column{
			name:    names[j],
			raw:     make([]string, len(rows)),
			missing: make([]bool, len(rows)),
			nums:    make([]float64, len(rows)),
			numeric: true,
		}
		for i, row := range rows {
			var v string
			if j < len(row) {
				v = strings.TrimSpace(row[j])
			}
			if _, ok := missing[v]; ok {
				c.missing[i] = true
				continue
			}
			c.raw[i] = v
			if !c.numeric {
				c.nonMissing++
				continue
			}
			x, ok := parseNumber(v, opt)
			if ok && math.IsNaN(x) {
				c.missing[i] = true
				c.raw[i] = ""
				continue
			}
			c.nonMissing++
			if ok {
				c.nums[i] = x
			} else {
				c.numeric = false
			}
		}
		if !c.numeric {
			c.nums = nil
		}
		ds.index[c.name] = len(ds.columns)
		ds.columns = append(ds.columns, c)
	}
	return ds
}

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return apperr.Parse(pe.Line, pe.Err.Error(), nil)
	}
	return apperr.Parse(0, "could not read the file", err)
}

// headerNames trims header cells, strips a UTF-8 BOM, names blank headers
// "Unnamed: i" and suffixes duplicates with ".1", ".2", ...
func headerNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		base := h
		for {
			n, dup := seen[h]
			if !dup {
				break
			}
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", base, n+1)
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}

func normalizeIdent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func isIDColumn(name string, idNames []string) bool {
	n := normalizeIdent(name)
	for _, cand := range idNames {
		if n == normalizeIdent(cand) {
			return true
		}
	}
	return false
}

// parseNumber parses a trimmed cell with the configured locale.
func parseNumber(s string, opt LoadOptions) (float64, bool) {
	raw := s
	if opt.ThousandsSeparator != 0 && opt.ThousandsSeparator != opt.DecimalSeparator {
		raw = strings.ReplaceAll(raw, string(opt.ThousandsSeparator), "")
	}
	if dec := opt.DecimalSeparator; dec != 0 && dec != '.' {
		if strings.ContainsRune(raw, '.') {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") || strings.Contains(raw, "_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
