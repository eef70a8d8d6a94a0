package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the type tag assigned to a column at load time.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Column describes one header cell and its inferred kind.
type Column struct {
	Name string
	Kind Kind
}

// Value is a single cell. Numeric columns carry Num, text columns carry Text.
// Text is always populated with the trimmed raw cell.
type Value struct {
	Num     float64
	Text    string
	Missing bool
}

// Dataset is an in-memory table; every row has len(Columns) cells.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    [][]Value
}

// Options controls how tables are read.
type Options struct {
	// Delimiter for CSV. If 0, auto-detects among ',', ';', '\t'.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// SheetName selects an XLSX sheet; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
}

// ColumnIndex returns the position of the named column or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// uniqueHeader trims names, fills blanks with column_<i> and renames later
// repeats of a name to <name>.1, <name>.2 and so on, skipping any suffix
// that is already taken.
func uniqueHeader(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
	}
	for _, h := range names {
		taken[h] = true
	}
	used := make(map[string]bool, len(names))
	for i, h := range names {
		if !used[h] {
			used[h] = true
			continue
		}
		for n := 1; ; n++ {
			alt := fmt.Sprintf("%s.%d", h, n)
			if !used[alt] && !taken[alt] {
				names[i] = alt
				used[alt] = true
				break
			}
		}
	}
	return names
}

// FromRecords builds a Dataset from a header and raw string records, inferring
// a Kind per column. Column names are unique. A column is numeric iff it has at least one non-empty cell
// and every non-empty cell parses as a number.
func FromRecords(name string, header []string, records [][]string, opt Options) *Dataset {
	ds := &Dataset{Name: name}
	ncol := len(header)
	if ncol == 0 {
		return ds
	}
	ds.Columns = make([]Column, ncol)
	for i, h := range uniqueHeader(header) {
		ds.Columns[i] = Column{Name: h}
	}
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		records = records[:opt.MaxRows]
	}

	rows := make([][]Value, len(records))
	numeric := make([]bool, ncol)
	seen := make([]bool, ncol)
	for i := range numeric {
		numeric[i] = true
	}
	for r, rec := range records {
		row := make([]Value, ncol)
		for c := 0; c < ncol; c++ {
			raw := ""
			if c < len(rec) {
				raw = strings.TrimSpace(rec[c])
			}
			v := Value{Text: raw}
			if raw == "" {
				v.Missing = true
			} else {
				seen[c] = true
				if numeric[c] {
					if f, ok := parseNumeric(raw, opt); ok {
						v.Num = f
					} else {
						numeric[c] = false
					}
				}
			}
			row[c] = v
		}
		rows[r] = row
	}
	for c := range ds.Columns {
		if numeric[c] && seen[c] {
			ds.Columns[c].Kind = KindNumeric
			continue
		}
		// text column: drop any partial numeric parse
		for r := range rows {
			rows[r][c].Num = 0
		}
	}
	ds.Rows = rows
	return ds
}

// parseNumeric accepts plain, locale-formatted, and percent-suffixed numbers.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
