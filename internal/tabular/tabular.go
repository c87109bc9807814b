// Package tabular reads CSV and XLSX reference tables into normalized, header-keyed rows.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is a header plus data rows. Column names are trimmed and lower-cased.
type Table struct {
	Source  string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New builds a Table from a raw header row and data rows.
func New(source string, header []string, rows [][]string) *Table {
	t := &Table{
		Source:  source,
		Columns: make([]string, len(header)),
		Rows:    rows,
		index:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := NormalizeHeader(h)
		t.Columns[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	return t
}

// NormalizeHeader trims whitespace and a leading UTF-8 BOM and lower-cases the name.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// Col returns the index of the first matching alias, or -1.
func (t *Table) Col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.index[NormalizeHeader(a)]; ok {
			return i
		}
	}
	return -1
}

// Value returns the trimmed cell at idx, or "" for missing columns and short rows.
func Value(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Read loads a table, choosing the format by file extension.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(path, f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("tabular: unsupported table format %q", filepath.Ext(path))
	}
}

// ReadCSV parses CSV content whose first row is the header.
func ReadCSV(source string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Errorf("tabular: %s is empty", source)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: read header of %s", source)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: read row of %s", source)
		}
		if blank(record) {
			continue
		}
		rows = append(rows, record)
	}
	return New(source, header, rows), nil
}

// ReadXLSX parses the first sheet of an XLSX workbook whose first row is the header.
func ReadXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("tabular: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("tabular: %s is empty", path)
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	return New(path, header, rows), nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
