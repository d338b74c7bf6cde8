// Package legacy reads the categories and products exports of the old shop.
package legacy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tene/catalog-import/internal/parsers/charset"
	"github.com/tene/catalog-import/internal/parsers/csv"
	"github.com/tene/catalog-import/internal/parsers/xlsx"
	"github.com/tene/catalog-import/internal/types"
)

// Options controls how export files are decoded
type Options struct {
	Encoding  charset.Encoding
	Delimiter csv.Delimiter
	Sheet     string
}

// Table is a parsed export file
type Table struct {
	Path    string
	Headers []string
	Records []types.Record
	Lines   []int
}

// HasColumn reports whether the export has the given (lower-case) column
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// ReadFile parses a .csv or .xlsx export. Any other extension is read as CSV.
func ReadFile(path string, opts Options) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		res, err := xlsx.Parse(content, xlsx.Options{Sheet: opts.Sheet})
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &Table{Path: path, Headers: res.Headers, Records: res.Records, Lines: res.Lines}, nil
	default:
		res, err := csv.Parse(content, csv.Options{Delimiter: opts.Delimiter, Encoding: opts.Encoding})
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &Table{Path: path, Headers: res.Headers, Records: res.Records, Lines: res.Lines}, nil
	}
}

func (t *Table) requireColumns(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns: %s", t.Path, strings.Join(missing, ", "))
	}
	return nil
}
