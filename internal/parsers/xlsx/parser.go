package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tene/catalog-import/internal/types"
	"github.com/xuri/excelize/v2"
)

// Options configures the XLSX reader
type Options struct {
	// Sheet selects a worksheet by name; the first sheet is used when empty
	Sheet string
}

// Result holds the parsed header and data rows of a worksheet
type Result struct {
	Sheet   string
	Headers []string
	Records []types.Record
	// Lines holds the 1-based worksheet row each record came from
	Lines []int
}

// Parse reads a workbook and returns the selected sheet as header-keyed records.
// The first row is the header.
func Parse(content []byte, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheet, err := selectSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheet, err)
	}

	result := &Result{Sheet: sheet}
	if len(rows) == 0 {
		return result, nil
	}

	result.Headers = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		result.Headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		if len(rows[i]) > len(result.Headers) {
			log.Warn().Str("sheet", sheet).Int("row", i+1).Msg("Row has more cells than header, extra cells ignored")
		}
		result.Records = append(result.Records, types.NewRecord(result.Headers, rows[i]))
		result.Lines = append(result.Lines, i+1)
	}

	return result, nil
}

func selectSheet(f *excelize.File, name string) (string, error) {
	sheetList := f.GetSheetList()
	if len(sheetList) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if name == "" {
		return sheetList[0], nil
	}
	for _, s := range sheetList {
		if s == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found. Available sheets: %s", name, strings.Join(sheetList, ", "))
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
