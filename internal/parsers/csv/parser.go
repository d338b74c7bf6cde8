package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tene/catalog-import/internal/parsers/charset"
	"github.com/tene/catalog-import/internal/types"
)

// Options configures the CSV reader
type Options struct {
	// Delimiter is detected from the content when empty
	Delimiter Delimiter
	Encoding  charset.Encoding
}

// Result holds the parsed header and data rows of a CSV export
type Result struct {
	Headers []string
	Records []types.Record
	// Lines holds the 1-based line number each record started on
	Lines []int
}

// Parse decodes content and splits it into header-keyed records.
// Headers are trimmed and lower-cased; short rows yield "" for the missing columns.
func Parse(content []byte, opts Options) (*Result, error) {
	decoded, err := charset.Decode(content, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	delim := opts.Delimiter
	if delim == "" {
		delim = DetectDelimiter(decoded)
	}

	r := stdcsv.NewReader(strings.NewReader(decoded))
	r.Comma = rune(delim[0])
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	result := &Result{Headers: normalizeHeaders(header)}

	for {
		raw, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if isEmptyRow(raw) {
			continue
		}

		line, _ := r.FieldPos(0)
		if len(raw) > len(result.Headers) {
			log.Warn().Int("line", line).Int("fields", len(raw)).Int("headers", len(result.Headers)).Msg("Row has more fields than header, extra fields ignored")
		}

		result.Records = append(result.Records, types.NewRecord(result.Headers, raw))
		result.Lines = append(result.Lines, line)
	}

	return result, nil
}

func normalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
