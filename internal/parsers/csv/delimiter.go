package csv

import (
	"strings"
)

// Delimiter represents supported CSV delimiters
type Delimiter string

const (
	DelimiterComma     Delimiter = ","
	DelimiterSemicolon Delimiter = ";"
	DelimiterTab       Delimiter = "\t"
	DelimiterPipe      Delimiter = "|"
)

// DetectDelimiter picks the delimiter that occurs most consistently across
// the first few non-empty lines. Falls back to comma.
func DetectDelimiter(content string) Delimiter {
	sampleLines := make([]string, 0, 5)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sampleLines = append(sampleLines, trimmed)
			if len(sampleLines) >= 5 {
				break
			}
		}
	}

	if len(sampleLines) == 0 {
		return DelimiterComma
	}

	best := DelimiterComma
	maxConsistency := 0.0

	for _, delim := range []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab, DelimiterPipe} {
		counts := make([]int, 0, len(sampleLines))
		sum := 0
		for _, line := range sampleLines {
			c := strings.Count(line, string(delim))
			counts = append(counts, c)
			sum += c
		}

		avg := float64(sum) / float64(len(counts))
		if avg == 0 {
			continue
		}

		variance := 0.0
		for _, c := range counts {
			diff := float64(c) - avg
			variance += diff * diff
		}
		variance /= float64(len(counts))

		// a delimiter that appears often and evenly wins
		consistency := avg / (1.0 + variance)
		if consistency > maxConsistency {
			maxConsistency = consistency
			best = delim
		}
	}

	return best
}
