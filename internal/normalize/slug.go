// Package normalize holds the pure value transformations applied to legacy
// export fields before they are written to the destination.
package normalize

import (
	"regexp"
	"strings"
)

// UnnamedSlug is returned when nothing survives slug normalization
const UnnamedSlug = "unnamed"

var (
	// Letters and digits of any script survive, like a Unicode-aware \w.
	// RE2 \s is ASCII-only and lacks \v, so the other Unicode whitespace
	// controls are listed explicitly.
	slugStripRegexp  = regexp.MustCompile(`[^\p{L}\p{N}_\s\v\x1c-\x1f\x{85}\p{Z}-]`)
	slugSpaceRegexp  = regexp.MustCompile(`[\s\v\x1c-\x1f\x{85}\p{Z}_]+`)
	slugHyphenRegexp = regexp.MustCompile(`-+`)
)

// Slugify creates a URL slug from a category title.
//
// Examples:
//   - "Hello   World!" → "hello-world"
//   - "ტელეფონები & Tablets" → "ტელეფონები-tablets"
//   - "!!!" → "unnamed"
func Slugify(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = slugStripRegexp.ReplaceAllString(slug, "")
	slug = slugSpaceRegexp.ReplaceAllString(slug, "-")
	slug = slugHyphenRegexp.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return UnnamedSlug
	}
	return slug
}
