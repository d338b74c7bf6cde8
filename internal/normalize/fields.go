package normalize

import (
	"errors"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnresolvableID is returned when neither the product code nor the legacy id yields an id
var ErrUnresolvableID = errors.New("unresolvable product id")

var (
	nonDigitRegexp  = regexp.MustCompile(`[^0-9]`)
	periodRunRegexp = regexp.MustCompile(`\.{2,}`)
)

// ParseProductID extracts the numeric part of a product code ("ALT-117371" → 117371).
// When the code has no digits or its number does not fit in int32 the legacy id is used.
func ParseProductID(code, fallbackID string) (int32, error) {
	if digits := nonDigitRegexp.ReplaceAllString(code, ""); digits != "" {
		if v, err := strconv.ParseInt(digits, 10, 32); err == nil {
			return int32(v), nil
		}
	}

	fallback := strings.TrimSpace(fallbackID)
	if fallback == "" {
		return 0, ErrUnresolvableID
	}
	v, err := strconv.ParseInt(fallback, 10, 32)
	if err != nil {
		return 0, ErrUnresolvableID
	}
	return int32(v), nil
}

// ParseWarranty turns guarantee_amount/guarantee_type into "2 years", "1 month", ...
func ParseWarranty(amount, guaranteeType string) *string {
	amount = strings.TrimSpace(amount)
	guaranteeType = strings.TrimSpace(guaranteeType)
	if amount == "" || amount == "0" || guaranteeType == "0" {
		return nil
	}

	unit := "month"
	if guaranteeType == "1" {
		unit = "year"
	}
	if amount != "1" {
		unit += "s"
	}

	w := amount + " " + unit
	return &w
}

// RepairPrice parses a legacy price, fixing runs of periods ("289..99").
// Unparseable input yields 0.
func RepairPrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if v, ok := parseFinite(raw); ok {
		return v
	}
	if v, ok := parseFinite(periodRunRegexp.ReplaceAllString(raw, ".")); ok {
		return v
	}
	return 0
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDecimal parses an optional decimal column. ok is false when a non-empty value could not be parsed.
func ParseDecimal(raw string) (v float64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	return parseFinite(raw)
}

// ParseQuantity parses a stock column, truncating decimals ("5.0" → 5).
func ParseQuantity(raw string) (int32, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return int32(v), true
	}
	f, ok := parseFinite(raw)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int32(f), true
}

// ParseBrandID returns nil for "" and "0"
func ParseBrandID(raw string) (*int32, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return nil, false
	}
	id := int32(v)
	return &id, true
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// DefaultContentType is used for unknown or missing extensions
const DefaultContentType = "image/jpeg"

// ContentTypeFor derives an image content type from a file name
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return DefaultContentType
}
