package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"  Phones & Tablets  ", "phones-tablets"},
		{"snake_case_title", "snake-case-title"},
		{"a -- b", "a-b"},
		{"-leading and trailing-", "leading-and-trailing"},
		{"ტელეფონები & Tablets", "ტელეფონები-tablets"},
		{"Ünïcödé 2024", "ünïcödé-2024"},
		{"a\vb", "a-b"},
		{"a\x1cb", "a-b"},
		{"a\x1fb", "a-b"},
		{"a\u0085b", "a-b"},
		{"a\u2028b", "a-b"},
		{"!!!", UnnamedSlug},
		{"", UnnamedSlug},
		{"   ", UnnamedSlug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugifyProperties(t *testing.T) {
	inputs := []string{
		"Hello World", "__a__b__", "x - - y", "Mixed_Case Title!", "ნოუთბუქები და აქსესუარები",
		"--", "tab\tseparated\nlines", "€ 100 off", "a b", "",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := Slugify(in)
			assert.Equal(t, once, Slugify(once), "idempotent")
			assert.NotEmpty(t, once)
			assert.NotContains(t, once, "--")
			assert.False(t, strings.HasPrefix(once, "-"))
			assert.False(t, strings.HasSuffix(once, "-"))
		})
	}
}

func TestNearestNamedColor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *string
	}{
		{"black", "#000000", strPtr("black")},
		{"white", "#FFFFFF", strPtr("white")},
		{"no hash", "ff0000", strPtr("red")},
		{"near navy", "#000080", strPtr("navy")},
		{"near gold", "#FFD700", strPtr("gold")},
		{"dark red", "#8B0000", strPtr("maroon")},
		{"non hex", "zzzzzz", nil},
		{"wrong length", "#12345", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NearestNamedColor(tt.input))
		})
	}
}

func TestNearestNamedColorTieBreak(t *testing.T) {
	// #008040 is equidistant from green (0,128,0) and teal (0,128,128); green is declared first.
	got := NearestNamedColor("#008040")
	require.NotNil(t, got)
	assert.Equal(t, "green", *got)
}

func TestParseProductID(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		fallback string
		expected int32
		wantErr  bool
	}{
		{"prefixed code", "ALT-117371", "5", 117371, false},
		{"empty code", "", "5", 5, false},
		{"nothing", "", "", 0, true},
		{"too large", "SKU-99999999999", "42", 42, false},
		{"int32 max", "2147483647", "1", 2147483647, false},
		{"just above int32 max", "2147483648", "7", 7, false},
		{"fallback with spaces", "no digits", " 12 ", 12, false},
		{"bad fallback", "", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProductID(tt.code, tt.fallback)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnresolvableID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseWarranty(t *testing.T) {
	tests := []struct {
		amount, gtype string
		expected      *string
	}{
		{"0", "1", nil},
		{"2", "1", strPtr("2 years")},
		{"1", "2", strPtr("1 month")},
		{"1", "1", strPtr("1 year")},
		{"6", "2", strPtr("6 months")},
		{"", "1", nil},
		{"3", "0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"/"+tt.gtype, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseWarranty(tt.amount, tt.gtype))
		})
	}
}

func TestRepairPrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"289..99", 289.99},
		{"289...99", 289.99},
		{"100", 100},
		{" 12.5 ", 12.5},
		{"", 0},
		{"not-a-number", 0},
		{"NaN", 0},
		{"1.2.3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.InDelta(t, tt.expected, RepairPrice(tt.input), 1e-9)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	v, ok := ParseQuantity("5.0")
	assert.True(t, ok)
	assert.Equal(t, int32(5), v)

	v, ok = ParseQuantity("")
	assert.True(t, ok)
	assert.Equal(t, int32(0), v)

	_, ok = ParseQuantity("many")
	assert.False(t, ok)
}

func TestParseBrandID(t *testing.T) {
	id, ok := ParseBrandID("0")
	assert.True(t, ok)
	assert.Nil(t, id)

	id, ok = ParseBrandID("17")
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, int32(17), *id)

	_, ok = ParseBrandID("x")
	assert.False(t, ok)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", ContentTypeFor("a.PNG"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("photo.jpeg"))
	assert.Equal(t, "image/webp", ContentTypeFor("x.y.webp"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("noext"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("a.gif"))
}

func strPtr(s string) *string { return &s }
