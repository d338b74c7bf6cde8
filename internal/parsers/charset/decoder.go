package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingAuto        Encoding = "auto"
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingWindows1251 Encoding = "windows-1251"
	EncodingISO88592    Encoding = "iso-8859-2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding maps a config value to an Encoding
func ParseEncoding(s string) (Encoding, error) {
	switch enc := Encoding(strings.ToLower(strings.TrimSpace(s))); enc {
	case "", EncodingAuto:
		return EncodingAuto, nil
	case "utf8":
		return EncodingUTF8, nil
	case EncodingUTF8, EncodingWindows1250, EncodingWindows1251, EncodingISO88592:
		return enc, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", s)
	}
}

// DetectEncoding detects the encoding of a byte buffer.
// Anything that is valid UTF-8 (with or without BOM) is UTF-8; the rest is assumed windows-1250.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1250
}

// Decode converts data in the given encoding to a UTF-8 string with any BOM removed.
// Valid UTF-8 input is returned as-is whatever encoding was requested, so a
// misconfigured encoding never double-decodes.
func Decode(data []byte, enc Encoding) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if enc == EncodingAuto || enc == "" {
		enc = DetectEncoding(data)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	var decoder encoding.Encoding
	switch enc {
	case EncodingUTF8:
		return "", fmt.Errorf("input is not valid UTF-8")
	case EncodingWindows1250:
		decoder = charmap.Windows1250
	case EncodingWindows1251:
		decoder = charmap.Windows1251
	case EncodingISO88592:
		decoder = charmap.ISO8859_2
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}

	out, err := decoder.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", enc, err)
	}
	return string(out), nil
}
