package normalize

import (
	"strconv"
	"strings"
)

// NamedColor is an entry of the palette used to name product image colors
type NamedColor struct {
	Name    string
	R, G, B int
}

// Palette is scanned in declaration order; on equal distance the earlier entry wins.
var Palette = []NamedColor{
	{"black", 0, 0, 0},
	{"white", 255, 255, 255},
	{"red", 255, 0, 0},
	{"green", 0, 128, 0},
	{"blue", 0, 0, 255},
	{"yellow", 255, 255, 0},
	{"orange", 255, 165, 0},
	{"purple", 128, 0, 128},
	{"pink", 255, 192, 203},
	{"brown", 139, 69, 19},
	{"gray", 128, 128, 128},
	{"navy", 0, 0, 128},
	{"teal", 0, 128, 128},
	{"maroon", 128, 0, 0},
	{"olive", 128, 128, 0},
	{"cyan", 0, 255, 255},
	{"magenta", 255, 0, 255},
	{"lime", 0, 255, 0},
	{"gold", 255, 215, 0},
	{"silver", 192, 192, 192},
	{"beige", 245, 245, 220},
	{"coral", 255, 127, 80},
	{"turquoise", 64, 224, 208},
}

// NearestNamedColor maps a hex code ("#1a2b3c" or "1a2b3c") to the closest
// palette name by Euclidean RGB distance. Returns nil for anything that is not
// exactly six hex digits.
func NearestNamedColor(hex string) *string {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return nil
	}

	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil
		}
		rgb[i] = int(v)
	}

	best := -1
	bestDist := -1
	for i, c := range Palette {
		dr, dg, db := rgb[0]-c.R, rgb[1]-c.G, rgb[2]-c.B
		// squared distance orders the same as the Euclidean one
		dist := dr*dr + dg*dg + db*db
		if best == -1 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}

	name := Palette[best].Name
	return &name
}
