package plots

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Palette is an ordered list of colors indexed by class.
type Palette []color.Color

// Tab10 is the ten-color categorical palette used for class plots.
var Tab10 = Palette{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, // blue
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}, // orange
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}, // green
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}, // red
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}, // purple
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff}, // brown
	color.RGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff}, // pink
	color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}, // gray
	color.RGBA{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff}, // yellow-green
	color.RGBA{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff}, // cyan
}

// Validate reports ErrPalette if p cannot color the given number of classes.
func (p Palette) Validate(classes int) error {
	if len(p) < classes {
		return fmt.Errorf("%w: %d colors for %d classes", ErrPalette, len(p), classes)
	}
	return nil
}

// ParsePalette parses "#rrggbb" strings.
func ParsePalette(hex []string) (Palette, error) {
	p := make(Palette, len(hex))
	for i, h := range hex {
		s := strings.TrimPrefix(strings.TrimSpace(h), "#")
		if len(s) != 6 {
			return nil, fmt.Errorf("palette entry %d: %q is not #rrggbb", i, h)
		}
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		p[i] = color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	}
	return p, nil
}
