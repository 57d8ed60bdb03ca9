// color.go — Color parsing for cover backgrounds.
package cover

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"lukechampine.com/frand"
)

// ParseColor parses a color string. Accepts "#rrggbb", "random", or "".
// Empty string is treated as "random".
func ParseColor(s string) (color.NRGBA, error) {
	if s == "" || s == "random" {
		var buf [3]byte
		frand.Read(buf[:])
		return color.NRGBA{buf[0], buf[1], buf[2], 255}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: expected 6-char hex", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, nil
}

// captionColor picks black or white, whichever contrasts with bg.
func captionColor(bg color.NRGBA) color.NRGBA {
	// ITU-R BT.601 luma
	luma := (299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)) / 1000
	if luma > 140 {
		return color.NRGBA{0, 0, 0, 255}
	}
	return color.NRGBA{255, 255, 255, 255}
}
