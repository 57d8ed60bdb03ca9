// Package cover generates cover images to carry watermarks.
//
// A cover is a solid or jittered background with an optional caption. The
// result is always an *image.NRGBA whose Pix can be handed to the codec
// directly.
package cover

import (
	"image"
	"image/draw"
	"math"

	"lukechampine.com/frand"

	"github.com/xob0t/GoStego/pkg/codec"
)

// Config holds parameters for cover generation.
type Config struct {
	Width    int     // Pixel width (default: 1280)
	Height   int     // Pixel height (default: 720)
	Color    string  // Hex "#rrggbb" or "random"
	Noise    int     // Max per-sample jitter, 0-127; 0 = solid
	Caption  string  // Optional centered text
	FontPath string  // Optional TTF; empty = embedded Go Regular
	FontSize float64 // Caption size in points (default: 24)
}

// New renders a cover image from cfg.
func New(cfg Config) (*image.NRGBA, error) {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 720
	}

	bg, err := ParseColor(cfg.Color)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	if n := min(max(cfg.Noise, 0), 127); n > 0 {
		addNoise(img.Pix, n)
	}

	if cfg.Caption != "" {
		size := cfg.FontSize
		if size <= 0 {
			size = 24
		}
		face, err := loadFace(cfg.FontPath, size)
		if err != nil {
			return nil, err
		}
		defer face.Close()
		drawCaption(img, cfg.Caption, face, captionColor(bg))
	}

	return img, nil
}

// SizeFor returns the side of the smallest square cover that holds a plain
// message of n characters.
func SizeFor(n int) int {
	return int(math.Ceil(math.Sqrt(float64(codec.RequiredBits(n)))))
}

// addNoise shifts each color sample by a random amount in [-n, n], leaving
// alpha alone.
func addNoise(pix []byte, n int) {
	span := uint64(2*n + 1)
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := int(pix[i+c]) + int(frand.Uint64n(span)) - n
			pix[i+c] = uint8(min(max(v, 0), 255))
		}
	}
}
