// caption.go — Caption text rendering with custom TTF support and the
// embedded Go Regular font as fallback.
package cover

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// loadFace returns a face at size points. An empty path uses the embedded
// Go Regular font; a path that cannot be read or parsed is an error.
func loadFace(path string, size float64) (font.Face, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// drawCaption renders text wrapped to the image width minus margins and
// centered both ways.
func drawCaption(img draw.Image, text string, face font.Face, col color.Color) {
	b := img.Bounds()
	margin := b.Dx() / 20
	lines := wrapText(text, b.Dx()-2*margin, face)
	if len(lines) == 0 {
		return
	}

	m := face.Metrics()
	lineHeight := m.Height.Ceil()
	blockHeight := lineHeight * len(lines)
	y := b.Min.Y + (b.Dy()-blockHeight)/2 + m.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
	}
	for _, line := range lines {
		w := d.MeasureString(line).Ceil()
		d.Dot = fixed.P(b.Min.X+(b.Dx()-w)/2, y)
		d.DrawString(line)
		y += lineHeight
	}
}

// wrapText breaks text into lines that each fit within maxWidth pixels.
// A single word wider than maxWidth gets a line of its own.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}
