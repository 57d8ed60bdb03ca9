// Package imageio converts image files to and from the pixel buffers the codec
// works on.
//
// Any format the decoders understand can be read. Output is restricted to
// lossless formats because a watermark survives only in an exact pixel copy.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxFileSize is the default input size limit.
const DefaultMaxFileSize int64 = 5 << 20

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrLossyFormat       = errors.New("lossy output format would destroy the watermark")
	ErrAlphaUnsupported  = errors.New("output format cannot store transparency")
)

// Load reads and decodes the image at path. A maxSize of zero or less means
// DefaultMaxFileSize.
func Load(path string, maxSize int64) (*image.NRGBA, string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if fi.Size() > maxSize {
		return nil, "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, fi.Size(), maxSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := Decode(f, maxSize)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// Decode decodes an image from r into a pixel buffer image, reading at most
// maxSize bytes.
func Decode(r io.Reader, maxSize int64) (*image.NRGBA, string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	lr := &io.LimitedReader{R: r, N: maxSize + 1}
	br := bufio.NewReader(lr)
	src, format, err := image.Decode(br)
	if err != nil {
		if lr.N <= 0 {
			return nil, "", fmt.Errorf("%w: limit %d", ErrFileTooLarge, maxSize)
		}
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("decode %s: %w", format, err)
	}
	return ToNRGBA(src), format, nil
}

// ToNRGBA returns img as a zero-origin, tightly packed, non-premultiplied
// image, so that Pix[4*i] is the red sample of pixel i. An image that is
// already in that form is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) &&
		n.Stride == 4*b.Dx() && len(n.Pix) == 4*b.Dx()*b.Dy() {
		return n
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Save encodes img to path; the format is chosen by extension.
func Save(path string, img image.Image) error {
	ext := filepath.Ext(path)
	if err := checkOutputExt(ext); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := Encode(f, ext, img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Encode writes img to w in the format named by ext:
//   - ".png"          → PNG
//   - ".bmp"          → BMP, opaque images only
//   - ".tif", ".tiff" → TIFF, Deflate compressed
func Encode(w io.Writer, ext string, img image.Image) error {
	if err := checkOutputExt(ext); err != nil {
		return err
	}

	var err error
	switch strings.ToLower(ext) {
	case ".png":
		err = png.Encode(w, img)
	case ".bmp":
		if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
			return fmt.Errorf("%w: %s flattens alpha, use .png or .tiff", ErrAlphaUnsupported, ext)
		}
		err = bmp.Encode(w, img)
	case ".tif", ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", ext, err)
	}
	return nil
}

// IsLossless reports whether ext names an output format Encode supports.
func IsLossless(ext string) bool {
	return checkOutputExt(ext) == nil
}

func checkOutputExt(ext string) error {
	switch strings.ToLower(ext) {
	case ".png", ".bmp", ".tif", ".tiff":
		return nil
	case ".jpg", ".jpeg", ".webp", ".gif":
		return fmt.Errorf("%w: %s", ErrLossyFormat, ext)
	default:
		return fmt.Errorf("%w: %q, use .png, .bmp or .tiff", ErrUnsupportedFormat, ext)
	}
}
