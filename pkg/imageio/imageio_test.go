package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/GoStego/pkg/watermark"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 7), uint8(y * 5), uint8(x ^ y), 255})
		}
	}
	return img
}

func TestToNRGBA_PassThrough(t *testing.T) {
	img := testImage(8, 8)
	assert.Same(t, img, ToNRGBA(img))
}

func TestToNRGBA_SubImage(t *testing.T) {
	img := testImage(8, 8)
	sub := img.SubImage(image.Rect(2, 3, 6, 7))

	got := ToNRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 4, 4), got.Bounds())
	assert.Len(t, got.Pix, 4*4*4)
	assert.Equal(t, img.NRGBAAt(2, 3), got.NRGBAAt(0, 0))
	assert.Equal(t, img.NRGBAAt(5, 6), got.NRGBAAt(3, 3))

	top := img.SubImage(image.Rect(0, 0, 8, 4))
	assert.Len(t, ToNRGBA(top).Pix, 8*4*4)
}

func TestToNRGBA_Converts(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{10, 20, 30, 255})
	got := ToNRGBA(src)
	assert.Equal(t, []byte{10, 20, 30, 255}, got.Pix[:4])
}

func TestLosslessRoundTrip(t *testing.T) {
	for _, ext := range []string{".png", ".bmp", ".tiff"} {
		t.Run(ext, func(t *testing.T) {
			img := testImage(64, 64)
			_, err := watermark.Embed(img.Pix, "survives "+ext, "pw")
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "out"+ext)
			require.NoError(t, Save(path, img))

			loaded, _, err := Load(path, 0)
			require.NoError(t, err)
			assert.Equal(t, img.Pix, loaded.Pix)

			res, err := watermark.Extract(loaded.Pix, "pw")
			require.NoError(t, err)
			assert.Equal(t, "survives "+ext, res.Message)
		})
	}
}

func TestLosslessRoundTrip_Transparent(t *testing.T) {
	img := testImage(64, 64)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = byte(i / 4)
	}
	img.Pix[3], img.Pix[7] = 128, 0
	_, err := watermark.Embed(img.Pix, "see-through", "")
	require.NoError(t, err)

	dir := t.TempDir()
	for _, ext := range []string{".png", ".tiff"} {
		path := filepath.Join(dir, "out"+ext)
		require.NoError(t, Save(path, img))
		loaded, _, err := Load(path, 0)
		require.NoError(t, err)
		assert.Equal(t, img.Pix, loaded.Pix, ext)
	}

	path := filepath.Join(dir, "out.bmp")
	require.ErrorIs(t, Save(path, img), ErrAlphaUnsupported)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed save should leave no file")
}

func TestSave_RejectsLossy(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".jpg", ".JPEG", ".webp", ".gif"} {
		path := filepath.Join(dir, "out"+ext)
		err := Save(path, testImage(4, 4))
		require.ErrorIs(t, err, ErrLossyFormat)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "no file should be created for %s", ext)
	}

	err := Save(filepath.Join(dir, "out.xyz"), testImage(4, 4))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	assert.True(t, IsLossless(".PNG"))
	assert.False(t, IsLossless(".jpg"))
}

func TestDecode_Formats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(16, 16), nil))

	img, format, err := Decode(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())

	_, _, err = Decode(bytes.NewReader([]byte("definitely not an image")), 0)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_SizeLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, ".bmp", testImage(64, 64)))

	_, _, err := Decode(bytes.NewReader(buf.Bytes()), 1024)
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestLoad_SizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	require.NoError(t, Save(path, testImage(32, 32)))

	_, _, err := Load(path, 16)
	require.ErrorIs(t, err, ErrFileTooLarge)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.png"), 0)
	require.Error(t, err)
}
