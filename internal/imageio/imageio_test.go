package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func opaqueImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestDecodeRoundTrip(t *testing.T) {
	d := NewDecoder(0, zerolog.Nop())
	src := opaqueImage(20, 10)

	img, format, err := d.Decode(pngBytes(t, src))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	d := NewDecoder(0, zerolog.Nop())
	_, _, err := d.Decode([]byte("not an image"))
	assert.Error(t, err)
}

func TestDecodeAllocationLimit(t *testing.T) {
	// 20x10 RGBA needs 800 bytes
	d := NewDecoder(799, zerolog.Nop())
	_, _, err := d.Decode(pngBytes(t, opaqueImage(20, 10)))

	var tooLarge *ErrTooLarge
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 20, tooLarge.Width)

	d = NewDecoder(800, zerolog.Nop())
	_, _, err = d.Decode(pngBytes(t, opaqueImage(20, 10)))
	assert.NoError(t, err)
}

func TestHasAlpha(t *testing.T) {
	assert.False(t, HasAlpha(opaqueImage(4, 4)))

	translucent := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	translucent.Set(2, 2, color.NRGBA{R: 1, A: 128})
	assert.True(t, HasAlpha(translucent))
}

func TestEncodeForStoragePolicies(t *testing.T) {
	small := opaqueImage(10, 10)

	_, format, err := EncodeForStorage(small, FormatOptimal)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format, "small opaque images stay png")

	translucent := image.NewNRGBA(image.Rect(0, 0, 400, 400))
	_, format, err = EncodeForStorage(translucent, FormatOptimal)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format, "alpha forces png")

	big := opaqueImage(400, 400)
	_, format, err = EncodeForStorage(big, FormatOptimal)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format, "large opaque images become jpeg")

	_, format, err = EncodeForStorage(big, FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format, "explicit policy wins")

	_, _, err = EncodeForStorage(big, "bmp")
	assert.Error(t, err)
}
