// Package imageio decodes reference images from the formats users throw
// at a board and re-encodes them for storage.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rs/zerolog"
)

// Storage format policies for re-encoding images into board files.
const (
	FormatOptimal = "optimal"
	FormatPNG     = "png"
	FormatJPEG    = "jpeg"
)

// jpegQuality is the quality used when storing as JPEG.
const jpegQuality = 90

// smallImageArea is the pixel count under which the optimal policy keeps
// PNG even for opaque images; the JPEG size win is negligible there.
const smallImageArea = 100_000

// ErrTooLarge is returned when a decoded image would exceed the
// configured allocation limit.
type ErrTooLarge struct {
	Width, Height int
	Limit         int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("image %dx%d exceeds allocation limit of %d bytes", e.Width, e.Height, e.Limit)
}

// Decoder decodes image bytes subject to an allocation limit. A
// non-positive limit disables the check.
type Decoder struct {
	limit int64
	log   zerolog.Logger
}

// NewDecoder creates a decoder with the given allocation limit in bytes.
func NewDecoder(limit int64, log zerolog.Logger) *Decoder {
	return &Decoder{limit: limit, log: log}
}

// Decode parses image bytes and returns the pixels and the detected
// format name. Dimensions are checked against the allocation limit
// before pixel data is decoded.
func (d *Decoder) Decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}
	if d.limit > 0 {
		need := int64(cfg.Width) * int64(cfg.Height) * 4
		if need > d.limit {
			return nil, format, &ErrTooLarge{Width: cfg.Width, Height: cfg.Height, Limit: d.limit}
		}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	d.log.Debug().
		Str("format", format).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("decoded image")
	return img, format, nil
}

// HasAlpha reports whether the image contains any non-opaque pixel.
func HasAlpha(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// EncodeForStorage re-encodes pixels per the storage format policy and
// returns the bytes plus the format actually used. The optimal policy
// keeps PNG for images with transparency or small area and uses JPEG
// otherwise.
func EncodeForStorage(img image.Image, policy string) ([]byte, string, error) {
	format := policy
	if policy == FormatOptimal || policy == "" {
		b := img.Bounds()
		if HasAlpha(img) || b.Dx()*b.Dy() < smallImageArea {
			format = FormatPNG
		} else {
			format = FormatJPEG
		}
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("unknown storage format %q", policy)
	}
	return buf.Bytes(), format, nil
}
