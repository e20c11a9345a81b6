package item

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"

	"refboard/pkg/geometry"
)

// Image is a canvas item displaying an embedded raster image. The encoded
// bytes are treated as immutable once loaded; cropping only changes which
// sub-region of the natural pixel bounds is displayed and exported.
type Image struct {
	Base

	data     []byte
	img      image.Image
	filename string
	natural  geometry.Rect
	hasAlpha bool

	crop     geometry.Rect
	cropping bool
	cropTemp geometry.Rect
}

type imagePayload struct {
	Filename string         `json:"filename,omitempty"`
	Crop     *geometry.Rect `json:"crop,omitempty"`
}

// NewImage creates an image item from already-decoded content. The encoded
// bytes are what the persistence layer will store verbatim.
func NewImage(encoded []byte, img image.Image, filename string, hasAlpha bool) *Image {
	it := &Image{Base: NewBase(), filename: filename}
	it.bind(it)
	it.SetImageData(encoded, img, hasAlpha)
	return it
}

// NewImageFromRecord reconstitutes an image item from a persisted row.
// Pixel data is attached separately via SetImageData once the blob is read.
func NewImageFromRecord(rec Record) (*Image, error) {
	if rec.Type != TypeImage {
		return nil, fmt.Errorf("record type %q is not an image", rec.Type)
	}
	it := &Image{Base: NewBase()}
	it.bind(it)
	it.saveID = rec.ID
	it.setTransform(geometry.NewPoint2D(rec.X, rec.Y), rec.Scale, rec.Rotation, rec.Flip, rec.Z)

	var payload imagePayload
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
	}
	it.filename = payload.Filename
	if payload.Crop != nil {
		it.crop = *payload.Crop
	}
	return it, nil
}

// SetImageData attaches the encoded bytes and decoded pixels. The crop
// rectangle is clamped into the natural pixel bounds; an unset crop
// defaults to the full image.
func (it *Image) SetImageData(encoded []byte, img image.Image, hasAlpha bool) {
	it.geometryWillChange()
	it.data = encoded
	it.img = img
	it.hasAlpha = hasAlpha
	if img != nil {
		b := img.Bounds()
		it.natural = geometry.NewRect(0, 0, float64(b.Dx()), float64(b.Dy()))
	} else {
		it.natural = geometry.Rect{}
	}
	if it.crop.IsEmpty() {
		it.crop = it.natural
	} else {
		it.crop = it.crop.Intersection(it.natural)
		if it.crop.IsEmpty() {
			it.crop = it.natural
		}
	}
}

// EncodedBytes returns the stored encoded image bytes.
func (it *Image) EncodedBytes() []byte { return it.data }

// Pixels returns the decoded image, or nil when not loaded.
func (it *Image) Pixels() image.Image { return it.img }

// Filename returns the original source filename, if any.
func (it *Image) Filename() string { return it.filename }

// HasAlpha reports whether the decoded image carries transparency.
func (it *Image) HasAlpha() bool { return it.hasAlpha }

// NaturalRect returns the full, uncropped pixel bounds.
func (it *Image) NaturalRect() geometry.Rect { return it.natural }

// Crop returns the active crop rectangle.
func (it *Image) Crop() geometry.Rect { return it.crop }

// SetCrop sets the crop rectangle, clamped into the natural bounds.
// An empty result is ignored and the previous crop kept.
func (it *Image) SetCrop(r geometry.Rect) {
	clamped := r.Intersection(it.natural)
	if it.natural.IsEmpty() {
		clamped = r
	}
	if clamped.IsEmpty() {
		return
	}
	it.geometryWillChange()
	it.crop = clamped
}

// BoundingRect returns the post-crop content rectangle in local
// coordinates. While crop mode is active the full natural bounds are
// exposed so the temporary crop can be drawn and hit anywhere.
func (it *Image) BoundingRect() geometry.Rect {
	if it.cropping {
		return it.natural
	}
	if it.crop.IsEmpty() {
		return it.natural
	}
	return it.crop
}

// Cropping reports whether the item is in interactive crop mode.
func (it *Image) Cropping() bool { return it.cropping }

// BeginCrop enters crop mode, seeding the temporary rectangle from the
// active crop.
func (it *Image) BeginCrop() {
	it.geometryWillChange()
	it.cropping = true
	it.cropTemp = it.BoundingRectUncropped()
	if !it.crop.IsEmpty() {
		it.cropTemp = it.crop
	}
}

// BoundingRectUncropped returns the natural bounds regardless of mode.
func (it *Image) BoundingRectUncropped() geometry.Rect { return it.natural }

// CropTemp returns the in-progress crop rectangle.
func (it *Image) CropTemp() geometry.Rect { return it.cropTemp }

// SetCropTemp stores the in-progress crop rectangle, clamped to the
// natural bounds.
func (it *Image) SetCropTemp(r geometry.Rect) {
	clamped := r.Intersection(it.natural)
	if clamped.IsEmpty() {
		return
	}
	it.cropTemp = clamped
}

// CommitCrop leaves crop mode applying the temporary rectangle. It returns
// the previous and the new crop and whether they differ.
func (it *Image) CommitCrop() (old, applied geometry.Rect, changed bool) {
	old = it.crop
	it.geometryWillChange()
	it.cropping = false
	it.SetCrop(it.cropTemp)
	return old, it.crop, it.crop != old
}

// CancelCrop leaves crop mode discarding the temporary rectangle.
func (it *Image) CancelCrop() {
	it.geometryWillChange()
	it.cropping = false
	it.cropTemp = geometry.Rect{}
}

// SampleColorAt returns the pixel color at an item-local point, or false
// when the point is outside the image or no pixels are loaded.
func (it *Image) SampleColorAt(p geometry.Point2D) (color.Color, bool) {
	if it.img == nil || !it.natural.Contains(p) {
		return nil, false
	}
	b := it.img.Bounds()
	return it.img.At(b.Min.X+int(p.X), b.Min.Y+int(p.Y)), true
}

// Type returns the persisted type discriminator.
func (it *Image) Type() string { return TypeImage }

// ToRecord serializes transform state and the type-specific payload.
func (it *Image) ToRecord() (Record, error) {
	payload := imagePayload{Filename: it.filename}
	if !it.crop.IsEmpty() && it.crop != it.natural {
		c := it.crop
		payload.Crop = &c
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("encode image payload: %w", err)
	}
	return it.baseRecord(TypeImage, data), nil
}

// Copy returns a duplicate with a fresh id and no save id. Pixel data is
// shared; encoded bytes are immutable so sharing is safe.
func (it *Image) Copy() Item {
	dup := &Image{
		Base:     it.copyBase(),
		data:     it.data,
		img:      it.img,
		filename: it.filename,
		natural:  it.natural,
		hasAlpha: it.hasAlpha,
		crop:     it.crop,
	}
	dup.bind(dup)
	return dup
}
