package item

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refboard/pkg/geometry"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func newTestImage(t *testing.T, w, h int) *Image {
	t.Helper()
	return NewImage([]byte("encoded"), testImage(w, h), "ref.png", false)
}

func TestSetScaleAnchored(t *testing.T) {
	it := NewText("hello")
	it.SetScale(2, geometry.NewPoint2D(100, 100))

	assert.Equal(t, 2.0, it.Scale())
	assert.Equal(t, geometry.NewPoint2D(-100, -100), it.Position())
}

func TestSetScaleRejectsInvalid(t *testing.T) {
	it := NewText("hello")
	it.SetPosition(geometry.NewPoint2D(5, 5))

	for _, f := range []float64{0, -1, -0.0001} {
		it.SetScale(f, geometry.Point2D{})
		assert.Equal(t, 1.0, it.Scale(), "factor %v", f)
		assert.Equal(t, geometry.NewPoint2D(5, 5), it.Position(), "factor %v", f)
	}
}

func TestSetScaleRoundTrip(t *testing.T) {
	it := NewText("hello")
	it.SetPosition(geometry.NewPoint2D(13, -7))
	anchor := geometry.NewPoint2D(40, 25)

	it.SetScale(3.5, anchor)
	it.SetScale(1, anchor)

	assert.InDelta(t, 13, it.Position().X, 1e-9)
	assert.InDelta(t, -7, it.Position().Y, 1e-9)
	assert.Equal(t, 1.0, it.Scale())
}

func TestSetRotationAnchored(t *testing.T) {
	// un-rotated bottom-right at (100,100), origin at (0,0)
	it := NewText("x")
	it.SetRotation(90, geometry.NewPoint2D(100, 100))

	assert.InDelta(t, 200, it.Position().X, 1e-9)
	assert.InDelta(t, 0, it.Position().Y, 1e-9)
	assert.Equal(t, 90.0, it.Rotation())
}

func TestSetRotationNormalizes(t *testing.T) {
	it := NewText("x")
	anchor := geometry.NewPoint2D(10, 10)

	it.SetRotation(-90, anchor)
	assert.Equal(t, 270.0, it.Rotation())

	other := NewText("x")
	other.SetRotation(270+360, anchor)
	assert.Equal(t, it.Rotation(), other.Rotation())
	assert.InDelta(t, it.Position().X, other.Position().X, 1e-9)
	assert.InDelta(t, it.Position().Y, other.Position().Y, 1e-9)
}

func TestDoFlipInvolution(t *testing.T) {
	for _, vertical := range []bool{false, true} {
		it := NewText("x")
		it.SetPosition(geometry.NewPoint2D(30, 40))
		it.SetRotation(30, Center(it))
		origPos := it.Position()
		origRot := it.Rotation()

		anchor := Center(it)
		it.DoFlip(vertical, anchor)
		it.DoFlip(vertical, anchor)

		assert.Equal(t, 1, it.Flip(), "vertical=%v", vertical)
		assert.InDelta(t, origRot, it.Rotation(), 1e-9, "vertical=%v", vertical)
		assert.InDelta(t, origPos.X, it.Position().X, 1e-9, "vertical=%v", vertical)
		assert.InDelta(t, origPos.Y, it.Position().Y, 1e-9, "vertical=%v", vertical)
	}
}

func TestDoFlipVerticalAddsHalfTurn(t *testing.T) {
	it := NewText("x")
	it.DoFlip(true, Center(it))
	assert.Equal(t, -1, it.Flip())
	assert.Equal(t, 180.0, it.Rotation())
}

func TestDoFlipKeepsAnchorFixed(t *testing.T) {
	it := newTestImage(t, 80, 60)
	it.SetPosition(geometry.NewPoint2D(20, 10))
	it.SetRotation(45, Center(it))

	center := Center(it)
	it.DoFlip(false, center)
	after := Center(it)

	assert.InDelta(t, center.X, after.X, 1e-9)
	assert.InDelta(t, center.Y, after.Y, 1e-9)
}

func TestDoFlipAboutCenterKeepsBoundingRect(t *testing.T) {
	for _, vertical := range []bool{false, true} {
		it := newTestImage(t, 100, 50)
		before := SceneBoundingRect(it)

		it.DoFlip(vertical, Center(it))
		after := SceneBoundingRect(it)

		assert.InDelta(t, before.X, after.X, 1e-9, "vertical=%v", vertical)
		assert.InDelta(t, before.Y, after.Y, 1e-9, "vertical=%v", vertical)
		assert.InDelta(t, before.Width, after.Width, 1e-9, "vertical=%v", vertical)
		assert.InDelta(t, before.Height, after.Height, 1e-9, "vertical=%v", vertical)
	}
}

func TestSetOpacityClamps(t *testing.T) {
	it := NewText("x")
	it.SetOpacity(1.5)
	assert.Equal(t, 1.0, it.Opacity())
	it.SetOpacity(-0.5)
	assert.Equal(t, 0.0, it.Opacity())
	it.SetOpacity(0.42)
	assert.Equal(t, 0.42, it.Opacity())
}

func TestImageCropClamped(t *testing.T) {
	it := newTestImage(t, 100, 50)

	it.SetCrop(geometry.NewRect(-10, -10, 200, 200))
	assert.Equal(t, geometry.NewRect(0, 0, 100, 50), it.Crop())

	it.SetCrop(geometry.NewRect(10, 5, 20, 20))
	assert.Equal(t, geometry.NewRect(10, 5, 20, 20), it.Crop())
	assert.Equal(t, geometry.NewRect(10, 5, 20, 20), it.BoundingRect())

	// fully outside: previous crop kept
	it.SetCrop(geometry.NewRect(500, 500, 10, 10))
	assert.Equal(t, geometry.NewRect(10, 5, 20, 20), it.Crop())
}

func TestImageCropModeLifecycle(t *testing.T) {
	it := newTestImage(t, 100, 50)

	it.BeginCrop()
	assert.True(t, it.Cropping())
	assert.Equal(t, it.NaturalRect(), it.BoundingRect())

	it.SetCropTemp(geometry.NewRect(5, 5, 40, 30))
	old, applied, changed := it.CommitCrop()
	assert.True(t, changed)
	assert.Equal(t, geometry.NewRect(0, 0, 100, 50), old)
	assert.Equal(t, geometry.NewRect(5, 5, 40, 30), applied)
	assert.False(t, it.Cropping())

	it.BeginCrop()
	it.SetCropTemp(geometry.NewRect(0, 0, 100, 50))
	it.CancelCrop()
	assert.Equal(t, geometry.NewRect(5, 5, 40, 30), it.Crop())
}

func TestImageRecordRoundTrip(t *testing.T) {
	it := newTestImage(t, 100, 50)
	it.SetPosition(geometry.NewPoint2D(7, 8))
	it.SetScale(2, it.Position())
	it.SetRotation(90, it.Position())
	it.DoFlip(false, it.Position())
	it.SetZ(3.5)
	it.SetCrop(geometry.NewRect(10, 10, 30, 20))
	it.SetSaveID(12)

	rec, err := it.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, int64(12), rec.ID)
	assert.Equal(t, TypeImage, rec.Type)

	loaded, err := FromRecord(rec)
	require.NoError(t, err)
	img, ok := loaded.(*Image)
	require.True(t, ok)
	img.SetImageData(it.EncodedBytes(), it.Pixels(), it.HasAlpha())

	assert.Equal(t, it.Position(), img.Position())
	assert.Equal(t, it.Scale(), img.Scale())
	assert.Equal(t, it.Rotation(), img.Rotation())
	assert.Equal(t, it.Flip(), img.Flip())
	assert.Equal(t, it.Z(), img.Z())
	assert.Equal(t, it.Crop(), img.Crop())
	assert.Equal(t, it.Filename(), img.Filename())
}

func TestTextRecordRoundTrip(t *testing.T) {
	it := NewText("two\nlines")
	it.SetPosition(geometry.NewPoint2D(-3, 4))
	it.SetZ(1)
	rec, err := it.ToRecord()
	require.NoError(t, err)

	loaded, err := FromRecord(rec)
	require.NoError(t, err)
	txt, ok := loaded.(*Text)
	require.True(t, ok)
	assert.Equal(t, "two\nlines", txt.TextContent())
	assert.Equal(t, it.Position(), txt.Position())
}

func TestUnknownTypeBecomesErrorItem(t *testing.T) {
	rec := Record{ID: 9, Type: "hologram", X: 1, Y: 2, Z: 3, Scale: 2, Rotation: 45, Flip: -1, Data: []byte(`{"future":true}`)}
	loaded, err := FromRecord(rec)
	require.NoError(t, err)

	errItem, ok := loaded.(*Error)
	require.True(t, ok)
	assert.Equal(t, "hologram", errItem.OriginalType())

	// the row must round-trip untouched
	out, err := errItem.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, rec, out)
}

func TestSceneBoundingRect(t *testing.T) {
	it := newTestImage(t, 100, 50)
	it.SetPosition(geometry.NewPoint2D(10, 20))

	r := SceneBoundingRect(it)
	assert.Equal(t, geometry.NewRect(10, 20, 100, 50), r)

	it.SetRotation(90, it.Position())
	r = SceneBoundingRect(it)
	assert.InDelta(t, -40, r.X, 1e-9)
	assert.InDelta(t, 20, r.Y, 1e-9)
	assert.InDelta(t, 50, r.Width, 1e-9)
	assert.InDelta(t, 100, r.Height, 1e-9)
}

func TestSampleColorAt(t *testing.T) {
	it := newTestImage(t, 10, 10)
	c, ok := it.SampleColorAt(geometry.NewPoint2D(3, 4))
	require.True(t, ok)
	r, g, _, _ := c.RGBA()
	assert.Equal(t, uint32(3), r>>8)
	assert.Equal(t, uint32(4), g>>8)

	_, ok = it.SampleColorAt(geometry.NewPoint2D(-1, 0))
	assert.False(t, ok)
}

func TestMapToSceneWithFlip(t *testing.T) {
	it := newTestImage(t, 100, 50)
	it.SetPosition(geometry.NewPoint2D(10, 10))
	it.DoFlip(false, it.Position())

	// local x is mirrored
	p := MapToScene(it, geometry.NewPoint2D(100, 0))
	assert.InDelta(t, -90, p.X, 1e-9)
	assert.InDelta(t, 10, p.Y, 1e-9)
}
