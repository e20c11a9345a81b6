package selection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refboard/internal/item"
	"refboard/internal/scene"
	"refboard/pkg/geometry"
)

func testImage(w, h int) *item.Image {
	return item.NewImage([]byte("px"), image.NewRGBA(image.Rect(0, 0, w, h)), "ref.png", false)
}

// one selected 100x50 image at the origin, zoom 1
func singleItemEngine(t *testing.T) (*Engine, *scene.Scene, *item.Image) {
	t.Helper()
	s := scene.New(0)
	img := testImage(100, 50)
	s.AddItem(img)
	s.SetSelected(img, true)
	return NewEngine(s, DefaultConfig()), s, img
}

func TestHoverRegions(t *testing.T) {
	e, _, _ := singleItemEngine(t)

	assert.Equal(t, RegionBody, e.HoverRegion(geometry.NewPoint2D(50, 25)))
	assert.Equal(t, RegionScale, e.HoverRegion(geometry.NewPoint2D(100, 50)))
	assert.Equal(t, RegionRotate, e.HoverRegion(geometry.NewPoint2D(110, 60)))
	assert.Equal(t, RegionFlip, e.HoverRegion(geometry.NewPoint2D(105, 25)))
	assert.Equal(t, RegionNone, e.HoverRegion(geometry.NewPoint2D(500, 500)))
}

func TestHandleSizeShrinksWithZoom(t *testing.T) {
	e, _, _ := singleItemEngine(t)
	p := geometry.NewPoint2D(105, 53)

	assert.Equal(t, RegionScale, e.HoverRegion(p))

	e.SetViewZoom(2)
	assert.Equal(t, RegionRotate, e.HoverRegion(p),
		"at higher zoom the same scene offset falls outside the handle")
}

func TestScaleDrag(t *testing.T) {
	e, s, img := singleItemEngine(t)

	require.True(t, e.MousePressed(geometry.NewPoint2D(100, 50), false))
	assert.Equal(t, StateScaling, e.State())

	e.MouseMoved(geometry.NewPoint2D(200, 100))
	assert.InDelta(t, 2, img.Scale(), 1e-9)
	// anchor is the opposite corner, the origin stays put
	assert.InDelta(t, 0, img.Position().X, 1e-9)

	e.MouseReleased(geometry.NewPoint2D(200, 100))
	assert.Equal(t, StateIdle, e.State())
	require.True(t, s.Undo())
	assert.InDelta(t, 1, img.Scale(), 1e-9)
}

func TestScaleDragNetZeroPushesNothing(t *testing.T) {
	e, s, img := singleItemEngine(t)

	require.True(t, e.MousePressed(geometry.NewPoint2D(100, 50), false))
	e.MouseMoved(geometry.NewPoint2D(150, 75))
	e.MouseMoved(geometry.NewPoint2D(100, 50))
	e.MouseReleased(geometry.NewPoint2D(100, 50))

	assert.InDelta(t, 1, img.Scale(), 1e-9)
	assert.False(t, s.UndoStack().CanUndo())
}

func TestScaleDragAnchorsDiagonalOpposite(t *testing.T) {
	corners := geometry.NewRect(0, 0, 100, 50).Corners()
	for i, grab := range corners {
		e, _, img := singleItemEngine(t)
		opposite := corners[3-i]

		require.True(t, e.MousePressed(grab, false), "corner %d", i)
		require.Equal(t, StateScaling, e.State(), "corner %d", i)

		// drag to twice the diagonal distance from the anchor
		far := opposite.Add(grab.Sub(opposite).Scale(2))
		e.MouseMoved(far)
		e.MouseReleased(far)

		assert.InDelta(t, 2, img.Scale(), 1e-9, "corner %d", i)
		anchored := item.MapToScene(img, opposite)
		assert.InDelta(t, opposite.X, anchored.X, 1e-9, "corner %d", i)
		assert.InDelta(t, opposite.Y, anchored.Y, 1e-9, "corner %d", i)
	}
}

func TestRotateDrag(t *testing.T) {
	e, s, img := singleItemEngine(t)

	require.True(t, e.MousePressed(geometry.NewPoint2D(110, 60), false))
	assert.Equal(t, StateRotating, e.State())

	// press point rotated 90 degrees around the item center (50,25)
	e.MouseMoved(geometry.NewPoint2D(15, 85))
	assert.InDelta(t, 90, img.Rotation(), 1e-9)

	e.MouseReleased(geometry.NewPoint2D(15, 85))
	require.True(t, s.Undo())
	assert.InDelta(t, 0, img.Rotation(), 1e-9)
	assert.InDelta(t, 0, img.Position().X, 1e-9)
	assert.InDelta(t, 0, img.Position().Y, 1e-9)
}

func TestRotateSnap(t *testing.T) {
	e, _, img := singleItemEngine(t)
	e.SetRotationSnap(true)

	require.True(t, e.MousePressed(geometry.NewPoint2D(110, 60), false))
	// an awkward angle snaps to the nearest 15 degree step
	e.MouseMoved(geometry.NewPoint2D(20, 80))
	rot := img.Rotation()
	snapped := geometry.SnapDeg(rot, e.cfg.SnapStepDeg)
	assert.InDelta(t, snapped, rot, 1e-9)
	e.MouseReleased(geometry.NewPoint2D(20, 80))
}

func TestFlipOnEdgePress(t *testing.T) {
	e, s, img := singleItemEngine(t)

	// right edge strip mirrors horizontally
	require.True(t, e.MousePressed(geometry.NewPoint2D(105, 25), false))
	assert.Equal(t, -1, img.Flip())
	assert.InDelta(t, 0, img.Rotation(), 1e-9)
	assert.Equal(t, StateIdle, e.State(), "flip has no drag phase")

	require.True(t, s.Undo())
	assert.Equal(t, 1, img.Flip())
}

func TestFlipTopEdgeIsVertical(t *testing.T) {
	e, _, img := singleItemEngine(t)

	require.True(t, e.MousePressed(geometry.NewPoint2D(50, -5), false))
	assert.Equal(t, -1, img.Flip())
	assert.InDelta(t, 180, img.Rotation(), 1e-9)
}

func TestFlipOrientationFollowsRotation(t *testing.T) {
	img := testImage(100, 50)
	// a quarter turn makes the local right edge face up
	img.SetRotation(90, item.Center(img))
	assert.True(t, flipIsVertical(img, edgeRight))
	assert.False(t, flipIsVertical(img, edgeTop))
}

func TestBodyDragMoves(t *testing.T) {
	e, s, img := singleItemEngine(t)

	require.True(t, e.MousePressed(geometry.NewPoint2D(50, 25), false))
	e.MouseMoved(geometry.NewPoint2D(60, 45))
	assert.Equal(t, geometry.NewPoint2D(10, 20), img.Position())

	e.MouseReleased(geometry.NewPoint2D(60, 45))
	require.True(t, s.Undo())
	assert.Equal(t, geometry.NewPoint2D(0, 0), img.Position())
}

func TestPressOnUnselectedItemSelectsAndMoves(t *testing.T) {
	e, s, img := singleItemEngine(t)
	other := testImage(20, 20)
	other.SetPosition(geometry.NewPoint2D(300, 300))
	s.AddItem(other)

	require.True(t, e.MousePressed(geometry.NewPoint2D(310, 310), false))
	assert.True(t, s.IsSelected(other))
	assert.False(t, s.IsSelected(img))
	assert.Equal(t, StateMoving, e.State())
	e.MouseReleased(geometry.NewPoint2D(310, 310))
}

func TestEmptyCanvasStartsRubberband(t *testing.T) {
	e, s, img := singleItemEngine(t)
	s.ClearSelection()

	assert.False(t, e.MousePressed(geometry.NewPoint2D(400, 400), false))
	assert.True(t, s.RubberbandActive())

	e.MouseMoved(geometry.NewPoint2D(-10, -10))
	e.MouseReleased(geometry.NewPoint2D(-10, -10))
	assert.False(t, s.RubberbandActive())
	assert.True(t, s.IsSelected(img))
}

func TestMultiSelectBodyDragMovesAllMembers(t *testing.T) {
	s := scene.New(0)
	a := testImage(10, 10)
	b := testImage(10, 10)
	b.SetPosition(geometry.NewPoint2D(30, 0))
	s.AddItem(a)
	s.AddItem(b)
	s.SelectAll()
	e := NewEngine(s, DefaultConfig())

	require.True(t, e.MousePressed(geometry.NewPoint2D(20, 5), false))
	e.MouseMoved(geometry.NewPoint2D(25, 15))
	e.MouseReleased(geometry.NewPoint2D(25, 15))

	assert.Equal(t, geometry.NewPoint2D(5, 10), a.Position())
	assert.Equal(t, geometry.NewPoint2D(35, 10), b.Position())

	require.True(t, s.Undo())
	assert.Equal(t, geometry.NewPoint2D(0, 0), a.Position())
	assert.Equal(t, geometry.NewPoint2D(30, 0), b.Position())
}

func TestCropDragClampedToNaturalBounds(t *testing.T) {
	e, s, img := singleItemEngine(t)

	require.True(t, e.EnterCropMode())
	assert.True(t, img.Cropping())

	// grab the bottom-right crop corner and drag far outside
	e.MousePressed(geometry.NewPoint2D(100, 50), false)
	e.MouseMoved(geometry.NewPoint2D(500, 500))
	e.MouseReleased(geometry.NewPoint2D(500, 500))
	assert.Equal(t, geometry.NewRect(0, 0, 100, 50), img.CropTemp())

	// shrink from the top-left
	e.MousePressed(geometry.NewPoint2D(0, 0), false)
	e.MouseMoved(geometry.NewPoint2D(10, 5))
	e.MouseReleased(geometry.NewPoint2D(10, 5))
	assert.Equal(t, geometry.NewRect(10, 5, 90, 45), img.CropTemp())

	e.CommitCrop()
	assert.False(t, img.Cropping())
	assert.Equal(t, geometry.NewRect(10, 5, 90, 45), img.Crop())

	require.True(t, s.Undo())
	assert.Equal(t, geometry.NewRect(0, 0, 100, 50), img.Crop())
}

func TestCropCornerDragsMatchingEdges(t *testing.T) {
	e, _, img := singleItemEngine(t)
	require.True(t, e.EnterCropMode())

	// bottom-left handle moves the left and bottom edges only
	e.MousePressed(geometry.NewPoint2D(0, 50), false)
	e.MouseMoved(geometry.NewPoint2D(10, 45))
	e.MouseReleased(geometry.NewPoint2D(10, 45))
	assert.Equal(t, geometry.NewRect(10, 0, 90, 45), img.CropTemp())

	// bottom-right handle moves the right and bottom edges only
	e.MousePressed(geometry.NewPoint2D(100, 45), false)
	e.MouseMoved(geometry.NewPoint2D(80, 40))
	e.MouseReleased(geometry.NewPoint2D(80, 40))
	assert.Equal(t, geometry.NewRect(10, 0, 70, 40), img.CropTemp())

	e.CancelCrop()
}

func TestCropNoInversion(t *testing.T) {
	e, _, img := singleItemEngine(t)
	require.True(t, e.EnterCropMode())

	// drag the left edge past the right side
	e.MousePressed(geometry.NewPoint2D(0, 25), false)
	e.MouseMoved(geometry.NewPoint2D(400, 25))
	e.MouseReleased(geometry.NewPoint2D(400, 25))

	r := img.CropTemp()
	assert.InDelta(t, e.cfg.MinCropSize, r.Width, 1e-9)
	assert.GreaterOrEqual(t, r.X, 0.0)
	e.CancelCrop()
}

func TestCropCommitWithoutChangePushesNothing(t *testing.T) {
	e, s, _ := singleItemEngine(t)
	require.True(t, e.EnterCropMode())
	e.CommitCrop()
	assert.False(t, s.UndoStack().CanUndo())
}

func TestCropPressOutsideCommits(t *testing.T) {
	e, _, img := singleItemEngine(t)
	require.True(t, e.EnterCropMode())

	e.MousePressed(geometry.NewPoint2D(400, 400), false)
	assert.False(t, img.Cropping())
	assert.Equal(t, StateIdle, e.State())
}

func TestCancelCropRestores(t *testing.T) {
	e, _, img := singleItemEngine(t)
	require.True(t, e.EnterCropMode())

	e.MousePressed(geometry.NewPoint2D(100, 50), false)
	e.MouseMoved(geometry.NewPoint2D(50, 25))
	e.MouseReleased(geometry.NewPoint2D(50, 25))
	e.CancelCrop()

	assert.Equal(t, geometry.NewRect(0, 0, 100, 50), img.Crop())
	assert.False(t, img.Cropping())
}

func TestEnterCropRequiresSingleImage(t *testing.T) {
	s := scene.New(0)
	txt := item.NewText("words")
	s.AddItem(txt)
	s.SetSelected(txt, true)
	e := NewEngine(s, DefaultConfig())

	assert.False(t, e.EnterCropMode())
}

func TestSelectionOutlineAndHandles(t *testing.T) {
	e, _, _ := singleItemEngine(t)

	outline := e.SelectionOutline()
	require.Len(t, outline, 4)
	assert.Equal(t, geometry.NewPoint2D(0, 0), outline[0])
	assert.Equal(t, geometry.NewPoint2D(100, 50), outline[2])

	assert.Len(t, e.HandleOutlines(), 4)
	assert.Len(t, e.FlipStripOutlines(), 4)
}
