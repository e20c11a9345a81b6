package command

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refboard/internal/item"
	"refboard/pkg/geometry"
)

func testPixels(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// fakeScene records membership and selection without scene machinery.
type fakeScene struct {
	members  map[int64]item.Item
	selected map[int64]bool
}

func newFakeScene() *fakeScene {
	return &fakeScene{members: map[int64]item.Item{}, selected: map[int64]bool{}}
}

func (s *fakeScene) AddItem(it item.Item)    { s.members[it.ID()] = it }
func (s *fakeScene) RemoveItem(it item.Item) { delete(s.members, it.ID()); delete(s.selected, it.ID()) }
func (s *fakeScene) SetSelected(it item.Item, sel bool) {
	if _, ok := s.members[it.ID()]; ok {
		s.selected[it.ID()] = sel
	}
}
func (s *fakeScene) IsSelected(it item.Item) bool { return s.selected[it.ID()] }

type itemState struct {
	pos      geometry.Point2D
	scale    float64
	rotation float64
	flip     int
	z        float64
}

func captureState(it item.Item) itemState {
	return itemState{pos: it.Position(), scale: it.Scale(), rotation: it.Rotation(), flip: it.Flip(), z: it.Z()}
}

func assertState(t *testing.T, want itemState, it item.Item) {
	t.Helper()
	assert.InDelta(t, want.pos.X, it.Position().X, 1e-9)
	assert.InDelta(t, want.pos.Y, it.Position().Y, 1e-9)
	assert.InDelta(t, want.scale, it.Scale(), 1e-9)
	assert.InDelta(t, want.rotation, it.Rotation(), 1e-9)
	assert.Equal(t, want.flip, it.Flip())
	assert.InDelta(t, want.z, it.Z(), 1e-9)
}

func TestInsertDeleteRoundTrip(t *testing.T) {
	s := newFakeScene()
	a, b := item.NewText("a"), item.NewText("b")
	stack := NewStack(0)

	stack.Push(NewInsertItems(s, []item.Item{a, b}))
	assert.Len(t, s.members, 2)
	assert.True(t, s.IsSelected(a))

	stack.Push(NewDeleteItems(s, []item.Item{a}))
	assert.Len(t, s.members, 1)

	require.True(t, stack.Undo())
	assert.Len(t, s.members, 2)
	assert.True(t, s.IsSelected(a), "selection restored on undo of delete")

	require.True(t, stack.Undo())
	assert.Len(t, s.members, 0)

	require.True(t, stack.Redo())
	assert.Len(t, s.members, 2)
}

func TestMoveItemsByInvertible(t *testing.T) {
	it := item.NewText("x")
	before := captureState(it)
	cmd := NewMoveItemsBy([]item.Item{it}, geometry.NewPoint2D(10, -4), false)

	cmd.Redo()
	assert.Equal(t, geometry.NewPoint2D(10, -4), it.Position())
	cmd.Undo()
	assertState(t, before, it)
}

func TestMoveItemsIgnoreFirstRedo(t *testing.T) {
	it := item.NewText("x")
	// live drag already moved the item
	it.SetPosition(geometry.NewPoint2D(10, -4))
	stack := NewStack(0)

	stack.Push(NewMoveItemsBy([]item.Item{it}, geometry.NewPoint2D(10, -4), true))
	assert.Equal(t, geometry.NewPoint2D(10, -4), it.Position(), "push must not double-apply")

	stack.Undo()
	assert.Equal(t, geometry.Point2D{}, it.Position())
	stack.Redo()
	assert.Equal(t, geometry.NewPoint2D(10, -4), it.Position(), "later redos apply normally")
}

func TestScaleItemsByRoundTrip(t *testing.T) {
	it := item.NewText("x")
	it.SetPosition(geometry.NewPoint2D(5, 5))
	before := captureState(it)
	anchor := geometry.NewPoint2D(50, 50)

	cmd := NewScaleItemsBy([]item.Item{it}, 2.5, anchor, false)
	cmd.Redo()
	assert.InDelta(t, 2.5, it.Scale(), 1e-9)
	cmd.Undo()
	assertState(t, before, it)
}

func TestRotateItemsByRoundTrip(t *testing.T) {
	it := item.NewText("x")
	it.SetPosition(geometry.NewPoint2D(5, 5))
	before := captureState(it)

	cmd := NewRotateItemsBy([]item.Item{it}, 33, geometry.NewPoint2D(-10, 4), false)
	cmd.Redo()
	assert.InDelta(t, 33, it.Rotation(), 1e-9)
	cmd.Undo()
	assertState(t, before, it)
}

func TestFlipItemsUndoIsReflip(t *testing.T) {
	it := item.NewText("x")
	it.SetPosition(geometry.NewPoint2D(5, 5))
	before := captureState(it)
	anchor := item.Center(it)

	cmd := NewFlipItems([]item.Item{it}, anchor, true, false)
	cmd.Redo()
	assert.Equal(t, -1, it.Flip())
	assert.InDelta(t, 180, it.Rotation(), 1e-9)
	cmd.Undo()
	assertState(t, before, it)
}

func TestNormalizeItemsLazyCapture(t *testing.T) {
	a := item.NewText("a")
	b := item.NewText("b")
	b.SetScale(3, geometry.Point2D{})

	cmd := NewNormalizeItems([]item.Item{a, b}, []float64{1.5, 0.75})
	cmd.Redo()
	assert.InDelta(t, 1.5, a.Scale(), 1e-9)
	assert.InDelta(t, 0.75, b.Scale(), 1e-9)

	cmd.Undo()
	assert.InDelta(t, 1, a.Scale(), 1e-9)
	assert.InDelta(t, 3, b.Scale(), 1e-9)
}

func TestResetTransformsSingleUndoStep(t *testing.T) {
	it := item.NewText("x")
	it.SetPosition(geometry.NewPoint2D(20, 30))
	it.SetScale(2, item.Center(it))
	it.SetRotation(45, item.Center(it))
	it.DoFlip(false, item.Center(it))
	before := captureState(it)

	stack := NewStack(0)
	stack.Push(NewResetTransforms([]item.Item{it}))
	assert.InDelta(t, 1, it.Scale(), 1e-9)
	assert.InDelta(t, 0, it.Rotation(), 1e-9)
	assert.Equal(t, 1, it.Flip())

	require.True(t, stack.Undo())
	assertState(t, before, it)
	assert.False(t, stack.CanUndo(), "composite reset is one step")
}

func TestCropImageCommand(t *testing.T) {
	img := item.NewImage([]byte("x"), testPixels(100, 50), "a.png", false)
	oldCrop := img.Crop()
	newCrop := geometry.NewRect(10, 10, 30, 20)

	cmd := NewCropImage(img, oldCrop, newCrop, false)
	cmd.Redo()
	assert.Equal(t, newCrop, img.Crop())
	cmd.Undo()
	assert.Equal(t, oldCrop, img.Crop())
}

func TestArrangeItemsRoundTrip(t *testing.T) {
	a, b := item.NewText("a"), item.NewText("b")
	b.SetPosition(geometry.NewPoint2D(100, 0))

	cmd := NewArrangeItems([]item.Item{a, b}, []geometry.Point2D{{X: 0, Y: 0}, {X: 0, Y: 50}})
	cmd.Redo()
	assert.Equal(t, geometry.NewPoint2D(0, 50), b.Position())
	cmd.Undo()
	assert.Equal(t, geometry.NewPoint2D(100, 0), b.Position())
}

func TestStackTruncatesRedoTail(t *testing.T) {
	it := item.NewText("x")
	stack := NewStack(0)

	stack.Push(NewMoveItemsBy([]item.Item{it}, geometry.NewPoint2D(1, 0), false))
	stack.Push(NewMoveItemsBy([]item.Item{it}, geometry.NewPoint2D(1, 0), false))
	stack.Undo()
	assert.True(t, stack.CanRedo())

	stack.Push(NewMoveItemsBy([]item.Item{it}, geometry.NewPoint2D(0, 1), false))
	assert.False(t, stack.CanRedo(), "pushing discards the redone tail")
	assert.Equal(t, 2, stack.Len())
}

func TestStackBoundedDropsOldest(t *testing.T) {
	it := item.NewText("x")
	stack := NewStack(3)

	for i := 0; i < 5; i++ {
		stack.Push(NewMoveItemsBy([]item.Item{it, item.NewText("pad")}, geometry.NewPoint2D(1, 0), false))
	}
	assert.Equal(t, 3, stack.Len())
	assert.Equal(t, geometry.NewPoint2D(5, 0), it.Position())

	// undo past the dropped entries stops silently
	for stack.Undo() {
	}
	assert.Equal(t, geometry.NewPoint2D(2, 0), it.Position())
}

func TestSetOpacityRoundTrip(t *testing.T) {
	it := item.NewText("x")
	cmd := NewSetOpacity([]item.Item{it}, 0.3)
	cmd.Redo()
	assert.Equal(t, 0.3, it.Opacity())
	cmd.Undo()
	assert.Equal(t, 1.0, it.Opacity())
}

func TestSetZValuesRoundTrip(t *testing.T) {
	a, b := item.NewText("a"), item.NewText("b")
	a.SetZ(1)
	b.SetZ(2)

	cmd := NewSetZValues([]item.Item{a, b}, []float64{3, 4})
	cmd.Redo()
	assert.Equal(t, 3.0, a.Z())
	cmd.Undo()
	assert.Equal(t, 1.0, a.Z())
	assert.Equal(t, 2.0, b.Z())
}
