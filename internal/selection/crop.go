package selection

import (
	"math"

	"refboard/internal/command"
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// Crop sub-mode. While active the image shows its full natural content
// and a draggable crop rectangle. The rectangle is clamped to the natural
// bounds, cannot invert and keeps a minimum size. Committing pushes a
// crop command only when the rectangle actually changed.

// EnterCropMode starts cropping the single selected image item. Returns
// false when the transform target is not exactly one image.
func (e *Engine) EnterCropMode() bool {
	if e.state != StateIdle {
		return false
	}
	img, ok := e.scene.TransformTarget().(*item.Image)
	if !ok {
		return false
	}
	img.BeginCrop()
	e.cropItem = img
	e.state = StateCropping
	e.cropHit = hitResult{region: RegionNone, corner: -1, edge: -1}
	return true
}

// CommitCrop leaves crop mode, pushing an undoable crop command when the
// rectangle changed.
func (e *Engine) CommitCrop() {
	if e.state != StateCropping {
		return
	}
	old, applied, changed := e.cropItem.CommitCrop()
	if changed {
		e.scene.Push(command.NewCropImage(e.cropItem, old, applied, true))
	}
	e.leaveCropMode()
}

// CancelCrop leaves crop mode discarding any adjustment.
func (e *Engine) CancelCrop() {
	if e.state != StateCropping {
		return
	}
	e.cropItem.CancelCrop()
	e.leaveCropMode()
}

func (e *Engine) leaveCropMode() {
	e.cropItem = nil
	e.state = StateIdle
	e.target = nil
}

func (e *Engine) cropHitTest(sceneP geometry.Point2D) hitResult {
	img := e.cropItem
	lp := item.MapFromScene(img, sceneP)
	r := img.CropTemp()
	u := e.localUnit(img)
	half := e.cfg.HandleSize * u / 2

	corners := r.Corners()
	for i, c := range corners {
		if math.Abs(lp.X-c.X) <= half && math.Abs(lp.Y-c.Y) <= half {
			return hitResult{region: RegionCropHandle, corner: i, edge: -1}
		}
	}
	if lp.X >= r.X && lp.X <= r.X+r.Width {
		if math.Abs(lp.Y-r.Y) <= half {
			return hitResult{region: RegionCropHandle, corner: -1, edge: edgeTop}
		}
		if math.Abs(lp.Y-(r.Y+r.Height)) <= half {
			return hitResult{region: RegionCropHandle, corner: -1, edge: edgeBottom}
		}
	}
	if lp.Y >= r.Y && lp.Y <= r.Y+r.Height {
		if math.Abs(lp.X-r.X) <= half {
			return hitResult{region: RegionCropHandle, corner: -1, edge: edgeLeft}
		}
		if math.Abs(lp.X-(r.X+r.Width)) <= half {
			return hitResult{region: RegionCropHandle, corner: -1, edge: edgeRight}
		}
	}
	if r.Contains(lp) {
		return hitResult{region: RegionCropBody, corner: -1, edge: -1}
	}
	return hitResult{region: RegionNone, corner: -1, edge: -1}
}

func (e *Engine) cropHoverRegion(p geometry.Point2D) Region {
	return e.cropHitTest(p).region
}

// cropMousePressed grabs a crop handle or the crop body; a press outside
// the image commits the crop.
func (e *Engine) cropMousePressed(p geometry.Point2D) bool {
	hit := e.cropHitTest(p)
	if hit.region == RegionNone {
		e.CommitCrop()
		return true
	}
	e.cropHit = hit
	e.cropStart = e.cropItem.CropTemp()
	e.cropOrigin = item.MapFromScene(e.cropItem, p)
	return true
}

func (e *Engine) cropMouseMoved(p geometry.Point2D) {
	if e.cropHit.region == RegionNone {
		return
	}
	lp := item.MapFromScene(e.cropItem, p)
	delta := lp.Sub(e.cropOrigin)
	nat := e.cropItem.NaturalRect()
	r := e.cropStart
	min := e.cfg.MinCropSize

	if e.cropHit.region == RegionCropBody {
		moved := r.Translated(delta)
		moved.X = clamp(moved.X, nat.X, nat.X+nat.Width-moved.Width)
		moved.Y = clamp(moved.Y, nat.Y, nat.Y+nat.Height-moved.Height)
		e.cropItem.SetCropTemp(moved)
		return
	}

	left, top := r.X, r.Y
	right, bottom := r.X+r.Width, r.Y+r.Height
	// corner indices follow Corners() zig-zag order: TL, TR, BL, BR
	switch e.cropHit.corner {
	case 0:
		left += delta.X
		top += delta.Y
	case 1:
		right += delta.X
		top += delta.Y
	case 2:
		left += delta.X
		bottom += delta.Y
	case 3:
		right += delta.X
		bottom += delta.Y
	default:
		switch e.cropHit.edge {
		case edgeTop:
			top += delta.Y
		case edgeRight:
			right += delta.X
		case edgeBottom:
			bottom += delta.Y
		case edgeLeft:
			left += delta.X
		}
	}

	// clamp to natural bounds, then forbid inversion past the minimum size
	left = clamp(left, nat.X, nat.X+nat.Width)
	right = clamp(right, nat.X, nat.X+nat.Width)
	top = clamp(top, nat.Y, nat.Y+nat.Height)
	bottom = clamp(bottom, nat.Y, nat.Y+nat.Height)
	if right-left < min {
		if e.movesLeftEdge() {
			left = right - min
		} else {
			right = left + min
		}
	}
	if bottom-top < min {
		if e.movesTopEdge() {
			top = bottom - min
		} else {
			bottom = top + min
		}
	}
	e.cropItem.SetCropTemp(geometry.NewRect(left, top, right-left, bottom-top))
}

func (e *Engine) cropMouseReleased(p geometry.Point2D) {
	e.cropMouseMoved(p)
	e.cropHit = hitResult{region: RegionNone, corner: -1, edge: -1}
}

func (e *Engine) movesLeftEdge() bool {
	return e.cropHit.corner == 0 || e.cropHit.corner == 2 || e.cropHit.edge == edgeLeft
}

func (e *Engine) movesTopEdge() bool {
	return e.cropHit.corner == 0 || e.cropHit.corner == 1 || e.cropHit.edge == edgeTop
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(math.Max(v, lo), hi)
}
