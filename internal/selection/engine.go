// Package selection implements the interactive transform engine: hit
// testing of selection handles, the drag state machine for move, scale,
// rotate and flip, and the crop sub-mode for image items.
//
// All handle geometry is hit-tested in item-local coordinates with sizes
// divided by the view zoom and the item scale, so handles keep a constant
// on-screen size regardless of magnification.
package selection

import (
	"math"

	"refboard/internal/command"
	"refboard/internal/item"
	"refboard/internal/scene"
	"refboard/pkg/geometry"
)

// Config holds the on-screen handle dimensions in device pixels and the
// rotation snap step in degrees.
type Config struct {
	HandleSize      float64
	RotateRingWidth float64
	FlipStripWidth  float64
	SnapStepDeg     float64
	MinCropSize     float64
}

// DefaultConfig returns the stock handle dimensions.
func DefaultConfig() Config {
	return Config{
		HandleSize:      15,
		RotateRingWidth: 25,
		FlipStripWidth:  10,
		SnapStepDeg:     15,
		MinCropSize:     1,
	}
}

// State enumerates what the engine is currently doing.
type State int

const (
	StateIdle State = iota
	StateMoving
	StateScaling
	StateRotating
	StateRubberband
	StateCropping
)

// Region classifies what part of the selection chrome a point is over.
type Region int

const (
	RegionNone Region = iota
	RegionBody
	RegionScale
	RegionRotate
	RegionFlip
	RegionCropHandle
	RegionCropBody
)

// Edge indices, clockwise from the top.
const (
	edgeTop = iota
	edgeRight
	edgeBottom
	edgeLeft
)

type hitResult struct {
	region Region
	corner int
	edge   int
}

// Engine routes pointer events into live item transforms and commits the
// net change as undoable commands on release. A drag that ends where it
// started pushes nothing.
type Engine struct {
	scene *scene.Scene
	cfg   Config
	zoom  float64
	snap  bool

	state  State
	target item.Item

	pressScene geometry.Point2D
	origPos    geometry.Point2D

	// scaling
	anchor    geometry.Point2D
	direction geometry.Point2D
	baseDist  float64
	origScale float64

	// rotating
	origRotation float64
	pressBearing float64

	// cropping
	cropItem   *item.Image
	cropHit    hitResult
	cropStart  geometry.Rect
	cropOrigin geometry.Point2D
}

// NewEngine creates an idle engine bound to a scene.
func NewEngine(sc *scene.Scene, cfg Config) *Engine {
	return &Engine{scene: sc, cfg: cfg, zoom: 1}
}

// SetViewZoom informs the engine of the current view magnification so
// handles keep their screen size.
func (e *Engine) SetViewZoom(zoom float64) {
	if zoom > 0 {
		e.zoom = zoom
	}
}

// SetRotationSnap toggles angle snapping for rotation drags.
func (e *Engine) SetRotationSnap(on bool) { e.snap = on }

// State returns the current drag state.
func (e *Engine) State() State { return e.state }

// Cropping reports whether the crop sub-mode is active.
func (e *Engine) Cropping() bool { return e.state == StateCropping }

// CropTarget returns the image being cropped, or nil.
func (e *Engine) CropTarget() *item.Image { return e.cropItem }

// localUnit converts a screen length to item-local units.
func (e *Engine) localUnit(it item.Item) float64 {
	s := it.Scale()
	if s < item.MinScaleFactor {
		s = item.MinScaleFactor
	}
	return 1 / (e.zoom * s)
}

func (e *Engine) hitTest(it item.Item, sceneP geometry.Point2D) hitResult {
	lp := item.MapFromScene(it, sceneP)
	br := it.BoundingRect()
	u := e.localUnit(it)
	half := e.cfg.HandleSize * u / 2

	corners := br.Corners()
	for i, c := range corners {
		if math.Abs(lp.X-c.X) <= half && math.Abs(lp.Y-c.Y) <= half {
			return hitResult{region: RegionScale, corner: i, edge: -1}
		}
	}

	if !br.Contains(lp) {
		// rotate zones sit in the diagonal quadrants beyond the corners;
		// points straight off an edge belong to the flip strips
		outsideX := lp.X < br.X || lp.X > br.X+br.Width
		outsideY := lp.Y < br.Y || lp.Y > br.Y+br.Height
		if outsideX && outsideY {
			ring := half + e.cfg.RotateRingWidth*u
			for i, c := range corners {
				if lp.Distance(c) <= ring {
					return hitResult{region: RegionRotate, corner: i, edge: -1}
				}
			}
		}
		strip := e.cfg.FlipStripWidth * u
		if lp.X >= br.X && lp.X <= br.X+br.Width {
			if lp.Y < br.Y && br.Y-lp.Y <= strip {
				return hitResult{region: RegionFlip, corner: -1, edge: edgeTop}
			}
			if d := lp.Y - (br.Y + br.Height); d > 0 && d <= strip {
				return hitResult{region: RegionFlip, corner: -1, edge: edgeBottom}
			}
		}
		if lp.Y >= br.Y && lp.Y <= br.Y+br.Height {
			if lp.X < br.X && br.X-lp.X <= strip {
				return hitResult{region: RegionFlip, corner: -1, edge: edgeLeft}
			}
			if d := lp.X - (br.X + br.Width); d > 0 && d <= strip {
				return hitResult{region: RegionFlip, corner: -1, edge: edgeRight}
			}
		}
		return hitResult{region: RegionNone, corner: -1, edge: -1}
	}
	return hitResult{region: RegionBody, corner: -1, edge: -1}
}

// HoverRegion classifies the point for cursor feedback.
func (e *Engine) HoverRegion(p geometry.Point2D) Region {
	if e.state == StateCropping {
		return e.cropHoverRegion(p)
	}
	target := e.scene.TransformTarget()
	if target == nil {
		return RegionNone
	}
	return e.hitTest(target, p).region
}

// flipIsVertical maps a grabbed edge to the flip orientation: the edge's
// outward normal, rotated into the scene, decides by its nearest axis.
func flipIsVertical(it item.Item, edge int) bool {
	var n geometry.Point2D
	switch edge {
	case edgeTop:
		n = geometry.NewPoint2D(0, -1)
	case edgeRight:
		n = geometry.NewPoint2D(1, 0)
	case edgeBottom:
		n = geometry.NewPoint2D(0, 1)
	default:
		n = geometry.NewPoint2D(-1, 0)
	}
	rotated := geometry.Rotation(geometry.DegToRad(it.Rotation())).Apply(n)
	return math.Abs(rotated.X) < math.Abs(rotated.Y)
}

// members unwraps a multi-select aggregate into the items a command
// should act on.
func members(target item.Item) []item.Item {
	if m, ok := target.(*scene.MultiSelect); ok {
		return m.Members()
	}
	return []item.Item{target}
}

// MousePressed routes a press. Returns true when the press hit selection
// chrome or an item; false means it started a rubber-band drag on empty
// canvas.
func (e *Engine) MousePressed(p geometry.Point2D, additive bool) bool {
	if e.state == StateCropping {
		return e.cropMousePressed(p)
	}
	e.pressScene = p

	if target := e.scene.TransformTarget(); target != nil {
		hit := e.hitTest(target, p)
		switch hit.region {
		case RegionScale:
			e.beginScale(target, hit.corner, p)
			return true
		case RegionRotate:
			e.beginRotate(target, p)
			return true
		case RegionFlip:
			e.applyFlip(target, hit.edge)
			return true
		case RegionBody:
			e.beginMove(target)
			return true
		}
	}

	if it := e.scene.ItemAt(p); it != nil {
		if additive {
			e.scene.SetSelected(it, !e.scene.IsSelected(it))
		} else if !e.scene.IsSelected(it) {
			e.scene.ClearSelection()
			e.scene.SetSelected(it, true)
		}
		if target := e.scene.TransformTarget(); target != nil {
			e.beginMove(target)
		}
		return true
	}

	e.state = StateRubberband
	e.scene.StartRubberband(p, additive)
	return false
}

// MouseMoved updates the live preview for the active drag.
func (e *Engine) MouseMoved(p geometry.Point2D) {
	switch e.state {
	case StateMoving:
		e.target.SetPosition(e.origPos.Add(p.Sub(e.pressScene)))
	case StateScaling:
		d := p.Sub(e.anchor).Dot(e.direction)
		if d <= 0 {
			return
		}
		e.target.SetScale(e.origScale*d/e.baseDist, e.anchor)
	case StateRotating:
		delta := geometry.BearingDeg(e.anchor, p) - e.pressBearing
		desired := e.origRotation + delta
		if e.snap {
			desired = geometry.SnapDeg(desired, e.cfg.SnapStepDeg)
		}
		e.target.SetRotation(desired, e.anchor)
	case StateRubberband:
		e.scene.UpdateRubberband(p)
	case StateCropping:
		e.cropMouseMoved(p)
	}
}

// MouseReleased commits the active drag. Net-zero drags push nothing.
func (e *Engine) MouseReleased(p geometry.Point2D) {
	switch e.state {
	case StateMoving:
		e.MouseMoved(p)
		delta := e.target.Position().Sub(e.origPos)
		if !delta.IsNull() {
			e.scene.Push(command.NewMoveItemsBy(members(e.target), delta, true))
		}
	case StateScaling:
		e.MouseMoved(p)
		factor := e.target.Scale() / e.origScale
		if math.Abs(factor-1) > 1e-9 {
			e.scene.Push(command.NewScaleItemsBy(members(e.target), factor, e.anchor, true))
		}
	case StateRotating:
		e.MouseMoved(p)
		delta := angleDiff(e.target.Rotation(), e.origRotation)
		if math.Abs(delta) > 1e-9 {
			e.scene.Push(command.NewRotateItemsBy(members(e.target), delta, e.anchor, true))
		}
	case StateRubberband:
		e.scene.EndRubberband()
	case StateCropping:
		e.cropMouseReleased(p)
		return
	}
	if e.state != StateCropping {
		e.state = StateIdle
		e.target = nil
	}
}

func (e *Engine) beginMove(target item.Item) {
	e.state = StateMoving
	e.target = target
	e.origPos = target.Position()
}

func (e *Engine) beginScale(target item.Item, corner int, p geometry.Point2D) {
	br := target.BoundingRect()
	corners := br.Corners()
	grabbed := item.MapToScene(target, corners[corner])
	// Corners() is zig-zag order, so the diagonal opposite is 3-i.
	anchor := item.MapToScene(target, corners[3-corner])

	dir := geometry.Direction(anchor, grabbed)
	base := p.Sub(anchor).Dot(dir)
	if base <= 0 {
		return
	}
	e.state = StateScaling
	e.target = target
	e.anchor = anchor
	e.direction = dir
	e.baseDist = base
	e.origScale = target.Scale()
}

func (e *Engine) beginRotate(target item.Item, p geometry.Point2D) {
	e.state = StateRotating
	e.target = target
	e.anchor = item.Center(target)
	e.origRotation = target.Rotation()
	e.pressBearing = geometry.BearingDeg(e.anchor, p)
}

// applyFlip toggles the mirror on press and records it immediately; there
// is no drag phase for flipping.
func (e *Engine) applyFlip(target item.Item, edge int) {
	vertical := flipIsVertical(target, edge)
	anchor := item.Center(target)
	target.DoFlip(vertical, anchor)
	e.scene.Push(command.NewFlipItems(members(target), anchor, vertical, true))
}

// angleDiff returns the signed shortest rotation from 'from' to 'to' in
// degrees, in (-180, 180].
func angleDiff(to, from float64) float64 {
	d := geometry.NormalizeDeg(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}
