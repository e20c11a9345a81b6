package selection

import (
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// Scene-space outline geometry for painting the selection chrome. The UI
// draws these polygons; the engine owns where they are.

// Polygon is a closed outline in scene coordinates.
type Polygon []geometry.Point2D

func transformRect(it item.Item, r geometry.Rect) Polygon {
	tr := item.SceneTransform(it)
	ring := geometry.RectRing(r)
	poly := make(Polygon, len(ring))
	for i, p := range ring {
		poly[i] = tr.Apply(p)
	}
	return poly
}

// SelectionOutline returns the transform target's content outline, or nil
// when nothing is selected.
func (e *Engine) SelectionOutline() Polygon {
	target := e.scene.TransformTarget()
	if target == nil {
		return nil
	}
	return transformRect(target, target.BoundingRect())
}

// HandleOutlines returns the four corner scale handles of the transform
// target as scene-space squares.
func (e *Engine) HandleOutlines() []Polygon {
	target := e.scene.TransformTarget()
	if target == nil {
		return nil
	}
	u := e.localUnit(target)
	half := e.cfg.HandleSize * u / 2
	var polys []Polygon
	for _, c := range target.BoundingRect().Corners() {
		sq := geometry.NewRect(c.X-half, c.Y-half, 2*half, 2*half)
		polys = append(polys, transformRect(target, sq))
	}
	return polys
}

// FlipStripOutlines returns the four edge flip zones, used by the debug
// shapes overlay.
func (e *Engine) FlipStripOutlines() []Polygon {
	target := e.scene.TransformTarget()
	if target == nil {
		return nil
	}
	u := e.localUnit(target)
	strip := e.cfg.FlipStripWidth * u
	br := target.BoundingRect()
	zones := []geometry.Rect{
		geometry.NewRect(br.X, br.Y-strip, br.Width, strip),
		geometry.NewRect(br.X+br.Width, br.Y, strip, br.Height),
		geometry.NewRect(br.X, br.Y+br.Height, br.Width, strip),
		geometry.NewRect(br.X-strip, br.Y, strip, br.Height),
	}
	polys := make([]Polygon, 0, 4)
	for _, z := range zones {
		polys = append(polys, transformRect(target, z))
	}
	return polys
}

// CropOutlines returns the crop rectangle and its natural bounds while
// crop mode is active, or nil otherwise.
func (e *Engine) CropOutlines() (crop, natural Polygon) {
	if e.state != StateCropping {
		return nil, nil
	}
	return transformRect(e.cropItem, e.cropItem.CropTemp()),
		transformRect(e.cropItem, e.cropItem.NaturalRect())
}

// CropHandleOutlines returns the crop corner handles while crop mode is
// active.
func (e *Engine) CropHandleOutlines() []Polygon {
	if e.state != StateCropping {
		return nil
	}
	u := e.localUnit(e.cropItem)
	half := e.cfg.HandleSize * u / 2
	var polys []Polygon
	for _, c := range e.cropItem.CropTemp().Corners() {
		sq := geometry.NewRect(c.X-half, c.Y-half, 2*half, 2*half)
		polys = append(polys, transformRect(e.cropItem, sq))
	}
	return polys
}
