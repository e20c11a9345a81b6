package scene

import (
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// Rubber-band selection. The band rectangle is normalized from the drag
// start to the current pointer, so dragging works in all four directions.
// Selection updates live while the band is dragged; items intersecting
// the band are added to the selection captured at drag start.

// StartRubberband begins a band drag at p. When additive is false the
// current selection is cleared first.
func (s *Scene) StartRubberband(p geometry.Point2D, additive bool) {
	if !additive {
		s.ClearSelection()
	}
	s.rubberbandActive = true
	s.rubberbandStart = p
	s.rubberbandRect = geometry.RectFromCorners(p, p)
	s.rubberbandBase = make(map[int64]bool, len(s.selected))
	for id := range s.selected {
		s.rubberbandBase[id] = true
	}
}

// UpdateRubberband extends the band to the current pointer position and
// reselects: the start-time selection plus everything intersecting the
// band.
func (s *Scene) UpdateRubberband(p geometry.Point2D) {
	if !s.rubberbandActive {
		return
	}
	s.rubberbandRect = geometry.RectFromCorners(s.rubberbandStart, p)

	next := make(map[int64]bool, len(s.rubberbandBase))
	for id := range s.rubberbandBase {
		next[id] = true
	}
	for _, it := range s.items {
		if item.SceneBoundingRect(it).Intersects(s.rubberbandRect) {
			next[it.ID()] = true
		}
	}
	if !sameIDSet(s.selected, next) {
		s.selected = next
		s.selectionChanged()
	}
	s.Emit(EventGeometryChanged, nil)
}

// EndRubberband finishes the band drag, keeping whatever is selected.
func (s *Scene) EndRubberband() {
	s.rubberbandActive = false
	s.rubberbandBase = nil
	s.Emit(EventGeometryChanged, nil)
}

// RubberbandActive reports whether a band drag is in progress.
func (s *Scene) RubberbandActive() bool { return s.rubberbandActive }

// RubberbandRect returns the current normalized band rectangle.
func (s *Scene) RubberbandRect() geometry.Rect { return s.rubberbandRect }

func sameIDSet(a, b map[int64]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}
