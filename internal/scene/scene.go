// Package scene owns the item collection, z-order bookkeeping, selection
// state, the multi-select lifecycle and the undo stack.
package scene

import (
	"refboard/internal/command"
	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// EventType identifies scene events.
type EventType int

const (
	// EventGeometryChanged fires before an item's geometry mutates and
	// after scene-level changes; listeners repaint and drop caches.
	EventGeometryChanged EventType = iota
	// EventSelectionChanged fires whenever the selection set changes.
	EventSelectionChanged
	// EventMembershipChanged fires when items are added or removed.
	EventMembershipChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// zSpacing separates stacking values produced by front/back operations.
const zSpacing = 1.0

// Scene holds the items of one board. It is single-threaded by contract:
// all mutation happens on the UI/event goroutine.
type Scene struct {
	items    []item.Item
	selected map[int64]bool

	maxZ float64
	minZ float64

	undo  *command.Stack
	multi *MultiSelect

	rubberbandActive bool
	rubberbandStart  geometry.Point2D
	rubberbandRect   geometry.Rect
	rubberbandBase   map[int64]bool

	listeners map[EventType][]EventListener
}

// New creates an empty scene with the given undo depth limit
// (non-positive means the default).
func New(undoLimit int) *Scene {
	return &Scene{
		selected:  make(map[int64]bool),
		undo:      command.NewStack(undoLimit),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Scene) On(event EventType, listener EventListener) {
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Scene) Emit(event EventType, data interface{}) {
	for _, listener := range s.listeners[event] {
		listener(data)
	}
}

// GeometryWillChange implements item.Notify.
func (s *Scene) GeometryWillChange(it item.Item) {
	s.Emit(EventGeometryChanged, it)
}

// ZChanged implements item.Notify: running extrema only ever extend.
func (s *Scene) ZChanged(it item.Item, z float64) {
	if z > s.maxZ {
		s.maxZ = z
	}
	if z < s.minZ {
		s.minZ = z
	}
}

// MaxZ returns the running maximum stacking value.
func (s *Scene) MaxZ() float64 { return s.maxZ }

// MinZ returns the running minimum stacking value.
func (s *Scene) MinZ() float64 { return s.minZ }

// AddItem appends an item in insertion order and starts tracking its z.
func (s *Scene) AddItem(it item.Item) {
	it.SetNotify(s)
	s.items = append(s.items, it)
	s.ZChanged(it, it.Z())
	s.Emit(EventMembershipChanged, it)
}

// RemoveItem detaches an item. Removal never shrinks the z extrema; they
// are running bounds, not exact ones.
func (s *Scene) RemoveItem(it item.Item) {
	for i, existing := range s.items {
		if existing.ID() == it.ID() {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.selected[it.ID()] {
		delete(s.selected, it.ID())
		s.selectionChanged()
	}
	it.SetNotify(nil)
	s.Emit(EventMembershipChanged, it)
}

// Items returns the items in insertion order. The slice is shared; do not
// mutate it.
func (s *Scene) Items() []item.Item { return s.items }

// ItemsForSave returns the persistable content items in insertion order.
// Synthetic helpers (multi-select, rubber-band) are never part of the
// collection, so this is the collection itself.
func (s *Scene) ItemsForSave() []item.Item { return s.items }

// ItemsByZ returns the items sorted back-to-front for painting. Ties keep
// insertion order.
func (s *Scene) ItemsByZ() []item.Item {
	sorted := make([]item.Item, len(s.items))
	copy(sorted, s.items)
	// insertion sort keeps the common nearly-sorted case cheap and stable
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Z() > sorted[j].Z(); j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted
}

// Clear removes every item, the selection and the undo history.
func (s *Scene) Clear() {
	for _, it := range s.items {
		it.SetNotify(nil)
	}
	s.items = nil
	s.selected = make(map[int64]bool)
	s.multi = nil
	s.maxZ, s.minZ = 0, 0
	s.undo.Clear()
	s.Emit(EventMembershipChanged, nil)
	s.Emit(EventSelectionChanged, nil)
}

// SetSelected marks an item selected or deselected.
func (s *Scene) SetSelected(it item.Item, selected bool) {
	if s.selected[it.ID()] == selected {
		return
	}
	if selected {
		s.selected[it.ID()] = true
	} else {
		delete(s.selected, it.ID())
	}
	s.selectionChanged()
}

// IsSelected reports whether the item is selected.
func (s *Scene) IsSelected(it item.Item) bool { return s.selected[it.ID()] }

// SelectedItems returns the selected items in insertion order.
func (s *Scene) SelectedItems() []item.Item {
	var sel []item.Item
	for _, it := range s.items {
		if s.selected[it.ID()] {
			sel = append(sel, it)
		}
	}
	return sel
}

// HasSelection reports whether anything is selected.
func (s *Scene) HasSelection() bool { return len(s.selected) > 0 }

// ClearSelection deselects everything.
func (s *Scene) ClearSelection() {
	if len(s.selected) == 0 {
		return
	}
	s.selected = make(map[int64]bool)
	s.selectionChanged()
}

// SelectAll selects every item.
func (s *Scene) SelectAll() {
	for _, it := range s.items {
		s.selected[it.ID()] = true
	}
	s.selectionChanged()
}

func (s *Scene) selectionChanged() {
	s.updateMultiSelect()
	s.Emit(EventSelectionChanged, nil)
}

// SelectionRect returns the union of the selected items' rotated bounding
// boxes, axis-aligned in scene coordinates.
func (s *Scene) SelectionRect() geometry.Rect {
	var rect geometry.Rect
	first := true
	for _, it := range s.SelectedItems() {
		r := item.SceneBoundingRect(it)
		if first {
			rect = r
			first = false
		} else {
			rect = rect.Union(r)
		}
	}
	return rect
}

// scenePolygon returns the item's content rectangle as a scene-space
// ring, rewound after flips so the clipper accepts it.
func scenePolygon(it item.Item) []geometry.Point2D {
	tr := item.SceneTransform(it)
	ring := geometry.RectRing(it.BoundingRect())
	for i, p := range ring {
		ring[i] = tr.Apply(p)
	}
	return geometry.Oriented(ring)
}

// ItemsIntersecting returns items whose rotated content rectangles
// intersect r. The bounding box check only prefilters; rotated items
// narrower than their box are not over-selected.
func (s *Scene) ItemsIntersecting(r geometry.Rect) []item.Item {
	clip := geometry.Oriented(geometry.RectRing(r))
	var hit []item.Item
	for _, it := range s.items {
		if !item.SceneBoundingRect(it).Intersects(r) {
			continue
		}
		if geometry.IntersectPolygons(scenePolygon(it), clip) != nil {
			hit = append(hit, it)
		}
	}
	return hit
}

// ItemAt returns the topmost item whose rotated content rectangle
// contains p, or nil.
func (s *Scene) ItemAt(p geometry.Point2D) item.Item {
	var best item.Item
	for _, it := range s.items {
		if !item.SceneBoundingRect(it).Contains(p) {
			continue
		}
		if !geometry.PointInPolygon(p, scenePolygon(it)) {
			continue
		}
		if best == nil || it.Z() >= best.Z() {
			best = it
		}
	}
	return best
}

// Undo reverts the most recent command.
func (s *Scene) Undo() bool {
	ok := s.undo.Undo()
	if ok {
		s.selectionChanged()
		s.Emit(EventGeometryChanged, nil)
	}
	return ok
}

// Redo re-applies the most recently undone command.
func (s *Scene) Redo() bool {
	ok := s.undo.Redo()
	if ok {
		s.selectionChanged()
		s.Emit(EventGeometryChanged, nil)
	}
	return ok
}

// Push applies a command and records it for undo.
func (s *Scene) Push(c command.Command) {
	s.undo.Push(c)
	s.updateMultiSelect()
	s.Emit(EventGeometryChanged, nil)
}

// UndoStack exposes the stack for inspection.
func (s *Scene) UndoStack() *command.Stack { return s.undo }

// BringToFront pushes a restack command giving the items monotonically
// increasing z values above the current maximum. No selection is a no-op.
func (s *Scene) BringToFront(items []item.Item) {
	if len(items) == 0 {
		return
	}
	targets := make([]float64, len(items))
	z := s.maxZ
	for i := range items {
		z += zSpacing
		targets[i] = z
	}
	s.Push(command.NewSetZValues(items, targets))
}

// SendToBack mirrors BringToFront below the current minimum.
func (s *Scene) SendToBack(items []item.Item) {
	if len(items) == 0 {
		return
	}
	targets := make([]float64, len(items))
	z := s.minZ
	for i := range items {
		z -= zSpacing
		targets[i] = z
	}
	s.Push(command.NewSetZValues(items, targets))
}
