package scene

import (
	"errors"

	"refboard/internal/item"
	"refboard/pkg/geometry"
)

// multiSelectID is a sentinel id outside the range handed out to real
// items, which count up from 1.
const multiSelectID = -1

// TypeMultiSelect marks the synthetic selection aggregate. It never
// reaches the store.
const TypeMultiSelect = "multiselect"

// MultiSelect is the synthetic item wrapping two or more selected items.
// It exposes one set of transform handles; every transform fans out to
// the members with the same anchor and factor/delta, so the group keeps
// its relative layout. It lives outside the scene's item collection and
// is never persisted.
type MultiSelect struct {
	members []item.Item

	pos      geometry.Point2D
	size     geometry.Size
	scale    float64
	rotation float64
	flip     int
}

func newMultiSelect(members []item.Item) *MultiSelect {
	m := &MultiSelect{members: members}
	m.Fit()
	return m
}

// Members returns the wrapped items in insertion order.
func (m *MultiSelect) Members() []item.Item { return m.members }

// Fit resets the aggregate to the identity transform around the union of
// the members' scene bounding boxes. Called after selection changes and
// after every committed transform.
func (m *MultiSelect) Fit() {
	var union geometry.Rect
	for i, it := range m.members {
		r := item.SceneBoundingRect(it)
		if i == 0 {
			union = r
		} else {
			union = union.Union(r)
		}
	}
	m.pos = union.TopLeft()
	m.size = geometry.NewSize(union.Width, union.Height)
	m.scale = 1
	m.rotation = 0
	m.flip = 1
}

// ID returns the sentinel aggregate id.
func (m *MultiSelect) ID() int64 { return multiSelectID }

// SaveID is always zero; the aggregate is never persisted.
func (m *MultiSelect) SaveID() int64 { return 0 }

// SetSaveID is a no-op.
func (m *MultiSelect) SetSaveID(int64) {}

// Position returns the aggregate origin in scene coordinates.
func (m *MultiSelect) Position() geometry.Point2D { return m.pos }

// SetPosition moves the aggregate and every member by the same delta.
func (m *MultiSelect) SetPosition(p geometry.Point2D) {
	delta := p.Sub(m.pos)
	for _, it := range m.members {
		it.SetPosition(it.Position().Add(delta))
	}
	m.pos = p
}

// Scale returns the aggregate scale, 1 right after a Fit.
func (m *MultiSelect) Scale() float64 { return m.scale }

// SetScale scales every member around the shared anchor by the relative
// change, then updates the aggregate's own frame.
func (m *MultiSelect) SetScale(factor float64, anchor geometry.Point2D) {
	if factor < item.MinScaleFactor {
		return
	}
	ratio := factor / m.scale
	for _, it := range m.members {
		it.SetScale(it.Scale()*ratio, anchor)
	}
	m.pos = anchor.Add(m.pos.Sub(anchor).Scale(ratio))
	m.scale = factor
}

// Rotation returns the aggregate rotation in degrees.
func (m *MultiSelect) Rotation() float64 { return m.rotation }

// SetRotation rotates every member around the shared anchor by the
// rotation delta.
func (m *MultiSelect) SetRotation(degrees float64, anchor geometry.Point2D) {
	norm := geometry.NormalizeDeg(degrees)
	delta := norm - m.rotation
	for _, it := range m.members {
		it.SetRotation(it.Rotation()+delta, anchor)
	}
	rot := geometry.Rotation(geometry.DegToRad(delta))
	m.pos = anchor.Add(rot.Apply(m.pos.Sub(anchor)))
	m.rotation = norm
}

// Flip returns the aggregate mirror state.
func (m *MultiSelect) Flip() int { return m.flip }

// DoFlip mirrors every member about the shared anchor. The aggregate
// frame tracks the same mirror axes as item.Base.DoFlip.
func (m *MultiSelect) DoFlip(vertical bool, anchor geometry.Point2D) {
	for _, it := range m.members {
		it.DoFlip(vertical, anchor)
	}
	axis := m.rotation + 90
	if vertical {
		axis = m.rotation
	}
	mirror := geometry.Reflection(geometry.DegToRad(axis))
	m.pos = anchor.Add(mirror.Apply(m.pos.Sub(anchor)))
	m.flip = -m.flip
	if vertical {
		m.rotation = geometry.NormalizeDeg(m.rotation + 180)
	}
}

// Z returns the highest member z so the aggregate paints above its
// members.
func (m *MultiSelect) Z() float64 {
	var max float64
	for i, it := range m.members {
		if i == 0 || it.Z() > max {
			max = it.Z()
		}
	}
	return max
}

// SetZ is a no-op; restacking goes through the members directly.
func (m *MultiSelect) SetZ(float64) {}

// Opacity is always opaque.
func (m *MultiSelect) Opacity() float64 { return 1 }

// SetOpacity is a no-op on the aggregate.
func (m *MultiSelect) SetOpacity(float64) {}

// BoundingRect returns the aggregate's local content rectangle.
func (m *MultiSelect) BoundingRect() geometry.Rect {
	return geometry.NewRect(0, 0, m.size.Width, m.size.Height)
}

// Type identifies the synthetic aggregate.
func (m *MultiSelect) Type() string { return TypeMultiSelect }

// ToRecord always fails; the aggregate must never be persisted.
func (m *MultiSelect) ToRecord() (item.Record, error) {
	return item.Record{}, errors.New("multi-select aggregate is not persistable")
}

// Copy is not supported for the aggregate.
func (m *MultiSelect) Copy() item.Item { return nil }

// SetNotify is a no-op; members notify the scene themselves.
func (m *MultiSelect) SetNotify(item.Notify) {}

// updateMultiSelect keeps the aggregate in sync with the selection set:
// present and fitted whenever two or more items are selected, absent
// otherwise.
func (s *Scene) updateMultiSelect() {
	sel := s.SelectedItems()
	if len(sel) < 2 {
		s.multi = nil
		return
	}
	s.multi = newMultiSelect(sel)
}

// MultiSelectItem returns the aggregate, or nil when fewer than two items
// are selected.
func (s *Scene) MultiSelectItem() *MultiSelect { return s.multi }

// TransformTarget returns the item transform handles should act on: the
// aggregate when present, the single selected item otherwise, nil when
// nothing is selected.
func (s *Scene) TransformTarget() item.Item {
	if s.multi != nil {
		return s.multi
	}
	sel := s.SelectedItems()
	if len(sel) == 1 {
		return sel[0]
	}
	return nil
}
