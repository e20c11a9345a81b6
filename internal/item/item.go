// Package item defines the canvas item variants and their transform contract.
//
// Every item carries a position, a uniform scale factor, a rotation in
// degrees normalized to [0,360), a horizontal mirror flip, a z stacking
// value and an opacity. All mutating transform calls take a scene-space
// anchor point that stays visually fixed across the operation.
package item

import (
	"encoding/json"
	"math"
	"sync/atomic"

	"refboard/pkg/geometry"
)

// MinScaleFactor is the smallest accepted scale. Zero, negative and
// non-finite factors are rejected and keep the previous value.
const MinScaleFactor = 1e-9

// Type discriminators persisted in the items table.
const (
	TypeImage = "pixmap"
	TypeText  = "text"
	TypeError = "error"
)

var idCounter int64

func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// Record is the serializable state of an item: one row of the items table.
// ID is the save id (0 for items never saved) and Data holds the
// type-specific JSON payload.
type Record struct {
	ID       int64
	Type     string
	X        float64
	Y        float64
	Z        float64
	Scale    float64
	Rotation float64
	Flip     int
	Data     json.RawMessage
}

// Notify receives change notifications from an item. The scene uses it to
// invalidate bounding-rect caches before geometry changes and to track the
// z extrema.
type Notify interface {
	// GeometryWillChange fires before any geometry mutation, while the old
	// bounding rectangle is still valid.
	GeometryWillChange(it Item)
	// ZChanged fires after an item's z value changed.
	ZChanged(it Item, z float64)
}

// Item is the closed capability set shared by all canvas item variants.
// The selection engine and the scene operate purely against this interface.
type Item interface {
	ID() int64
	SaveID() int64
	SetSaveID(id int64)

	Position() geometry.Point2D
	SetPosition(p geometry.Point2D)
	Scale() float64
	SetScale(factor float64, anchor geometry.Point2D)
	Rotation() float64
	SetRotation(degrees float64, anchor geometry.Point2D)
	Flip() int
	DoFlip(vertical bool, anchor geometry.Point2D)
	Z() float64
	SetZ(z float64)
	Opacity() float64
	SetOpacity(o float64)

	// BoundingRect is the untransformed content rectangle in item-local
	// coordinates (post-crop for image items).
	BoundingRect() geometry.Rect

	Type() string
	ToRecord() (Record, error)
	Copy() Item

	SetNotify(n Notify)
}

// Base holds the state and transform behavior common to all item variants.
type Base struct {
	id     int64
	saveID int64

	pos      geometry.Point2D
	scale    float64
	rotation float64
	flip     int
	z        float64
	opacity  float64

	notify Notify
	self   Item
}

// NewBase returns a Base with identity transforms. Variants embed it and
// must call bind so notifications carry the outer item.
func NewBase() Base {
	return Base{
		id:      nextID(),
		scale:   1,
		flip:    1,
		opacity: 1,
	}
}

func (b *Base) bind(self Item) {
	b.self = self
}

// SetNotify registers the change listener. Passing nil detaches it.
func (b *Base) SetNotify(n Notify) {
	b.notify = n
}

func (b *Base) geometryWillChange() {
	if b.notify != nil && b.self != nil {
		b.notify.GeometryWillChange(b.self)
	}
}

// ID returns the ephemeral, process-local item id.
func (b *Base) ID() int64 { return b.id }

// SaveID returns the persisted row id, or 0 when the item was never saved.
func (b *Base) SaveID() int64 { return b.saveID }

// SetSaveID records the persisted row id.
func (b *Base) SetSaveID(id int64) { b.saveID = id }

// Position returns the item's local origin in scene coordinates.
func (b *Base) Position() geometry.Point2D { return b.pos }

// SetPosition moves the item's local origin.
func (b *Base) SetPosition(p geometry.Point2D) {
	b.geometryWillChange()
	b.pos = p
}

// Scale returns the current uniform scale factor.
func (b *Base) Scale() float64 { return b.scale }

// SetScale sets the scale factor and repositions the item so anchor (in
// scene coordinates) stays visually fixed. Factors at or below
// MinScaleFactor, NaN and Inf are ignored.
func (b *Base) SetScale(factor float64, anchor geometry.Point2D) {
	if factor < MinScaleFactor || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	b.geometryWillChange()
	ratio := factor / b.scale
	b.pos = anchor.Add(b.pos.Sub(anchor).Scale(ratio))
	b.scale = factor
}

// Rotation returns the rotation in degrees, in [0, 360).
func (b *Base) Rotation() float64 { return b.rotation }

// SetRotation sets the rotation (normalized into [0,360)) and repositions
// the item so anchor stays fixed under the rotation delta.
func (b *Base) SetRotation(degrees float64, anchor geometry.Point2D) {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return
	}
	b.geometryWillChange()
	norm := geometry.NormalizeDeg(degrees)
	delta := norm - b.rotation
	rot := geometry.Rotation(geometry.DegToRad(delta))
	b.pos = anchor.Add(rot.Apply(b.pos.Sub(anchor)))
	b.rotation = norm
}

// Flip returns +1, or -1 when the item is mirrored about its local
// vertical axis.
func (b *Base) Flip() int { return b.flip }

// DoFlip toggles the mirror flip, keeping anchor fixed. A vertical flip is
// modeled as a horizontal flip plus a half-turn. The mirror axis through
// the anchor is the item's local vertical axis for a horizontal flip
// (rotation+90°) and its local horizontal axis for a vertical one.
func (b *Base) DoFlip(vertical bool, anchor geometry.Point2D) {
	b.geometryWillChange()
	axis := b.rotation + 90
	if vertical {
		axis = b.rotation
	}
	mirror := geometry.Reflection(geometry.DegToRad(axis))
	b.pos = anchor.Add(mirror.Apply(b.pos.Sub(anchor)))
	b.flip = -b.flip
	if vertical {
		b.rotation = geometry.NormalizeDeg(b.rotation + 180)
	}
}

// Z returns the stacking value.
func (b *Base) Z() float64 { return b.z }

// SetZ updates the stacking value and informs the scene.
func (b *Base) SetZ(z float64) {
	b.z = z
	if b.notify != nil && b.self != nil {
		b.notify.ZChanged(b.self, z)
	}
}

// Opacity returns the paint opacity in [0,1].
func (b *Base) Opacity() float64 { return b.opacity }

// SetOpacity clamps and stores the paint opacity.
func (b *Base) SetOpacity(o float64) {
	if math.IsNaN(o) {
		return
	}
	b.opacity = math.Min(math.Max(o, 0), 1)
}

// setTransform restores absolute transform state without anchor logic.
// Used when reconstituting persisted items and by item copies.
func (b *Base) setTransform(pos geometry.Point2D, scale, rotation float64, flip int, z float64) {
	if scale < MinScaleFactor {
		scale = 1
	}
	if flip != -1 {
		flip = 1
	}
	b.pos = pos
	b.scale = scale
	b.rotation = geometry.NormalizeDeg(rotation)
	b.flip = flip
	b.z = z
}

func (b *Base) baseRecord(typ string, data json.RawMessage) Record {
	return Record{
		ID:       b.saveID,
		Type:     typ,
		X:        b.pos.X,
		Y:        b.pos.Y,
		Z:        b.z,
		Scale:    b.scale,
		Rotation: b.rotation,
		Flip:     b.flip,
		Data:     data,
	}
}

// copyBase duplicates transform state into a fresh Base with a new id and
// no save id.
func (b *Base) copyBase() Base {
	nb := NewBase()
	nb.pos = b.pos
	nb.scale = b.scale
	nb.rotation = b.rotation
	nb.flip = b.flip
	nb.z = b.z
	nb.opacity = b.opacity
	return nb
}

// SceneTransform returns the item-local to scene coordinate transform:
// translate(position) ∘ rotate(rotation) ∘ scale(flip·s, s).
func SceneTransform(it Item) geometry.AffineTransform {
	s := it.Scale()
	return geometry.Translation(it.Position().X, it.Position().Y).
		Compose(geometry.Rotation(geometry.DegToRad(it.Rotation()))).
		Compose(geometry.Scale(float64(it.Flip())*s, s))
}

// MapToScene maps a point from item-local to scene coordinates.
func MapToScene(it Item, p geometry.Point2D) geometry.Point2D {
	return SceneTransform(it).Apply(p)
}

// MapFromScene maps a scene point into item-local coordinates.
func MapFromScene(it Item, p geometry.Point2D) geometry.Point2D {
	inv, ok := SceneTransform(it).Inverse()
	if !ok {
		return p
	}
	return inv.Apply(p)
}

// Center returns the item's visual center in scene coordinates.
func Center(it Item) geometry.Point2D {
	return MapToScene(it, it.BoundingRect().Center())
}

// SceneBoundingRect returns the axis-aligned scene-space bounding box of
// the item's transformed content rectangle.
func SceneBoundingRect(it Item) geometry.Rect {
	tr := SceneTransform(it)
	c := it.BoundingRect().Corners()
	pts := make([]geometry.Point2D, 0, 4)
	for _, p := range c {
		pts = append(pts, tr.Apply(p))
	}
	return geometry.BoundingBox(pts)
}
