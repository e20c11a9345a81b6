package item

import (
	"refboard/pkg/geometry"
)

// errorRectSize is the placeholder extent shown for unrecognized items.
const (
	errorRectWidth  = 300.0
	errorRectHeight = 150.0
)

// Error is a placeholder for a persisted row whose type this version does
// not recognize. It round-trips the original type string, save id,
// transform and payload untouched so a later save never silently discards
// content written by a different application version.
type Error struct {
	Base

	originalType string
	payload      []byte
}

// NewErrorFromRecord wraps an unrecognized persisted row.
func NewErrorFromRecord(rec Record) *Error {
	it := &Error{Base: NewBase(), originalType: rec.Type, payload: rec.Data}
	it.bind(it)
	it.saveID = rec.ID
	it.setTransform(geometry.NewPoint2D(rec.X, rec.Y), rec.Scale, rec.Rotation, rec.Flip, rec.Z)
	return it
}

// OriginalType returns the type string the row was stored with.
func (it *Error) OriginalType() string { return it.originalType }

// Message returns the placeholder text shown on the canvas.
func (it *Error) Message() string {
	return "Unknown item type: " + it.originalType
}

// BoundingRect returns the fixed placeholder extent.
func (it *Error) BoundingRect() geometry.Rect {
	return geometry.NewRect(0, 0, errorRectWidth, errorRectHeight)
}

// Type returns the original persisted discriminator so the row is written
// back unchanged.
func (it *Error) Type() string { return it.originalType }

// ToRecord writes the preserved payload back verbatim.
func (it *Error) ToRecord() (Record, error) {
	return it.baseRecord(it.originalType, it.payload), nil
}

// Copy returns a duplicate with a fresh id and no save id.
func (it *Error) Copy() Item {
	dup := &Error{Base: it.copyBase(), originalType: it.originalType, payload: it.payload}
	dup.bind(dup)
	return dup
}
