package item

import (
	"encoding/json"
	"fmt"
	"strings"

	"refboard/pkg/geometry"
)

// Text layout constants. The widget toolkit does the real glyph layout;
// these approximate the content rectangle closely enough for hit-testing
// and export placement.
const (
	defaultFontSize = 24.0
	charWidthRatio  = 0.6

	// LineHeightRatio is the line advance as a multiple of the font size,
	// shared with the export renderers.
	LineHeightRatio = 1.3
)

// Text is a canvas item displaying plain text.
type Text struct {
	Base

	text     string
	fontSize float64
}

type textPayload struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size,omitempty"`
}

// NewText creates a text item.
func NewText(text string) *Text {
	it := &Text{Base: NewBase(), text: text, fontSize: defaultFontSize}
	it.bind(it)
	return it
}

// NewTextFromRecord reconstitutes a text item from a persisted row,
// tolerating missing optional fields.
func NewTextFromRecord(rec Record) (*Text, error) {
	if rec.Type != TypeText {
		return nil, fmt.Errorf("record type %q is not text", rec.Type)
	}
	it := NewText("")
	it.saveID = rec.ID
	it.setTransform(geometry.NewPoint2D(rec.X, rec.Y), rec.Scale, rec.Rotation, rec.Flip, rec.Z)

	var payload textPayload
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode text payload: %w", err)
		}
	}
	it.text = payload.Text
	if payload.FontSize > 0 {
		it.fontSize = payload.FontSize
	}
	return it, nil
}

// TextContent returns the displayed text.
func (it *Text) TextContent() string { return it.text }

// SetText replaces the displayed text.
func (it *Text) SetText(text string) {
	it.geometryWillChange()
	it.text = text
}

// FontSize returns the point size used for layout.
func (it *Text) FontSize() float64 { return it.fontSize }

// BoundingRect approximates the laid-out text extents.
func (it *Text) BoundingRect() geometry.Rect {
	lines := strings.Split(it.text, "\n")
	longest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	w := float64(longest) * it.fontSize * charWidthRatio
	h := float64(len(lines)) * it.fontSize * LineHeightRatio
	if w < it.fontSize {
		w = it.fontSize
	}
	return geometry.NewRect(0, 0, w, h)
}

// Type returns the persisted type discriminator.
func (it *Text) Type() string { return TypeText }

// ToRecord serializes transform state and the text payload.
func (it *Text) ToRecord() (Record, error) {
	data, err := json.Marshal(textPayload{Text: it.text, FontSize: it.fontSize})
	if err != nil {
		return Record{}, fmt.Errorf("encode text payload: %w", err)
	}
	return it.baseRecord(TypeText, data), nil
}

// Copy returns a duplicate with a fresh id and no save id.
func (it *Text) Copy() Item {
	dup := &Text{Base: it.copyBase(), text: it.text, fontSize: it.fontSize}
	dup.bind(dup)
	return dup
}
