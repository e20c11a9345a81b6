package board

import (
	"image"

	"github.com/gogpu/gg"

	"refboard/internal/export"
	"refboard/internal/item"
	"refboard/internal/scene"
	"refboard/internal/selection"
	"refboard/pkg/geometry"
)

// Chrome colors, normalized RGBA.
var (
	backgroundColor = gg.RGBA{R: 0.24, G: 0.24, B: 0.25, A: 1}
	outlineColor    = gg.RGBA{R: 0.26, G: 0.56, B: 0.91, A: 1}
	handleFillColor = gg.RGBA{R: 1, G: 1, B: 1, A: 1}
	rubberFillColor = gg.RGBA{R: 0.26, G: 0.56, B: 0.91, A: 0.15}
	cropDimColor    = gg.RGBA{R: 0, G: 0, B: 0, A: 0.5}
	debugFlipColor  = gg.RGBA{R: 0.9, G: 0.5, B: 0.1, A: 0.35}
	debugGrabColor  = gg.RGBA{R: 0.1, G: 0.8, B: 0.4, A: 0.35}
)

// paint renders the visible scene plus selection chrome into a frame.
func (v *View) paint(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	dc := gg.NewContext(w, h)
	dc.ClearWithColor(backgroundColor)

	sc := v.state.Scene
	for _, it := range sc.ItemsByZ() {
		// Draw errors are per item; a failed one leaves its area blank.
		_ = export.DrawItem(dc, it, v.pan, v.zoom)
	}

	if v.engine.Cropping() {
		v.paintCropChrome(dc)
	} else {
		v.paintSelectionChrome(dc)
	}

	if sc.RubberbandActive() {
		v.paintRubberband(dc, sc.RubberbandRect())
	}

	return dc.Image()
}

func (v *View) paintSelectionChrome(dc *gg.Context) {
	outline := v.engine.SelectionOutline()
	if len(outline) == 0 {
		return
	}

	v.pathPolygon(dc, outline)
	setColor(dc, outlineColor)
	dc.SetLineWidth(1)
	dc.Stroke()

	for _, handle := range v.engine.HandleOutlines() {
		v.pathPolygon(dc, handle)
		setColor(dc, handleFillColor)
		dc.FillPreserve()
		setColor(dc, outlineColor)
		dc.Stroke()
	}

	if v.debugShapes {
		for _, strip := range v.engine.FlipStripOutlines() {
			v.pathPolygon(dc, strip)
			setColor(dc, debugFlipColor)
			dc.Fill()
		}
		for _, handle := range v.engine.HandleOutlines() {
			v.pathPolygon(dc, handle)
			setColor(dc, debugGrabColor)
			dc.Fill()
		}
	}
}

func (v *View) paintCropChrome(dc *gg.Context) {
	crop, natural := v.engine.CropOutlines()
	if len(crop) == 0 {
		return
	}

	// Dim the part of the image outside the crop rectangle.
	v.pathPolygon(dc, natural)
	v.pathPolygon(dc, crop)
	dc.SetFillRule(gg.FillRuleEvenOdd)
	setColor(dc, cropDimColor)
	dc.Fill()
	dc.SetFillRule(gg.FillRuleNonZero)

	v.pathPolygon(dc, natural)
	setColor(dc, outlineColor)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	dc.Stroke()
	dc.ClearDash()

	v.pathPolygon(dc, crop)
	setColor(dc, handleFillColor)
	dc.SetLineWidth(1)
	dc.Stroke()

	for _, handle := range v.engine.CropHandleOutlines() {
		v.pathPolygon(dc, handle)
		setColor(dc, handleFillColor)
		dc.FillPreserve()
		setColor(dc, outlineColor)
		dc.Stroke()
	}
}

func (v *View) paintRubberband(dc *gg.Context, r geometry.Rect) {
	tl := v.SceneToView(r.TopLeft())
	dc.DrawRectangle(float64(tl.X), float64(tl.Y), r.Width*v.zoom, r.Height*v.zoom)
	setColor(dc, rubberFillColor)
	dc.FillPreserve()
	setColor(dc, outlineColor)
	dc.SetLineWidth(1)
	dc.Stroke()
}

func setColor(dc *gg.Context, c gg.RGBA) {
	dc.SetRGBA(c.R, c.G, c.B, c.A)
}

// pathPolygon traces a scene-space polygon in view coordinates.
func (v *View) pathPolygon(dc *gg.Context, poly selection.Polygon) {
	if len(poly) == 0 {
		return
	}
	for i, p := range poly {
		vp := v.SceneToView(p)
		if i == 0 {
			dc.MoveTo(float64(vp.X), float64(vp.Y))
		} else {
			dc.LineTo(float64(vp.X), float64(vp.Y))
		}
	}
	dc.ClosePath()
}

// contentRect is the union of all item scene bounding rectangles.
func contentRect(sc *scene.Scene) geometry.Rect {
	var rect geometry.Rect
	first := true
	for _, it := range sc.Items() {
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
