// Package board provides the infinite canvas widget with pan, zoom and
// selection handling.
package board

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"refboard/internal/app"
	"refboard/internal/item"
	"refboard/internal/selection"
	"refboard/pkg/geometry"
)

const (
	minZoom  = 0.02
	maxZoom  = 32.0
	zoomStep = 1.25
)

// View is the board widget: it paints the scene through the shared item
// painter and routes pointer events into the selection engine.
type View struct {
	widget.BaseWidget

	state  *app.State
	engine *selection.Engine

	raster *fynecanvas.Raster

	// View transform: scene point at the view origin plus magnification.
	zoom float64
	pan  geometry.Point2D

	// Interaction state
	panning   bool
	panStart  fyne.Position
	panOrigin geometry.Point2D
	dragging  bool
	hover     selection.Region

	debugShapes bool

	onZoomChange  func(zoom float64)
	onColorSample func(c color.Color)
}

// NewView creates a board view over the application state.
func NewView(state *app.State, debugShapes bool) *View {
	v := &View{
		state:       state,
		engine:      selection.NewEngine(state.Scene, selection.DefaultConfig()),
		zoom:        1.0,
		debugShapes: debugShapes,
	}

	v.raster = fynecanvas.NewRaster(v.draw)
	v.raster.ScaleMode = fynecanvas.ImageScalePixels

	v.ExtendBaseWidget(v)
	return v
}

// Engine exposes the selection engine for menu-driven operations (crop
// enter/commit/cancel, rotation snap).
func (v *View) Engine() *selection.Engine { return v.engine }

// Zoom returns the current magnification.
func (v *View) Zoom() float64 { return v.zoom }

// OnZoomChange sets a callback for zoom changes.
func (v *View) OnZoomChange(callback func(zoom float64)) {
	v.onZoomChange = callback
}

// OnColorSample sets a callback reporting the image pixel under the
// cursor while Alt is held.
func (v *View) OnColorSample(callback func(c color.Color)) {
	v.onColorSample = callback
}

// ViewToScene converts a widget position to scene coordinates.
func (v *View) ViewToScene(pos fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(
		float64(pos.X)/v.zoom+v.pan.X,
		float64(pos.Y)/v.zoom+v.pan.Y,
	)
}

// SceneToView converts a scene point to widget coordinates.
func (v *View) SceneToView(p geometry.Point2D) fyne.Position {
	return fyne.NewPos(
		float32((p.X-v.pan.X)*v.zoom),
		float32((p.Y-v.pan.Y)*v.zoom),
	)
}

// Center returns the scene point at the middle of the view.
func (v *View) Center() geometry.Point2D {
	size := v.Size()
	return v.ViewToScene(fyne.NewPos(size.Width/2, size.Height/2))
}

// SetZoom sets the magnification, keeping the given widget position
// fixed on its scene point.
func (v *View) SetZoom(zoom float64, at fyne.Position) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	anchor := v.ViewToScene(at)
	v.zoom = zoom
	v.pan = geometry.NewPoint2D(
		anchor.X-float64(at.X)/v.zoom,
		anchor.Y-float64(at.Y)/v.zoom,
	)
	v.engine.SetViewZoom(zoom)
	v.Refresh()

	if v.onZoomChange != nil {
		v.onZoomChange(zoom)
	}
}

// ZoomIn magnifies around the view center.
func (v *View) ZoomIn() {
	size := v.Size()
	v.SetZoom(v.zoom*zoomStep, fyne.NewPos(size.Width/2, size.Height/2))
}

// ZoomOut shrinks around the view center.
func (v *View) ZoomOut() {
	size := v.Size()
	v.SetZoom(v.zoom/zoomStep, fyne.NewPos(size.Width/2, size.Height/2))
}

// ResetZoom returns to 1:1 around the view center.
func (v *View) ResetZoom() {
	size := v.Size()
	v.SetZoom(1.0, fyne.NewPos(size.Width/2, size.Height/2))
}

// FitScene pans and zooms so the whole board content is visible.
func (v *View) FitScene() {
	rect := v.state.Scene.SelectionRect()
	if !v.state.Scene.HasSelection() {
		rect = contentRect(v.state.Scene)
	}
	if rect.IsEmpty() {
		return
	}
	size := v.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	zoomX := float64(size.Width) / rect.Width
	zoomY := float64(size.Height) / rect.Height
	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}
	zoom *= 0.95 // small margin
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}

	v.zoom = zoom
	center := geometry.NewPoint2D(rect.X+rect.Width/2, rect.Y+rect.Height/2)
	v.pan = geometry.NewPoint2D(
		center.X-float64(size.Width)/2/zoom,
		center.Y-float64(size.Height)/2/zoom,
	)
	v.engine.SetViewZoom(zoom)
	v.Refresh()

	if v.onZoomChange != nil {
		v.onZoomChange(zoom)
	}
}

// Refresh repaints the board.
func (v *View) Refresh() {
	v.raster.Refresh()
	v.BaseWidget.Refresh()
}

// Scrolled zooms around the cursor; wheel never pans.
func (v *View) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		v.SetZoom(v.zoom*zoomStep, ev.Position)
	} else if ev.Scrolled.DY < 0 {
		v.SetZoom(v.zoom/zoomStep, ev.Position)
	}
}

// MouseDown starts a selection drag or a pan.
func (v *View) MouseDown(ev *desktop.MouseEvent) {
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		additive := ev.Modifier&fyne.KeyModifierShift != 0 ||
			ev.Modifier&fyne.KeyModifierControl != 0
		v.engine.MousePressed(v.ViewToScene(ev.Position), additive)
		v.dragging = true
		v.Refresh()
	case desktop.MouseButtonSecondary, desktop.MouseButtonTertiary:
		v.panning = true
		v.panStart = ev.Position
		v.panOrigin = v.pan
	}
}

// MouseUp ends the current drag.
func (v *View) MouseUp(ev *desktop.MouseEvent) {
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		if v.dragging {
			v.engine.MouseReleased(v.ViewToScene(ev.Position))
			v.dragging = false
			v.Refresh()
		}
	case desktop.MouseButtonSecondary, desktop.MouseButtonTertiary:
		v.panning = false
	}
}

// MouseIn implements desktop.Hoverable.
func (v *View) MouseIn(*desktop.MouseEvent) {}

// MouseMoved feeds drags into the engine and tracks the hover region for
// the cursor shape.
func (v *View) MouseMoved(ev *desktop.MouseEvent) {
	if v.panning {
		v.pan = geometry.NewPoint2D(
			v.panOrigin.X-float64(ev.Position.X-v.panStart.X)/v.zoom,
			v.panOrigin.Y-float64(ev.Position.Y-v.panStart.Y)/v.zoom,
		)
		v.Refresh()
		return
	}

	sceneP := v.ViewToScene(ev.Position)
	if v.dragging {
		v.engine.MouseMoved(sceneP)
		v.Refresh()
		return
	}

	hover := v.engine.HoverRegion(sceneP)
	if hover != v.hover {
		v.hover = hover
	}

	if v.onColorSample != nil && ev.Modifier&fyne.KeyModifierAlt != 0 {
		if img, ok := v.state.Scene.ItemAt(sceneP).(*item.Image); ok {
			if c, ok := img.SampleColorAt(item.MapFromScene(img, sceneP)); ok {
				v.onColorSample(c)
			}
		}
	}
}

// MouseOut implements desktop.Hoverable.
func (v *View) MouseOut() {
	v.hover = selection.RegionNone
}

// Cursor reflects the hover region.
func (v *View) Cursor() desktop.Cursor {
	switch v.hover {
	case selection.RegionBody, selection.RegionCropBody:
		return desktop.PointerCursor
	case selection.RegionScale, selection.RegionCropHandle:
		return desktop.CrosshairCursor
	default:
		return desktop.DefaultCursor
	}
}

// draw is the raster drawing function.
func (v *View) draw(w, h int) image.Image {
	return v.paint(w, h)
}

// CreateRenderer implements fyne.Widget.
func (v *View) CreateRenderer() fyne.WidgetRenderer {
	return &viewRenderer{view: v}
}

type viewRenderer struct {
	view *View
}

func (r *viewRenderer) Layout(size fyne.Size) {
	r.view.raster.Resize(size)
}

func (r *viewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (r *viewRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *viewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.raster}
}

func (r *viewRenderer) Destroy() {}
