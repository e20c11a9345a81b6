// Package export renders boards to PNG, SVG and per-image files.
package export

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"refboard/internal/item"
	"refboard/internal/scene"
	"refboard/pkg/geometry"
)

// marginRatio pads the exported content rectangle on every side.
const marginRatio = 0.03

// maxRasterDim caps the output size so a stray scale factor cannot ask
// for a gigapixel allocation.
const maxRasterDim = 20000

// ErrEmptyBoard is returned when there is nothing to export.
var ErrEmptyBoard = errors.New("board has no items to export")

var (
	fontOnce   sync.Once
	fontSource *text.FontSource
	fontErr    error
)

func exportFont() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSource, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSource, fontErr
}

// ContentRect returns the board's content rectangle with the export
// margin applied.
func ContentRect(sc *scene.Scene) geometry.Rect {
	var rect geometry.Rect
	first := true
	for _, it := range sc.ItemsForSave() {
		r := item.SceneBoundingRect(it)
		if first {
			rect = r
			first = false
		} else {
			rect = rect.Union(r)
		}
	}
	if first {
		return geometry.Rect{}
	}
	margin := marginRatio * maxf(rect.Width, rect.Height)
	return rect.Adjusted(margin)
}

// RasterSize returns the pixel dimensions a raster export would produce
// for a requested width. A non-positive width means natural size. The
// aspect ratio is always that of the content rectangle.
func RasterSize(sc *scene.Scene, width int) (w, h int, err error) {
	rect := ContentRect(sc)
	if rect.IsEmpty() {
		return 0, 0, ErrEmptyBoard
	}
	if width <= 0 {
		width = int(rect.Width + 0.5)
	}
	if width < 1 {
		width = 1
	}
	height := int(float64(width)*rect.Height/rect.Width + 0.5)
	if height < 1 {
		height = 1
	}
	if width > maxRasterDim || height > maxRasterDim {
		return 0, 0, fmt.Errorf("export size %dx%d exceeds maximum %d", width, height, maxRasterDim)
	}
	return width, height, nil
}

func render(sc *scene.Scene, width int) (*gg.Context, error) {
	rect := ContentRect(sc)
	w, h, err := RasterSize(sc, width)
	if err != nil {
		return nil, err
	}
	view := float64(w) / rect.Width

	dc := gg.NewContext(w, h)
	dc.ClearWithColor(gg.White)
	for _, it := range sc.ItemsByZ() {
		if err := renderItem(dc, it, rect.TopLeft(), view); err != nil {
			return nil, err
		}
	}
	return dc, nil
}

// RenderRaster paints the whole board into an image of the given width,
// keeping the content aspect ratio. Items are painted back to front with
// their full transform, crop and opacity; selection chrome is never part
// of an export.
func RenderRaster(sc *scene.Scene, width int) (image.Image, error) {
	dc, err := render(sc, width)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders the board and streams it as PNG.
func WritePNG(sc *scene.Scene, width int, out io.Writer) error {
	dc, err := render(sc, width)
	if err != nil {
		return err
	}
	return dc.EncodePNG(out)
}

// DrawItem paints one item into an existing context with the given view
// origin and scale. The board view shares this painter so the editing
// view and the export output stay pixel-identical.
func DrawItem(dc *gg.Context, it item.Item, origin geometry.Point2D, view float64) error {
	return renderItem(dc, it, origin, view)
}

func renderItem(dc *gg.Context, it item.Item, origin geometry.Point2D, view float64) error {
	dc.Push()
	defer dc.Pop()

	dc.Scale(view, view)
	dc.Translate(-origin.X, -origin.Y)
	dc.Translate(it.Position().X, it.Position().Y)
	dc.Rotate(geometry.DegToRad(it.Rotation()))
	s := it.Scale()
	dc.Scale(float64(it.Flip())*s, s)

	switch v := it.(type) {
	case *item.Image:
		renderImage(dc, v)
	case *item.Text:
		return renderText(dc, v)
	default:
		renderPlaceholder(dc, it)
	}
	return nil
}

func renderImage(dc *gg.Context, img *item.Image) {
	pixels := img.Pixels()
	if pixels == nil {
		renderPlaceholder(dc, img)
		return
	}
	crop := img.Crop()
	src := image.Rect(int(crop.X), int(crop.Y), int(crop.X+crop.Width), int(crop.Y+crop.Height))
	dc.DrawImageEx(gg.ImageBufFromImage(pixels), gg.DrawImageOptions{
		X:             crop.X,
		Y:             crop.Y,
		DstWidth:      crop.Width,
		DstHeight:     crop.Height,
		SrcRect:       &src,
		Opacity:       img.Opacity(),
		Interpolation: gg.InterpBilinear,
	})
}

func renderText(dc *gg.Context, txt *item.Text) error {
	source, err := exportFont()
	if err != nil {
		return fmt.Errorf("load export font: %w", err)
	}
	size := txt.FontSize()
	dc.SetFont(source.Face(size))
	dc.SetRGBA(0, 0, 0, txt.Opacity())
	for i, line := range strings.Split(txt.TextContent(), "\n") {
		baseline := size + float64(i)*size*item.LineHeightRatio
		dc.DrawString(line, 0, baseline)
	}
	return nil
}

// renderPlaceholder draws the gray box used for unloadable items.
func renderPlaceholder(dc *gg.Context, it item.Item) {
	br := it.BoundingRect()
	dc.SetRGBA(0.8, 0.8, 0.8, 1)
	dc.DrawRectangle(br.X, br.Y, br.Width, br.Height)
	dc.Fill()
	dc.SetRGBA(0.5, 0.1, 0.1, 1)
	dc.SetLineWidth(2)
	dc.DrawRectangle(br.X, br.Y, br.Width, br.Height)
	dc.Stroke()
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
