package export

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"strings"

	"refboard/internal/item"
	"refboard/internal/scene"
)

// WriteSVG serializes the board as an SVG document. Image items embed
// their original encoded bytes as data URIs, so the output is lossless
// and self-contained; crops become clip paths.
func WriteSVG(sc *scene.Scene, out io.Writer) error {
	rect := ContentRect(sc)
	if rect.IsEmpty() {
		return ErrEmptyBoard
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="%s %s %s %s">`+"\n",
		num(rect.Width), num(rect.Height), num(rect.X), num(rect.Y), num(rect.Width), num(rect.Height))

	for i, it := range sc.ItemsByZ() {
		if err := writeSVGItem(&b, it, i); err != nil {
			return err
		}
	}
	b.WriteString("</svg>\n")

	_, err := io.WriteString(out, b.String())
	return err
}

func svgTransform(it item.Item) string {
	s := it.Scale()
	return fmt.Sprintf("translate(%s %s) rotate(%s) scale(%s %s)",
		num(it.Position().X), num(it.Position().Y),
		num(it.Rotation()),
		num(float64(it.Flip())*s), num(s))
}

func writeSVGItem(b *strings.Builder, it item.Item, index int) error {
	switch v := it.(type) {
	case *item.Image:
		return writeSVGImage(b, v, index)
	case *item.Text:
		writeSVGText(b, v)
	default:
		writeSVGPlaceholder(b, it)
	}
	return nil
}

func writeSVGImage(b *strings.Builder, img *item.Image, index int) error {
	mime, err := sniffMIME(img.EncodedBytes())
	if err != nil {
		return fmt.Errorf("image %q: %w", img.Filename(), err)
	}
	crop := img.Crop()
	nat := img.NaturalRect()

	clipID := fmt.Sprintf("crop%d", index)
	fmt.Fprintf(b, `<clipPath id="%s"><rect x="%s" y="%s" width="%s" height="%s"/></clipPath>`+"\n",
		clipID, num(crop.X), num(crop.Y), num(crop.Width), num(crop.Height))
	fmt.Fprintf(b, `<g transform="%s" clip-path="url(#%s)" opacity="%s">`+"\n",
		svgTransform(img), clipID, num(img.Opacity()))
	fmt.Fprintf(b, `<image x="0" y="0" width="%s" height="%s" href="data:%s;base64,%s"/>`+"\n",
		num(nat.Width), num(nat.Height), mime,
		base64.StdEncoding.EncodeToString(img.EncodedBytes()))
	b.WriteString("</g>\n")
	return nil
}

func writeSVGText(b *strings.Builder, txt *item.Text) {
	size := txt.FontSize()
	fmt.Fprintf(b, `<text transform="%s" font-size="%s" font-family="sans-serif" opacity="%s">`+"\n",
		svgTransform(txt), num(size), num(txt.Opacity()))
	for i, line := range strings.Split(txt.TextContent(), "\n") {
		var escaped bytes.Buffer
		xml.EscapeText(&escaped, []byte(line))
		fmt.Fprintf(b, `<tspan x="0" y="%s">%s</tspan>`+"\n",
			num(size+float64(i)*size*item.LineHeightRatio), escaped.String())
	}
	b.WriteString("</text>\n")
}

func writeSVGPlaceholder(b *strings.Builder, it item.Item) {
	br := it.BoundingRect()
	fmt.Fprintf(b, `<rect transform="%s" x="%s" y="%s" width="%s" height="%s" fill="#cccccc" stroke="#801a1a"/>`+"\n",
		svgTransform(it), num(br.X), num(br.Y), num(br.Width), num(br.Height))
}

// sniffMIME identifies the encoded image bytes for the data URI.
func sniffMIME(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("identify image format: %w", err)
	}
	switch format {
	case "jpeg":
		return "image/jpeg", nil
	case "gif":
		return "image/gif", nil
	case "bmp":
		return "image/bmp", nil
	case "tiff":
		return "image/tiff", nil
	case "webp":
		return "image/webp", nil
	default:
		return "image/png", nil
	}
}

// num formats a coordinate compactly for SVG attributes.
func num(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
