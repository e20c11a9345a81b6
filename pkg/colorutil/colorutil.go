// Package colorutil provides small color formatting helpers.
package colorutil

import (
	"fmt"
	"image/color"
)

// Hex formats a color as #RRGGBB, dropping alpha.
func Hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// RGB returns the color's 8-bit channels with alpha unmultiplied away.
func RGB(c color.Color) (r, g, b uint8) {
	cr, cg, cb, ca := c.RGBA()
	if ca == 0 {
		return 0, 0, 0
	}
	// Undo the premultiplication color.Color applies.
	return uint8((cr * 0xffff / ca) >> 8),
		uint8((cg * 0xffff / ca) >> 8),
		uint8((cb * 0xffff / ca) >> 8)
}
