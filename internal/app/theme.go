package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// BoardTheme darkens the chrome so it recedes behind the reference
// images and matches the canvas background.
type BoardTheme struct{}

var _ fyne.Theme = (*BoardTheme)(nil)

func (t *BoardTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x42, G: 0x8F, B: 0xE8, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x42, G: 0x8F, B: 0xE8, A: 0x60}
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x2E, G: 0x2E, B: 0x30, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *BoardTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *BoardTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *BoardTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 12
	default:
		return theme.DefaultTheme().Size(name)
	}
}
