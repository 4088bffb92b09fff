package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"github.com/lucasb-eyer/go-colorful"
)

var defaultAccent = colorful.Color{R: 33.0 / 255, G: 150.0 / 255, B: 243.0 / 255}

// EdgeTheme tints the primary colour with the edge map fill colour.
type EdgeTheme struct {
	fill color.RGBA
}

func NewTheme(fill color.RGBA) fyne.Theme {
	return &EdgeTheme{fill: fill}
}

func (t *EdgeTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	dark := variant == theme.VariantDark

	switch name {
	case theme.ColorNameBackground:
		if dark {
			return color.RGBA{R: 30, G: 30, B: 30, A: 255}
		}
		return color.RGBA{R: 250, G: 249, B: 245, A: 255}

	case theme.ColorNameButton:
		if dark {
			return color.RGBA{R: 60, G: 60, B: 60, A: 255}
		}
		return color.RGBA{R: 240, G: 240, B: 240, A: 255}

	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return AccentFor(t.fill, dark)

	case theme.ColorNameHover:
		if dark {
			return color.RGBA{R: 255, G: 255, B: 255, A: 25}
		}
		return color.RGBA{R: 0, G: 0, B: 0, A: 25}

	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *EdgeTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *EdgeTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *EdgeTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}

// AccentFor derives a readable accent from fill. Near-white and near-black
// fills carry no hue and fall back to the default blue.
func AccentFor(fill color.RGBA, dark bool) color.RGBA {
	c, _ := colorful.MakeColor(color.RGBA{R: fill.R, G: fill.G, B: fill.B, A: 255})

	accent := defaultAccent
	if _, s, l := c.Hsl(); s > 0.1 && l > 0.15 && l < 0.85 {
		accent = c.BlendLab(defaultAccent, 0.25)
	}
	if dark {
		accent = accent.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.2)
	}

	r, g, b := accent.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
