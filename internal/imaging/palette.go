package imaging

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultBoxColor is the outline colour for labels with no palette entry.
var DefaultBoxColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// diseasePalette maps classifier labels to outline colours. Keys match the
// label strings emitted by the disease classifier.
var diseasePalette = map[string]string{
	"Caries":            "#e6194b",
	"Deeper Caries":     "#9a0000",
	"Periapical Lesion": "#f58231",
	"Impacted":          "#4363d8",
	"Fractured":         "#911eb4",
	"BDC/BDR":           "#ffe119",
	"Healthy":           "#3cb44b",
	"Unknown":           "#a9a9a9",
}

// LabelColor returns the outline colour for a label.
func LabelColor(label string) color.RGBA {
	hex, ok := diseasePalette[label]
	if !ok {
		return DefaultBoxColor
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return DefaultBoxColor
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// TextColor picks black or white text for legibility on bg.
func TextColor(bg color.Color) color.RGBA {
	c, ok := colorful.MakeColor(bg)
	if !ok {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	l, _, _ := c.Lab()
	if l > 0.6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
