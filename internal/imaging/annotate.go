package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OutlineWidth is the stroke width of drawn boxes in pixels.
const OutlineWidth = 3

// Annotation is a box to draw on a radiograph.
type Annotation struct {
	Box        image.Rectangle
	Label      string
	Confidence float64
}

// Text returns the caption drawn above the box, e.g. "Caries 0.87".
// An empty label yields an empty caption.
func (a Annotation) Text() string {
	if a.Label == "" {
		return ""
	}
	return fmt.Sprintf("%s %.2f", a.Label, a.Confidence)
}

// Annotate returns a copy of img with every annotation drawn on it.
// The source image is never modified.
func Annotate(img image.Image, anns []Annotation) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	for _, a := range anns {
		c := LabelColor(a.Label)
		drawOutline(out, a.Box, c, OutlineWidth)
		if text := a.Text(); text != "" {
			drawLabel(out, a.Box.Min, text, c)
		}
	}
	return out
}

// AnnotateOne draws a single annotation on a copy of img.
func AnnotateOne(img image.Image, a Annotation) *image.NRGBA {
	return Annotate(img, []Annotation{a})
}

// drawOutline strokes r with the given width, growing inward.
func drawOutline(dst draw.Image, r image.Rectangle, c color.Color, width int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	for i := 0; i < width; i++ {
		inner := r.Inset(i)
		if inner.Empty() {
			return
		}
		// top, bottom, left, right
		draw.Draw(dst, image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1), src, image.Point{}, draw.Src)
		draw.Draw(dst, image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(dst, image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(dst, image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y), src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text on a filled background just above at. When there is
// no room above the box the label goes inside its top edge.
func drawLabel(dst draw.Image, at image.Point, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(TextColor(bg)), Face: face}

	width := d.MeasureString(text).Ceil()
	height := face.Height

	top := at.Y - height
	if top < dst.Bounds().Min.Y {
		top = at.Y
	}
	box := image.Rect(at.X, top, at.X+width+2, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(at.X+1, top+face.Ascent)
	d.DrawString(text)
}
