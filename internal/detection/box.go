package detection

import (
	"image"
	"math"
)

// Box is an axis-aligned bounding box in source image pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
//
// A valid box has X1 < X2 and Y1 < Y2.
type Box struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Point is a sub-pixel position, used for box centers.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Width returns X2 - X1.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns (X2-X1)*(Y2-Y1). Degenerate boxes report 0.
func (b Box) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive width and height.
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{
		X: float64(b.X1+b.X2) / 2,
		Y: float64(b.Y1+b.Y2) / 2,
	}
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Bounds lets a bare Box satisfy Boxed.
func (b Box) Bounds() Box { return b }

// iouEpsilon keeps IOU finite when both boxes are empty.
const iouEpsilon = 1e-6

// IOU returns the intersection-over-union of two boxes:
//
//	intersection / (areaA + areaB - intersection + 1e-6)
//
// Disjoint boxes score 0, identical non-empty boxes score just under 1.
func IOU(a, b Box) float64 {
	xA := maxInt(a.X1, b.X1)
	yA := maxInt(a.Y1, b.Y1)
	xB := minInt(a.X2, b.X2)
	yB := minInt(a.Y2, b.Y2)

	inter := float64(maxInt(0, xB-xA) * maxInt(0, yB-yA))
	areaA := float64(a.Area())
	areaB := float64(b.Area())

	return inter / (areaA + areaB - inter + iouEpsilon)
}

// CenterDistance returns the Euclidean distance between two box centers.
func CenterDistance(a, b Box) float64 {
	ca, cb := a.Center(), b.Center()
	return math.Hypot(ca.X-cb.X, ca.Y-cb.Y)
}

// Expand grows a box by ratio of its own width and height on every side and
// clips the result to the limits rectangle. Fractional edges are truncated
// toward zero, matching how detector float coordinates become pixel indices.
func Expand(b Box, ratio float64, limits image.Rectangle) Box {
	w := float64(b.Width())
	h := float64(b.Height())

	x1 := math.Max(float64(limits.Min.X), float64(b.X1)-ratio*w)
	y1 := math.Max(float64(limits.Min.Y), float64(b.Y1)-ratio*h)
	x2 := math.Min(float64(limits.Max.X), float64(b.X2)+ratio*w)
	y2 := math.Min(float64(limits.Max.Y), float64(b.Y2)+ratio*h)

	return Box{X1: int(x1), Y1: int(y1), X2: int(x2), Y2: int(y2)}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
