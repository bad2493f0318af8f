package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropBox cuts rect out of img. The result is a fresh image with its origin
// at (0, 0); it shares no pixel memory with img.
//
// rect is intersected with the image bounds, so callers may pass an
// unclipped rectangle.
func CropBox(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect)
}
