package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
)

// Enhance adjusts the contrast of a crop. change is a relative amount in
// [-1, 1]; values outside that range are clamped. Radiograph crops are often
// washed out, and a mild positive change helps the disease classifier.
func Enhance(img image.Image, change float64) image.Image {
	if change == 0 {
		return img
	}
	if change > 1 {
		change = 1
	}
	if change < -1 {
		change = -1
	}
	return adjust.Contrast(img, change)
}
