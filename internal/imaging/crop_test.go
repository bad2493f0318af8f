package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCropBox(t *testing.T) {
	img := createPatternImage(100, 100)

	crop := CropBox(img, image.Rect(60, 10, 90, 40))
	b := crop.Bounds()
	if b.Min != (image.Point{}) {
		t.Errorf("origin: got %v, want (0,0)", b.Min)
	}
	if b.Dx() != 30 || b.Dy() != 30 {
		t.Errorf("dimensions: got %dx%d, want 30x30", b.Dx(), b.Dy())
	}

	// top-right quadrant is green
	r, g, bl, _ := crop.At(5, 5).RGBA()
	if r != 0 || g != 0xffff || bl != 0 {
		t.Errorf("pixel: got (%d,%d,%d), want green", r>>8, g>>8, bl>>8)
	}
}

func TestCropBox_ClipsToBounds(t *testing.T) {
	img := createInMemoryImage(50, 50, color.RGBA{255, 0, 0, 255})

	crop := CropBox(img, image.Rect(-10, -10, 30, 80))
	if crop.Bounds().Dx() != 30 || crop.Bounds().Dy() != 50 {
		t.Errorf("dimensions: got %v, want 30x50", crop.Bounds())
	}
}

func TestCropBox_DoesNotShareMemory(t *testing.T) {
	img := createInMemoryImage(10, 10, color.RGBA{255, 0, 0, 255})
	crop := CropBox(img, image.Rect(0, 0, 5, 5))

	img.Set(0, 0, color.RGBA{0, 0, 255, 255})

	r, _, b, _ := crop.At(0, 0).RGBA()
	if r != 0xffff || b != 0 {
		t.Error("crop changed after source was modified")
	}
}
