package onnx

import (
	"image"

	"github.com/nfnt/resize"
)

// Normalization is a per-channel (value - Mean) / Std transform applied after
// scaling pixels to [0, 1].
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// Identity leaves pixels in [0, 1].
var Identity = Normalization{Std: [3]float32{1, 1, 1}}

// ImageNet is the normalisation used by torchvision's pretrained backbones.
var ImageNet = Normalization{
	Mean: [3]float32{0.485, 0.456, 0.406},
	Std:  [3]float32{0.229, 0.224, 0.225},
}

// fillCHW resizes img to width x height and writes it into dst in planar
// RGB (CHW) order. dst must hold 3*width*height values.
func fillCHW(dst []float32, img image.Image, width, height int, norm Normalization) {
	resized := resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	b := resized.Bounds()
	stride := width * height

	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			dst[idx] = (float32(r>>8)/255.0 - norm.Mean[0]) / norm.Std[0]
			dst[idx+stride] = (float32(g>>8)/255.0 - norm.Mean[1]) / norm.Std[1]
			dst[idx+2*stride] = (float32(bl>>8)/255.0 - norm.Mean[2]) / norm.Std[2]
			idx++
		}
	}
}
