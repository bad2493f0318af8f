package imaging

import (
	"bytes"
	"encoding/base64"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// JPEGQuality is the quality used for every JPEG this service produces.
const JPEGQuality = 90

const dataURIPrefix = "data:image/jpeg;base64,"

// EncodeJPEG encodes img as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	return buf.Bytes(), nil
}

// DataURI encodes img as a "data:image/jpeg;base64,..." URI.
func DataURI(img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}
