package imaging

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ErrEmptyImage is returned when an upload carries no bytes.
var ErrEmptyImage = errors.New("no image data")

// ImageInfo contains metadata about a decoded radiograph.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg" or "gif".
	// Detection is based on file contents, not the file name.
	Format string `json:"format"`

	// SizeBytes is the size of the encoded image in bytes.
	SizeBytes int64 `json:"size_bytes"`
}

// Decode decodes an encoded PNG, JPEG or GIF image held in memory.
//
// EXIF orientation is applied so that boxes reported by the detector line up
// with what a viewer shows.
//
// # Errors
//
//   - Returns ErrEmptyImage if data is empty
//   - Returns error if the data is not a supported image format
func Decode(data []byte) (image.Image, *ImageInfo, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmptyImage
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode image header")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode image")
	}

	bounds := img.Bounds()
	return img, &ImageInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		SizeBytes: int64(len(data)),
	}, nil
}

// Load reads and decodes the image at path.
//
// Returns the decoded image, its metadata and the raw file bytes so callers
// can persist the upload without reading the file twice.
func Load(path string) (image.Image, *ImageInfo, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to open image")
	}

	img, info, err := Decode(data)
	if err != nil {
		return nil, nil, nil, err
	}
	return img, info, data, nil
}
