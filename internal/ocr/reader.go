package ocr

import (
	"bytes"
	"context"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Word is one recognized word with its location in the radiograph.
type Word struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the image.
	Bounds image.Rectangle `json:"bounds"`
}

// Result contains the text burned into a radiograph.
type Result struct {
	// Text is all recognized text as a single string.
	Text string `json:"text"`

	// Words are the individual words above the confidence floor. May be empty
	// if bounding box extraction fails; Text is still filled in that case.
	Words []Word `json:"words"`
}

// Reader extracts burned-in label text (patient name, date, side markers)
// from radiographs using Tesseract.
//
// A new Tesseract client is created per call, so a Reader may be shared
// between goroutines.
type Reader struct {
	language       string
	tessdataPrefix string
	minConfidence  float64
}

// NewReader creates a Reader. An empty language selects DefaultLanguage; an
// empty tessdataPrefix uses Tesseract's built-in search path. Words below
// minConfidence (0.0 to 1.0) are left out of Result.Words.
func NewReader(language, tessdataPrefix string, minConfidence float64) *Reader {
	if language == "" {
		language = DefaultLanguage
	}
	return &Reader{language: language, tessdataPrefix: tessdataPrefix, minConfidence: minConfidence}
}

// Read runs OCR on img.
//
// The image is converted to grayscale and sent to Tesseract as PNG. ctx is
// checked before Tesseract starts; a running recognition cannot be
// interrupted.
//
// # Errors
//
//   - Returns error if Tesseract cannot be initialised for the language
//   - Returns error if recognition fails
func (r *Reader) Read(ctx context.Context, img image.Image) (*Result, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(img), imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode image for OCR")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.tessdataPrefix); err != nil {
			return nil, errors.Wrap(err, "failed to set tessdata prefix")
		}
	}
	if err := client.SetLanguage(r.language); err != nil {
		return nil, errors.Wrap(err, "failed to set language")
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "failed to set image")
	}

	text, err := client.Text()
	if err != nil {
		return nil, errors.Wrap(err, "OCR failed")
	}
	result := &Result{Text: strings.TrimSpace(text), Words: []Word{}}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Return just text if boxes fail
		return result, nil
	}
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		confidence := float64(box.Confidence) / 100.0
		if word == "" || confidence < r.minConfidence {
			continue
		}
		result.Words = append(result.Words, Word{
			Text:       word,
			Confidence: confidence,
			Bounds:     box.Box.Add(img.Bounds().Min),
		})
	}
	return result, nil
}

// ReadText returns only the recognized text of img.
func (r *Reader) ReadText(ctx context.Context, img image.Image) (string, error) {
	res, err := r.Read(ctx, img)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
