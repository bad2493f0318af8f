// Package ocr reads text burned into dental radiographs using Tesseract.
//
// X-ray machines often stamp the patient name, acquisition date and a side
// marker ("L"/"R") into the image. The pipeline attaches that text to the
// report when OCR is enabled.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The language defaults to English ("eng"). Set ocr.tessdata_prefix when the
// training data lives outside Tesseract's default search path.
package ocr
