package model

import (
	"context"
	"image"
)

// RawDetection is one box reported by a detector, in source image pixel
// coordinates, before any ranking or filtering.
type RawDetection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Prediction is the output of the disease classifier for one crop.
type Prediction struct {
	Disease    Disease `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// Detector finds candidate tooth regions in a full radiograph.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]RawDetection, error)
}

// ToothScorer returns the probability, in [0, 1], that a crop shows a tooth.
type ToothScorer interface {
	ScoreIsTooth(ctx context.Context, crop image.Image) (float64, error)
}

// DiseaseClassifier labels a single tooth crop.
type DiseaseClassifier interface {
	Classify(ctx context.Context, crop image.Image) (Prediction, error)
}

// BatchClassifier is implemented by backends that can label several crops in
// one call. The returned slice is expected to be index-aligned with crops.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, crops []image.Image) ([]Prediction, error)
}

// Backend bundles the three inference collaborators. Backends are built once
// at startup and shared by every request.
type Backend interface {
	Detector
	ToothScorer
	DiseaseClassifier
	Close() error
}
