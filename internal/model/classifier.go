package model

import (
	"context"
	"image"

	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/pkg/errors"
)

// Classifier wraps a DiseaseClassifier, optionally enhancing crop contrast
// before inference.
type Classifier struct {
	backend  DiseaseClassifier
	contrast float64
}

// NewClassifier creates a Classifier. contrast is a bild contrast change in
// [-1, 1]; 0 leaves crops untouched.
func NewClassifier(backend DiseaseClassifier, contrast float64) *Classifier {
	return &Classifier{backend: backend, contrast: contrast}
}

// Classify labels one crop.
func (c *Classifier) Classify(ctx context.Context, crop image.Image) (Prediction, error) {
	p, err := c.backend.Classify(ctx, c.prepare(crop))
	if err != nil {
		return Prediction{}, errors.Wrap(err, "classify crop")
	}
	return p, nil
}

// ClassifyAll labels every crop. When the backend implements
// BatchClassifier the crops are sent in one call and the backend's answer is
// returned as is; callers must check that its length matches len(crops).
func (c *Classifier) ClassifyAll(ctx context.Context, crops []image.Image) ([]Prediction, error) {
	prepared := make([]image.Image, len(crops))
	for i, crop := range crops {
		prepared[i] = c.prepare(crop)
	}

	if batch, ok := c.backend.(BatchClassifier); ok && len(prepared) > 0 {
		preds, err := batch.ClassifyBatch(ctx, prepared)
		if err != nil {
			return nil, errors.Wrap(err, "classify batch")
		}
		return preds, nil
	}

	preds := make([]Prediction, 0, len(prepared))
	for i, crop := range prepared {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := c.backend.Classify(ctx, crop)
		if err != nil {
			return nil, errors.Wrapf(err, "classify crop %d", i)
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func (c *Classifier) prepare(crop image.Image) image.Image {
	if c.contrast == 0 {
		return crop
	}
	return imaging.Enhance(crop, c.contrast)
}
