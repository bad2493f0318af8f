package onnx

import (
	"context"
	"image"

	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/pkg/errors"
)

// ClassifierConfig describes a crop classifier exported to ONNX. The model
// takes a 1x3xSizexSize image and returns 1xOutputs logits.
type ClassifierConfig struct {
	Path       string
	InputName  string
	OutputName string
	Size       int
	Outputs    int
	Norm       Normalization
}

// DefaultToothScorerConfig returns the shape of the ResNet-18 binary tooth
// model: 224x224 ImageNet-normalised input, one logit out.
func DefaultToothScorerConfig(path string) ClassifierConfig {
	return ClassifierConfig{
		Path:       path,
		InputName:  "input",
		OutputName: "output",
		Size:       224,
		Outputs:    1,
		Norm:       ImageNet,
	}
}

// DefaultDiseaseConfig returns the shape of the ResNet-18 disease model:
// 224x224 input in [0, 1], one logit per entry of model.ClassOrder.
func DefaultDiseaseConfig(path string) ClassifierConfig {
	return ClassifierConfig{
		Path:       path,
		InputName:  "input",
		OutputName: "output",
		Size:       224,
		Outputs:    len(model.ClassOrder),
		Norm:       Identity,
	}
}

func (c ClassifierConfig) spec() ModelSpec {
	return ModelSpec{
		Path:        c.Path,
		InputName:   c.InputName,
		OutputName:  c.OutputName,
		InputShape:  []int64{1, 3, int64(c.Size), int64(c.Size)},
		OutputShape: []int64{1, int64(c.Outputs)},
	}
}

// ToothScorer runs the binary "is this a tooth" model.
type ToothScorer struct {
	cfg  ClassifierConfig
	pool *pool
}

func newToothScorer(cfg ClassifierConfig, slots, threads int) (*ToothScorer, error) {
	if cfg.Size <= 0 || cfg.Outputs != 1 {
		return nil, errors.Errorf("tooth scorer must have one output, got %+v", cfg)
	}
	p, err := newPool("tooth scorer", cfg.spec(), slots, threads)
	if err != nil {
		return nil, err
	}
	return &ToothScorer{cfg: cfg, pool: p}, nil
}

// ScoreIsTooth implements model.ToothScorer. The logit is passed through a
// sigmoid.
func (s *ToothScorer) ScoreIsTooth(ctx context.Context, crop image.Image) (float64, error) {
	var prob float64
	err := s.pool.run(ctx,
		func(input []float32) { fillCHW(input, crop, s.cfg.Size, s.cfg.Size, s.cfg.Norm) },
		func(output []float32) error {
			prob = sigmoid(float64(output[0]))
			return nil
		})
	return prob, err
}

// DiseaseClassifier runs the multiclass disease model.
type DiseaseClassifier struct {
	cfg  ClassifierConfig
	pool *pool
}

func newDiseaseClassifier(cfg ClassifierConfig, slots, threads int) (*DiseaseClassifier, error) {
	if cfg.Size <= 0 || cfg.Outputs != len(model.ClassOrder) {
		return nil, errors.Errorf("disease model must have %d outputs, got %+v", len(model.ClassOrder), cfg)
	}
	p, err := newPool("disease classifier", cfg.spec(), slots, threads)
	if err != nil {
		return nil, err
	}
	return &DiseaseClassifier{cfg: cfg, pool: p}, nil
}

// Classify implements model.DiseaseClassifier. The prediction is the argmax
// of the softmax, with its probability as confidence.
func (c *DiseaseClassifier) Classify(ctx context.Context, crop image.Image) (model.Prediction, error) {
	var pred model.Prediction
	err := c.pool.run(ctx,
		func(input []float32) { fillCHW(input, crop, c.cfg.Size, c.cfg.Size, c.cfg.Norm) },
		func(output []float32) error {
			pred = predict(output)
			return nil
		})
	return pred, err
}

func predict(logits []float32) model.Prediction {
	probs := softmax(logits)
	i := argmax(probs)
	if i < 0 {
		return model.Prediction{Disease: model.Unknown}
	}
	return model.Prediction{Disease: model.ClassAt(i), Confidence: probs[i]}
}
