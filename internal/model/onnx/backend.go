package onnx

import (
	"github.com/pkg/errors"
)

// Config selects the models and runtime settings for a Backend.
type Config struct {
	// LibraryPath is the ONNX Runtime shared library. Empty selects
	// DefaultLibraryPath.
	LibraryPath string

	Detector DetectorConfig
	Tooth    ClassifierConfig
	Disease  ClassifierConfig

	// Slots is the number of concurrent sessions per model. Zero means one.
	Slots int

	// Threads is the intra-op thread count per session. Zero leaves the
	// runtime default.
	Threads int
}

// Backend runs all three models locally with ONNX Runtime. It implements
// model.Backend.
type Backend struct {
	*Detector
	*ToothScorer
	*DiseaseClassifier
}

// NewBackend loads every model. The returned Backend must be closed.
func NewBackend(cfg Config) (*Backend, error) {
	if err := acquireEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	b := &Backend{}
	var err error
	if b.Detector, err = newDetector(cfg.Detector, cfg.Slots, cfg.Threads); err != nil {
		b.Close()
		return nil, errors.Wrap(err, "load detector")
	}
	if b.ToothScorer, err = newToothScorer(cfg.Tooth, cfg.Slots, cfg.Threads); err != nil {
		b.Close()
		return nil, errors.Wrap(err, "load tooth scorer")
	}
	if b.DiseaseClassifier, err = newDiseaseClassifier(cfg.Disease, cfg.Slots, cfg.Threads); err != nil {
		b.Close()
		return nil, errors.Wrap(err, "load disease classifier")
	}
	return b, nil
}

// Close releases every session and the runtime environment.
func (b *Backend) Close() error {
	if b.Detector != nil {
		b.Detector.pool.close()
	}
	if b.ToothScorer != nil {
		b.ToothScorer.pool.close()
	}
	if b.DiseaseClassifier != nil {
		b.DiseaseClassifier.pool.close()
	}
	return releaseEnvironment()
}
