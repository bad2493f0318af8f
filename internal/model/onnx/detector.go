package onnx

import (
	"context"
	"image"

	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/pkg/errors"
)

// DetectorConfig describes a YOLO-style tooth detector exported to ONNX.
//
// The model takes a 1x3xSizexSize image in [0, 1] and returns
// 1x(4+Classes)xAnchors: rows 0-3 are box centre x, centre y, width and
// height in input pixels, the remaining rows are per-class scores.
type DetectorConfig struct {
	Path       string
	InputName  string
	OutputName string
	Size       int
	Classes    int
	Anchors    int
}

// DefaultDetectorConfig returns the shape of a 640x640 single-class YOLOv8
// export.
func DefaultDetectorConfig(path string) DetectorConfig {
	return DetectorConfig{
		Path:       path,
		InputName:  "images",
		OutputName: "output0",
		Size:       640,
		Classes:    1,
		Anchors:    8400,
	}
}

func (c DetectorConfig) spec() ModelSpec {
	return ModelSpec{
		Path:        c.Path,
		InputName:   c.InputName,
		OutputName:  c.OutputName,
		InputShape:  []int64{1, 3, int64(c.Size), int64(c.Size)},
		OutputShape: []int64{1, int64(4 + c.Classes), int64(c.Anchors)},
	}
}

// Detector runs the tooth detector. It returns every anchor with a positive
// score; ranking and capping are left to model.CandidateSource.
type Detector struct {
	cfg  DetectorConfig
	pool *pool
}

func newDetector(cfg DetectorConfig, slots, threads int) (*Detector, error) {
	if cfg.Size <= 0 || cfg.Classes <= 0 || cfg.Anchors <= 0 {
		return nil, errors.Errorf("invalid detector shape %+v", cfg)
	}
	p, err := newPool("detector", cfg.spec(), slots, threads)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, pool: p}, nil
}

// Detect implements model.Detector.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]model.RawDetection, error) {
	b := img.Bounds()
	size := d.cfg.Size

	var dets []model.RawDetection
	err := d.pool.run(ctx,
		func(input []float32) { fillCHW(input, img, size, size, Identity) },
		func(output []float32) error {
			dets = decodeYOLO(output, d.cfg.Classes, d.cfg.Anchors,
				float64(b.Dx())/float64(size), float64(b.Dy())/float64(size))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return dets, nil
}

// decodeYOLO converts a (4+classes) x anchors output into boxes in source
// image pixels. sx and sy scale input pixels to source pixels.
func decodeYOLO(out []float32, classes, anchors int, sx, sy float64) []model.RawDetection {
	if len(out) < (4+classes)*anchors {
		return nil
	}

	dets := make([]model.RawDetection, 0, 64)
	for i := 0; i < anchors; i++ {
		score := float32(0)
		for c := 0; c < classes; c++ {
			if v := out[(4+c)*anchors+i]; v > score {
				score = v
			}
		}
		if score <= 0 {
			continue
		}

		xc := float64(out[i])
		yc := float64(out[anchors+i])
		w := float64(out[2*anchors+i])
		h := float64(out[3*anchors+i])

		dets = append(dets, model.RawDetection{
			X1:         (xc - w/2) * sx,
			Y1:         (yc - h/2) * sy,
			X2:         (xc + w/2) * sx,
			Y2:         (yc + h/2) * sy,
			Confidence: float64(score),
		})
	}
	return dets
}
