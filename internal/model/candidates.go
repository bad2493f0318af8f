package model

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/pkg/errors"
)

// Candidate adapter defaults.
const (
	// DefaultMaxCandidates caps how many detections survive ranking.
	DefaultMaxCandidates = 40

	// DefaultExpansionRatio grows each box by 10% of its width and height on
	// every side before the crop is cut.
	DefaultExpansionRatio = 0.1

	// DefaultMinDetectorConfidence is the detector's own score floor.
	DefaultMinDetectorConfidence = 0.005
)

// CandidateOptions configures a CandidateSource.
type CandidateOptions struct {
	MaxCandidates  int
	ExpansionRatio float64
	MinConfidence  float64
}

// DefaultCandidateOptions returns the production settings.
func DefaultCandidateOptions() CandidateOptions {
	return CandidateOptions{
		MaxCandidates:  DefaultMaxCandidates,
		ExpansionRatio: DefaultExpansionRatio,
		MinConfidence:  DefaultMinDetectorConfidence,
	}
}

// CandidateSource wraps a Detector and turns its raw output into a ranked,
// capped list of candidates with crops.
//
// Two boxes exist per candidate: the original detector box, which is kept on
// the Candidate for deduplication and annotation, and an expanded box that is
// only used to cut the crop. The expanded box never leaves this type.
type CandidateSource struct {
	detector Detector
	opts     CandidateOptions
}

// NewCandidateSource creates a CandidateSource. Zero option values fall back
// to the defaults.
func NewCandidateSource(d Detector, opts CandidateOptions) *CandidateSource {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.ExpansionRatio < 0 {
		opts.ExpansionRatio = 0
	}
	return &CandidateSource{detector: d, opts: opts}
}

// Candidates runs the detector on img and returns at most MaxCandidates
// candidates ordered by confidence, highest first. Ties keep detector order.
//
// Index i of the result has Candidate.Index == i. Detections whose box is
// empty once truncated to whole pixels are dropped.
func (s *CandidateSource) Candidates(ctx context.Context, img image.Image) ([]detection.Candidate, error) {
	raw, err := s.detector.Detect(ctx, img)
	if err != nil {
		return nil, errors.Wrap(err, "detector")
	}

	ranked := make([]RawDetection, 0, len(raw))
	for _, r := range raw {
		if math.IsNaN(r.Confidence) || r.Confidence < s.opts.MinConfidence {
			continue
		}
		ranked = append(ranked, r)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	if len(ranked) > s.opts.MaxCandidates {
		ranked = ranked[:s.opts.MaxCandidates]
	}

	bounds := img.Bounds()
	candidates := make([]detection.Candidate, 0, len(ranked))
	for _, r := range ranked {
		box := detection.Box{X1: int(r.X1), Y1: int(r.Y1), X2: int(r.X2), Y2: int(r.Y2)}
		if !box.Valid() {
			continue
		}

		cropBox := detection.Expand(box, s.opts.ExpansionRatio, bounds)
		if !cropBox.Valid() {
			continue
		}

		candidates = append(candidates, detection.Candidate{
			Index:      len(candidates),
			Box:        box,
			Confidence: r.Confidence,
			Crop:       imaging.CropBox(img, cropBox.Rect()),
		})
	}

	return candidates, nil
}
