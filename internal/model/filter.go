package model

import (
	"context"

	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/pkg/errors"
)

// DefaultToothThreshold is the minimum "is a tooth" probability a candidate
// needs to survive the binary filter.
const DefaultToothThreshold = 0.15

// ToothFilter wraps a ToothScorer and turns its probability into a
// keep/discard decision.
type ToothFilter struct {
	scorer    ToothScorer
	threshold float64
}

// NewToothFilter creates a ToothFilter. A threshold outside [0, 1] is
// replaced by DefaultToothThreshold.
func NewToothFilter(scorer ToothScorer, threshold float64) *ToothFilter {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultToothThreshold
	}
	return &ToothFilter{scorer: scorer, threshold: threshold}
}

// Threshold returns the probability cut-off in use.
func (f *ToothFilter) Threshold() float64 { return f.threshold }

// Filter scores every candidate crop and returns, in input order, the
// candidates whose probability is >= the threshold. Candidates are returned
// unchanged, so each survivor keeps its original index, box and crop.
//
// Any scorer error aborts the whole filter.
func (f *ToothFilter) Filter(ctx context.Context, candidates []detection.Candidate) ([]detection.Candidate, error) {
	kept := make([]detection.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prob, err := f.scorer.ScoreIsTooth(ctx, c.Crop)
		if err != nil {
			return nil, errors.Wrapf(err, "score candidate %d", c.Index)
		}
		if prob >= f.threshold {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
