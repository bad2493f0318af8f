package detection

import (
	"sort"

	"github.com/pkg/errors"
)

// Default thresholds for the suppression strategies.
const (
	// DefaultIOUThreshold is used when IOU suppression runs on its own.
	DefaultIOUThreshold = 0.1

	// DefaultHybridIOUThreshold is the looser overlap threshold used by the
	// first pass of hybrid suppression.
	DefaultHybridIOUThreshold = 0.5

	// DefaultMinCenterDistance is the minimum center-to-center distance, in
	// pixels, between two kept boxes under center suppression.
	DefaultMinCenterDistance = 100.0
)

// Method selects a suppression strategy.
type Method string

const (
	MethodIOU    Method = "iou"
	MethodCenter Method = "center"
	MethodHybrid Method = "hybrid"
)

// ParseMethod converts a configuration string to a Method. The empty string
// selects MethodIOU.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodIOU:
		return MethodIOU, nil
	case MethodCenter:
		return MethodCenter, nil
	case MethodHybrid:
		return MethodHybrid, nil
	}
	return "", errors.Errorf("unknown deduplication method %q", s)
}

// Options configures Deduplicate.
type Options struct {
	Method       Method  `json:"method" toml:"method"`
	IOUThreshold float64 `json:"iou_threshold" toml:"iou_threshold"`
	MinDistance  float64 `json:"min_distance" toml:"min_distance"`
}

// DefaultOptions returns IOU suppression at DefaultIOUThreshold.
func DefaultOptions() Options {
	return Options{
		Method:       MethodIOU,
		IOUThreshold: DefaultIOUThreshold,
		MinDistance:  DefaultMinCenterDistance,
	}
}

// Deduplicate applies the suppression strategy selected by opts.
//
// A zero IOUThreshold or MinDistance falls back to the strategy's default,
// so the hybrid method gets its looser 0.5 overlap threshold unless one is
// set explicitly.
func Deduplicate[T Boxed](items []T, opts Options) ([]T, error) {
	minDist := opts.MinDistance
	if minDist == 0 {
		minDist = DefaultMinCenterDistance
	}

	switch opts.Method {
	case "", MethodIOU:
		threshold := opts.IOUThreshold
		if threshold == 0 {
			threshold = DefaultIOUThreshold
		}
		return SuppressIOU(items, threshold), nil
	case MethodCenter:
		return SuppressCenter(items, minDist), nil
	case MethodHybrid:
		threshold := opts.IOUThreshold
		if threshold == 0 {
			threshold = DefaultHybridIOUThreshold
		}
		return SuppressHybrid(items, threshold, minDist), nil
	}
	return nil, errors.Errorf("unknown deduplication method %q", opts.Method)
}

// SuppressIOU removes boxes that overlap a larger kept box.
//
// Items are ordered by box area, largest first; equal areas keep their input
// order. The largest remaining item is kept and every remaining item whose
// IOU with it is >= threshold is discarded, until nothing remains.
//
// Ordering is by area rather than confidence: the larger box of a duplicate
// pair is taken to cover more of the tooth. The input slice is not modified.
func SuppressIOU[T Boxed](items []T, threshold float64) []T {
	remaining := make([]T, len(items))
	copy(remaining, items)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Bounds().Area() > remaining[j].Bounds().Area()
	})

	kept := make([]T, 0, len(remaining))
	for len(remaining) > 0 {
		current := remaining[0]
		kept = append(kept, current)

		next := make([]T, 0, len(remaining)-1)
		for _, item := range remaining[1:] {
			if IOU(current.Bounds(), item.Bounds()) < threshold {
				next = append(next, item)
			}
		}
		remaining = next
	}

	return kept
}

// SuppressCenter keeps items in input order, dropping any item whose center
// lies closer than minDist to the center of an already kept item.
//
// Unlike SuppressIOU the input is not re-sorted, so the result depends on the
// order items arrive in. The input slice is not modified.
func SuppressCenter[T Boxed](items []T, minDist float64) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		tooClose := false
		for _, k := range kept {
			if CenterDistance(item.Bounds(), k.Bounds()) < minDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, item)
		}
	}
	return kept
}

// SuppressHybrid runs SuppressIOU and then SuppressCenter on its survivors.
// The passes are sequential: overlap narrows first, proximity second.
func SuppressHybrid[T Boxed](items []T, iouThreshold, minDist float64) []T {
	return SuppressCenter(SuppressIOU(items, iouThreshold), minDist)
}
