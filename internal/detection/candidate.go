package detection

import "image"

// Boxed is anything that can be deduplicated by its bounding box.
type Boxed interface {
	Bounds() Box
}

// Candidate is one detector output carried through the refinement pipeline.
//
// The box, the detector confidence and the crop travel together so that the
// filtering stages can never misalign a crop with a box. Index is the
// candidate's position in the detection pass that produced it and is stable
// for the lifetime of a request.
type Candidate struct {
	// Index correlates the candidate with its detection pass.
	Index int `json:"index"`

	// Box is the original, non-expanded detector box. It is used for
	// deduplication, annotation and reporting.
	Box Box `json:"box"`

	// Confidence is the detector score in [0, 1].
	Confidence float64 `json:"confidence"`

	// Crop is the sub-image cut from the expanded box. It is owned by the
	// request and never shared.
	Crop image.Image `json:"-"`
}

// Bounds returns the original detector box.
func (c Candidate) Bounds() Box { return c.Box }
