package model

// Disease is a disease category assigned to a tooth crop.
type Disease string

// Diseases known to the multiclass classifier.
const (
	Caries           Disease = "Caries"
	PeriapicalLesion Disease = "Periapical Lesion"
	Impacted         Disease = "Impacted"
	Fractured        Disease = "Fractured"
	BoneDefect       Disease = "BDC/BDR"
	Healthy          Disease = "Healthy"
	DeeperCaries     Disease = "Deeper Caries"

	// Unknown is the lookup fallback for labels outside the closed set. The
	// classifier never produces it.
	Unknown Disease = "Unknown"
)

// ClassOrder is the classifier's output index order. Index i of the model's
// logits corresponds to ClassOrder[i].
var ClassOrder = []Disease{
	Caries,
	PeriapicalLesion,
	Impacted,
	Fractured,
	BoneDefect,
	Healthy,
	DeeperCaries,
}

// Known reports whether d is one of the classifier's categories.
func (d Disease) Known() bool {
	for _, c := range ClassOrder {
		if c == d {
			return true
		}
	}
	return false
}

// ClassAt maps a classifier output index to its disease. Out-of-range
// indices map to Unknown.
func ClassAt(i int) Disease {
	if i < 0 || i >= len(ClassOrder) {
		return Unknown
	}
	return ClassOrder[i]
}
