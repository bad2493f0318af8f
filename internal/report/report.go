package report

import (
	"image"
	"math"
	"time"

	"github.com/ironsheep/dentalscan/internal/imaging"
)

// Report is the full result of analysing one radiograph.
type Report struct {
	RequestID string

	// Original is the decoded upload.
	Original image.Image

	// Annotated is Original with every tooth outlined in its disease colour.
	Annotated image.Image

	// Teeth are the classified teeth in pipeline order.
	Teeth []Tooth

	// ToothImages[i] is Original with only Teeth[i] outlined.
	ToothImages []image.Image

	Groups          TeethByDisease
	Score           Score
	Recommendations []string

	// ImageText is text burned into the radiograph, if OCR ran.
	ImageText string

	// StoredPath is where the upload was kept once the analysis succeeded.
	StoredPath string
}

// Build aggregates classified teeth into a Report. It draws the combined and
// per-tooth annotations and computes grouping, score and recommendations.
func Build(original image.Image, teeth []Tooth) *Report {
	anns := make([]imaging.Annotation, len(teeth))
	toothImages := make([]image.Image, len(teeth))
	for i, t := range teeth {
		anns[i] = annotation(t)
		toothImages[i] = imaging.AnnotateOne(original, anns[i])
	}

	groups := Group(teeth)
	counts := groups.Counts()

	return &Report{
		Original:        original,
		Annotated:       imaging.Annotate(original, anns),
		Teeth:           teeth,
		ToothImages:     toothImages,
		Groups:          groups,
		Score:           CalculateScore(counts),
		Recommendations: Recommendations(counts),
	}
}

// Summary returns the printable summary of r.
func (r *Report) Summary(now time.Time) Summary {
	return BuildSummary(r.Groups.Counts(), now)
}

func annotation(t Tooth) imaging.Annotation {
	return imaging.Annotation{
		Box:        t.Box.Rect(),
		Label:      string(t.Disease),
		Confidence: t.Confidence,
	}
}

// RoundConfidence rounds a model confidence to four decimals for transport.
func RoundConfidence(c float64) float64 {
	return math.Round(c*1e4) / 1e4
}
