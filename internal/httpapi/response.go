package httpapi

import (
	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/ironsheep/dentalscan/internal/report"
)

type detectedTooth struct {
	ID             int           `json:"id"`
	Image          string        `json:"image"`
	AnnotatedImage string        `json:"annotatedImage"`
	Disease        model.Disease `json:"disease"`
	Confidence     float64       `json:"confidence"`
}

type analyzeResponse struct {
	RequestID       string                `json:"requestId"`
	OriginalImage   string                `json:"originalImage"`
	AnnotatedImage  string                `json:"annotatedImage"`
	DetectedTeeth   []detectedTooth       `json:"detectedTeeth"`
	TeethByDisease  report.TeethByDisease `json:"teethByDisease"`
	Score           int                   `json:"score"`
	Rating          report.Rating         `json:"rating"`
	Recommendations []string              `json:"recommendations"`
	ImageText       string                `json:"imageText,omitempty"`
}

type classifyResponse struct {
	Disease    model.Disease `json:"disease"`
	Confidence float64       `json:"confidence"`
}

// newAnalyzeResponse numbers the detected teeth 0..n-1 in report order.
func newAnalyzeResponse(rep *report.Report) (*analyzeResponse, error) {
	original, err := imaging.DataURI(rep.Original)
	if err != nil {
		return nil, err
	}
	annotated, err := imaging.DataURI(rep.Annotated)
	if err != nil {
		return nil, err
	}

	teeth := make([]detectedTooth, len(rep.Teeth))
	for i, t := range rep.Teeth {
		teeth[i] = detectedTooth{
			ID:         i,
			Disease:    t.Disease,
			Confidence: report.RoundConfidence(t.Confidence),
		}
		if t.Crop != nil {
			if teeth[i].Image, err = imaging.DataURI(t.Crop); err != nil {
				return nil, err
			}
		}
		if i < len(rep.ToothImages) {
			if teeth[i].AnnotatedImage, err = imaging.DataURI(rep.ToothImages[i]); err != nil {
				return nil, err
			}
		}
	}

	return &analyzeResponse{
		RequestID:       rep.RequestID,
		OriginalImage:   original,
		AnnotatedImage:  annotated,
		DetectedTeeth:   teeth,
		TeethByDisease:  rep.Groups,
		Score:           rep.Score.Value,
		Rating:          rep.Score.Rating,
		Recommendations: rep.Recommendations,
		ImageText:       rep.ImageText,
	}, nil
}
