package report

import "math"

// Rating is the verbal band for an oral health score.
type Rating string

const (
	Excellent       Rating = "Excellent"
	Good            Rating = "Good"
	Fair            Rating = "Fair"
	Poor            Rating = "Poor"
	Critical        Rating = "Critical"
	NoTeethDetected Rating = "No teeth detected"
)

// Score is an oral health score in [0, 100], higher is healthier.
type Score struct {
	Value  int    `json:"score"`
	Rating Rating `json:"rating"`
}

// CalculateScore computes the severity-weighted oral health score:
//
//	100 - sum(severity * count) / (MaxSeverity * total) * 100
//
// The value is rounded half to even and the rating is taken from the
// rounded value.
//
// With no teeth the score is 0 with rating NoTeethDetected.
func CalculateScore(counts DiseaseCounts) Score {
	total := counts.Total()
	if total == 0 {
		return Score{Value: 0, Rating: NoTeethDetected}
	}

	weighted := 0
	for _, c := range counts {
		if c.Count > 0 {
			weighted += Severity(c.Disease) * c.Count
		}
	}

	s := 100 - float64(weighted)/float64(MaxSeverity*total)*100
	if s < 0 {
		s = 0
	}
	v := int(math.RoundToEven(s))
	return Score{Value: v, Rating: rate(v)}
}

func rate(s int) Rating {
	switch {
	case s >= 90:
		return Excellent
	case s >= 75:
		return Good
	case s >= 60:
		return Fair
	case s >= 40:
		return Poor
	default:
		return Critical
	}
}
