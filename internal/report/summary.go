package report

import (
	"fmt"
	"time"

	"github.com/ironsheep/dentalscan/internal/model"
)

// Fixed recommendation lines.
const (
	FollowUpAdvice   = "Schedule a follow-up with your dentist to discuss these findings."
	HygieneAdvice    = "Maintain good oral hygiene: Brush twice daily, floss daily, and use mouthwash."
	SugarAdvice      = "Reduce sugar intake to prevent further decay."
	ExamAdvice       = "Schedule a comprehensive dental exam to get a proper assessment."
	Disclaimer       = "This report is generated based on AI analysis and should be reviewed by a dental professional. It is not a substitute for professional dental advice, diagnosis, or treatment."
	ReportTitle      = "Dental X-Ray Analysis Report"
	reportDateFormat = "January 02, 2006"
)

// Recommendations returns the advice list for a grouping: a follow-up line,
// one "<disease>: <advice>" line per disease in group order, then two hygiene
// lines. An empty grouping yields only ExamAdvice.
func Recommendations(counts DiseaseCounts) []string {
	if len(counts) == 0 {
		return []string{ExamAdvice}
	}

	out := make([]string, 0, len(counts)+3)
	out = append(out, FollowUpAdvice)
	for _, c := range counts {
		out = append(out, fmt.Sprintf("%s: %s", c.Disease, Advice(c.Disease)))
	}
	return append(out, HygieneAdvice, SugarAdvice)
}

// Finding is one row of the findings table.
type Finding struct {
	Condition model.Disease `json:"condition"`
	Count     int           `json:"count"`
	Severity  Level         `json:"severity"`
	Advice    string        `json:"recommendation"`
}

// Findings builds the findings table in group order.
func Findings(counts DiseaseCounts) []Finding {
	out := make([]Finding, 0, len(counts))
	for _, c := range counts {
		out = append(out, Finding{
			Condition: c.Disease,
			Count:     c.Count,
			Severity:  SeverityLevel(c.Disease),
			Advice:    Advice(c.Disease),
		})
	}
	return out
}

// Summary is the printable report for one analysis.
type Summary struct {
	Title           string    `json:"title"`
	Generated       string    `json:"generated"`
	Score           int       `json:"score"`
	Rating          Rating    `json:"rating"`
	Findings        []Finding `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	Disclaimer      string    `json:"disclaimer"`
}

// BuildSummary assembles a Summary from per-disease counts. now is stamped
// as the generation date.
func BuildSummary(counts DiseaseCounts, now time.Time) Summary {
	score := CalculateScore(counts)
	return Summary{
		Title:           ReportTitle,
		Generated:       now.Format(reportDateFormat),
		Score:           score.Value,
		Rating:          score.Rating,
		Findings:        Findings(counts),
		Recommendations: Recommendations(counts),
		Disclaimer:      Disclaimer,
	}
}
