// Package report turns classified teeth into an oral health report.
//
// Teeth are grouped by disease in first-seen order, weighted by a fixed
// severity table and scored from 0 to 100:
//
//	score = 100 - sum(severity * count) / (MaxSeverity * total) * 100
//
// The score is banded into a Rating, and a recommendation list is produced
// from fixed advice text per disease.
package report
