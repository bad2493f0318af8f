// Package pipeline orchestrates the analysis of one dental radiograph.
//
// A Run moves through a fixed sequence of stages:
//
//	Detect        rank detector output and cut crops
//	BinaryFilter  keep crops that look like teeth
//	Deduplicate   drop overlapping boxes
//	Classify      label every remaining crop with a disease
//	Aggregate     annotate, group, score and recommend
//
// Each stage returns a new slice and never reorders or edits what it was
// given except by dropping entries. Every collaborator call can be bounded by
// Options.StageTimeout.
//
// # Failure Handling
//
// Detection is best effort: a detector error or empty result produces a
// report with no teeth. Any later failure is returned as a *StageError, and
// the upload is removed from transient storage. The upload reaches permanent
// storage only after every stage succeeded.
package pipeline
