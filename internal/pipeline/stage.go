package pipeline

// Stage is a state of the analysis state machine. Stages only move forward:
//
//	Received -> Detect -> BinaryFilter -> Deduplicate -> Classify -> Aggregate -> Done
//
// Any stage may move to Failed.
type Stage int

const (
	Received Stage = iota
	Detect
	BinaryFilter
	Deduplicate
	Classify
	Aggregate
	Done
	Failed
)

var stageNames = [...]string{
	Received:     "received",
	Detect:       "detect",
	BinaryFilter: "binary_filter",
	Deduplicate:  "deduplicate",
	Classify:     "classify",
	Aggregate:    "aggregate",
	Done:         "done",
	Failed:       "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no transition can leave s.
func (s Stage) Terminal() bool { return s == Done || s == Failed }

// canAdvance reports whether the state machine may move from s to next.
func (s Stage) canAdvance(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == Failed {
		return true
	}
	return next == s+1
}
