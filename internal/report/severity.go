package report

import "github.com/ironsheep/dentalscan/internal/model"

// MaxSeverity is the highest weight in the severity table. It is the
// per-tooth denominator of the oral health score, so raising any weight above
// it requires raising it too.
const MaxSeverity = 4

var severity = map[model.Disease]int{
	model.Healthy:          0,
	model.Caries:           2,
	model.DeeperCaries:     4,
	model.PeriapicalLesion: 3,
	model.Impacted:         2,
	model.Fractured:        3,
	model.BoneDefect:       2,
	model.Unknown:          1,
}

// Severity returns the weight of d. Labels outside the table weigh the same
// as Unknown.
func Severity(d model.Disease) int {
	if w, ok := severity[d]; ok {
		return w
	}
	return severity[model.Unknown]
}

// Level is the coarse severity shown in the findings table.
type Level string

const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

// SeverityLevel buckets a disease: weight 3 and above is High, 2 is Medium,
// anything lower is Low.
func SeverityLevel(d model.Disease) Level {
	switch w := Severity(d); {
	case w >= 3:
		return LevelHigh
	case w >= 2:
		return LevelMedium
	default:
		return LevelLow
	}
}

var advice = map[model.Disease]string{
	model.Healthy:          "No treatment needed. Continue with regular brushing, flossing, and biannual dental checkups.",
	model.Caries:           "Early cavity detected. Treatment options include fluoride treatments or small fillings. Schedule a follow-up appointment soon.",
	model.DeeperCaries:     "Advanced decay detected. Will likely require root canal therapy or extensive restoration. Prompt treatment recommended.",
	model.PeriapicalLesion: "Infection detected at tooth root. Root canal treatment needed. Contact your dentist promptly.",
	model.Impacted:         "Impacted tooth detected. Consult with an oral surgeon about extraction or monitoring.",
	model.Fractured:        "Fractured tooth detected. Treatment depends on severity - may require crown, bonding, or extraction.",
	model.BoneDefect:       "Bone defect or resorption detected. Additional imaging and specialist consultation recommended.",
	model.Unknown:          "Undefined condition detected. Further examination required.",
}

// Advice returns the treatment text for d, falling back to the Unknown text.
func Advice(d model.Disease) string {
	if a, ok := advice[d]; ok {
		return a
	}
	return advice[model.Unknown]
}
