package report

import (
	"bytes"
	"encoding/json"
	"image"
	"strconv"

	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/pkg/errors"
)

// Tooth is a candidate that survived every stage, stamped with its disease.
// Values are built once by NewTooth and never changed afterwards.
type Tooth struct {
	Index              int           `json:"id"`
	Box                detection.Box `json:"box"`
	DetectorConfidence float64       `json:"detector_confidence"`
	Disease            model.Disease `json:"disease"`
	Confidence         float64       `json:"confidence"`
	Crop               image.Image   `json:"-"`
}

// NewTooth combines a candidate with its classification.
func NewTooth(c detection.Candidate, p model.Prediction) Tooth {
	return Tooth{
		Index:              c.Index,
		Box:                c.Box,
		DetectorConfidence: c.Confidence,
		Disease:            p.Disease,
		Confidence:         p.Confidence,
		Crop:               c.Crop,
	}
}

// Bounds implements detection.Boxed.
func (t Tooth) Bounds() detection.Box { return t.Box }

// TeethByDisease groups teeth by disease, remembering the order in which each
// disease was first seen.
type TeethByDisease struct {
	order []model.Disease
	teeth map[model.Disease][]Tooth
}

// Group buckets teeth by disease. Diseases appear in first-seen order and
// teeth keep their input order within a bucket.
func Group(teeth []Tooth) TeethByDisease {
	g := TeethByDisease{teeth: make(map[model.Disease][]Tooth)}
	for _, t := range teeth {
		if _, ok := g.teeth[t.Disease]; !ok {
			g.order = append(g.order, t.Disease)
		}
		g.teeth[t.Disease] = append(g.teeth[t.Disease], t)
	}
	return g
}

// Diseases returns the diseases present, in first-seen order.
func (g TeethByDisease) Diseases() []model.Disease {
	return append([]model.Disease(nil), g.order...)
}

// Teeth returns the teeth labelled d.
func (g TeethByDisease) Teeth(d model.Disease) []Tooth {
	return g.teeth[d]
}

// Total returns the number of teeth across all diseases.
func (g TeethByDisease) Total() int {
	n := 0
	for _, ts := range g.teeth {
		n += len(ts)
	}
	return n
}

// Counts flattens the grouping into ordered per-disease counts.
func (g TeethByDisease) Counts() DiseaseCounts {
	out := make(DiseaseCounts, 0, len(g.order))
	for _, d := range g.order {
		out = append(out, DiseaseCount{Disease: d, Count: len(g.teeth[d])})
	}
	return out
}

// MarshalJSON writes the grouping as a JSON object whose keys keep
// first-seen order.
func (g TeethByDisease) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(d))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(g.teeth[d])
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s teeth", d)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DiseaseCount is the number of teeth with one disease.
type DiseaseCount struct {
	Disease model.Disease `json:"condition"`
	Count   int           `json:"count"`
}

// DiseaseCounts is an ordered list of per-disease counts. It is what the
// scorer works on, so a report can be rebuilt from counts alone.
type DiseaseCounts []DiseaseCount

// Total sums the counts. Negative counts are treated as zero.
func (dc DiseaseCounts) Total() int {
	n := 0
	for _, c := range dc {
		if c.Count > 0 {
			n += c.Count
		}
	}
	return n
}

// MarshalJSON writes the counts as a JSON object mapping disease to count,
// in order. UnmarshalJSON reads it back.
func (dc DiseaseCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range dc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(c.Disease))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object mapping disease to either an array of
// teeth or a plain count, keeping key order. This is the shape clients send
// back as "teethByDisease".
func (dc *DiseaseCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "read teethByDisease")
	}
	if tok == nil {
		*dc = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("teethByDisease must be an object")
	}

	var out DiseaseCounts
	index := make(map[model.Disease]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "read teethByDisease key")
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "read %q", key)
		}
		n, err := countOf(raw)
		if err != nil {
			return errors.Wrapf(err, "read %q", key)
		}

		d := model.Disease(key)
		if i, ok := index[d]; ok {
			out[i].Count = n
			continue
		}
		index[d] = len(out)
		out = append(out, DiseaseCount{Disease: d, Count: n})
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "read teethByDisease end")
	}

	*dc = out
	return nil
}

func countOf(raw json.RawMessage) (int, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return len(list), nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("expected an array of teeth or a count")
	}
	if n < 0 {
		return 0, errors.Errorf("negative count %d", n)
	}
	return n, nil
}
