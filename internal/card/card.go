package card

import (
	"bytes"
	"encoding/json"

	"github.com/cardgrade/slabgen/internal/numeric"
)

// Origin tags where a record was loaded from
type Origin string

const (
	OriginCSV  Origin = "csv"
	OriginJSON Origin = "json"
)

// Aspects are the four subgrade categories graded on each side, in display order
var Aspects = []string{"surface", "centering", "corners", "edges"}

// Services are the grading services whose population data is rendered
var Services = []string{"psa", "bgs", "sgc", "cgc"}

// Default side weights used when a record does not supply its own
const (
	DefaultFrontWeight = 0.8
	DefaultBackWeight  = 0.2
)

// Card represents one graded trading card after normalisation
type Card struct {
	Origin Origin // csv or json
	Source string // file the record came from

	ID       string // Used as the output file stem
	Player   string
	Set      string
	Number   string
	Variant  string
	Serial   string
	Team     string
	Sport    string
	GradedAt string // YYYY-MM-DD

	Front string // Image locators
	Back  string
	Edge  string

	CompareURL   string
	Distribution json.RawMessage // Opaque compare.distribution blob

	Subgrades    Subgrades
	OverallGrade Value
	OverallPct   Value
	Weights      Weights

	Population map[string]ServicePop
}

// Subgrades holds the per-side grading inputs
type Subgrades struct {
	Front Side
	Back  Side
}

// Side holds the grading inputs of one face of the card
type Side struct {
	Surface   Value
	Centering Value
	Corners   Measure
	Edges     Measure
	Remarks   map[string]string // keyed by aspect
	Pcts      map[string]Value  // explicit display percentages, keyed by aspect or "avg"
}

// Weights controls how the two section averages combine into the overall grade
type Weights struct {
	Front float64
	Back  float64
}

// ServicePop is the population report of one grading service
type ServicePop struct {
	Count   Value
	GemRate Value // 0-100
}

// Side returns the named side ("front" or "back").
func (s *Subgrades) Side(name string) *Side {
	if name == "back" {
		return &s.Back
	}
	return &s.Front
}

// Value is an optional number. The zero value is "absent".
type Value struct {
	V   float64
	Set bool
}

// Some wraps a present value
func Some(v float64) Value {
	return Value{V: v, Set: true}
}

// Get returns the value and whether it is present and finite.
func (v Value) Get() (float64, bool) {
	if !v.Set || !numeric.IsFinite(v.V) {
		return 0, false
	}
	return v.V, true
}

// UnmarshalJSON accepts numbers, loose numeric strings and null.
// Anything else decodes as absent rather than failing the record.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if f, ok := numeric.ParseLoose(s); ok {
			*v = Some(f)
		}
	case '{', '[', 't', 'f':
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err == nil {
			*v = Some(f)
		}
	}
	return nil
}

// Measure is a corners or edges grade: either a single precomputed average or
// a set of named sub-measurements.
type Measure struct {
	Avg     Value
	Parts   map[string]float64
	Present bool
}

// UnmarshalJSON accepts a number (the average) or an object of named grades.
// Non-numeric entries in the object are dropped.
func (m *Measure) UnmarshalJSON(data []byte) error {
	*m = Measure{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var raw map[string]Value
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		m.Parts = make(map[string]float64, len(raw))
		for k, val := range raw {
			if f, ok := val.Get(); ok {
				m.Parts[k] = f
			}
		}
		m.Present = true
		return nil
	}
	var val Value
	if err := val.UnmarshalJSON(data); err != nil {
		return err
	}
	if val.Set {
		m.Avg = val
		m.Present = true
	}
	return nil
}
