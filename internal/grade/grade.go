// Package grade derives section averages, the overall grade and display
// percentages from a card's raw subgrades.
package grade

import (
	"github.com/cardgrade/slabgen/internal/card"
	"github.com/cardgrade/slabgen/internal/numeric"
)

// SideResult holds the derived values for one side.
// Grade values are already rounded to one decimal.
type SideResult struct {
	Surface   card.Value
	Centering card.Value
	Corners   card.Value
	Edges     card.Value
	Average   float64

	Pcts   map[string]int // keyed by aspect
	AvgPct int
}

// Result is everything the renderer needs beyond the raw record
type Result struct {
	Front      SideResult
	Back       SideResult
	Overall    float64
	OverallPct int
}

// Side returns the named side result.
func (r Result) Side(name string) SideResult {
	if name == "back" {
		return r.Back
	}
	return r.Front
}

// Compute derives all grade values for c.
func Compute(c card.Card) Result {
	front := computeSide(c.Subgrades.Front)
	back := computeSide(c.Subgrades.Back)

	res := Result{Front: front, Back: back}
	res.Overall = Overall(c, front.Average, back.Average)
	res.OverallPct = pctWithOverride(c.OverallPct, res.Overall)
	return res
}

// Overall uses the record's explicit grade when present, otherwise the
// weighted combination of the two section averages.
func Overall(c card.Card, frontAvg, backAvg float64) float64 {
	if v, ok := c.OverallGrade.Get(); ok {
		return v
	}
	return numeric.Round1(c.Weights.Front*frontAvg + c.Weights.Back*backAvg)
}

func computeSide(s card.Side) SideResult {
	res := SideResult{
		Surface:   rounded(s.Surface),
		Centering: rounded(s.Centering),
		Corners:   MeasureAverage(s.Corners),
		Edges:     MeasureAverage(s.Edges),
		Pcts:      make(map[string]int, len(card.Aspects)),
	}
	res.Average = SectionAverage(res.Surface, res.Centering, res.Corners, res.Edges)

	values := map[string]card.Value{
		"surface":   res.Surface,
		"centering": res.Centering,
		"corners":   res.Corners,
		"edges":     res.Edges,
	}
	for _, aspect := range card.Aspects {
		v, _ := values[aspect].Get()
		res.Pcts[aspect] = pctWithOverride(s.Pcts[aspect], v)
	}
	res.AvgPct = pctWithOverride(s.Pcts["avg"], res.Average)
	return res
}

// MeasureAverage returns the precomputed average when supplied, else the mean
// of the sub-measurements. A measure that is absent altogether stays absent;
// one with no numeric parts averages to 0.
func MeasureAverage(m card.Measure) card.Value {
	if v, ok := m.Avg.Get(); ok {
		return card.Some(numeric.Round1(v))
	}
	if !m.Present {
		return card.Value{}
	}
	values := make([]float64, 0, len(m.Parts))
	for _, v := range m.Parts {
		values = append(values, v)
	}
	return card.Some(numeric.Round1(Mean(values)))
}

// SectionAverage is the unweighted mean of the present values.
func SectionAverage(values ...card.Value) float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.Get(); ok {
			present = append(present, f)
		}
	}
	return numeric.Round1(Mean(present))
}

// Mean of the finite values; 0 when there are none.
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !numeric.IsFinite(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func rounded(v card.Value) card.Value {
	if f, ok := v.Get(); ok {
		return card.Some(numeric.Round1(f))
	}
	return card.Value{}
}

// explicit percentages already went through rate normalisation at load time
func pctWithOverride(explicit card.Value, derived float64) int {
	if v, ok := explicit.Get(); ok {
		return numeric.Clamp(int(v), 0, 100)
	}
	return numeric.PctOf10(derived)
}
