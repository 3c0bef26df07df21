// Package scoring computes dimension and overall scores from raw answers and
// an explicit rubric. It has no store dependencies.
package scoring

import (
	"math"
	"sort"
)

// QuestionRule maps one question into a dimension. Min and Max are the
// declared response range used for 0-100 normalization.
type QuestionRule struct {
	QuestionID string
	Weight     float64
	Min        float64
	Max        float64
	Reverse    bool
}

// Dimension is one sub-scale. A nil Weight counts as 1 in the overall mean.
type Dimension struct {
	Name      string
	Weight    *float64
	Questions []QuestionRule
}

type Rubric struct {
	Dimensions []Dimension
}

// Names lists the rubric's dimension names in declaration order.
func (r Rubric) Names() []string {
	names := make([]string, 0, len(r.Dimensions))
	for _, d := range r.Dimensions {
		names = append(names, d.Name)
	}
	return names
}

type Outcome struct {
	// DimensionScores only holds dimensions that had at least one scorable answer.
	DimensionScores map[string]float64

	// OverallScore is nil when no dimension could be scored.
	OverallScore *float64

	// Skipped lists dimensions left out of the overall mean.
	Skipped []string
}

// Normalize maps raw into 0-100 over [lo, hi], clamping out-of-range values.
// ok is false when the range is empty.
func Normalize(raw, lo, hi float64) (float64, bool) {
	if !(hi > lo) || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false
	}
	v := (raw - lo) / (hi - lo) * 100
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return v, true
}

// Score computes the weighted mean per dimension and the weighted mean of
// the defined dimension scores. values holds raw numeric answers keyed by
// question id; missing questions are simply not counted.
func Score(r Rubric, values map[string]float64) Outcome {
	out := Outcome{DimensionScores: make(map[string]float64)}

	var overallSum, overallWeight float64
	for _, dim := range r.Dimensions {
		score, ok := dimensionScore(dim, values)
		if !ok {
			out.Skipped = append(out.Skipped, dim.Name)
			continue
		}
		out.DimensionScores[dim.Name] = Round2(score)

		w := 1.0
		if dim.Weight != nil {
			w = *dim.Weight
		}
		if w <= 0 {
			continue
		}
		overallSum += score * w
		overallWeight += w
	}

	if overallWeight > 0 {
		overall := Round2(overallSum / overallWeight)
		out.OverallScore = &overall
	}
	sort.Strings(out.Skipped)
	return out
}

func dimensionScore(dim Dimension, values map[string]float64) (float64, bool) {
	var sum, weight float64
	for _, q := range dim.Questions {
		raw, answered := values[q.QuestionID]
		if !answered {
			continue
		}
		w := q.Weight
		if w <= 0 {
			continue
		}
		norm, ok := Normalize(raw, q.Min, q.Max)
		if !ok {
			continue
		}
		if q.Reverse {
			norm = 100 - norm
		}
		sum += norm * w
		weight += w
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
