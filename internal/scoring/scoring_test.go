package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(id string) QuestionRule {
	return QuestionRule{QuestionID: id, Weight: 1, Min: 0, Max: 100}
}

func ptr(v float64) *float64 { return &v }

func TestScoreEqualWeightedDimensions(t *testing.T) {
	r := Rubric{Dimensions: []Dimension{
		{Name: "A", Questions: []QuestionRule{rule("a1"), rule("a2"), rule("a3")}},
		{Name: "B", Questions: []QuestionRule{rule("b1"), rule("b2")}},
	}}
	values := map[string]float64{"a1": 80, "a2": 90, "a3": 100, "b1": 50, "b2": 70}

	out := Score(r, values)

	assert.Equal(t, map[string]float64{"A": 90, "B": 60}, out.DimensionScores)
	require.NotNil(t, out.OverallScore)
	assert.Equal(t, 75.0, *out.OverallScore)
	assert.Empty(t, out.Skipped)
}

func TestScoreExcludesEmptyDimensions(t *testing.T) {
	r := Rubric{Dimensions: []Dimension{
		{Name: "A", Questions: []QuestionRule{rule("a1")}},
		{Name: "Empty"},
		{Name: "Unanswered", Questions: []QuestionRule{rule("u1")}},
	}}

	out := Score(r, map[string]float64{"a1": 40})

	assert.Equal(t, map[string]float64{"A": 40}, out.DimensionScores)
	assert.NotContains(t, out.DimensionScores, "Empty")
	require.NotNil(t, out.OverallScore)
	assert.Equal(t, 40.0, *out.OverallScore, "empty dimensions must not pull the mean toward zero")
	assert.Equal(t, []string{"Empty", "Unanswered"}, out.Skipped)
}

func TestScoreNoScorableDimensionLeavesOverallNil(t *testing.T) {
	r := Rubric{Dimensions: []Dimension{{Name: "A", Questions: []QuestionRule{rule("a1")}}}}

	out := Score(r, map[string]float64{})

	assert.Empty(t, out.DimensionScores)
	assert.Nil(t, out.OverallScore)
}

func TestScoreAppliesWeights(t *testing.T) {
	r := Rubric{Dimensions: []Dimension{
		{Name: "A", Weight: ptr(3), Questions: []QuestionRule{
			{QuestionID: "a1", Weight: 1, Min: 1, Max: 5},
			{QuestionID: "a2", Weight: 3, Min: 1, Max: 5},
		}},
		{Name: "B", Weight: ptr(1), Questions: []QuestionRule{{QuestionID: "b1", Weight: 1, Min: 1, Max: 5}}},
		{Name: "Ignored", Weight: ptr(0), Questions: []QuestionRule{{QuestionID: "c1", Weight: 1, Min: 1, Max: 5}}},
	}}
	// a1=5 -> 100, a2=1 -> 0; weighted A = (100*1 + 0*3)/4 = 25. b1=3 -> 50.
	values := map[string]float64{"a1": 5, "a2": 1, "b1": 3, "c1": 5}

	out := Score(r, values)

	assert.Equal(t, 25.0, out.DimensionScores["A"])
	assert.Equal(t, 50.0, out.DimensionScores["B"])
	assert.Equal(t, 100.0, out.DimensionScores["Ignored"], "zero-weight dimensions are still reported")
	require.NotNil(t, out.OverallScore)
	// (25*3 + 50*1) / 4 = 31.25
	assert.Equal(t, 31.25, *out.OverallScore)
}

func TestScoreReverseKeyedAndClamped(t *testing.T) {
	r := Rubric{Dimensions: []Dimension{{Name: "A", Questions: []QuestionRule{
		{QuestionID: "r1", Weight: 1, Min: 1, Max: 5, Reverse: true},
		{QuestionID: "over", Weight: 1, Min: 1, Max: 5},
	}}}}

	out := Score(r, map[string]float64{"r1": 2, "over": 9})

	// r1: 25 reversed -> 75; over clamps to 100.
	assert.Equal(t, 87.5, out.DimensionScores["A"])
}

func TestNormalizeGuardsEmptyRange(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		lo   float64
		hi   float64
		want float64
		ok   bool
	}{
		{"midpoint", 3, 1, 5, 50, true},
		{"below range", -10, 0, 10, 0, true},
		{"above range", 11, 0, 10, 100, true},
		{"empty range", 3, 5, 5, 0, false},
		{"inverted range", 3, 5, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, tt.lo, tt.hi)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	r := Rubric{Dimensions: []Dimension{
		{Name: "A", Questions: []QuestionRule{rule("a1"), rule("a2")}},
		{Name: "B", Questions: []QuestionRule{rule("b1")}},
	}}
	values := map[string]float64{"a1": 33, "a2": 67, "b1": 12.345}

	first := Score(r, values)
	second := Score(r, values)

	assert.Equal(t, first, second)
}
