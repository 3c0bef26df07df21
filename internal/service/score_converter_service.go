package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/scoring"
)

// DefaultDimension collects the questions of a test that declares no
// dimensions of its own.
const DefaultDimension = "overall"

// ScoreConverterService turns stored tests and answers into the inputs of
// the scoring package.
type ScoreConverterService interface {
	BuildRubric(test *model.Test) scoring.Rubric
	// ConvertAnswers returns raw numeric values keyed by question id.
	// Values that cannot be mapped are left out.
	ConvertAnswers(questions []model.Question, answers []model.Answer) map[string]float64
}

type scoreConverterServiceImpl struct{}

func NewScoreConverterService() ScoreConverterService {
	return &scoreConverterServiceImpl{}
}

func (s *scoreConverterServiceImpl) BuildRubric(test *model.Test) scoring.Rubric {
	if len(test.Dimensions) == 0 {
		dim := scoring.Dimension{Name: DefaultDimension}
		for _, q := range test.Questions {
			dim.Questions = append(dim.Questions, questionRule(q))
		}
		return scoring.Rubric{Dimensions: []scoring.Dimension{dim}}
	}

	byID := make(map[string]int, len(test.Dimensions))
	rubric := scoring.Rubric{Dimensions: make([]scoring.Dimension, len(test.Dimensions))}
	for i, d := range test.Dimensions {
		byID[d.ID] = i
		rubric.Dimensions[i] = scoring.Dimension{Name: d.Name, Weight: d.Weight}
	}
	for _, q := range test.Questions {
		if q.DimensionID == nil {
			continue
		}
		i, ok := byID[*q.DimensionID]
		if !ok {
			continue
		}
		rubric.Dimensions[i].Questions = append(rubric.Dimensions[i].Questions, questionRule(q))
	}
	return rubric
}

func questionRule(q model.Question) scoring.QuestionRule {
	weight := 1.0
	if q.Weight != nil {
		weight = *q.Weight
	}
	lo, hi := q.MinValue, q.MaxValue
	if q.Kind == model.QuestionKindCategorical && !(lo < hi) {
		lo, hi = optionRange(q.OptionScores.Data())
	}
	return scoring.QuestionRule{
		QuestionID: q.ID,
		Weight:     weight,
		Min:        lo,
		Max:        hi,
		Reverse:    q.Reverse,
	}
}

// optionRange is the span of the option scores; a degenerate span leaves
// the question unscorable.
func optionRange(options map[string]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range options {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(options) == 0 {
		return 0, 0
	}
	return lo, hi
}

func (s *scoreConverterServiceImpl) ConvertAnswers(questions []model.Question, answers []model.Answer) map[string]float64 {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	values := make(map[string]float64, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if v, ok := answerValue(q, a.Value); ok {
			values[a.QuestionID] = v
		}
	}
	return values
}

func answerValue(q model.Question, raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if q.Kind == model.QuestionKindCategorical {
		v, ok := q.OptionScores.Data()[raw]
		return v, ok
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
