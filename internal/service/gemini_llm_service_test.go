package service

import (
	"context"
	"strings"
	"testing"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfidenceAndAnalysis(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		confidence float64
		analysis   string
		wantErr    bool
	}{
		{
			name:       "canonical",
			raw:        "Confidence: 0.82\nAnalysis:\nStrong conscientiousness.",
			confidence: 0.82,
			analysis:   "Strong conscientiousness.",
		},
		{
			name:       "analysis on the following lines without label",
			raw:        "Confidence: 0.5\nBalanced profile overall.",
			confidence: 0.5,
			analysis:   "Balanced profile overall.",
		},
		{
			name:       "clamped above one",
			raw:        "Confidence: 7\nAnalysis: ok",
			confidence: 1,
			analysis:   "ok",
		},
		{
			name:       "clamped below zero",
			raw:        "Confidence: -0.3,\nAnalysis: weak signal",
			confidence: 0,
			analysis:   "weak signal",
		},
		{name: "missing prefix", raw: "The candidate is fine.", wantErr: true},
		{name: "non numeric", raw: "Confidence: high\nAnalysis: x", wantErr: true},
		{name: "empty analysis", raw: "Confidence: 0.4\nAnalysis:   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, analysis, err := parseConfidenceAndAnalysis(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.confidence, confidence)
			assert.Equal(t, tt.analysis, analysis)
		})
	}
}

func TestBuildAnalysisPromptListsScoresInOrder(t *testing.T) {
	prompt := buildAnalysisPrompt(AnalysisRequest{
		TestName:        "Big Five",
		TestType:        "personalidade",
		Status:          "completed",
		OverallScore:    ptr(72.5),
		DimensionScores: map[string]float64{"openness": 80, "agreeableness": 65},
	})

	assert.Contains(t, prompt, "Test: Big Five")
	assert.Contains(t, prompt, "Overall score (0-100): 72.50")
	assert.Less(t, strings.Index(prompt, "agreeableness"), strings.Index(prompt, "openness"))
	assert.Contains(t, prompt, "Confidence:")

	noScore := buildAnalysisPrompt(AnalysisRequest{TestName: "Empty"})
	assert.Contains(t, noScore, "Overall score: not available")
}

func TestGeminiWithoutKeyIsUnavailable(t *testing.T) {
	analyzer, err := NewGeminiLLMService(&config.Config{Gemini: config.Gemini{Model: "gemini-1.5-flash"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", analyzer.Model())

	_, err = analyzer.Analyze(context.Background(), AnalysisRequest{ResultID: "r1"})
	assert.ErrorIs(t, err, ErrAnalyzerUnavailable)
}
