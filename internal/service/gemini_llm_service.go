package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// AnalysisRequest is what the analyzer sees of one result.
type AnalysisRequest struct {
	ResultID        string
	IdempotencyKey  string
	TestName        string
	TestType        string
	Status          string
	OverallScore    *float64
	DimensionScores map[string]float64
}

type AnalysisOutput struct {
	Confidence  float64
	Explanation string
}

// ResultAnalyzer produces a deep analysis of a scored result. Calls may be
// repeated for the same IdempotencyKey.
type ResultAnalyzer interface {
	Model() string
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisOutput, error)
}

var ErrAnalyzerUnavailable = errors.New("gemini client not initialized")

type geminiLLMService struct {
	client    *genai.GenerativeModel
	modelName string
}

func NewGeminiLLMService(cfg *config.Config) (ResultAnalyzer, error) {
	if cfg.Gemini.ApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Result analysis will fail until it is configured.")
		return &geminiLLMService{modelName: cfg.Gemini.Model}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.ApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Gemini.Model)
	model.SetTemperature(0.2)
	return &geminiLLMService{client: model, modelName: cfg.Gemini.Model}, nil
}

func (s *geminiLLMService) Model() string { return s.modelName }

func buildAnalysisPrompt(req AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("You are an organizational psychologist reviewing the scored result of a workplace assessment.\n")
	b.WriteString("Interpret the scores for an HR audience. Do not invent scores that are not listed.\n\n")
	fmt.Fprintf(&b, "Test: %s\n", req.TestName)
	fmt.Fprintf(&b, "Test type: %s\n", req.TestType)
	fmt.Fprintf(&b, "Result status: %s\n", req.Status)
	if req.OverallScore != nil {
		fmt.Fprintf(&b, "Overall score (0-100): %.2f\n", *req.OverallScore)
	} else {
		b.WriteString("Overall score: not available\n")
	}

	names := make([]string, 0, len(req.DimensionScores))
	for name := range req.DimensionScores {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("Dimension scores (0-100):\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %.2f\n", name, req.DimensionScores[name])
	}

	b.WriteString(`
Format your response strictly as:
Confidence: [a number between 0 and 1 expressing how reliable this interpretation is]
Analysis:
[Your analysis: strengths, risks, and suggested follow-up]
`)
	return b.String()
}

// parseConfidenceAndAnalysis reads the "Confidence:" / "Analysis:" reply format.
func parseConfidenceAndAnalysis(raw string) (float64, string, error) {
	const confidencePrefix = "Confidence:"
	const analysisPrefix = "Analysis:"

	ci := strings.Index(raw, confidencePrefix)
	if ci == -1 {
		return 0, "", fmt.Errorf("response does not contain %q prefix", confidencePrefix)
	}
	line := raw[ci+len(confidencePrefix):]
	if nl := strings.Index(line, "\n"); nl != -1 {
		line = line[:nl]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, "", errors.New("confidence value is empty")
	}
	confidence, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], ","), 64)
	if err != nil {
		return 0, "", fmt.Errorf("could not parse confidence %q: %w", fields[0], err)
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	var analysis string
	if ai := strings.Index(raw, analysisPrefix); ai != -1 && ai > ci {
		analysis = strings.TrimSpace(raw[ai+len(analysisPrefix):])
	} else {
		rest := raw[ci+len(confidencePrefix):]
		if nl := strings.Index(rest, "\n"); nl != -1 {
			analysis = strings.TrimSpace(rest[nl+1:])
		}
	}
	if analysis == "" {
		return 0, "", errors.New("analysis text is empty")
	}
	return confidence, analysis, nil
}

func (s *geminiLLMService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisOutput, error) {
	if s.client == nil {
		return nil, ErrAnalyzerUnavailable
	}

	resp, err := s.client.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(req)))
	if err != nil {
		log.Error().Err(err).Str("resultID", req.ResultID).Msg("Analyze: Gemini API error")
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	confidence, analysis, err := parseConfidenceAndAnalysis(text.String())
	if err != nil {
		log.Warn().Err(err).Str("resultID", req.ResultID).Str("rawResponse", text.String()).Msg("Analyze: Failed to parse Gemini response")
		return nil, err
	}
	return &AnalysisOutput{Confidence: confidence, Explanation: analysis}, nil
}
