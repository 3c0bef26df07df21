package dto

import "time"

type ResultResponseDTO struct {
	ID              string             `json:"id"`
	SessionID       string             `json:"session_id"`
	UserID          string             `json:"user_id"`
	TestID          string             `json:"test_id"`
	TestType        string             `json:"test_type"`
	OverallScore    *float64           `json:"overall_score"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Status          string             `json:"status"`
	CompletedAt     time.Time          `json:"completed_at"`

	// Metadata includes "status" and "analyzedAt" from the analysis pipeline.
	Metadata map[string]any `json:"metadata"`
}

type AnalysisResponseDTO struct {
	ID             string    `json:"id"`
	ResultID       string    `json:"result_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Model          string    `json:"model"`
	Confidence     float64   `json:"confidence"`
	Explanation    string    `json:"explanation"`
	CreatedAt      time.Time `json:"created_at"`
}
