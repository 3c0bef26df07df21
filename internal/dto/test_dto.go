package dto

import "time"

type DimensionResponseDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Weight   *float64 `json:"weight,omitempty"`
	Position int      `json:"position"`
}

// QuestionResponseDTO is used for displaying question details to users.
type QuestionResponseDTO struct {
	ID           string             `json:"id"`
	TestID       string             `json:"test_id"`
	DimensionID  *string            `json:"dimension_id,omitempty"`
	Text         string             `json:"text"`
	Kind         string             `json:"kind"`
	OrderInTest  int                `json:"order_in_test"`
	MinValue     float64            `json:"min_value"`
	MaxValue     float64            `json:"max_value"`
	OptionScores map[string]float64 `json:"option_scores,omitempty"`
}

// TestResponseDTO is used for displaying full test details to users.
type TestResponseDTO struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type"`
	Active      bool                   `json:"active"`
	Dimensions  []DimensionResponseDTO `json:"dimensions,omitempty"`
	Questions   []QuestionResponseDTO  `json:"questions,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// TestSummaryDTO is used for listing tests available to users.
type TestSummaryDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Type          string    `json:"type"`
	Active        bool      `json:"active"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}
