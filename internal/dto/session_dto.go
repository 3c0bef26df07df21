package dto

import "time"

type SessionResponseDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	TestID          string     `json:"test_id"`
	Status          string     `json:"status"`
	TotalQuestions  int        `json:"total_questions"`
	CurrentQuestion int        `json:"current_question"`
	AnsweredCount   int        `json:"answered_count"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// AnswerSubmitDTO carries one answer. Value is a number for likert and
// numeric questions, or an option label for categorical ones.
type AnswerSubmitDTO struct {
	Value    string         `json:"value" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type AnswerResponseDTO struct {
	ID         string             `json:"id"`
	SessionID  string             `json:"session_id"`
	QuestionID string             `json:"question_id"`
	Value      string             `json:"value"`
	Session    SessionResponseDTO `json:"session"`

	// Result is set when this answer completed the session.
	Result *ResultResponseDTO `json:"result,omitempty"`
}
