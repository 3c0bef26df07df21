package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ResultCompleted  = "completed"
	ResultIncomplete = "incomplete"
)

func ValidResultStatus(s string) bool {
	return s == ResultCompleted || s == ResultIncomplete
}

// Analysis pipeline states, surfaced to clients as metadata.status.
const (
	AnalysisReady    = "analysis_ready"
	AnalysisComplete = "analysis_complete"
)

type DimensionScores map[string]float64

type TestResult struct {
	ID                 string                              `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SessionID          string                              `json:"session_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID             string                              `json:"user_id" gorm:"type:varchar(64);not null;index"`
	TestID             string                              `json:"test_id" gorm:"type:varchar(64);not null;index"`
	TestType           string                              `json:"test_type" gorm:"not null"`
	OverallScore       *float64                            `json:"overall_score,omitempty"`
	DimensionScores    datatypes.JSONType[DimensionScores] `json:"dimension_scores"`
	Status             string                              `json:"status" gorm:"not null"`
	CompletedAt        time.Time                           `json:"completed_at"`
	Metadata           datatypes.JSONMap                   `json:"metadata,omitempty"`
	AnalysisStatus     string                              `json:"analysis_status" gorm:"index"`
	AnalysisAttempts   int                                 `json:"analysis_attempts" gorm:"not null;default:0"`
	AnalysisLeaseUntil *time.Time                          `json:"-"`
	AnalyzedAt         *time.Time                          `json:"analyzed_at,omitempty"`
	LastAnalysisError  string                              `json:"last_analysis_error,omitempty" gorm:"type:text"`
	Analyses           []AIAnalysis                        `json:"analyses,omitempty" gorm:"foreignKey:ResultID"`
	CreatedAt          time.Time                           `json:"created_at"`
	UpdatedAt          time.Time                           `json:"updated_at"`
}

func (r *TestResult) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
